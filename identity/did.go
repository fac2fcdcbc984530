package identity

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// ErrFormat is returned for malformed DIDs and malformed base-encoded text.
// Callers should match it with errors.Is.
var ErrFormat = errors.New("identity: malformed did")

// didPrefix is the did:key scheme with the 'z' multibase marker for base58btc.
const didPrefix = "did:key:z"

// ed25519Multicodec is the varint multicodec tag for an Ed25519 public key (0xed01).
var ed25519Multicodec = []byte{0xed, 0x01}

// EncodeDID returns the did:key string for an Ed25519 public key.
//
// Layout: "did:key:z" + base58btc(0xed 0x01 || pubkey), Bitcoin alphabet,
// one leading '1' per leading zero byte of the tagged input.
func EncodeDID(pub ed25519.PublicKey) (string, error) {
	if len(pub) != ed25519.PublicKeySize {
		return "", fmt.Errorf("%w: public key must be %d bytes, got %d", ErrFormat, ed25519.PublicKeySize, len(pub))
	}
	tagged := make([]byte, 0, len(ed25519Multicodec)+ed25519.PublicKeySize)
	tagged = append(tagged, ed25519Multicodec...)
	tagged = append(tagged, pub...)
	return didPrefix + base58.Encode(tagged), nil
}

// DecodeDID extracts the raw Ed25519 public key from a did:key string.
//
// It fails with ErrFormat when the scheme marker is absent, when any
// character is outside the base58btc alphabet, when the decoded length is
// not tag+32 bytes, or when the multicodec tag is not Ed25519.
func DecodeDID(did string) (ed25519.PublicKey, error) {
	encoded, ok := strings.CutPrefix(did, didPrefix)
	if !ok {
		return nil, fmt.Errorf("%w: expected %q prefix in %q", ErrFormat, didPrefix, did)
	}
	tagged, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if len(tagged) != len(ed25519Multicodec)+ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: decoded %d bytes, want %d", ErrFormat, len(tagged), len(ed25519Multicodec)+ed25519.PublicKeySize)
	}
	if tagged[0] != ed25519Multicodec[0] || tagged[1] != ed25519Multicodec[1] {
		return nil, fmt.Errorf("%w: wrong multicodec tag for Ed25519 key", ErrFormat)
	}
	return ed25519.PublicKey(tagged[2:]), nil
}

// ValidDID reports whether did parses as a well-formed did:key string.
func ValidDID(did string) bool {
	_, err := DecodeDID(did)
	return err == nil
}
