// Package naming derives the IPNS name under which an identity's feed is
// published from its public key alone.
//
// Anyone holding a DID can compute where to look for that identity's feed
// without a registry lookup: the name is the base36 CIDv1 (libp2p-key
// codec, identity multihash) of the libp2p protobuf encoding of the
// Ed25519 public key. Kubo derives the same name from the imported key, so
// publish and resolve meet without coordination.
package naming

import (
	"crypto/ed25519"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"

	"github.com/agoramesh/agora/identity"
)

// pubKeyHeader is the libp2p protobuf PublicKey framing for a 32-byte
// Ed25519 key: field 1 varint 1 (KeyType = Ed25519), field 2 length 32 (Data).
var pubKeyHeader = []byte{0x08, 0x01, 0x12, 0x20}

// FromPublicKey derives the IPNS name for an Ed25519 public key.
//
// Byte layout, innermost first:
//
//	record    = 08 01 12 20 || pubkey            (36 bytes, libp2p protobuf)
//	multihash = 00 24 || record                  (38 bytes, identity function)
//	cid       = 01 72 || multihash               (40 bytes, CIDv1 libp2p-key)
//	name      = "k" + base36(cid)
func FromPublicKey(pub ed25519.PublicKey) (string, error) {
	if len(pub) != ed25519.PublicKeySize {
		return "", fmt.Errorf("%w: public key must be %d bytes, got %d", identity.ErrFormat, ed25519.PublicKeySize, len(pub))
	}
	record := make([]byte, 0, len(pubKeyHeader)+ed25519.PublicKeySize)
	record = append(record, pubKeyHeader...)
	record = append(record, pub...)

	mh, err := multihash.Encode(record, multihash.IDENTITY)
	if err != nil {
		return "", err
	}
	c := cid.NewCidV1(cid.Libp2pKey, mh)
	return c.StringOfBase(multibase.Base36)
}

// FromDID derives the IPNS name for a did:key string. Malformed DIDs
// surface identity.ErrFormat.
func FromDID(did string) (string, error) {
	pub, err := identity.DecodeDID(did)
	if err != nil {
		return "", err
	}
	return FromPublicKey(pub)
}

// ToDID recovers the did:key string from an IPNS name produced by
// FromPublicKey. Used to cross-check derivations; resolution itself never
// needs it.
func ToDID(name string) (string, error) {
	c, err := cid.Decode(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", identity.ErrFormat, err)
	}
	if c.Version() != 1 || c.Type() != cid.Libp2pKey {
		return "", fmt.Errorf("%w: name is not a CIDv1 libp2p-key", identity.ErrFormat)
	}
	dec, err := multihash.Decode(c.Hash())
	if err != nil {
		return "", fmt.Errorf("%w: %v", identity.ErrFormat, err)
	}
	if dec.Code != multihash.IDENTITY {
		return "", fmt.Errorf("%w: name does not use the identity multihash", identity.ErrFormat)
	}
	record := dec.Digest
	if len(record) != len(pubKeyHeader)+ed25519.PublicKeySize {
		return "", fmt.Errorf("%w: key record is %d bytes, want %d", identity.ErrFormat, len(record), len(pubKeyHeader)+ed25519.PublicKeySize)
	}
	for i, b := range pubKeyHeader {
		if record[i] != b {
			return "", fmt.Errorf("%w: key record does not carry an Ed25519 key", identity.ErrFormat)
		}
	}
	return identity.EncodeDID(ed25519.PublicKey(record[len(pubKeyHeader):]))
}
