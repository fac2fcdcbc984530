package naming

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"

	"github.com/multiformats/go-multibase"

	"github.com/agoramesh/agora/identity"
)

func TestFromDIDDeterministic(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	did, err := identity.EncodeDID(pub)
	if err != nil {
		t.Fatalf("EncodeDID: %v", err)
	}

	a, err := FromDID(did)
	if err != nil {
		t.Fatalf("FromDID: %v", err)
	}
	b, err := FromDID(did)
	if err != nil {
		t.Fatalf("FromDID: %v", err)
	}
	if a != b {
		t.Fatalf("derivation is not pure: %q vs %q", a, b)
	}

	c, err := FromPublicKey(pub)
	if err != nil {
		t.Fatalf("FromPublicKey: %v", err)
	}
	if a != c {
		t.Fatalf("FromDID and FromPublicKey disagree: %q vs %q", a, c)
	}
}

func TestNameByteLayout(t *testing.T) {
	pub := make(ed25519.PublicKey, ed25519.PublicKeySize)
	for i := range pub {
		pub[i] = byte(0xA0 + i)
	}
	name, err := FromPublicKey(pub)
	if err != nil {
		t.Fatalf("FromPublicKey: %v", err)
	}
	if !strings.HasPrefix(name, "k") {
		t.Fatalf("expected 'k' multibase marker, got %q", name)
	}
	for _, r := range name[1:] {
		if !strings.ContainsRune("0123456789abcdefghijklmnopqrstuvwxyz", r) {
			t.Fatalf("character %q outside the base36 alphabet in %q", r, name)
		}
	}

	// Decode the multibase independently of the cid library and check
	// every layer of the 40-byte layout.
	enc, raw, err := multibase.Decode(name)
	if err != nil {
		t.Fatalf("multibase.Decode: %v", err)
	}
	if enc != multibase.Base36 {
		t.Fatalf("encoding is %v, want base36", enc)
	}
	if len(raw) != 40 {
		t.Fatalf("decoded name is %d bytes, want 40", len(raw))
	}
	want := []byte{
		0x01,       // CID version 1
		0x72,       // libp2p-key codec
		0x00, 0x24, // identity multihash, length 36
		0x08, 0x01, 0x12, 0x20, // protobuf: KeyType=Ed25519, Data length 32
	}
	for i, b := range want {
		if raw[i] != b {
			t.Fatalf("byte %d is %02x, want %02x", i, raw[i], b)
		}
	}
	if string(raw[8:]) != string(pub) {
		t.Fatalf("public key bytes do not survive derivation")
	}
}

func TestToDIDRoundTrip(t *testing.T) {
	for i := 0; i < 20; i++ {
		pub, _, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			t.Fatalf("GenerateKey: %v", err)
		}
		did, err := identity.EncodeDID(pub)
		if err != nil {
			t.Fatalf("EncodeDID: %v", err)
		}
		name, err := FromDID(did)
		if err != nil {
			t.Fatalf("FromDID: %v", err)
		}
		back, err := ToDID(name)
		if err != nil {
			t.Fatalf("ToDID(%q): %v", name, err)
		}
		if back != did {
			t.Fatalf("round trip mismatch: %q -> %q -> %q", did, name, back)
		}
	}
}

func TestDerivationInjective(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		pub, _, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			t.Fatalf("GenerateKey: %v", err)
		}
		name, err := FromPublicKey(pub)
		if err != nil {
			t.Fatalf("FromPublicKey: %v", err)
		}
		if seen[name] {
			t.Fatalf("distinct keys derived the same name %q", name)
		}
		seen[name] = true
	}
}

func TestFromDIDRejectsMalformed(t *testing.T) {
	for _, did := range []string{"", "did:key:bogus", "did:web:example.com", "k51qzi"} {
		if _, err := FromDID(did); !errors.Is(err, identity.ErrFormat) {
			t.Fatalf("FromDID(%q): got err=%v, want ErrFormat", did, err)
		}
	}
}
