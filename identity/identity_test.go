package identity

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
)

func TestFromSeedDeterministic(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i * 7)
	}
	a, err := FromSeed(seed, nil)
	if err != nil {
		t.Fatalf("FromSeed: %v", err)
	}
	b, err := FromSeed(seed, nil)
	if err != nil {
		t.Fatalf("FromSeed: %v", err)
	}
	if a.DID != b.DID {
		t.Fatalf("same seed derived different DIDs: %q vs %q", a.DID, b.DID)
	}
	if _, err := FromSeed(seed[:16], nil); err == nil {
		t.Fatalf("expected error for short seed")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	ident, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := ident.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil {
		t.Fatalf("Load returned no identity")
	}
	if loaded.DID != ident.DID {
		t.Fatalf("DID mismatch after reload")
	}
	if string(loaded.PrivateKey) != string(ident.PrivateKey) {
		t.Fatalf("seed mismatch after reload")
	}

	// The reloaded identity must produce signatures the original's public
	// key accepts.
	msg := []byte("cross-check")
	sig := ed25519.Sign(loaded.SigningKey(), msg)
	if !ed25519.Verify(ed25519.PublicKey(ident.PublicKey), msg, sig) {
		t.Fatalf("reloaded key does not sign for the original identity")
	}
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	ident, err := Load(filepath.Join(dir, "nope.json"))
	if err != nil || ident != nil {
		t.Fatalf("missing file: got (%v, %v), want (nil, nil)", ident, err)
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	ident, err = Load(corrupt)
	if err != nil || ident != nil {
		t.Fatalf("corrupt file: got (%v, %v), want (nil, nil)", ident, err)
	}
}

func TestKuboPEM(t *testing.T) {
	ident, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	pemBytes, err := ident.KuboPEM()
	if err != nil {
		t.Fatalf("KuboPEM: %v", err)
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != "PRIVATE KEY" {
		t.Fatalf("expected a PRIVATE KEY PEM block")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		t.Fatalf("ParsePKCS8PrivateKey: %v", err)
	}
	key, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		t.Fatalf("parsed key is %T, want ed25519", parsed)
	}
	if string(key.Seed()) != string(ident.PrivateKey) {
		t.Fatalf("PEM does not carry the identity seed")
	}
}
