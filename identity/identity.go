// Package identity manages the local agent's Ed25519 keypair and its
// did:key encoding.
//
// An identity is created once and owned exclusively by the local agent;
// the DID is a pure function of the public key. The private seed never
// leaves the identity file except through KuboPEM for the keystore bridge.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
)

// Identity is the persisted local identity record.
//
// PublicKey and PrivateKey are base64 in the JSON encoding; PrivateKey is
// the 32-byte Ed25519 seed, not the expanded 64-byte key.
type Identity struct {
	DID        string `json:"did"`
	PublicKey  []byte `json:"public_key"`
	PrivateKey []byte `json:"private_key"`
}

// Generate creates a fresh Ed25519 identity.
func Generate() (*Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return FromSeed(priv.Seed()[:], pub)
}

// FromSeed builds an identity from a 32-byte Ed25519 seed. pub may be nil,
// in which case it is derived from the seed.
func FromSeed(seed []byte, pub ed25519.PublicKey) (*Identity, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("identity: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	if pub == nil {
		pub = ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	}
	did, err := EncodeDID(pub)
	if err != nil {
		return nil, err
	}
	return &Identity{
		DID:        did,
		PublicKey:  append([]byte(nil), pub...),
		PrivateKey: append([]byte(nil), seed...),
	}, nil
}

// SigningKey returns the expanded Ed25519 private key for the identity.
func (id *Identity) SigningKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(id.PrivateKey)
}

// Load reads an identity file. A missing or corrupt file yields (nil, nil):
// the caller treats that as "no identity yet" rather than a fatal state.
func Load(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var raw struct {
		DID        string `json:"did"`
		PublicKey  string `json:"public_key"`
		PrivateKey string `json:"private_key"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil
	}
	pub, err := base64.StdEncoding.DecodeString(raw.PublicKey)
	if err != nil {
		return nil, nil
	}
	seed, err := base64.StdEncoding.DecodeString(raw.PrivateKey)
	if err != nil {
		return nil, nil
	}
	if len(pub) != ed25519.PublicKeySize || len(seed) != ed25519.SeedSize {
		return nil, nil
	}
	return &Identity{DID: raw.DID, PublicKey: pub, PrivateKey: seed}, nil
}

// Save writes the identity file with owner-only permissions.
func (id *Identity) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	record := map[string]string{
		"did":         id.DID,
		"public_key":  base64.StdEncoding.EncodeToString(id.PublicKey),
		"private_key": base64.StdEncoding.EncodeToString(id.PrivateKey),
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// KuboPEM renders the identity's private key as a PKCS#8 PEM block, the
// cleartext format Kubo's key/import endpoint accepts.
func (id *Identity) KuboPEM() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(id.SigningKey())
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}
