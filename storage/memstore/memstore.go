// Package memstore is an in-memory Store used by tests and offline runs.
//
// It implements the whole contract, including the keystore bridge: an
// imported PKCS#8 Ed25519 key derives the same IPNS-style name Kubo would
// derive, so publish-then-resolve round-trips without a daemon.
package memstore

import (
	"context"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/agoramesh/agora/cidutil"
	"github.com/agoramesh/agora/naming"
	"github.com/agoramesh/agora/storage"
)

type Store struct {
	mu     sync.Mutex
	blocks map[cid.Cid][]byte
	pins   map[cid.Cid]bool
	// names maps IPNS name -> published CID; keys maps keystore name ->
	// private key; nameErrs holds injected per-name resolve failures.
	names    map[string]cid.Cid
	keys     map[string]ed25519.PrivateKey
	nameErrs map[string]error
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		blocks:   make(map[cid.Cid][]byte),
		pins:     make(map[cid.Cid]bool),
		names:    make(map[string]cid.Cid),
		keys:     make(map[string]ed25519.PrivateKey),
		nameErrs: make(map[string]error),
	}
}

func (s *Store) Put(_ context.Context, data []byte) (cid.Cid, error) {
	id, err := cidutil.Sum(data)
	if err != nil {
		return cid.Undef, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[id] = append([]byte(nil), data...)
	return id, nil
}

func (s *Store) Get(_ context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blocks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *Store) Pin(_ context.Context, id cid.Cid) error {
	if !id.Defined() {
		return storage.ErrInvalidCID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blocks[id]; !ok {
		return storage.ErrNotFound
	}
	s.pins[id] = true
	return nil
}

func (s *Store) PublishName(_ context.Context, id cid.Cid, keyName string) (string, error) {
	if !id.Defined() {
		return "", storage.ErrInvalidCID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[keyName]
	if !ok {
		return "", fmt.Errorf("memstore: unknown key %q", keyName)
	}
	name, err := naming.FromPublicKey(key.Public().(ed25519.PublicKey))
	if err != nil {
		return "", err
	}
	s.names[name] = id
	return name, nil
}

func (s *Store) ResolveName(_ context.Context, name string, _ time.Duration) (cid.Cid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.nameErrs[name]; ok {
		return cid.Undef, err
	}
	id, ok := s.names[name]
	if !ok {
		return cid.Undef, storage.ErrUnresolved
	}
	return id, nil
}

func (s *Store) ImportKey(_ context.Context, keyName string, pemBytes []byte) error {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return errors.New("memstore: not a PEM block")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return err
	}
	key, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return errors.New("memstore: key is not Ed25519")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[keyName] = key
	return nil
}

func (s *Store) ListKeys(_ context.Context) ([]storage.KeyInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	infos := make([]storage.KeyInfo, 0, len(s.keys))
	for name, key := range s.keys {
		ipnsName, err := naming.FromPublicKey(key.Public().(ed25519.PublicKey))
		if err != nil {
			return nil, err
		}
		infos = append(infos, storage.KeyInfo{Name: name, ID: ipnsName})
	}
	return infos, nil
}

// Pinned reports whether id has been pinned.
func (s *Store) Pinned(id cid.Cid) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pins[id]
}

// SetNameError makes ResolveName fail for name with err until cleared with
// a nil err. Test hook for per-entry poll failure paths.
func (s *Store) SetNameError(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.nameErrs, name)
		return
	}
	s.nameErrs[name] = err
}
