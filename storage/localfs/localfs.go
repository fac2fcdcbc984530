// Package localfs is a filesystem-backed Store.
//
// Blocks are immutable and keyed strictly by CID; names and keys live in
// plain files under the same root, read and rewritten whole on each
// mutation. It is offline and deterministic, useful when no Kubo daemon
// is running: names resolve only for identities published from the same
// root.
package localfs

import (
	"context"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/agoramesh/agora/cidutil"
	"github.com/agoramesh/agora/naming"
	"github.com/agoramesh/agora/storage"
)

type Store struct {
	root string
}

var _ storage.Store = (*Store)(nil)

// New constructs a Store rooted at root, creating it if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	for _, dir := range []string{root, filepath.Join(root, "blocks"), filepath.Join(root, "keys")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &Store{root: root}, nil
}

func (s *Store) Put(_ context.Context, data []byte) (cid.Cid, error) {
	id, err := cidutil.Sum(data)
	if err != nil {
		return cid.Undef, err
	}

	path := s.blockPath(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cid.Undef, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if os.IsExist(err) {
			// Idempotent re-put: verify the existing bytes instead of rewriting.
			existing, rerr := os.ReadFile(path)
			if rerr != nil || string(existing) != string(data) {
				return cid.Undef, storage.ErrCIDMismatch
			}
			return id, nil
		}
		return cid.Undef, err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		_ = os.Remove(path)
		return cid.Undef, err
	}
	if err := f.Sync(); err != nil {
		_ = os.Remove(path)
		return cid.Undef, err
	}
	return id, f.Close()
}

func (s *Store) Get(_ context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	data, err := os.ReadFile(s.blockPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	got, err := cidutil.Sum(data)
	if err != nil {
		return nil, err
	}
	if got != id {
		return nil, storage.ErrCIDMismatch
	}
	return data, nil
}

// Pin is a no-op: localfs never garbage-collects blocks.
func (s *Store) Pin(_ context.Context, id cid.Cid) error {
	if !id.Defined() {
		return storage.ErrInvalidCID
	}
	if _, err := os.Stat(s.blockPath(id)); err != nil {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) PublishName(_ context.Context, id cid.Cid, keyName string) (string, error) {
	if !id.Defined() {
		return "", storage.ErrInvalidCID
	}
	key, err := s.loadKey(keyName)
	if err != nil {
		return "", err
	}
	name, err := naming.FromPublicKey(key.Public().(ed25519.PublicKey))
	if err != nil {
		return "", err
	}
	names, err := s.loadNames()
	if err != nil {
		return "", err
	}
	names[name] = id.String()
	if err := s.saveNames(names); err != nil {
		return "", err
	}
	return name, nil
}

func (s *Store) ResolveName(_ context.Context, name string, _ time.Duration) (cid.Cid, error) {
	names, err := s.loadNames()
	if err != nil {
		return cid.Undef, err
	}
	raw, ok := names[name]
	if !ok {
		return cid.Undef, storage.ErrUnresolved
	}
	id, err := cid.Decode(raw)
	if err != nil {
		return cid.Undef, storage.ErrInvalidCID
	}
	return id, nil
}

func (s *Store) ImportKey(_ context.Context, keyName string, pemBytes []byte) error {
	if _, err := parseKeyPEM(pemBytes); err != nil {
		return err
	}
	return os.WriteFile(s.keyPath(keyName), pemBytes, 0o600)
}

func (s *Store) ListKeys(_ context.Context) ([]storage.KeyInfo, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, "keys"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var infos []storage.KeyInfo
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".pem" {
			continue
		}
		name := entry.Name()[:len(entry.Name())-len(".pem")]
		key, err := s.loadKey(name)
		if err != nil {
			continue
		}
		ipnsName, err := naming.FromPublicKey(key.Public().(ed25519.PublicKey))
		if err != nil {
			continue
		}
		infos = append(infos, storage.KeyInfo{Name: name, ID: ipnsName})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func (s *Store) blockPath(id cid.Cid) string {
	str := id.String()
	if len(str) < 2 {
		return filepath.Join(s.root, "blocks", str)
	}
	return filepath.Join(s.root, "blocks", str[:2], str)
}

func (s *Store) keyPath(keyName string) string {
	return filepath.Join(s.root, "keys", keyName+".pem")
}

func (s *Store) loadKey(keyName string) (ed25519.PrivateKey, error) {
	pemBytes, err := os.ReadFile(s.keyPath(keyName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("localfs: unknown key %q", keyName)
		}
		return nil, err
	}
	return parseKeyPEM(pemBytes)
}

func parseKeyPEM(pemBytes []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("localfs: not a PEM block")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("localfs: key is not Ed25519")
	}
	return key, nil
}

func (s *Store) loadNames() (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(s.root, "names.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	names := map[string]string{}
	if err := json.Unmarshal(data, &names); err != nil {
		return map[string]string{}, nil
	}
	return names, nil
}

func (s *Store) saveNames(names map[string]string) error {
	data, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.root, "names.json"), data, 0o644)
}
