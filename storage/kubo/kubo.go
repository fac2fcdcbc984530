// Package kubo adapts a local Kubo daemon's HTTP RPC API to storage.Store.
//
// Blocks are written with explicit raw + sha2-256 + CIDv1 parameters so
// the daemon assigns exactly the CID of the cidutil contract, and every
// Put and Get cross-checks the CID: transport is not validity, the hash
// is. Name publication rides Kubo's IPNS; keys enter its keystore as
// cleartext PKCS#8 PEM.
package kubo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ipfs/go-cid"

	"github.com/agoramesh/agora/cidutil"
	"github.com/agoramesh/agora/storage"
)

// DefaultAPIURL is the conventional local Kubo RPC endpoint.
const DefaultAPIURL = "http://localhost:5001/api/v0"

type Store struct {
	client *resty.Client
}

var _ storage.Store = (*Store)(nil)

// New constructs a Store against the given RPC base URL. If apiURL is
// empty, DefaultAPIURL is used. Deadlines come from per-call contexts,
// not a client-wide timeout.
func New(apiURL string) *Store {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	client := resty.New().SetBaseURL(strings.TrimRight(apiURL, "/"))
	return &Store{client: client}
}

func (s *Store) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	want, err := cidutil.Sum(data)
	if err != nil {
		return cid.Undef, err
	}

	var out struct {
		Key string `json:"Key"`
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetFileReader("file", "data", bytes.NewReader(data)).
		SetQueryParams(map[string]string{
			"cid-codec": "raw",
			"mhtype":    "sha2-256",
			"mhlen":     "32",
			"pin":       "false",
		}).
		SetResult(&out).
		Post("/block/put")
	if err := s.check(resp, err); err != nil {
		return cid.Undef, err
	}

	got, err := cid.Decode(out.Key)
	if err != nil {
		return cid.Undef, fmt.Errorf("kubo: unexpected block/put output %q: %w", out.Key, err)
	}
	if got != want {
		return cid.Undef, storage.ErrCIDMismatch
	}
	return want, nil
}

func (s *Store) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("arg", id.String()).
		Post("/block/get")
	if err := s.check(resp, err); err != nil {
		return nil, err
	}

	data := resp.Body()
	got, err := cidutil.Sum(data)
	if err != nil {
		return nil, err
	}
	if got != id {
		return nil, storage.ErrCIDMismatch
	}
	return data, nil
}

func (s *Store) Pin(ctx context.Context, id cid.Cid) error {
	if !id.Defined() {
		return storage.ErrInvalidCID
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("arg", id.String()).
		Post("/pin/add")
	return s.check(resp, err)
}

func (s *Store) PublishName(ctx context.Context, id cid.Cid, keyName string) (string, error) {
	if !id.Defined() {
		return "", storage.ErrInvalidCID
	}
	var out struct {
		Name  string `json:"Name"`
		Value string `json:"Value"`
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"arg":           "/ipfs/" + id.String(),
			"key":           keyName,
			"allow-offline": "true",
		}).
		SetResult(&out).
		Post("/name/publish")
	if err := s.check(resp, err); err != nil {
		return "", err
	}
	return out.Name, nil
}

func (s *Store) ResolveName(ctx context.Context, name string, timeout time.Duration) (cid.Cid, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var out struct {
		Path string `json:"Path"`
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("arg", name).
		SetResult(&out).
		Post("/name/resolve")
	if err := s.check(resp, err); err != nil {
		return cid.Undef, err
	}

	raw := strings.TrimPrefix(out.Path, "/ipfs/")
	id, err := cid.Decode(raw)
	if err != nil {
		return cid.Undef, fmt.Errorf("kubo: unexpected name/resolve path %q: %w", out.Path, err)
	}
	return id, nil
}

func (s *Store) ImportKey(ctx context.Context, keyName string, pemBytes []byte) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetFileReader("file", "key.pem", bytes.NewReader(pemBytes)).
		SetQueryParams(map[string]string{
			"arg":    keyName,
			"format": "pem-pkcs8-cleartext",
		}).
		Post("/key/import")
	return s.check(resp, err)
}

func (s *Store) ListKeys(ctx context.Context) ([]storage.KeyInfo, error) {
	var out struct {
		Keys []struct {
			Name string `json:"Name"`
			ID   string `json:"Id"`
		} `json:"Keys"`
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&out).
		Post("/key/list")
	if err := s.check(resp, err); err != nil {
		return nil, err
	}
	infos := make([]storage.KeyInfo, 0, len(out.Keys))
	for _, k := range out.Keys {
		infos = append(infos, storage.KeyInfo{Name: k.Name, ID: k.ID})
	}
	return infos, nil
}

// Ping reports whether the daemon answers at all.
func (s *Store) Ping(ctx context.Context) error {
	resp, err := s.client.R().SetContext(ctx).Post("/id")
	return s.check(resp, err)
}

// check maps transport and API failures onto the storage error taxonomy.
func (s *Store) check(resp *resty.Response, err error) error {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return storage.ErrTimeout
		}
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	if resp.StatusCode() == http.StatusOK {
		return nil
	}

	var apiErr struct {
		Message string `json:"Message"`
	}
	msg := strings.TrimSpace(string(resp.Body()))
	if jerr := json.Unmarshal(resp.Body(), &apiErr); jerr == nil && apiErr.Message != "" {
		msg = apiErr.Message
	}
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "not found") || strings.Contains(lower, "could not find"):
		return storage.ErrNotFound
	case strings.Contains(lower, "could not resolve name"):
		return storage.ErrUnresolved
	case strings.Contains(lower, "context deadline exceeded"):
		return storage.ErrTimeout
	}
	return fmt.Errorf("kubo: %s (status %d)", msg, resp.StatusCode())
}
