// Package storage defines the content store collaborator the social layer
// publishes to and polls from.
package storage

import (
	"context"
	"time"

	"github.com/ipfs/go-cid"
)

// KeyInfo describes one key held by the store's keystore.
type KeyInfo struct {
	Name string
	ID   string
}

// Store is the minimal content store contract.
//
// Contract:
//   - Put MUST be idempotent: re-adding identical bytes yields the same CID.
//   - Stored objects MUST be immutable; CIDs derive from the bytes written.
//   - Get MUST return ErrNotFound when the CID is absent locally and
//     unresolvable remotely.
//   - Pin is best-effort; it prevents local garbage collection.
//   - PublishName associates a mutable name with id, authorized by the
//     named keystore key. It may take tens of seconds.
//   - ResolveName looks up the CID currently associated with name, bounded
//     by timeout; it fails with ErrTimeout or ErrUnresolved.
//   - ImportKey and ListKeys bridge the local identity's private key into
//     the store's keystore so PublishName can sign name records.
type Store interface {
	Put(ctx context.Context, data []byte) (cid.Cid, error)
	Get(ctx context.Context, id cid.Cid) ([]byte, error)
	Pin(ctx context.Context, id cid.Cid) error
	PublishName(ctx context.Context, id cid.Cid, keyName string) (string, error)
	ResolveName(ctx context.Context, name string, timeout time.Duration) (cid.Cid, error)
	ImportKey(ctx context.Context, keyName string, pemBytes []byte) error
	ListKeys(ctx context.Context) ([]KeyInfo, error)
}
