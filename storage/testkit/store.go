package testkit

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/agoramesh/agora/cidutil"
	"github.com/agoramesh/agora/identity"
	"github.com/agoramesh/agora/naming"
	"github.com/agoramesh/agora/storage"
)

// NewStore constructs a fresh, empty Store instance for a test. The
// returned Store MUST be isolated from other tests.
type NewStore func(t *testing.T) storage.Store

// RunStoreConformance exercises the Store contract against any
// implementation: content addressing, idempotence, not-found behavior,
// and the keystore/name bridge.
func RunStoreConformance(t *testing.T, newStore NewStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		store := newStore(t)
		want := []byte("hello, agora storage")

		id, err := store.Put(ctx, want)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		wantID, err := cidutil.Sum(want)
		if err != nil {
			t.Fatalf("cidutil.Sum failed: %v", err)
		}
		if id != wantID {
			t.Fatalf("Put CID mismatch: got %s want %s", id, wantID)
		}

		got, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		store := newStore(t)
		b := []byte("same bytes")

		id1, err := store.Put(ctx, b)
		if err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		id2, err := store.Put(ctx, b)
		if err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		if id1 != id2 {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		store := newStore(t)
		id, err := cidutil.Sum([]byte("missing"))
		if err != nil {
			t.Fatalf("cidutil.Sum failed: %v", err)
		}
		if _, err := store.Get(ctx, id); !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		store := newStore(t)
		var undef cid.Cid
		if _, err := store.Get(ctx, undef); err == nil {
			t.Fatalf("Get should fail for undefined CID")
		}
		if err := store.Pin(ctx, undef); err == nil {
			t.Fatalf("Pin should fail for undefined CID")
		}
	})

	t.Run("ResolveUnknownName", func(t *testing.T) {
		store := newStore(t)
		ident, err := identity.Generate()
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		name, err := naming.FromDID(ident.DID)
		if err != nil {
			t.Fatalf("FromDID failed: %v", err)
		}
		if _, err := store.ResolveName(ctx, name, time.Second); !storage.IsUnresolved(err) {
			t.Fatalf("ResolveName unknown: got err=%v want ErrUnresolved", err)
		}
	})

	t.Run("KeyBridgePublishResolve", func(t *testing.T) {
		store := newStore(t)
		ident, err := identity.Generate()
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		pemBytes, err := ident.KuboPEM()
		if err != nil {
			t.Fatalf("KuboPEM failed: %v", err)
		}
		if err := store.ImportKey(ctx, "bridge-test", pemBytes); err != nil {
			t.Fatalf("ImportKey failed: %v", err)
		}

		keys, err := store.ListKeys(ctx)
		if err != nil {
			t.Fatalf("ListKeys failed: %v", err)
		}
		found := false
		for _, k := range keys {
			if k.Name == "bridge-test" {
				found = true
			}
		}
		if !found {
			t.Fatalf("imported key not listed")
		}

		id, err := store.Put(ctx, []byte("feed document"))
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		published, err := store.PublishName(ctx, id, "bridge-test")
		if err != nil {
			t.Fatalf("PublishName failed: %v", err)
		}

		// Followers derive the name from the DID alone; it must match the
		// name the keystore just published under.
		derived, err := naming.FromDID(ident.DID)
		if err != nil {
			t.Fatalf("FromDID failed: %v", err)
		}
		if published != derived {
			t.Fatalf("published name %s != derived name %s", published, derived)
		}

		got, err := store.ResolveName(ctx, derived, time.Second)
		if err != nil {
			t.Fatalf("ResolveName failed: %v", err)
		}
		if got != id {
			t.Fatalf("ResolveName: got %s want %s", got, id)
		}
	})
}
