package feed_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/agoramesh/agora/feed"
	"github.com/agoramesh/agora/identity"
	"github.com/agoramesh/agora/naming"
	"github.com/agoramesh/agora/post"
	"github.com/agoramesh/agora/storage"
	"github.com/agoramesh/agora/storage/memstore"
)

// remoteAuthor is a followed identity publishing into a shared store.
type remoteAuthor struct {
	ident   *identity.Identity
	keyName string
	store   *memstore.Store
}

func newRemoteAuthor(t *testing.T, store *memstore.Store, keyName string) *remoteAuthor {
	t.Helper()
	ident, err := identity.Generate()
	require.NoError(t, err)
	pemBytes, err := ident.KuboPEM()
	require.NoError(t, err)
	require.NoError(t, store.ImportKey(context.Background(), keyName, pemBytes))
	return &remoteAuthor{ident: ident, keyName: keyName, store: store}
}

// post signs and stores one message, returning its CID string.
func (a *remoteAuthor) post(t *testing.T, content string) string {
	t.Helper()
	env := post.New(a.ident.DID, content, nil, nil)
	require.NoError(t, env.Sign(a.ident.SigningKey()))
	data, err := env.Encode()
	require.NoError(t, err)
	id, err := a.store.Put(context.Background(), data)
	require.NoError(t, err)
	return id.String()
}

// announce publishes a feed index listing exactly the given CIDs,
// newest first.
func (a *remoteAuthor) announce(t *testing.T, ids ...string) {
	t.Helper()
	idx := &feed.Index{Author: a.ident.DID, Posts: []feed.Entry{}}
	for _, id := range ids {
		idx.Posts = append(idx.Posts, feed.Entry{ID: id, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)})
	}
	data, err := idx.Encode()
	require.NoError(t, err)
	feedID, err := a.store.Put(context.Background(), data)
	require.NoError(t, err)
	_, err = a.store.PublishName(context.Background(), feedID, a.keyName)
	require.NoError(t, err)
}

func newPollEngine(t *testing.T, store *memstore.Store) *feed.Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "following.json")
	return feed.NewEngine(store, path, time.Second, zerolog.Nop())
}

func TestPollIngestsNewVerifiedPosts(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	author := newRemoteAuthor(t, store, "author-key")
	engine := newPollEngine(t, store)

	p1 := author.post(t, "first")
	p2 := author.post(t, "second")
	author.announce(t, p2, p1)

	_, err := engine.Follow(author.ident.DID, "")
	require.NoError(t, err)

	results, err := engine.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.Len(t, results[0].Ingested, 2)

	entries := engine.Following()
	require.ElementsMatch(t, []string{p1, p2}, entries[0].LastSeenIDs)
}

func TestPollIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	author := newRemoteAuthor(t, store, "author-key")
	engine := newPollEngine(t, store)

	p1 := author.post(t, "only post")
	author.announce(t, p1)
	_, err := engine.Follow(author.ident.DID, "")
	require.NoError(t, err)

	first, err := engine.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, first[0].Ingested, 1)
	before := engine.Following()[0].LastSeenIDs

	second, err := engine.Poll(ctx)
	require.NoError(t, err)
	require.Empty(t, second[0].Ingested, "no new remote posts means zero ingests")
	require.Equal(t, before, engine.Following()[0].LastSeenIDs)
}

func TestPollVerificationGate(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	author := newRemoteAuthor(t, store, "author-key")
	impostor := newRemoteAuthor(t, store, "impostor-key")
	engine := newPollEngine(t, store)

	good := author.post(t, "legitimate")

	// A post signed by someone else, listed in the author's feed index.
	foreign := impostor.post(t, "smuggled in")

	// A post claiming the author's DID but signed by the impostor's key.
	forged := post.New(author.ident.DID, "forged", nil, nil)
	require.NoError(t, forged.Sign(impostor.ident.SigningKey()))
	forgedData, err := forged.Encode()
	require.NoError(t, err)
	forgedID, err := store.Put(ctx, forgedData)
	require.NoError(t, err)

	author.announce(t, good, foreign, forgedID.String())
	_, err = engine.Follow(author.ident.DID, "")
	require.NoError(t, err)

	results, err := engine.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, results[0].Ingested, 1, "only the author's own verified post counts")
	require.Equal(t, "legitimate", results[0].Ingested[0].Content)

	// Discards still land in lastSeenCids: they were observed, they are
	// just not trusted, and they must not be retried next poll.
	require.ElementsMatch(t, []string{good, foreign, forgedID.String()}, engine.Following()[0].LastSeenIDs)

	again, err := engine.Poll(ctx)
	require.NoError(t, err)
	require.Empty(t, again[0].Ingested)
}

func TestPollEntryFailureIsolation(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	healthy := newRemoteAuthor(t, store, "healthy-key")
	broken := newRemoteAuthor(t, store, "broken-key")
	engine := newPollEngine(t, store)

	p1 := healthy.post(t, "still reachable")
	healthy.announce(t, p1)
	brokenName, err := naming.FromDID(broken.ident.DID)
	require.NoError(t, err)
	store.SetNameError(brokenName, storage.ErrTimeout)

	_, err = engine.Follow(broken.ident.DID, "")
	require.NoError(t, err)
	_, err = engine.Follow(healthy.ident.DID, "")
	require.NoError(t, err)

	results, err := engine.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byDID := map[string]feed.PollResult{}
	for _, r := range results {
		byDID[r.DID] = r
	}
	require.ErrorIs(t, byDID[broken.ident.DID].Err, storage.ErrTimeout)
	require.Len(t, byDID[healthy.ident.DID].Ingested, 1, "one follower's failure never blocks others")

	// The failed entry keeps its previous (empty) state.
	for _, e := range engine.Following() {
		if e.DID == broken.ident.DID {
			require.Empty(t, e.LastSeenIDs)
		}
	}
}

func TestPollReplacesLastSeenSet(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	author := newRemoteAuthor(t, store, "author-key")
	engine := newPollEngine(t, store)

	p1 := author.post(t, "post one")
	p2 := author.post(t, "post two")
	author.announce(t, p2, p1)
	_, err := engine.Follow(author.ident.DID, "")
	require.NoError(t, err)

	_, err = engine.Poll(ctx)
	require.NoError(t, err)

	// p1 falls out of the author's retention window.
	author.announce(t, p2)
	_, err = engine.Poll(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{p2}, engine.Following()[0].LastSeenIDs, "dropped identifiers are forgotten, not remembered forever")

	// Replace-not-merge consequence: if p1 reappears in the window it is
	// ingested again, because the engine no longer remembers having seen it.
	author.announce(t, p2, p1)
	results, err := engine.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, results[0].Ingested, 1)
	require.Equal(t, "post one", results[0].Ingested[0].Content)
}

func TestPollEmptyFeedLeavesStateAlone(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	author := newRemoteAuthor(t, store, "author-key")
	engine := newPollEngine(t, store)

	p1 := author.post(t, "was here")
	author.announce(t, p1)
	_, err := engine.Follow(author.ident.DID, "")
	require.NoError(t, err)
	_, err = engine.Poll(ctx)
	require.NoError(t, err)

	author.announce(t) // empty index
	results, err := engine.Poll(ctx)
	require.NoError(t, err)
	require.True(t, results[0].EmptyFeed)
	require.Equal(t, []string{p1}, engine.Following()[0].LastSeenIDs)
}

func TestPollManyFollowedIdentities(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	engine := newPollEngine(t, store)

	const n = 5
	for i := 0; i < n; i++ {
		a := newRemoteAuthor(t, store, fmt.Sprintf("key-%d", i))
		id := a.post(t, fmt.Sprintf("hello from %d", i))
		a.announce(t, id)
		_, err := engine.Follow(a.ident.DID, "")
		require.NoError(t, err)
	}

	results, err := engine.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, results, n)
	for _, r := range results {
		require.NoError(t, r.Err)
		require.Len(t, r.Ingested, 1)
	}
}
