// Package feed maintains the locally owned feed index and the follow list,
// and drives the poll cycle that turns followed identities into a
// deduplicated incoming-post feed.
package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/agoramesh/agora/storage"
)

// MaxEntries caps the published feed index. Older identifiers are dropped,
// not archived: a long-idle follower can silently lose visibility into a
// followed identity's early history.
const MaxEntries = 100

// Entry is one published post reference.
type Entry struct {
	ID        string `json:"cid"`
	Timestamp string `json:"timestamp"`
}

// Index is the capped, newest-first list of a single author's most recent
// post identifiers. It is owned by its author and read-only to followers.
type Index struct {
	Author string  `json:"author"`
	Posts  []Entry `json:"posts"`
}

// Encode returns the compact JSON bytes handed to the content store.
func (idx *Index) Encode() ([]byte, error) {
	return json.Marshal(idx)
}

// DecodeIndex parses a fetched feed document.
func DecodeIndex(data []byte) (*Index, error) {
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

// Publisher owns the local feed index and republishes it under the
// author's derived name after every post.
type Publisher struct {
	store           storage.Store
	path            string
	author          string
	keyName         string
	announceTimeout time.Duration
	log             zerolog.Logger
}

func NewPublisher(store storage.Store, path, author, keyName string, announceTimeout time.Duration, log zerolog.Logger) *Publisher {
	return &Publisher{
		store:           store,
		path:            path,
		author:          author,
		keyName:         keyName,
		announceTimeout: announceTimeout,
		log:             log,
	}
}

// Index loads the current local feed index, or an empty one for this
// author if the file is missing or corrupt.
func (p *Publisher) Index() *Index {
	idx := &Index{Author: p.author, Posts: []Entry{}}
	loadJSON(p.path, idx)
	if idx.Posts == nil {
		idx.Posts = []Entry{}
	}
	return idx
}

// Publish prepends newID to the feed index, truncates to MaxEntries, and
// persists the file before returning. The store submission and name
// association then run on a detached goroutine: there is no join or
// cancel contract, failures are logged and never surfaced, and remote
// followers keep resolving to the previous index until a later publish
// succeeds end to end.
func (p *Publisher) Publish(newID string) error {
	idx := p.Index()
	idx.Posts = append([]Entry{{
		ID:        newID,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}}, idx.Posts...)
	if len(idx.Posts) > MaxEntries {
		idx.Posts = idx.Posts[:MaxEntries]
	}
	if err := saveJSON(p.path, idx); err != nil {
		return err
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.announceTimeout)
		defer cancel()
		if err := p.Announce(ctx); err != nil {
			p.log.Warn().Err(err).Str("cid", newID).Msg("background feed announce failed")
		}
	}()
	return nil
}

// Announce submits the current feed index to the store and associates the
// resulting CID with the local derived name. Publish runs it in the
// background; callers can also invoke it directly to re-announce after a
// failed background attempt.
func (p *Publisher) Announce(ctx context.Context) error {
	data, err := p.Index().Encode()
	if err != nil {
		return err
	}
	id, err := p.store.Put(ctx, data)
	if err != nil {
		return err
	}
	name, err := p.store.PublishName(ctx, id, p.keyName)
	if err != nil {
		return err
	}
	p.log.Debug().Str("name", name).Str("feed_cid", id.String()).Msg("feed announced")
	return nil
}
