package feed

import (
	"context"

	"github.com/ipfs/go-cid"

	"github.com/agoramesh/agora/naming"
	"github.com/agoramesh/agora/post"
)

// PollResult reports the outcome of one followed identity's poll. A
// non-nil Err means this entry failed (resolution, fetch, or decode); it
// never affects other entries.
type PollResult struct {
	DID       string
	Alias     string
	Ingested  []*post.Envelope
	EmptyFeed bool
	Err       error
}

// Poll resolves each followed identity's feed, fetches posts not present
// in the entry's lastSeenCids, and ingests only those whose author field
// matches the followed DID and whose signature verifies. A fetched post
// failing either check is silently discarded, not counted, and not
// retried.
//
// After a successful fetch the entry's lastSeenCids is replaced with the
// full set observed in this poll, so identifiers that fall out of the
// remote author's retention window are forgotten rather than remembered
// forever. Entries that fail keep their previous state. The follow list
// is rebuilt as a new slice and persisted once, reflecting every entry's
// independent update.
func (e *Engine) Poll(ctx context.Context) ([]PollResult, error) {
	entries := e.Following()
	results := make([]PollResult, 0, len(entries))
	updated := make([]FollowEntry, 0, len(entries))

	for _, entry := range entries {
		res, seen := e.pollEntry(ctx, entry)
		if seen != nil {
			entry.LastSeenIDs = seen
		}
		updated = append(updated, entry)
		results = append(results, res)
	}

	if len(entries) > 0 {
		if err := e.save(updated); err != nil {
			return results, err
		}
	}
	return results, nil
}

// pollEntry processes one followed identity. It returns the replacement
// lastSeenCids set, or nil when the entry's previous state must be kept
// (failure, or an empty remote feed).
func (e *Engine) pollEntry(ctx context.Context, entry FollowEntry) (PollResult, []string) {
	res := PollResult{DID: entry.DID, Alias: entry.Alias}

	name, err := naming.FromDID(entry.DID)
	if err != nil {
		res.Err = err
		return res, nil
	}
	feedID, err := e.store.ResolveName(ctx, name, e.resolveTimeout)
	if err != nil {
		e.log.Debug().Err(err).Str("did", entry.DID).Msg("feed resolution failed")
		res.Err = err
		return res, nil
	}
	data, err := e.store.Get(ctx, feedID)
	if err != nil {
		res.Err = err
		return res, nil
	}
	idx, err := DecodeIndex(data)
	if err != nil {
		res.Err = err
		return res, nil
	}
	if len(idx.Posts) == 0 {
		res.EmptyFeed = true
		return res, nil
	}

	known := make(map[string]bool, len(entry.LastSeenIDs))
	for _, id := range entry.LastSeenIDs {
		known[id] = true
	}

	seen := make([]string, 0, len(idx.Posts))
	for _, p := range idx.Posts {
		seen = append(seen, p.ID)
		if known[p.ID] {
			continue
		}
		env := e.fetchVerified(ctx, p.ID, entry.DID)
		if env == nil {
			continue
		}
		res.Ingested = append(res.Ingested, env)
	}
	return res, seen
}

// fetchVerified fetches one post and applies the verification gate: the
// author field must equal the followed DID and the signature must check
// out against the key recovered from it. Anything else is discarded.
func (e *Engine) fetchVerified(ctx context.Context, rawID, did string) *post.Envelope {
	id, err := cid.Decode(rawID)
	if err != nil {
		return nil
	}
	data, err := e.store.Get(ctx, id)
	if err != nil {
		return nil
	}
	env, err := post.Decode(data)
	if err != nil {
		return nil
	}
	if env.Author != did {
		e.log.Debug().Str("cid", rawID).Str("author", env.Author).Str("followed", did).Msg("discarding post with mismatched author")
		return nil
	}
	if !env.Verify() {
		e.log.Debug().Str("cid", rawID).Msg("discarding post with invalid signature")
		return nil
	}
	return env
}
