package feed

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/agoramesh/agora/identity"
	"github.com/agoramesh/agora/storage"
)

var (
	ErrAlreadyFollowing = errors.New("feed: already following")
	ErrNotFollowing     = errors.New("feed: not following")
)

// FollowEntry is the persisted state for one followed identity: at most
// one entry per DID. LastSeenIDs is the full identifier set observed in
// the most recent successful poll; it is replaced, never merged.
type FollowEntry struct {
	DID         string   `json:"did"`
	Alias       string   `json:"alias,omitempty"`
	AddedAt     string   `json:"addedAt"`
	LastSeenIDs []string `json:"lastSeenCids"`
}

// Label is the entry's display name: the alias when set, otherwise the
// DID's tail.
func (e *FollowEntry) Label() string {
	if e.Alias != "" {
		return e.Alias
	}
	if len(e.DID) > 12 {
		return e.DID[len(e.DID)-12:]
	}
	return e.DID
}

// Engine maintains the follow list and drives the poll cycle.
type Engine struct {
	store          storage.Store
	path           string
	resolveTimeout time.Duration
	log            zerolog.Logger
}

func NewEngine(store storage.Store, path string, resolveTimeout time.Duration, log zerolog.Logger) *Engine {
	return &Engine{store: store, path: path, resolveTimeout: resolveTimeout, log: log}
}

// Following loads the follow list. Earlier versions persisted bare DID
// strings; those normalize to full entries on load. A missing or corrupt
// file is an empty list.
func (e *Engine) Following() []FollowEntry {
	var raw []json.RawMessage
	if !loadJSON(e.path, &raw) {
		return nil
	}
	entries := make([]FollowEntry, 0, len(raw))
	for _, item := range raw {
		var did string
		if json.Unmarshal(item, &did) == nil {
			entries = append(entries, FollowEntry{DID: did, LastSeenIDs: []string{}})
			continue
		}
		var entry FollowEntry
		if json.Unmarshal(item, &entry) != nil {
			continue
		}
		if entry.LastSeenIDs == nil {
			entry.LastSeenIDs = []string{}
		}
		entries = append(entries, entry)
	}
	return entries
}

func (e *Engine) save(entries []FollowEntry) error {
	if entries == nil {
		entries = []FollowEntry{}
	}
	return saveJSON(e.path, entries)
}

// Follow adds did to the follow list. A malformed DID fails with
// identity.ErrFormat; a known DID reports ErrAlreadyFollowing and changes
// nothing. With no alias given, a deterministic petname is assigned.
func (e *Engine) Follow(did, alias string) (FollowEntry, error) {
	if _, err := identity.DecodeDID(did); err != nil {
		return FollowEntry{}, err
	}
	entries := e.Following()
	for _, entry := range entries {
		if entry.DID == did {
			return entry, ErrAlreadyFollowing
		}
	}
	if alias == "" {
		alias = Petname(did)
	}
	entry := FollowEntry{
		DID:         did,
		Alias:       alias,
		AddedAt:     time.Now().UTC().Format(time.RFC3339Nano),
		LastSeenIDs: []string{},
	}
	entries = append(entries, entry)
	if err := e.save(entries); err != nil {
		return FollowEntry{}, err
	}
	return entry, nil
}

// Unfollow removes did from the follow list, reporting ErrNotFollowing
// when absent.
func (e *Engine) Unfollow(did string) (FollowEntry, error) {
	entries := e.Following()
	kept := make([]FollowEntry, 0, len(entries))
	var removed *FollowEntry
	for _, entry := range entries {
		if entry.DID == did && removed == nil {
			found := entry
			removed = &found
			continue
		}
		kept = append(kept, entry)
	}
	if removed == nil {
		return FollowEntry{}, ErrNotFollowing
	}
	if err := e.save(kept); err != nil {
		return FollowEntry{}, err
	}
	return *removed, nil
}
