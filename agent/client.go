// Package agent composes identity, store, feed and follow state into the
// operations the CLI and the tool-calling surface share.
package agent

import (
	"context"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/rs/zerolog"

	"github.com/agoramesh/agora/config"
	"github.com/agoramesh/agora/feed"
	"github.com/agoramesh/agora/identity"
	"github.com/agoramesh/agora/post"
	"github.com/agoramesh/agora/storage"
)

// Client is an explicitly constructed handle over one local identity and
// one store. Nothing here is process-global; tests construct clients
// against in-memory stores.
type Client struct {
	Identity  *identity.Identity
	Store     storage.Store
	Publisher *feed.Publisher
	Engine    *feed.Engine

	keyName   string
	postsPath string
	log       zerolog.Logger
}

func New(ident *identity.Identity, store storage.Store, cfg *config.Config, log zerolog.Logger) *Client {
	return &Client{
		Identity:  ident,
		Store:     store,
		Publisher: feed.NewPublisher(store, cfg.FeedPath(), ident.DID, cfg.KeyName, cfg.AnnounceTimeout, log),
		Engine:    feed.NewEngine(store, cfg.FollowingPath(), cfg.ResolveTimeout, log),
		keyName:   cfg.KeyName,
		postsPath: cfg.PostsPath(),
		log:       log,
	}
}

// Whoami returns the local DID.
func (c *Client) Whoami() string { return c.Identity.DID }

// EnsureKey bridges the identity's private key into the store keystore so
// name publication can be authorized. It is idempotent and checks the
// keystore state on every call rather than caching "already imported".
func (c *Client) EnsureKey(ctx context.Context) error {
	keys, err := c.Store.ListKeys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k.Name == c.keyName {
			return nil
		}
	}
	pemBytes, err := c.Identity.KuboPEM()
	if err != nil {
		return err
	}
	return c.Store.ImportKey(ctx, c.keyName, pemBytes)
}

// Post creates, signs and stores a message, pins it, records it in the
// local post history, and republishes the feed index under the derived
// name. It returns the message's CID.
func (c *Client) Post(ctx context.Context, content string, refs, tags []string) (string, *post.Envelope, error) {
	env := post.New(c.Identity.DID, content, refs, tags)
	if err := env.Sign(c.Identity.SigningKey()); err != nil {
		return "", nil, err
	}
	data, err := env.Encode()
	if err != nil {
		return "", nil, err
	}
	id, err := c.Store.Put(ctx, data)
	if err != nil {
		return "", nil, err
	}
	if err := c.Store.Pin(ctx, id); err != nil {
		c.log.Warn().Err(err).Str("cid", id.String()).Msg("pin failed")
	}
	if err := c.EnsureKey(ctx); err != nil {
		c.log.Warn().Err(err).Msg("keystore bridge failed; feed announce will not resolve remotely")
	}
	if err := c.Publisher.Publish(id.String()); err != nil {
		return "", nil, err
	}
	c.recordOwnPost(id.String(), env)
	return id.String(), env, nil
}

// Reply posts content referencing an existing message.
func (c *Client) Reply(ctx context.Context, ref, content string, tags []string) (string, *post.Envelope, error) {
	return c.Post(ctx, content, []string{ref}, tags)
}

// Read fetches a message and reports whether its signature verifies.
// Verification failure is a result, not an error: the envelope is still
// returned with verified == false.
func (c *Client) Read(ctx context.Context, rawID string) (*post.Envelope, bool, error) {
	id, err := cid.Decode(rawID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: invalid cid %q", identity.ErrFormat, rawID)
	}
	data, err := c.Store.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	env, err := post.Decode(data)
	if err != nil {
		return nil, false, err
	}
	return env, env.Verify(), nil
}

// Follow, Unfollow, Following and Poll delegate to the follow engine.
func (c *Client) Follow(did, alias string) (feed.FollowEntry, error) {
	return c.Engine.Follow(did, alias)
}
func (c *Client) Unfollow(did string) (feed.FollowEntry, error) { return c.Engine.Unfollow(did) }
func (c *Client) Following() []feed.FollowEntry { return c.Engine.Following() }
func (c *Client) Poll(ctx context.Context) ([]feed.PollResult, error) {
	return c.Engine.Poll(ctx)
}

// Announce re-runs the feed's store submission and name association
// synchronously, for recovery after a failed background announce.
func (c *Client) Announce(ctx context.Context) error {
	if err := c.EnsureKey(ctx); err != nil {
		return err
	}
	return c.Publisher.Announce(ctx)
}
