// Package config loads runtime settings from the environment.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the agent needs to reach its store and its
// local state. Variables carry the AGORA_ prefix.
type Config struct {
	// APIURL is the Kubo RPC endpoint.
	APIURL string `envconfig:"API_URL" default:"http://localhost:5001/api/v0"`

	// DataDir holds identity.json, feed.json, following.json and
	// posts.json. Empty means ~/.agora.
	DataDir string `envconfig:"DATA_DIR" default:""`

	// KeyName is the keystore name the identity key is imported under.
	KeyName string `envconfig:"KEY_NAME" default:"agora-did"`

	// ResolveTimeout bounds each followed identity's name resolution
	// during a poll.
	ResolveTimeout time.Duration `envconfig:"RESOLVE_TIMEOUT" default:"30s"`

	// AnnounceTimeout bounds the background feed announce; name
	// publication can take tens of seconds on the DHT.
	AnnounceTimeout time.Duration `envconfig:"ANNOUNCE_TIMEOUT" default:"90s"`
}

// Load reads the environment and fills defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("agora", &cfg); err != nil {
		return nil, err
	}
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = filepath.Join(home, ".agora")
	}
	return &cfg, nil
}

func (c *Config) IdentityPath() string  { return filepath.Join(c.DataDir, "identity.json") }
func (c *Config) FeedPath() string      { return filepath.Join(c.DataDir, "feed.json") }
func (c *Config) FollowingPath() string { return filepath.Join(c.DataDir, "following.json") }
func (c *Config) PostsPath() string     { return filepath.Join(c.DataDir, "posts.json") }
