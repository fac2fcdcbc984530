package agent

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/agoramesh/agora/post"
)

// PostRecord is one line of the local post history cache. The cache is a
// convenience for the CLI's "posts" view; losing it loses nothing the
// store does not still hold.
type PostRecord struct {
	CID            string   `json:"cid"`
	Timestamp      string   `json:"timestamp"`
	Refs           []string `json:"refs,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	ContentPreview string   `json:"content_preview"`
}

// Posts returns the local post history, oldest first. A missing or
// corrupt cache is an empty history.
func (c *Client) Posts() []PostRecord {
	data, err := os.ReadFile(c.postsPath)
	if err != nil {
		return nil
	}
	var records []PostRecord
	if json.Unmarshal(data, &records) != nil {
		return nil
	}
	return records
}

func (c *Client) recordOwnPost(id string, env *post.Envelope) {
	records := append(c.Posts(), PostRecord{
		CID:            id,
		Timestamp:      env.Timestamp,
		Refs:           env.Refs,
		Tags:           env.Tags,
		ContentPreview: preview(env.Content),
	})
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.postsPath), 0o700); err != nil {
		return
	}
	if err := os.WriteFile(c.postsPath, data, 0o600); err != nil {
		c.log.Debug().Err(err).Msg("post history write failed")
	}
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= 50 {
		return content
	}
	return string(runes[:50]) + "..."
}
