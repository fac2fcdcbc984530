package feed

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// loadJSON reads a whole-file JSON document into v. A missing or corrupt
// file reports false and leaves v untouched; local state files are never
// fatal to read.
func loadJSON(path string, v any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// saveJSON rewrites the whole file. There is a single logical owner per
// state file, so read/modify/write without locking is sufficient.
func saveJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
