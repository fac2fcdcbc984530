package post

import (
	"bytes"
	"encoding/json"
)

// CanonicalPayload produces the byte string that is signed and that
// verification re-derives: the envelope without its signature field,
// serialized as UTF-8 JSON with keys sorted lexicographically and no
// insignificant whitespace.
//
// The payload intentionally round-trips through a map so that field order
// in the struct definition can never leak into the signed bytes.
func (e *Envelope) CanonicalPayload() ([]byte, error) {
	fields := map[string]any{
		"v":         e.V,
		"type":      e.Type,
		"content":   e.Content,
		"author":    e.Author,
		"refs":      e.Refs,
		"timestamp": e.Timestamp,
	}
	if e.Refs == nil {
		fields["refs"] = []string{}
	}
	if len(e.Tags) > 0 {
		fields["tags"] = e.Tags
	}
	return marshalCompact(fields)
}

// marshalCompact encodes v as compact JSON with HTML escaping disabled, so
// content containing <, > or & signs the same bytes it stores.
func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encode appends a newline; the canonical form has none.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
