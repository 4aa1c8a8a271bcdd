package reconcile

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/colindex/colindex/colindex/errs"
	"github.com/colindex/colindex/colindex/mapping"
	"github.com/colindex/colindex/colindex/search"
)

// Cursor is the position of the last hit of a page. Hash ties it to the
// schema and search it was produced for. Seen lists rows already returned
// that still have a copy in another partition sorting after the position.
type Cursor struct {
	Key        string          `json:"key"`
	Score      float64         `json:"score,omitempty"`
	SortValues []mapping.Value `json:"sort_values,omitempty"`
	Hash       string          `json:"hash,omitempty"`
	Seen       []string        `json:"seen,omitempty"`
}

// CursorAt returns the cursor positioned on h.
func CursorAt(h search.Hit) Cursor {
	return Cursor{
		Key:        h.Key,
		Score:      h.Score,
		SortValues: append([]mapping.Value(nil), h.SortValues...),
	}
}

// Hit returns the position as a hit, for comparison against candidates.
func (c Cursor) Hit() search.Hit {
	return search.Hit{Key: c.Key, Score: c.Score, SortValues: c.SortValues}
}

// SeenKeys returns Seen as a set, nil when empty.
func (c Cursor) SeenKeys() map[string]bool {
	if len(c.Seen) == 0 {
		return nil
	}
	out := make(map[string]bool, len(c.Seen))
	for _, k := range c.Seen {
		out[k] = true
	}
	return out
}

// HashSearch fingerprints a schema and a search.
func HashSearch(schemaJSON, searchJSON []byte) string {
	h := sha256.New()
	h.Write(schemaJSON)
	h.Write([]byte("\n"))
	h.Write(searchJSON)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Check fails when the cursor was produced for another search.
func (c Cursor) Check(hash string) error {
	if c.Hash != hash {
		return errs.Cursor("cursor does not match this search")
	}
	return nil
}

// EncodeCursor writes c as base64url JSON without padding.
func EncodeCursor(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", errs.Wrap(errs.ErrCursor, "cursor json", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeCursor reads a token written by EncodeCursor.
func DecodeCursor(tok string) (Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return Cursor{}, errs.Cursor("base64 decode error")
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, errs.Cursor("cursor json parse error")
	}
	if c.Key == "" {
		return Cursor{}, errs.Cursor("cursor has no row key")
	}
	return c, nil
}
