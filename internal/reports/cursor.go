package reports

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// DefaultCursorHistoryMax bounds how many issued cursors a traversal keeps
// for backward navigation.
const DefaultCursorHistoryMax = 10

// Cursor is an immutable keyset pointer: the sort-key tuple of the last
// row of an issued page. Ordering is the strict total order
// (At DESC, ID DESC); equal timestamps are broken by ID.
type Cursor struct {
	At time.Time `json:"at"`
	ID string    `json:"id"`
}

// Before reports whether c sorts strictly before other under the
// ascending (At, ID) tuple order. A row "after" a cursor in traversal
// order satisfies row.Before(cursor).
func (c Cursor) Before(other Cursor) bool {
	if c.At.Before(other.At) {
		return true
	}
	if c.At.Equal(other.At) {
		return c.ID < other.ID
	}
	return false
}

// History is the bounded, ordered list of cursors issued during one
// paginated traversal. Cursors[i] was issued by page Base+i (0-based) and
// fetches page Base+i+1.
type History struct {
	Cursors []Cursor `json:"cursors"`
	Base    int      `json:"base"`
}

// Codec encodes cursors and cursor histories as opaque URL-safe tokens.
type Codec struct {
	maxHistory int
}

// NewCodec constructs a codec enforcing the given history cap.
func NewCodec(maxHistory int) Codec {
	if maxHistory <= 0 {
		maxHistory = DefaultCursorHistoryMax
	}
	return Codec{maxHistory: maxHistory}
}

// EncodeCursor renders a cursor as an opaque token.
func (Codec) EncodeCursor(c Cursor) string {
	raw, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses an opaque cursor token. A malformed or empty token
// yields nil: pagination restarts from the top rather than failing.
func (Codec) DecodeCursor(token string) *Cursor {
	if token == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil
	}
	if c.At.IsZero() && c.ID == "" {
		return nil
	}
	return &c
}

// Push appends a newly issued cursor, evicting the oldest entry and
// re-basing the page-index mapping once the cap is exceeded.
func (cd Codec) Push(h *History, c Cursor) {
	h.Cursors = append(h.Cursors, c)
	for len(h.Cursors) > cd.maxHistory {
		h.Cursors = h.Cursors[1:]
		h.Base++
	}
}

// CursorForPage resolves the cursor needed to fetch the given 0-based
// page. Page zero always starts from the top. The second return is false
// when the cursor has been evicted from the bounded history or was never
// issued.
func (h *History) CursorForPage(page int) (*Cursor, bool) {
	if page <= 0 {
		return nil, true
	}
	idx := page - 1 - h.Base
	if idx < 0 || idx >= len(h.Cursors) {
		return nil, false
	}
	c := h.Cursors[idx]
	return &c, true
}

// EncodeHistory renders the whole traversal state as an opaque token.
func (Codec) EncodeHistory(h History) string {
	raw, err := json.Marshal(h)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeHistory parses a history token, yielding an empty history for
// malformed input.
func (Codec) DecodeHistory(token string) History {
	if token == "" {
		return History{}
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return History{}
	}
	var h History
	if err := json.Unmarshal(raw, &h); err != nil {
		return History{}
	}
	return h
}
