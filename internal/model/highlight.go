// Package model defines the data structures shared by the highlight
// engine and the sync backend. Structs here carry both JSON tags (the
// flat snake_case wire shape used by the HTTP API and the durable
// cache) and db tags for the SQLite repository.
package model

import (
	"strings"
	"time"
)

// ContextLength is the maximum number of characters of surrounding
// text captured on each side of a selection. The contexts are what
// allow a highlight to be re-located after the page re-renders and
// the stored offsets go stale.
const ContextLength = 30

// LocalIDPrefix marks ids generated on-device before the remote store
// has assigned a durable one. A highlight whose id carries this prefix
// has not completed remote persistence.
const LocalIDPrefix = "local-"

// Color is the highlight palette value.
type Color string

const (
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorPink   Color = "pink"
)

// ValidColor reports whether c is one of the palette values.
func ValidColor(c Color) bool {
	switch c {
	case ColorYellow, ColorGreen, ColorBlue, ColorPink:
		return true
	}
	return false
}

// Highlight is a persisted, re-locatable annotation over a substring
// of rendered content.
//
// StartOffset/EndOffset are byte offsets into the page's UTF-8
// flattened text at capture time. They are NOT trusted on later
// renders; the anchor resolver re-locates the span from Text and the
// two context strings, and falls back to the stored offsets only when
// context matching fails.
type Highlight struct {
	ID            string    `json:"id"             db:"id"`
	OwnerID       string    `json:"owner_id"       db:"owner_id"`
	PageID        string    `json:"page_id"        db:"page_id"`
	Text          string    `json:"text"           db:"text"`
	StartOffset   int       `json:"start_offset"   db:"start_offset"`
	EndOffset     int       `json:"end_offset"     db:"end_offset"`
	Color         Color     `json:"color"          db:"color"`
	PrefixContext string    `json:"prefix_context" db:"prefix_context"`
	SuffixContext string    `json:"suffix_context" db:"suffix_context"`
	CreatedAt     time.Time `json:"created_at"     db:"created_at"`
}

// Signature is the deduplication key: two records with the same
// signature for the same owner describe the same highlight and must
// collapse to one.
type Signature struct {
	PageID string
	Start  int
	End    int
}

// Signature returns the dedup key of h.
func (h *Highlight) Signature() Signature {
	return Signature{PageID: h.PageID, Start: h.StartOffset, End: h.EndOffset}
}

// Synced reports whether h carries a durable, remote-assigned id.
func (h *Highlight) Synced() bool {
	return h.ID != "" && !strings.HasPrefix(h.ID, LocalIDPrefix)
}

// Valid reports whether h has the fields every stored record must
// carry. Cache entries failing this check are dropped rather than
// partially trusted.
func (h *Highlight) Valid() bool {
	return h.ID != "" && h.Text != "" && h.EndOffset-h.StartOffset == len(h.Text)
}
