package model

import (
	"fmt"
	"strings"
)

// PageRef identifies a logical content unit. Distinct pages never
// share an offset space, so the pair is the namespace every highlight
// anchors into.
//
// The structured form is used everywhere inside the engine; the opaque
// "kind:id" string exists only at the wire and cache boundaries.
type PageRef struct {
	ID   string // content-unit id, e.g. a topic id
	Kind string // content kind, e.g. "topic" or "article"
}

// String renders the opaque wire form.
func (p PageRef) String() string {
	return p.Kind + ":" + p.ID
}

// IsZero reports whether p identifies nothing.
func (p PageRef) IsZero() bool {
	return p.ID == "" && p.Kind == ""
}

// ParsePageRef parses the opaque "kind:id" wire form. The id part may
// itself contain colons; only the first separator is structural.
func ParsePageRef(s string) (PageRef, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || kind == "" || id == "" {
		return PageRef{}, fmt.Errorf("model: malformed page ref %q", s)
	}
	return PageRef{ID: id, Kind: kind}, nil
}
