// Package capture converts a user text selection into a portable
// highlight record: the selected text, its absolute offsets in the
// page's flattened text, and bounded context strings on either side.
// Everything is computed against the exact rendered state at capture
// time; nothing in the record is guaranteed valid after a re-render.
package capture

import (
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/reader-highlights/internal/apperror"
	"github.com/sakif/reader-highlights/internal/doc"
	"github.com/sakif/reader-highlights/internal/model"
)

// MinSelectionLength rejects accidental drag selections. Anything
// shorter carries too little signal to re-anchor reliably.
const MinSelectionLength = 2

// ExistingMarkError reports that the selection landed on an already
// applied marker. The caller should remove that highlight instead of
// capturing a new one.
type ExistingMarkError struct {
	ID string
}

func (e *ExistingMarkError) Error() string {
	return fmt.Sprintf("capture: selection hit existing highlight %s", e.ID)
}

// Selection is a user text selection expressed as concrete positions
// inside the live document.
type Selection struct {
	Start doc.Position
	End   doc.Position
}

// Capture turns a selection into a highlight record owned by ownerID
// on the given page. The id is a temporary local one; the sync
// coordinator rewrites it once remote persistence assigns a durable
// id.
//
// Selections shorter than MinSelectionLength or falling outside the
// container are rejected with apperror.ErrValidation. A selection
// starting or ending on an existing marker returns *ExistingMarkError.
func Capture(d *doc.Document, sel Selection, page model.PageRef, ownerID string, color model.Color) (*model.Highlight, error) {
	if ownerID == "" {
		return nil, apperror.ValidationFailed("owner_id", "owner is required")
	}
	if page.IsZero() {
		return nil, apperror.ValidationFailed("page_id", "page is required")
	}
	if !model.ValidColor(color) {
		color = model.ColorYellow
	}

	if id, ok := d.MarkerAt(sel.Start); ok {
		return nil, &ExistingMarkError{ID: id}
	}
	if id, ok := d.MarkerAt(sel.End); ok {
		return nil, &ExistingMarkError{ID: id}
	}

	start, ok := d.OffsetOf(sel.Start)
	if !ok {
		return nil, apperror.ValidationFailed("selection", "selection start is outside the content container")
	}
	end, ok := d.OffsetOf(sel.End)
	if !ok {
		return nil, apperror.ValidationFailed("selection", "selection end is outside the content container")
	}
	if end < start {
		start, end = end, start
	}
	if end-start < MinSelectionLength {
		return nil, apperror.ValidationFailed("selection", "selection is too short to highlight")
	}

	flat := d.Flatten()
	if end > len(flat) {
		return nil, apperror.ValidationFailed("selection", "selection extends past the content")
	}

	prefixStart := start - model.ContextLength
	if prefixStart < 0 {
		prefixStart = 0
	}
	suffixEnd := end + model.ContextLength
	if suffixEnd > len(flat) {
		suffixEnd = len(flat)
	}

	return &model.Highlight{
		ID:            model.LocalIDPrefix + xid.New().String(),
		OwnerID:       ownerID,
		PageID:        page.String(),
		Text:          flat[start:end],
		StartOffset:   start,
		EndOffset:     end,
		Color:         color,
		PrefixContext: flat[prefixStart:start],
		SuffixContext: flat[end:suffixEnd],
		CreatedAt:     time.Now().UTC(),
	}, nil
}
