// Package marker applies and removes highlight markers on a live
// document. An Applier tracks which highlight ids it has already
// wrapped so that repeated render passes reconcile instead of
// re-wrapping: stale markers are unwrapped, missing ones are resolved
// and applied, and an id already on the page is never touched again.
package marker

import (
	"log/slog"

	"github.com/sakif/reader-highlights/internal/anchor"
	"github.com/sakif/reader-highlights/internal/doc"
	"github.com/sakif/reader-highlights/internal/model"
)

// Applier reconciles the markers on one document against a desired
// highlight set. One Applier per rendered container; create a fresh
// one whenever the container's content is replaced wholesale.
type Applier struct {
	applied map[string]bool
	logger  *slog.Logger
}

// NewApplier creates an Applier with no applied state.
func NewApplier(logger *slog.Logger) *Applier {
	return &Applier{
		applied: make(map[string]bool),
		logger:  logger,
	}
}

// Reset forgets all tracked state. Call after the container was
// re-rendered from scratch, which discards any markers in the DOM-side
// tree without going through Unwrap.
func (a *Applier) Reset() {
	a.applied = make(map[string]bool)
}

// Applied reports whether the given highlight id is currently tracked
// as wrapped on the document.
func (a *Applier) Applied(id string) bool {
	return a.applied[id]
}

// Reconcile brings the document's markers in line with desired. It
// unwraps markers whose ids are no longer desired, then applies the
// desired ids not yet present. A highlight that cannot be resolved or
// wrapped this pass is skipped without failing the pass; it stays
// untracked so a later pass retries it.
func (a *Applier) Reconcile(d *doc.Document, desired []*model.Highlight) {
	want := make(map[string]*model.Highlight, len(desired))
	for _, h := range desired {
		want[h.ID] = h
	}

	for id := range a.applied {
		if want[id] == nil {
			d.Unwrap(id)
			delete(a.applied, id)
		}
	}

	for id, h := range want {
		if a.applied[id] {
			continue
		}
		if a.apply(d, h) {
			a.applied[id] = true
		}
	}
}

// Remove unwraps a single highlight immediately, ahead of the next
// reconcile pass. Used when a click on a marker deletes the highlight.
func (a *Applier) Remove(d *doc.Document, id string) {
	d.Unwrap(id)
	delete(a.applied, id)
}

// apply resolves h against the document's current text and wraps the
// matched range. The text spanned by the concrete positions must equal
// the captured text byte for byte; any disagreement between the
// abstract match and the live tree is treated as a miss.
func (a *Applier) apply(d *doc.Document, h *model.Highlight) bool {
	flat := d.Flatten()
	m, strat, ok := anchor.Resolve(h, flat)
	if !ok {
		a.logger.Debug("highlight did not anchor",
			slog.String("id", h.ID),
			slog.String("page", h.PageID),
		)
		return false
	}

	start, ok := d.Locate(m.Start)
	if !ok {
		return false
	}
	end, ok := d.LocateEnd(m.End)
	if !ok {
		return false
	}
	if got, ok := d.TextBetween(start, end); !ok || got != h.Text {
		a.logger.Debug("anchored range did not verify",
			slog.String("id", h.ID),
			slog.String("strategy", string(strat)),
		)
		return false
	}

	if err := d.Wrap(start, end, h.ID, h.Color); err != nil {
		// Typically ErrCrossBoundary: the range partially selects an
		// element and cannot be wrapped by a single marker.
		a.logger.Debug("could not wrap highlight",
			slog.String("id", h.ID),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}
