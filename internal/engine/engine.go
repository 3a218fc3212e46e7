// Package engine is the reading-session façade over the highlight
// components. It owns one marker Applier per page and routes the two
// flows the UI triggers: a text selection (capture or remove) and a
// page render (resolve and reconcile markers).
package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sakif/reader-highlights/internal/capture"
	"github.com/sakif/reader-highlights/internal/doc"
	"github.com/sakif/reader-highlights/internal/marker"
	"github.com/sakif/reader-highlights/internal/model"
	syncpkg "github.com/sakif/reader-highlights/internal/sync"
)

// Engine coordinates one session's highlight interactions.
type Engine struct {
	coordinator *syncpkg.Coordinator
	appliers    map[string]*marker.Applier // keyed by opaque page id
	logger      *slog.Logger
}

// New creates an Engine over a coordinator.
func New(coordinator *syncpkg.Coordinator, logger *slog.Logger) *Engine {
	return &Engine{
		coordinator: coordinator,
		appliers:    make(map[string]*marker.Applier),
		logger:      logger,
	}
}

// Coordinator exposes the underlying sync coordinator.
func (e *Engine) Coordinator() *syncpkg.Coordinator {
	return e.coordinator
}

// HandleSelection processes a user text selection on a page. A
// selection over plain content captures a new highlight; a selection
// landing on an existing marker removes that highlight instead. The
// returned highlight is nil in the removal case.
func (e *Engine) HandleSelection(ctx context.Context, d *doc.Document, page model.PageRef, sel capture.Selection, color model.Color) (*model.Highlight, error) {
	ident := e.coordinator.Identity()
	h, err := capture.Capture(d, sel, page, ident.ID, color)
	if err != nil {
		var hit *capture.ExistingMarkError
		if errors.As(err, &hit) {
			if remErr := e.coordinator.Remove(ctx, hit.ID); remErr != nil {
				return nil, remErr
			}
			e.applier(page).Remove(d, hit.ID)
			return nil, nil
		}
		return nil, err
	}

	added, err := e.coordinator.Add(ctx, h)
	if err != nil {
		return nil, err
	}
	e.RenderPage(d, page)
	return added, nil
}

// RenderPage reconciles the document's markers with the coordinator's
// current snapshot for the page. Call it on every render of a page;
// highlights that fail to anchor are simply omitted this pass.
func (e *Engine) RenderPage(d *doc.Document, page model.PageRef) {
	e.applier(page).Reconcile(d, e.coordinator.Snapshot(page))
}

// PageReloaded discards the applier state for a page whose container
// was re-rendered from scratch, so the next RenderPage re-applies
// everything instead of trusting stale tracking.
func (e *Engine) PageReloaded(page model.PageRef) {
	if a, ok := e.appliers[page.String()]; ok {
		a.Reset()
	}
}

func (e *Engine) applier(page model.PageRef) *marker.Applier {
	key := page.String()
	a, ok := e.appliers[key]
	if !ok {
		a = marker.NewApplier(e.logger)
		e.appliers[key] = a
	}
	return a
}
