// Package handler contains the HTTP layer of the highlight backend:
// request parsing, response writing, nothing else. Business rules live
// in the service package.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/reader-highlights/internal/apperror"
	"github.com/sakif/reader-highlights/internal/auth"
	"github.com/sakif/reader-highlights/internal/model"
	"github.com/sakif/reader-highlights/internal/service"
)

// HighlightHandler serves the remote persistence API. Every route is
// behind auth.RequireAuth, so the owner id always comes from the
// token, never from the request body.
type HighlightHandler struct {
	highlights *service.HighlightService
	logger     *slog.Logger
}

func NewHighlightHandler(highlights *service.HighlightService, logger *slog.Logger) *HighlightHandler {
	return &HighlightHandler{highlights: highlights, logger: logger}
}

// HandleList serves GET /api/highlights.
func (h *HighlightHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	highlights, err := h.highlights.ListByOwner(r.Context(), ownerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, highlights)
}

// HandleCreate serves POST /api/highlights. The body is the flat wire
// record; any owner_id in it is overridden by the token's owner.
func (h *HighlightHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var highlight model.Highlight
	if err := json.NewDecoder(r.Body).Decode(&highlight); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	stored, err := h.highlights.Create(r.Context(), ownerID, &highlight)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// HandleDelete serves DELETE /api/highlights/{id}.
func (h *HighlightHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.highlights.Delete(r.Context(), ownerID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteAll serves DELETE /api/highlights.
func (h *HighlightHandler) HandleDeleteAll(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	if err := h.highlights.DeleteAll(r.Context(), ownerID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
