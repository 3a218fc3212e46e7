// Package service contains the backend business logic: validation and
// ownership rules between the HTTP layer and the repositories.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/reader-highlights/internal/apperror"
	"github.com/sakif/reader-highlights/internal/model"
	"github.com/sakif/reader-highlights/internal/repository"
)

// Validation bounds. Text is capped well above any sane selection so
// only runaway clients are rejected; contexts are clamped, not
// rejected, since over-long contexts still anchor correctly.
const (
	MaxTextLength = 10000
)

// HighlightService handles business logic for stored highlights.
type HighlightService struct {
	repo   repository.HighlightRepository
	logger *slog.Logger
}

func NewHighlightService(repo repository.HighlightRepository, logger *slog.Logger) *HighlightService {
	return &HighlightService{repo: repo, logger: logger}
}

// ListByOwner returns the owner's highlights in creation order.
func (s *HighlightService) ListByOwner(ctx context.Context, ownerID string) ([]*model.Highlight, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperror.ValidationFailed("owner_id", "owner is required")
	}
	highlights, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to list highlights",
			slog.String("owner", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing highlights: %w", err)
	}
	if highlights == nil {
		highlights = []*model.Highlight{}
	}
	return highlights, nil
}

// Create validates and stores a highlight for ownerID, returning the
// stored record under its assigned id. Duplicate signatures surface as
// apperror.ErrConflict; callers treat that as "already saved".
func (s *HighlightService) Create(ctx context.Context, ownerID string, h *model.Highlight) (*model.Highlight, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperror.ValidationFailed("owner_id", "owner is required")
	}
	if h == nil {
		return nil, apperror.ValidationFailed("highlight", "request body is required")
	}
	if h.Text == "" {
		return nil, apperror.ValidationFailed("text", "highlight text is required")
	}
	if len(h.Text) > MaxTextLength {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf("highlight text must be %d characters or less", MaxTextLength))
	}
	if h.PageID == "" {
		return nil, apperror.ValidationFailed("page_id", "page id is required")
	}
	if _, err := model.ParsePageRef(h.PageID); err != nil {
		return nil, apperror.ValidationFailed("page_id", "page id must have the form kind:id")
	}
	if h.EndOffset-h.StartOffset != len(h.Text) || h.StartOffset < 0 {
		return nil, apperror.ValidationFailed("offsets", "offsets do not match the highlight text")
	}
	if !model.ValidColor(h.Color) {
		h.Color = model.ColorYellow
	}
	if len(h.PrefixContext) > model.ContextLength {
		h.PrefixContext = h.PrefixContext[len(h.PrefixContext)-model.ContextLength:]
	}
	if len(h.SuffixContext) > model.ContextLength {
		h.SuffixContext = h.SuffixContext[:model.ContextLength]
	}

	stored, err := s.repo.Insert(ctx, ownerID, h)
	if err != nil {
		return nil, err
	}

	s.logger.Info("highlight stored",
		slog.String("id", stored.ID),
		slog.String("owner", ownerID),
		slog.String("page", stored.PageID),
	)
	return stored, nil
}

// Delete removes one highlight. Ownership is enforced by listing
// first: deleting someone else's highlight reports not-found rather
// than leaking its existence.
func (s *HighlightService) Delete(ctx context.Context, ownerID, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperror.ValidationFailed("id", "highlight id is required")
	}
	owned, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("checking highlight ownership: %w", err)
	}
	for _, h := range owned {
		if h.ID == id {
			return s.repo.Delete(ctx, id)
		}
	}
	return apperror.NotFound("highlight", id)
}

// DeleteAll removes every highlight the owner has.
func (s *HighlightService) DeleteAll(ctx context.Context, ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return apperror.ValidationFailed("owner_id", "owner is required")
	}
	if err := s.repo.DeleteAllByOwner(ctx, ownerID); err != nil {
		return fmt.Errorf("deleting highlights: %w", err)
	}
	s.logger.Info("highlights cleared", slog.String("owner", ownerID))
	return nil
}
