// Package repository defines the persistence contracts. The highlight
// interface is the remote persistence adapter the sync coordinator
// depends on; it is only reachable when the session holds an
// authenticated identity.
package repository

import (
	"context"

	"github.com/sakif/reader-highlights/internal/model"
)

// HighlightRepository is the remote store for highlights, keyed by
// owner identity.
type HighlightRepository interface {
	// ListByOwner returns the owner's highlights ordered by creation
	// time ascending. That order is authoritative after a reload.
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Highlight, error)
	// Insert persists a highlight under a freshly assigned durable id
	// and returns the stored record. A record sharing the dedup
	// signature (page, start, end) with an existing one for the same
	// owner fails with apperror.ErrConflict; the existing record wins.
	Insert(ctx context.Context, ownerID string, h *model.Highlight) (*model.Highlight, error)
	// Delete removes a highlight by id.
	Delete(ctx context.Context, id string) error
	// DeleteAllByOwner removes every highlight the owner has.
	DeleteAllByOwner(ctx context.Context, ownerID string) error
}

// UserRepository stores backend accounts.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}
