package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/reader-highlights/internal/apperror"
	"github.com/sakif/reader-highlights/internal/model"
	"github.com/sakif/reader-highlights/internal/repository"
)

// compile-time check that *DB implements the remote adapter contract
var _ repository.HighlightRepository = (*DB)(nil)

// ListByOwner returns the owner's highlights ordered by creation time
// ascending. Clients treat this order as authoritative after a reload.
func (db *DB) ListByOwner(ctx context.Context, ownerID string) ([]*model.Highlight, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, owner_id, page_id, text, start_offset, end_offset,
		        color, prefix_context, suffix_context, created_at
		 FROM highlights
		 WHERE owner_id = ?
		 ORDER BY created_at ASC, id ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing highlights for %s: %w", ownerID, err)
	}
	defer rows.Close()

	var highlights []*model.Highlight
	for rows.Next() {
		var h model.Highlight
		if err := rows.Scan(
			&h.ID, &h.OwnerID, &h.PageID, &h.Text, &h.StartOffset, &h.EndOffset,
			&h.Color, &h.PrefixContext, &h.SuffixContext, &h.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning highlight row: %w", err)
		}
		highlights = append(highlights, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating highlights: %w", err)
	}
	return highlights, nil
}

// Insert stores a highlight under a freshly generated durable id and
// returns the stored record. The caller's temporary id is discarded;
// ids are assigned here and never reused.
//
// A duplicate dedup signature (owner, page, start, end) trips the
// unique index and is reported as apperror.ErrConflict so callers can
// skip it silently.
func (db *DB) Insert(ctx context.Context, ownerID string, h *model.Highlight) (*model.Highlight, error) {
	stored := *h
	stored.ID = xid.New().String()
	stored.OwnerID = ownerID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO highlights (id, owner_id, page_id, text, start_offset, end_offset,
		                         color, prefix_context, suffix_context, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.OwnerID, stored.PageID, stored.Text,
		stored.StartOffset, stored.EndOffset, string(stored.Color),
		stored.PrefixContext, stored.SuffixContext, stored.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("highlight", stored.ID)
		}
		return nil, fmt.Errorf("sqlite: inserting highlight: %w", err)
	}
	return &stored, nil
}

// Delete removes a highlight by id.
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM highlights WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting highlight %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("highlight", id)
	}
	return nil
}

// DeleteAllByOwner removes every highlight the owner has. Deleting an
// empty set is not an error.
func (db *DB) DeleteAllByOwner(ctx context.Context, ownerID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM highlights WHERE owner_id = ?`, ownerID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting highlights for %s: %w", ownerID, err)
	}
	return nil
}

// isUniqueViolation detects SQLite's unique-constraint error. The
// modernc driver does not export a typed error, so the message is the
// only signal available.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
