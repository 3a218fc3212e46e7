package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sakif/reader-highlights/internal/apperror"
	"github.com/sakif/reader-highlights/internal/model"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleHighlight(page, text string, start int, createdAt time.Time) *model.Highlight {
	return &model.Highlight{
		ID:            "local-temp",
		PageID:        page,
		Text:          text,
		StartOffset:   start,
		EndOffset:     start + len(text),
		Color:         model.ColorYellow,
		PrefixContext: "before ",
		SuffixContext: " after",
		CreatedAt:     createdAt,
	}
}

func TestHighlightInsertAndList(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	in := sampleHighlight("topic:intro", "brown fox", 10, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	stored, err := db.Insert(ctx, "user-1", in)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if stored.ID == "" || strings.HasPrefix(stored.ID, model.LocalIDPrefix) {
		t.Errorf("stored ID = %q, want a durable id", stored.ID)
	}
	if stored.OwnerID != "user-1" {
		t.Errorf("stored OwnerID = %q, want user-1", stored.OwnerID)
	}

	listed, err := db.ListByOwner(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("ListByOwner() returned %d records, want 1", len(listed))
	}
	got := listed[0]
	if got.ID != stored.ID || got.Text != "brown fox" ||
		got.StartOffset != 10 || got.EndOffset != 19 ||
		got.PrefixContext != "before " || got.SuffixContext != " after" ||
		got.Color != model.ColorYellow {
		t.Errorf("listed record = %+v, want the inserted one", got)
	}
}

func TestHighlightListOrderedByCreation(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Insert out of chronological order; the list must come back in it.
	for _, offset := range []int{2, 0, 1} {
		h := sampleHighlight("topic:intro", fmt.Sprintf("text %d..", offset), offset*30, base.Add(time.Duration(offset)*time.Minute))
		if _, err := db.Insert(ctx, "user-1", h); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	listed, err := db.ListByOwner(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("ListByOwner() returned %d records, want 3", len(listed))
	}
	for i, want := range []string{"text 0..", "text 1..", "text 2.."} {
		if listed[i].Text != want {
			t.Errorf("listed[%d].Text = %q, want %q", i, listed[i].Text, want)
		}
	}
}

func TestHighlightListScopedToOwner(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	db.Insert(ctx, "user-1", sampleHighlight("topic:a", "mine only", 0, now))
	db.Insert(ctx, "user-2", sampleHighlight("topic:a", "theirs....", 50, now))

	listed, err := db.ListByOwner(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(listed) != 1 || listed[0].Text != "mine only" {
		t.Errorf("ListByOwner(user-1) = %v, want only user-1's record", listed)
	}

	empty, err := db.ListByOwner(ctx, "user-3")
	if err != nil {
		t.Fatalf("ListByOwner(empty) error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("ListByOwner(user-3) returned %d records, want 0", len(empty))
	}
}

func TestHighlightInsertDuplicateSignature(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := db.Insert(ctx, "user-1", sampleHighlight("topic:a", "brown fox", 10, now)); err != nil {
		t.Fatalf("first Insert() error = %v", err)
	}
	// Same (page, start, end) for the same owner trips the unique index
	// regardless of the other fields.
	dup := sampleHighlight("topic:a", "brown fox", 10, now.Add(time.Hour))
	dup.Color = model.ColorGreen
	if _, err := db.Insert(ctx, "user-1", dup); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate Insert() = %v, want ErrConflict", err)
	}

	// A different owner with the same signature is fine.
	if _, err := db.Insert(ctx, "user-2", sampleHighlight("topic:a", "brown fox", 10, now)); err != nil {
		t.Errorf("other-owner Insert() error = %v", err)
	}
}

func TestHighlightDelete(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	stored, err := db.Insert(ctx, "user-1", sampleHighlight("topic:a", "brown fox", 10, time.Now().UTC()))
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if err := db.Delete(ctx, stored.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	listed, _ := db.ListByOwner(ctx, "user-1")
	if len(listed) != 0 {
		t.Errorf("list after delete holds %d records, want 0", len(listed))
	}

	if err := db.Delete(ctx, stored.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() = %v, want ErrNotFound", err)
	}
}

func TestHighlightDeleteAllByOwner(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	db.Insert(ctx, "user-1", sampleHighlight("topic:a", "first text", 0, now))
	db.Insert(ctx, "user-1", sampleHighlight("topic:b", "second one", 0, now))
	db.Insert(ctx, "user-2", sampleHighlight("topic:a", "keep this.", 0, now))

	if err := db.DeleteAllByOwner(ctx, "user-1"); err != nil {
		t.Fatalf("DeleteAllByOwner() error = %v", err)
	}
	mine, _ := db.ListByOwner(ctx, "user-1")
	if len(mine) != 0 {
		t.Errorf("user-1 still has %d records", len(mine))
	}
	theirs, _ := db.ListByOwner(ctx, "user-2")
	if len(theirs) != 1 {
		t.Errorf("user-2 lost records: have %d, want 1", len(theirs))
	}

	// Deleting an empty set is not an error.
	if err := db.DeleteAllByOwner(ctx, "user-1"); err != nil {
		t.Errorf("DeleteAllByOwner(empty) error = %v", err)
	}
}

func TestUserCreateAndGet(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	user := &model.User{Email: "  Reader@Example.COM ", PasswordHash: "hash"}
	if err := db.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if user.ID == "" {
		t.Error("Create() did not assign an id")
	}
	if user.Email != "reader@example.com" {
		t.Errorf("Email = %q, want normalized lowercase", user.Email)
	}

	byID, err := db.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if byID.Email != "reader@example.com" {
		t.Errorf("GetByID().Email = %q", byID.Email)
	}

	// Lookup is case-insensitive through normalization.
	byEmail, err := db.GetByEmail(ctx, "READER@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("GetByEmail().ID = %q, want %q", byEmail.ID, user.ID)
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.Create(ctx, &model.User{Email: "reader@example.com", PasswordHash: "hash"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := db.Create(ctx, &model.User{Email: "Reader@Example.com", PasswordHash: "other"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate Create() = %v, want ErrConflict", err)
	}
}

func TestUserGetMissing(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, err := db.GetByID(ctx, "nope"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID(missing) = %v, want ErrNotFound", err)
	}
	if _, err := db.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByEmail(missing) = %v, want ErrNotFound", err)
	}
}
