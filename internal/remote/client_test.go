package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sakif/reader-highlights/internal/apperror"
	"github.com/sakif/reader-highlights/internal/model"
	"github.com/sakif/reader-highlights/internal/server"
)

// startBackend runs the real router over an in-memory database, so the
// client is tested against the exact server it will talk to.
func startBackend(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := server.New(server.Config{
		DBPath:    ":memory:",
		JWTSecret: "test-secret-at-least-16-chars",
	}, logger)
	if err != nil {
		t.Fatalf("server.New() error = %v", err)
	}
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return ts
}

func registerOwner(t *testing.T, baseURL string) (token, ownerID string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"email":    "reader@example.com",
		"password": "password123",
	})
	resp, err := http.Post(baseURL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register request error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	var out struct {
		Token   string `json:"token"`
		OwnerID string `json:"owner_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding register response: %v", err)
	}
	return out.Token, out.OwnerID
}

func sample(page, text string, start int) *model.Highlight {
	return &model.Highlight{
		ID:          "local-temp",
		PageID:      page,
		Text:        text,
		StartOffset: start,
		EndOffset:   start + len(text),
		Color:       model.ColorYellow,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestClientRoundTrip(t *testing.T) {
	ts := startBackend(t)
	token, ownerID := registerOwner(t, ts.URL)
	client := NewClient(ts.URL, token)
	ctx := context.Background()

	stored, err := client.Insert(ctx, ownerID, sample("topic:intro", "brown fox", 10))
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if !stored.Synced() {
		t.Errorf("stored ID = %q, want a durable id", stored.ID)
	}
	if stored.OwnerID != ownerID {
		t.Errorf("stored OwnerID = %q, want %q", stored.OwnerID, ownerID)
	}

	listed, err := client.ListByOwner(ctx, ownerID)
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(listed) != 1 || listed[0].ID != stored.ID || listed[0].Text != "brown fox" {
		t.Errorf("ListByOwner() = %v, want the inserted record", listed)
	}

	if err := client.Delete(ctx, stored.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	listed, err = client.ListByOwner(ctx, ownerID)
	if err != nil {
		t.Fatalf("ListByOwner() after delete error = %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("list after delete holds %d records, want 0", len(listed))
	}
}

func TestClientInsertConflict(t *testing.T) {
	ts := startBackend(t)
	token, ownerID := registerOwner(t, ts.URL)
	client := NewClient(ts.URL, token)
	ctx := context.Background()

	if _, err := client.Insert(ctx, ownerID, sample("topic:intro", "brown fox", 10)); err != nil {
		t.Fatalf("first Insert() error = %v", err)
	}
	_, err := client.Insert(ctx, ownerID, sample("topic:intro", "brown fox", 10))
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate Insert() = %v, want ErrConflict", err)
	}
}

func TestClientDeleteMissing(t *testing.T) {
	ts := startBackend(t)
	token, _ := registerOwner(t, ts.URL)
	client := NewClient(ts.URL, token)

	err := client.Delete(context.Background(), "no-such-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete(missing) = %v, want ErrNotFound", err)
	}
}

func TestClientBadToken(t *testing.T) {
	ts := startBackend(t)
	client := NewClient(ts.URL, "not-a-valid-token")

	_, err := client.ListByOwner(context.Background(), "whoever")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("ListByOwner() with bad token = %v, want ErrUnauthorized", err)
	}
}

func TestClientInsertValidationError(t *testing.T) {
	ts := startBackend(t)
	token, ownerID := registerOwner(t, ts.URL)
	client := NewClient(ts.URL, token)

	bad := sample("topic:intro", "brown fox", 10)
	bad.EndOffset = bad.StartOffset + 1
	_, err := client.Insert(context.Background(), ownerID, bad)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Insert(bad offsets) = %v, want ErrValidation", err)
	}
}

func TestClientDeleteAll(t *testing.T) {
	ts := startBackend(t)
	token, ownerID := registerOwner(t, ts.URL)
	client := NewClient(ts.URL, token)
	ctx := context.Background()

	client.Insert(ctx, ownerID, sample("topic:a", "first text", 0))
	client.Insert(ctx, ownerID, sample("topic:b", "second one", 0))

	if err := client.DeleteAllByOwner(ctx, ownerID); err != nil {
		t.Fatalf("DeleteAllByOwner() error = %v", err)
	}
	listed, err := client.ListByOwner(ctx, ownerID)
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("list after delete-all holds %d records, want 0", len(listed))
	}
}
