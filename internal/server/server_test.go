package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/reader-highlights/internal/model"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(Config{
		Port:      0,
		DBPath:    ":memory:",
		JWTSecret: "test-secret-at-least-16-chars",
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.db.Close() })
	return s
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func registerUser(t *testing.T, s *Server, email string) (token, ownerID string) {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Token   string `json:"token"`
		OwnerID string `json:"owner_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	require.NotEmpty(t, resp.OwnerID)
	return resp.Token, resp.OwnerID
}

func wireHighlight(page, text string, start int) *model.Highlight {
	return &model.Highlight{
		PageID:      page,
		Text:        text,
		StartOffset: start,
		EndOffset:   start + len(text),
		Color:       model.ColorYellow,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	token, ownerID := registerUser(t, s, "reader@example.com")
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, ownerID)

	rec := doJSON(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "reader@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		OwnerID string `json:"owner_id"`
		Email   string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ownerID, resp.OwnerID)
	assert.Equal(t, "reader@example.com", resp.Email)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		email    string
		password string
		want     int
	}{
		{"missing at sign", "not-an-email", "password123", http.StatusBadRequest},
		{"short password", "reader@example.com", "short", http.StatusBadRequest},
		{"empty email", "", "password123", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/auth/register", "", map[string]string{
				"email":    tt.email,
				"password": tt.password,
			})
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	registerUser(t, s, "reader@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "reader@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestLoginWrongPassword(t *testing.T) {
	s := newTestServer(t)
	registerUser(t, s, "reader@example.com")

	// Wrong password and unknown account look identical to the caller.
	for _, creds := range []map[string]string{
		{"email": "reader@example.com", "password": "wrong-password"},
		{"email": "nobody@example.com", "password": "password123"},
	} {
		rec := doJSON(t, s, http.MethodPost, "/api/auth/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
	}
}

func TestHighlightsRequireAuth(t *testing.T) {
	s := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/highlights"},
		{http.MethodPost, "/api/highlights"},
		{http.MethodDelete, "/api/highlights/some-id"},
		{http.MethodDelete, "/api/highlights"},
	} {
		rec := doJSON(t, s, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code,
			"%s %s without token", tc.method, tc.path)
	}
}

func TestHighlightCRUD(t *testing.T) {
	s := newTestServer(t)
	token, ownerID := registerUser(t, s, "reader@example.com")

	// Create.
	rec := doJSON(t, s, http.MethodPost, "/api/highlights", token,
		wireHighlight("topic:intro", "brown fox", 10))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created model.Highlight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Synced(), "stored id must be durable")
	assert.Equal(t, ownerID, created.OwnerID, "owner comes from the token")

	// List.
	rec = doJSON(t, s, http.MethodGet, "/api/highlights", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []*model.Highlight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
	assert.Equal(t, "brown fox", listed[0].Text)

	// Delete one.
	rec = doJSON(t, s, http.MethodDelete, "/api/highlights/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/highlights", token, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Empty(t, listed)
}

func TestHighlightCreateIgnoresBodyOwner(t *testing.T) {
	s := newTestServer(t)
	token, ownerID := registerUser(t, s, "reader@example.com")

	h := wireHighlight("topic:intro", "brown fox", 10)
	h.OwnerID = "someone-else"
	rec := doJSON(t, s, http.MethodPost, "/api/highlights", token, h)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created model.Highlight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, ownerID, created.OwnerID)
}

func TestHighlightCreateDuplicateSignature(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerUser(t, s, "reader@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/highlights", token,
		wireHighlight("topic:intro", "brown fox", 10))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/highlights", token,
		wireHighlight("topic:intro", "brown fox", 10))
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestHighlightCreateValidation(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerUser(t, s, "reader@example.com")

	bad := wireHighlight("topic:intro", "brown fox", 10)
	bad.EndOffset = bad.StartOffset + 1
	rec := doJSON(t, s, http.MethodPost, "/api/highlights", token, bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "offsets disagreeing with text length")

	empty := wireHighlight("topic:intro", "", 10)
	rec = doJSON(t, s, http.MethodPost, "/api/highlights", token, empty)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "empty text")

	noKind := wireHighlight("just-an-id", "brown fox", 10)
	rec = doJSON(t, s, http.MethodPost, "/api/highlights", token, noKind)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "page id without a kind")
}

func TestHighlightDeleteScopedToOwner(t *testing.T) {
	s := newTestServer(t)
	tokenA, _ := registerUser(t, s, "alice@example.com")
	tokenB, _ := registerUser(t, s, "bob@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/highlights", tokenA,
		wireHighlight("topic:intro", "brown fox", 10))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.Highlight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Another owner cannot see or delete it.
	rec = doJSON(t, s, http.MethodDelete, "/api/highlights/"+created.ID, tokenB, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/highlights", tokenA, nil)
	var listed []*model.Highlight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 1, "foreign delete must not remove the record")
}

func TestHighlightDeleteAll(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerUser(t, s, "reader@example.com")

	for i := 0; i < 3; i++ {
		rec := doJSON(t, s, http.MethodPost, "/api/highlights", token,
			wireHighlight("topic:intro", fmt.Sprintf("text %d..", i), i*30))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, s, http.MethodDelete, "/api/highlights", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/highlights", token, nil)
	var listed []*model.Highlight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Empty(t, listed)
}
