// Package remote implements the remote persistence adapter over the
// backend's HTTP API. A sync coordinator can be wired with this client
// or with the sqlite repository directly; both satisfy the same
// interface.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sakif/reader-highlights/internal/apperror"
	"github.com/sakif/reader-highlights/internal/model"
	"github.com/sakif/reader-highlights/internal/repository"
)

// Client talks to one backend on behalf of one authenticated owner.
// The bearer token scopes every request, so the ownerID arguments on
// the adapter interface are informational here; the server derives
// the owner from the token.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

var _ repository.HighlightRepository = (*Client)(nil)

// NewClient creates a client for baseURL (no trailing slash) holding
// the given access token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("remote: encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("remote: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	return resp, nil
}

// apiError translates a non-2xx response into the domain taxonomy so
// callers can use errors.Is exactly as with the sqlite repository.
func apiError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Message == "" {
		body.Message = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return &apperror.AppError{Err: apperror.ErrNotFound, Message: body.Message}
	case http.StatusConflict:
		return &apperror.AppError{Err: apperror.ErrConflict, Message: body.Message}
	case http.StatusUnauthorized:
		return &apperror.AppError{Err: apperror.ErrUnauthorized, Message: body.Message}
	case http.StatusBadRequest:
		return &apperror.AppError{Err: apperror.ErrValidation, Message: body.Message}
	default:
		return fmt.Errorf("remote: unexpected status %s: %s", resp.Status, body.Message)
	}
}

func (c *Client) ListByOwner(ctx context.Context, _ string) ([]*model.Highlight, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/highlights", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	var highlights []*model.Highlight
	if err := json.NewDecoder(resp.Body).Decode(&highlights); err != nil {
		return nil, fmt.Errorf("remote: decoding highlight list: %w", err)
	}
	return highlights, nil
}

func (c *Client) Insert(ctx context.Context, _ string, h *model.Highlight) (*model.Highlight, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/highlights", h)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, apiError(resp)
	}
	var stored model.Highlight
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return nil, fmt.Errorf("remote: decoding stored highlight: %w", err)
	}
	return &stored, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/highlights/"+id, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}

func (c *Client) DeleteAllByOwner(ctx context.Context, _ string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/highlights", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}
