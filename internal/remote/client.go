// Package remote is the thin HTTP boundary to the studio's event server.
// Everything here is request/response; offline semantics live in the
// callers, which treat any error from this package as "try again later".
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/smilefoto/klicka/internal/models"
)

// EventAPI is what sync and finalization consume. The HTTP client below is
// the production implementation; tests substitute a mock.
type EventAPI interface {
	PullEventBundle(ctx context.Context, eventID string) (*models.EventBundle, error)
	PushSessions(ctx context.Context, eventID string, sessions []models.PhotoSession) (*models.PushResult, error)
	FinishEvent(ctx context.Context, eventID string) error
}

type Header struct {
	Name  string
	Value string
}

type Client struct {
	baseURL string
	token   string
	headers []Header
	http    *http.Client
}

func NewClient(baseURL, token string, headers []Header, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		headers: headers,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for _, h := range c.headers {
		req.Header.Set(h.Name, h.Value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d for %s: %s", resp.StatusCode, path, string(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// PullEventBundle fetches event, roster, qr codes and preferences in one
// round trip, so sync-down either gets a consistent snapshot or nothing.
func (c *Client) PullEventBundle(ctx context.Context, eventID string) (*models.EventBundle, error) {
	var bundle models.EventBundle
	path := fmt.Sprintf("/api/v1/events/%s/bundle", eventID)
	if err := c.do(ctx, http.MethodGet, path, nil, &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

// PushSessions uploads the full local session set. The server dedupes on
// sessionId, so re-sending the same list is harmless.
func (c *Client) PushSessions(ctx context.Context, eventID string, sessions []models.PhotoSession) (*models.PushResult, error) {
	var result models.PushResult
	path := fmt.Sprintf("/api/v1/events/%s/sessions", eventID)
	body := map[string]any{"sessions": sessions}
	if err := c.do(ctx, http.MethodPost, path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) FinishEvent(ctx context.Context, eventID string) error {
	path := fmt.Sprintf("/api/v1/events/%s/finish", eventID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}
