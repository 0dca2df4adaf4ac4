// Package remote is the HTTP client for the notes service. The engine treats
// it as a black box: token refresh happens behind the transport, this client
// only attaches the bearer token and classifies failures.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors for the failure classes the sync engine dispatches on.
var (
	// ErrNetwork covers no connectivity, unreachable host and timeouts.
	// Retryable: the mutation is queued for a later drain.
	ErrNetwork = errors.New("network unavailable")
	// ErrAuthExpired is a 401: the session is gone, retrying is pointless.
	ErrAuthExpired = errors.New("authentication expired")
	// ErrNotFound is a 404 for a specific note.
	ErrNotFound = errors.New("not found")
	// ErrRejected marks validation-style 4xx responses. Non-retryable.
	ErrRejected = errors.New("rejected by server")
)

// RejectedError carries the structured field reasons of a 4xx validation
// failure. Unwraps to ErrRejected.
type RejectedError struct {
	Status int
	Fields map[string][]string
}

func (e *RejectedError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("rejected by server (HTTP %d)", e.Status)
	}
	var parts []string
	for field, msgs := range e.Fields {
		parts = append(parts, field+": "+strings.Join(msgs, "; "))
	}
	return fmt.Sprintf("rejected by server (HTTP %d): %s", e.Status, strings.Join(parts, ", "))
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

// Note is the wire representation of a note.
type Note struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// NotePage is the paginated list shape returned by list and filter.
type NotePage struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []Note  `json:"results"`
}

// Client talks to the remote notes service.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New creates a client for the given server.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// List fetches one page of notes.
func (c *Client) List(ctx context.Context, page, pageSize int) (*NotePage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(pageSize))

	var resp NotePage
	if err := c.do(ctx, "GET", "/notes?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Filter fetches one page of notes substring-filtered on title/description.
// Day-to-day search runs against the local cache; Filter exposes the
// server's /notes/filter endpoint for callers that want the server's own
// matching instead of the cached view.
func (c *Client) Filter(ctx context.Context, title, description string, page, pageSize int) (*NotePage, error) {
	params := url.Values{}
	params.Set("title", title)
	params.Set("description", description)
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(pageSize))

	var resp NotePage
	if err := c.do(ctx, "GET", "/notes/filter?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Get fetches a single note by id.
func (c *Client) Get(ctx context.Context, id int64) (*Note, error) {
	var resp Note
	if err := c.do(ctx, "GET", fmt.Sprintf("/notes/%d", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Create creates a note and returns the server-assigned record.
func (c *Client) Create(ctx context.Context, title, description string) (*Note, error) {
	body := map[string]string{"title": title, "description": description}
	var resp Note
	if err := c.do(ctx, "POST", "/notes", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Update partially updates a note. Nil fields are omitted from the patch.
func (c *Client) Update(ctx context.Context, id int64, title, description *string) (*Note, error) {
	body := map[string]string{}
	if title != nil {
		body["title"] = *title
	}
	if description != nil {
		body["description"] = *description
	}
	var resp Note
	if err := c.do(ctx, "PATCH", fmt.Sprintf("/notes/%d", id), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Delete removes a note on the server. A 404 counts as already deleted.
func (c *Client) Delete(ctx context.Context, id int64) error {
	err := c.do(ctx, "DELETE", fmt.Sprintf("/notes/%d", id), nil, nil)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Ping probes server reachability without authentication.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "HEAD", c.BaseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	resp.Body.Close()
	return nil
}

// do executes a JSON request and maps the response onto the error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		// transport-level failure: DNS, refused connection, timeout
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: HTTP 401", ErrAuthExpired)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &RejectedError{Status: resp.StatusCode, Fields: parseFieldErrors(respBody)}
	case resp.StatusCode >= 500:
		return fmt.Errorf("server error: HTTP %d", resp.StatusCode)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// parseFieldErrors decodes the server's {"field": ["reason", ...]} error
// body. Anything else collapses into a single "detail" entry.
func parseFieldErrors(body []byte) map[string][]string {
	var fields map[string][]string
	if err := json.Unmarshal(body, &fields); err == nil && len(fields) > 0 {
		return fields
	}
	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		return map[string][]string{"detail": {detail.Detail}}
	}
	if len(body) > 0 {
		return map[string][]string{"detail": {string(body)}}
	}
	return nil
}
