// Package client provides an HTTP client for the field visits REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/evcraddock/field-visits/internal/visit"
)

const visitsPath = "/field-visits"

// APIError is returned when the API answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client is an HTTP client for the field visits API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListEntries returns every visit entry.
func (c *Client) ListEntries(ctx context.Context) ([]visit.Entry, error) {
	var entries []visit.Entry
	if err := c.send(ctx, http.MethodGet, visitsPath, nil, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []visit.Entry{}
	}
	return entries, nil
}

// CreateEntry stores a new entry. Any id on the entry is dropped.
func (c *Client) CreateEntry(ctx context.Context, e visit.Entry) (*visit.Entry, error) {
	e.ID = ""
	var created visit.Entry
	if err := c.send(ctx, http.MethodPost, visitsPath, e, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateEntry replaces the entry with the given id.
func (c *Client) UpdateEntry(ctx context.Context, id visit.ID, e visit.Entry) (*visit.Entry, error) {
	if id == "" {
		return nil, fmt.Errorf("entry id is required")
	}
	e.ID = id
	var updated visit.Entry
	if err := c.send(ctx, http.MethodPut, entryPath(id), e, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteEntry removes the entry with the given id.
func (c *Client) DeleteEntry(ctx context.Context, id visit.ID) error {
	if id == "" {
		return fmt.Errorf("entry id is required")
	}
	return c.send(ctx, http.MethodDelete, entryPath(id), nil, nil)
}

func entryPath(id visit.ID) string {
	return visitsPath + "/" + url.PathEscape(id.String())
}

// send builds a request with an optional JSON body and decodes the response.
func (c *Client) send(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, result)
}

// do executes an HTTP request with auth header and handles errors.
func (c *Client) do(req *http.Request, result interface{}) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("closing response body", "error", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, respBody)}
	}

	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

// errorMessage picks the most useful message out of an error response body.
func errorMessage(status int, body []byte) string {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		if errResp.Error != "" {
			return errResp.Error
		}
		if errResp.Message != "" {
			return errResp.Message
		}
	}
	return fmt.Sprintf("server error: %s", http.StatusText(status))
}
