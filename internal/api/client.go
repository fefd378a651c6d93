// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the backend API.
const (
	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize caps non-streaming response bodies.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB

	// requestsPerSecond bounds the request rate against the backend.
	requestsPerSecond = 5
	requestBurst      = 10
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client for all non-streaming requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient has no timeout; streaming requests are
	// bounded by their context instead.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// Client talks to the repository-chat backend. All requests carry the
// bearer token; construction fails without one.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	streamer   *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client for the given backend. baseURL must be a
// valid absolute URL and token must be non-empty.
func NewClient(baseURL, token string) (*Client, error) {
	if token == "" {
		return nil, errors.New("auth token is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: sharedHTTPClient,
		streamer:   sharedStreamingClient,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
	}, nil
}

// WithHTTPClient overrides both HTTP clients. Used in tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	c.streamer = hc
	return c
}

// BaseURL returns the configured backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// newRequest builds a request with auth and content headers set.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// doJSON performs a request and decodes a JSON response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return wrapTransport(err)
	}

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readStatusError(resp)
	}

	limited := io.LimitReader(resp.Body, MaxResponseSize)
	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return &APIError{
			Type:    ErrorTypeServer,
			Message: "failed to decode backend response",
			Cause:   err,
		}
	}
	return nil
}

// wrapTransport maps transport-level errors onto the client taxonomy.
func wrapTransport(err error) *APIError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &APIError{Type: ErrorTypeTimeout, Message: "request timed out", Cause: err}
	}
	return &APIError{Type: ErrorTypeConnection, Message: "cannot reach backend", Cause: err}
}

// readStatusError extracts the backend's error message from a non-OK
// response. An unreadable or empty body falls back to status-based text.
func readStatusError(resp *http.Response) *APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var parsed errorResponse
	msg := ""
	if len(data) > 0 && json.Unmarshal(data, &parsed) == nil {
		msg = parsed.text()
	}
	return statusError(resp.StatusCode, msg)
}

// =============================================================================
// ENDPOINTS
// =============================================================================

// ListModels fetches the models the backend can serve. An empty list is
// a valid response.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	var models []Model
	if err := c.doJSON(ctx, http.MethodGet, "/api/chat/available-models/", nil, &models); err != nil {
		return nil, err
	}
	return models, nil
}

// ListDataSources fetches the repositories indexed on the backend.
func (c *Client) ListDataSources(ctx context.Context) ([]DataSource, error) {
	var sources []DataSource
	if err := c.doJSON(ctx, http.MethodGet, "/api/data-sources/", nil, &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

// History fetches the persisted messages of a session, oldest first.
// The backend's order is not trusted; messages are sorted by timestamp
// before returning.
func (c *Client) History(ctx context.Context, sessionID, repoID string) ([]HistoryMessage, error) {
	path := fmt.Sprintf("/api/chat/history/%s/?repo_id=%s",
		url.PathEscape(sessionID), url.QueryEscape(repoID))

	var messages []HistoryMessage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	return messages, nil
}

// ChatStream submits a chat request and feeds parsed stream events to
// the callback in arrival order. It returns after the stream settles:
// done event, backend error event, natural EOF, callback error, or
// context cancellation.
//
// A non-OK response status never produces events; the backend's error
// body (or status-derived text) comes back as an APIError instead.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest, callback StreamCallback) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return wrapTransport(err)
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/api/chat/", bytes.NewReader(data))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamer.Do(httpReq)
	if err != nil {
		return wrapTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readStatusError(resp)
	}

	return processStream(ctx, resp.Body, callback)
}
