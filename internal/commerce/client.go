// Package commerce is a typed client for the Elastic Path (Moltin) commerce API:
// catalog, price book, carts, flows and files.
//
// Every operation is a single authenticated request. The bearer token is read
// from the TokenSource on each call and never cached by the client.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBytes = 4 << 20

// TokenSource provides the current bearer token
type TokenSource interface {
	Token() string
}

// APIError is returned for non-success responses and for success responses
// carrying a backend error payload.
type APIError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("commerce %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("commerce %s: status %d: %s", e.Op, e.StatusCode, e.Detail)
}

// IsAPIError reports whether err is (or wraps) an *APIError
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// Client talks to the commerce backend
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokens      TokenSource
	priceBookID string
	channel     string
}

// Option configures the Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithPriceBook sets the price book used for price lookups
func WithPriceBook(id string) Option {
	return func(c *Client) {
		c.priceBookID = id
	}
}

// WithChannel sets the EP-Channel header sent with catalog requests
func WithChannel(channel string) Option {
	return func(c *Client) {
		c.channel = channel
	}
}

// New creates a new Client
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		channel:    "web store",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type errorPayload struct {
	Errors []struct {
		Status any    `json:"status"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (p errorPayload) detail() string {
	parts := make([]string, 0, len(p.Errors))
	for _, e := range p.Errors {
		msg := e.Title
		if e.Detail != "" {
			msg = strings.TrimSpace(msg + " " + e.Detail)
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, "; ")
}

type request struct {
	op      string
	method  string
	path    string
	query   url.Values
	body    any
	form    url.Values
	raw     io.Reader
	rawType string
	headers map[string]string
	noAuth  bool
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	endpoint := c.baseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case r.body != nil:
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", r.op, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	case r.form != nil:
		body = strings.NewReader(r.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case r.raw != nil:
		body = r.raw
		contentType = r.rawType
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", r.op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if !r.noAuth {
		req.Header.Set("Authorization", "Bearer "+c.tokens.Token())
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", r.op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", r.op, err)
	}

	var payload errorPayload
	if len(data) > 0 {
		// Bodies that are not JSON objects simply carry no error payload.
		_ = json.Unmarshal(data, &payload)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Op: r.op, StatusCode: resp.StatusCode, Detail: payload.detail()}
	}
	if len(payload.Errors) > 0 {
		return &APIError{Op: r.op, StatusCode: resp.StatusCode, Detail: payload.detail()}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", r.op, err)
	}
	return nil
}
