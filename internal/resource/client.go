// Package resource talks to the finance REST backend.
//
// Every call returns either decoded data or a *Failure; network errors and
// error statuses are normalized to the same shape.
package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"finboard/internal/log"
)

const maxBodySize = 4 << 20

// Client is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	headers http.Header
	group   singleflight.Group
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentResource) }
}

// WithHeader adds a default header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

// New returns a client rooted at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend base URL %q", baseURL)
	}
	c := &Client{
		base:    u,
		http:    &http.Client{Timeout: timeout},
		headers: http.Header{"Accept": []string{"application/json"}},
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend origin.
func (c *Client) BaseURL() string { return c.base.String() }

// Get fetches path and decodes the JSON body into out. Identical concurrent
// GETs share one round trip. The shared request outlives a caller that gives
// up; it is bounded by the client timeout instead.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.resolve(path, query)
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(target, func() (any, error) {
		return c.do(shared, http.MethodGet, target, nil)
	})
	select {
	case <-ctx.Done():
		return networkFailure(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return decode(res.Val.([]byte), out)
	}
}

// Post sends body as JSON.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.send(ctx, http.MethodPost, path, nil, body, out)
}

// Put sends body as JSON.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.send(ctx, http.MethodPut, path, nil, body, out)
}

// Delete issues a DELETE. Some endpoints want a JSON body (e.g. a password).
func (c *Client) Delete(ctx context.Context, path string, body, out any) error {
	return c.send(ctx, http.MethodDelete, path, nil, body, out)
}

// PostQuery is a POST whose parameters travel in the query string.
func (c *Client) PostQuery(ctx context.Context, path string, query url.Values, out any) error {
	return c.send(ctx, http.MethodPost, path, query, nil, out)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = b
	}
	raw, err := c.do(ctx, method, c.resolve(path, query), payload)
	if err != nil {
		return err
	}
	return decode(raw, out)
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	var body io.Reader
	if method != http.MethodGet {
		// Mutations always declare JSON, with or without a body.
		if payload == nil {
			payload = []byte("{}")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &Failure{Kind: KindNetwork, Message: MsgNetwork, Err: err}
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Backend request failed",
			log.FieldMethod, method, log.FieldBackendPath, req.URL.Path,
			log.FieldErrorType, log.ErrorTypeNetwork, log.FieldError, err)
		return nil, networkFailure(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, networkFailure(err)
	}

	c.logger.DebugContext(ctx, "Backend request completed",
		log.FieldMethod, method, log.FieldBackendPath, req.URL.Path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f := serverFailure(resp.StatusCode, raw)
		c.logger.WarnContext(ctx, "Backend returned an error",
			log.FieldMethod, method, log.FieldBackendPath, req.URL.Path,
			log.FieldStatusCode, resp.StatusCode,
			log.FieldErrorType, log.ErrorTypeServer, log.FieldError, f.Message)
		return nil, f
	}
	return raw, nil
}

func decode(raw []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Failure{Kind: KindDecode, Message: MsgDecode, Err: err}
	}
	return nil
}
