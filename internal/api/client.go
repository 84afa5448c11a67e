// Package api is the REST client for the session backend. Every call returns a
// wire.Response envelope; transport and decoding failures become failed
// envelopes with non-empty error text instead of Go errors.
package api

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

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moatasem-alhilali/wadash/internal/wire"
)

// RequestIDHeader carries a per-call id so backend logs can be correlated.
const RequestIDHeader = "X-Request-ID"

const maxBody = 10 << 20

// Client groups the typed services over one HTTP client.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger

	Session *SessionService
	Message *MessageService
	Stats   *StatsService
	Queue   *QueueService
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient injects the HTTP client. Its Timeout is left alone.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every call. Zero disables the per-call bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger used for failed calls.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for baseURL, e.g. http://localhost:3001/api.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base:    u,
		http:    http.DefaultClient,
		timeout: 30 * time.Second,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("api")

	c.Session = &SessionService{c: c}
	c.Message = &MessageService{c: c}
	c.Stats = &StatsService{c: c}
	c.Queue = &QueueService{c: c}
	return c, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Health calls GET /health. Any 2xx counts as healthy; the body is returned as-is.
func (c *Client) Health(ctx context.Context) wire.Response[json.RawMessage] {
	status, body, err := c.send(ctx, http.MethodGet, []string{"health"}, nil, nil, "")
	if err != nil {
		return c.fail(http.MethodGet, "health", 0, err.Error())
	}
	if status < 200 || status > 299 {
		return c.fail(http.MethodGet, "health", status, errorText(status, body))
	}
	return wire.Ok(json.RawMessage(body))
}

// endpoint joins escaped path segments onto the base URL.
func (c *Client) endpoint(segments []string, query url.Values) string {
	u := *c.base
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u.RawPath = strings.TrimSuffix(c.base.EscapedPath(), "/") + "/" + strings.Join(escaped, "/")
	p, err := url.PathUnescape(u.RawPath)
	if err == nil {
		u.Path = p
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) send(ctx context.Context, method string, segments []string, query url.Values, body io.Reader, contentType string) (int, []byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(segments, query), body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

func (c *Client) fail(method, path string, status int, msg string) wire.Response[json.RawMessage] {
	r := wire.Fail[json.RawMessage](msg)
	c.logger.Warn("API error", zap.String("method", method), zap.String("path", path), zap.Int("status", status), zap.String("error", r.Error))
	return r
}

// call performs one request and decodes the envelope into T.
func call[T any](ctx context.Context, c *Client, method string, segments []string, query url.Values, body io.Reader, contentType string) wire.Response[T] {
	path := strings.Join(segments, "/")
	status, data, err := c.send(ctx, method, segments, query, body, contentType)

	var resp wire.Response[T]
	switch {
	case err != nil:
		resp = wire.Fail[T](err.Error())
	case status < 200 || status > 299:
		resp = wire.Fail[T](errorText(status, data))
	case len(bytes.TrimSpace(data)) == 0:
		resp = wire.Fail[T]("invalid response: empty body")
	default:
		if err := json.Unmarshal(data, &resp); err != nil {
			resp = wire.Fail[T]("invalid response: " + err.Error())
		} else if !resp.Success {
			resp.Error = resp.ErrorText()
		}
	}

	if !resp.Success {
		c.logger.Warn("API error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.String("error", resp.Error))
	}
	return resp
}

func getJSON[T any](ctx context.Context, c *Client, query url.Values, segments ...string) wire.Response[T] {
	return call[T](ctx, c, http.MethodGet, segments, query, nil, "")
}

func postJSON[T any](ctx context.Context, c *Client, payload any, segments ...string) wire.Response[T] {
	if payload == nil {
		return call[T](ctx, c, http.MethodPost, segments, nil, nil, "")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return wire.Fail[T]("encode request: " + err.Error())
	}
	return call[T](ctx, c, http.MethodPost, segments, nil, bytes.NewReader(body), "application/json")
}

func deleteJSON[T any](ctx context.Context, c *Client, segments ...string) wire.Response[T] {
	return call[T](ctx, c, http.MethodDelete, segments, nil, nil, "")
}

// errorText picks the server's error, then its message, then the HTTP status.
func errorText(status int, body []byte) string {
	var env struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &env) == nil {
		if env.Error != "" {
			return env.Error
		}
		if env.Message != "" {
			return env.Message
		}
	}
	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("HTTP %d: %s", status, text)
	}
	return fmt.Sprintf("HTTP %d", status)
}
