// Package backend is the HTTP client for the indicator-testing endpoint.
// Each call is a single POST; nothing is retried.
package backend

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
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TestIndicatorsPath is the fixed endpoint path on the backend.
const TestIndicatorsPath = "/api/testar_indicadores"

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 4 << 20
	maxErrorExcerpt = 512

	// RequestIDHeader carries a per-call id for correlating logs on both sides.
	RequestIDHeader = "X-Request-ID"
)

// Request is the JSON body sent to the backend.
type Request struct {
	Dezenas     []int    `json:"dezenas"`
	Indicadores []string `json:"indicadores"`
}

// normalized returns a copy whose slices are non-nil so they encode as [].
func (r Request) normalized() Request {
	out := Request{
		Dezenas:     make([]int, len(r.Dezenas)),
		Indicadores: make([]string, len(r.Indicadores)),
	}
	copy(out.Dezenas, r.Dezenas)
	copy(out.Indicadores, r.Indicadores)
	return out
}

// Client posts indicator requests to one backend.
type Client struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
	logger   *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client. WithTimeout applies to
// a copy, so hc itself is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout. Zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger attaches a logger; the default discards.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a Client for baseURL (scheme and host, optional path prefix).
func New(baseURL string, opts ...Option) (*Client, error) {
	endpoint, err := Endpoint(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: defaultTimeout},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c, nil
}

// Endpoint joins baseURL with TestIndicatorsPath.
func Endpoint(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("invalid backend url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid backend url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid backend url %q: missing host", baseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/") + TestIndicatorsPath
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// URL returns the full endpoint URL this client posts to.
func (c *Client) URL() string { return c.endpoint }

// CloseIdleConnections releases keep-alive connections held by the client.
func (c *Client) CloseIdleConnections() { c.http.CloseIdleConnections() }

// TestIndicators sends req and returns the response body verbatim.
// Failures are *Error values classified as KindRequest or KindDecode.
func (c *Client) TestIndicators(ctx context.Context, req Request) (Payload, error) {
	body, err := json.Marshal(req.normalized())
	if err != nil {
		return nil, &Error{Kind: KindRequest, Err: fmt.Errorf("encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindRequest, Err: err}
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, requestID)

	log := c.logger.With(zap.String("request_id", requestID))
	log.Debug("posting indicators",
		zap.Ints("dezenas", req.Dezenas),
		zap.Strings("indicadores", req.Indicadores))

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.Warn("backend request failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, &Error{Kind: KindRequest, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		log.Warn("reading backend response failed", zap.Error(err))
		return nil, &Error{Kind: KindRequest, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("backend returned error status", zap.Int("status", resp.StatusCode))
		return nil, &Error{Kind: KindRequest, StatusCode: resp.StatusCode, Body: excerpt(data)}
	}
	if len(data) > maxResponseSize {
		return nil, &Error{Kind: KindDecode, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("response exceeds %d bytes", maxResponseSize)}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &Error{Kind: KindDecode, StatusCode: resp.StatusCode, Err: errors.New("empty response body")}
	}
	if !json.Valid(trimmed) {
		log.Warn("backend returned non-JSON body", zap.String("content_type", resp.Header.Get("Content-Type")))
		return nil, &Error{Kind: KindDecode, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("invalid JSON: %s", excerpt(trimmed))}
	}

	log.Debug("backend responded",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(trimmed)),
		zap.Duration("elapsed", time.Since(start)))
	return Payload(trimmed), nil
}

func excerpt(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorExcerpt {
		n := maxErrorExcerpt
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		return s[:n] + "…"
	}
	return s
}
