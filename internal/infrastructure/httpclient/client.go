// Package httpclient sends requests to the task service. It attaches the
// stored bearer token, then turns every non-2xx response or transport
// failure into a *domain.APIError.
package httpclient

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

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agadir/task-manager/internal/core/domain"
	"github.com/agadir/task-manager/internal/infrastructure/config"
	"github.com/agadir/task-manager/internal/infrastructure/metrics"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20

	headerRequestID = "X-Request-ID"
)

// TokenSource yields the bearer token for outgoing requests. It returns
// domain.ErrKeyNotFound when no session exists.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// Request describes one call to the task service.
type Request struct {
	// Operation names the call in logs and metrics (e.g. "create_task").
	Operation string
	Method    string
	// Path is relative to the configured base URL.
	Path  string
	Query url.Values
	// Body is JSON-encoded when non-nil.
	Body any
	// Credentials marks login and register calls: a 401 there means wrong
	// credentials, not an expired session, so the unauthorized handler
	// is not run.
	Credentials bool
}

// Client is safe for concurrent use.
type Client struct {
	baseURL        string
	http           *http.Client
	tokens         TokenSource
	log            zerolog.Logger
	onUnauthorized func(ctx context.Context)
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithUnauthorizedHandler registers fn to run after any 401 response.
// Without it, a 401 is only logged and returned to the caller.
func WithUnauthorizedHandler(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func New(cfg config.APIConfig, tokens TokenSource, log zerolog.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		log:     log.With().Str("component", "httpclient").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends req and decodes a successful JSON body into out (which may be
// nil). It never retries.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	start := time.Now()
	err := c.do(ctx, req, out)

	outcome := "ok"
	if err != nil {
		outcome = kindLabel(err)
	}
	metrics.HTTPRequestsTotal.WithLabelValues(req.Operation, outcome).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(req.Operation).Observe(time.Since(start).Seconds())
	return err
}

func (c *Client) do(ctx context.Context, req Request, out any) error {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return &domain.APIError{Kind: domain.ErrRequest, Message: err.Error()}
	}
	requestID := httpReq.Header.Get(headerRequestID)

	log := c.log.With().
		Str("operation", req.Operation).
		Str("method", httpReq.Method).
		Str("path", req.Path).
		Str("request_id", requestID).
		Logger()
	log.Debug().Msg("request")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.Warn().Err(err).Msg("network error, check the connection")
		return &domain.APIError{Kind: domain.ErrNetwork}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.Warn().Err(err).Int("status", resp.StatusCode).Msg("reading response body failed")
		return &domain.APIError{Kind: domain.ErrNetwork, Status: resp.StatusCode}
	}
	log.Debug().Int("status", resp.StatusCode).Msg("response")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(bytes.TrimSpace(body)) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			log.Error().Err(err).Msg("undecodable response body")
			return &domain.APIError{Kind: domain.ErrServer, Status: resp.StatusCode, Message: "invalid response from server"}
		}
		return nil
	}

	apiErr := classify(resp.StatusCode, body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		log.Warn().Msg("token expired or invalid, logout required")
		if c.onUnauthorized != nil && !req.Credentials {
			c.onUnauthorized(ctx)
		}
	case resp.StatusCode >= http.StatusInternalServerError:
		log.Error().Int("status", resp.StatusCode).Str("message", apiErr.Message).Msg("server error")
	default:
		log.Debug().Int("status", resp.StatusCode).Str("message", apiErr.Message).Msg("request rejected")
	}
	return apiErr
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set(headerRequestID, uuid.NewString())

	// The token lookup completes before dispatch.
	token, err := c.tokens.GetToken(ctx)
	switch {
	case err == nil && token != "":
		httpReq.Header.Set("Authorization", "Bearer "+token)
	case err != nil && !errors.Is(err, domain.ErrKeyNotFound):
		c.log.Warn().Err(err).Str("operation", req.Operation).Msg("token lookup failed, sending unauthenticated")
	}
	return httpReq, nil
}

// classify maps an error response to the domain taxonomy. The body's
// "message" (or "error") field becomes the message; other fields are kept.
func classify(status int, body []byte) *domain.APIError {
	apiErr := &domain.APIError{Kind: kindForStatus(status), Status: status}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) == 0 {
		return apiErr
	}
	for _, key := range []string{"message", "error"} {
		if msg, ok := fields[key].(string); ok && msg != "" {
			apiErr.Message = msg
			delete(fields, key)
			break
		}
	}
	delete(fields, "success")
	if len(fields) > 0 {
		apiErr.Fields = fields
	}
	return apiErr
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return domain.ErrUnauthenticated
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	case status == http.StatusConflict:
		return domain.ErrConflict
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return domain.ErrValidation
	case status >= http.StatusInternalServerError:
		return domain.ErrServer
	default:
		return domain.ErrRequest
	}
}

func kindLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrServer):
		return "server"
	case errors.Is(err, domain.ErrNetwork):
		return "network"
	default:
		return "request"
	}
}
