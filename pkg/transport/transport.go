// Package transport sends resolved requests to the Manifold HTTP API.
//
// Sessions only depend on the Transport interface; HTTPTransport is the
// default implementation. Responses are returned as raw JSON and are not
// validated, cached or retried.
package transport

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
	"go.uber.org/zap"
)

// DefaultBaseURL is the API host; the version prefix is part of each path.
const DefaultBaseURL = "https://api.manifold.markets"

// Request is a fully resolved API call.
type Request struct {
	Method string
	// Path is the substituted endpoint including the version ("/v0/user/alice").
	Path  string
	Query url.Values
	// Body is JSON-encoded when non-nil.
	Body   any
	APIKey string
}

// Transport executes requests.
type Transport interface {
	Do(ctx context.Context, req Request) (json.RawMessage, error)
}

// Config configures the HTTP transport.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
}

// HTTPTransport implements Transport over net/http.
type HTTPTransport struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	headers    map[string]string
	logger     *zap.Logger
}

// New creates an HTTP transport.
func New(cfg Config, logger *zap.Logger) *HTTPTransport {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HTTPTransport{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  cfg.UserAgent,
		headers:    cfg.Headers,
		logger:     logger,
	}
}

// WithHTTPClient replaces the underlying client, e.g. for tests.
func (t *HTTPTransport) WithHTTPClient(client *http.Client) *HTTPTransport {
	t.httpClient = client
	return t
}

// URL builds the request URL for req.
func (t *HTTPTransport) URL(req Request) string {
	u := t.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

// Do sends req and returns the response body unchanged. Non-2xx responses
// are returned as *StatusError.
func (t *HTTPTransport) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, t.URL(req), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.New().String()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-Id", requestID)
	if bodyReader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.APIKey != "" {
		httpReq.Header.Set("Authorization", "Key "+req.APIKey)
	}
	if t.userAgent != "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}
	for k, v := range t.headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	t.logger.Debug("api call",
		zap.String("request_id", requestID),
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(data)),
			RequestID:  requestID,
		}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return json.RawMessage(data), nil
}

// StatusError is a non-2xx API response.
type StatusError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if the error is a 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}
