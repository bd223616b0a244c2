// Package backend talks to the analysis service that owns the dependency
// graph of a configuration.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bslnav/internal/config"
	"bslnav/internal/retry"
)

const analyzePath = "/api/v1/dependencies/analyze"

// maxErrorBody bounds how much of a failed response is kept in StatusError.
const maxErrorBody = 4 << 10

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed when repeated.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client calls the dependency analysis endpoint.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retry      retry.Config
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry replaces the default retry policy.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: config.DefaultBackendTimeout},
		retry:      retry.DefaultConfig(),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromEnv configures a client from BSLNAV_BACKEND_URL,
// BSLNAV_BACKEND_TOKEN and BSLNAV_BACKEND_TIMEOUT.
func NewClientFromEnv(logger zerolog.Logger) *Client {
	return NewClient(config.BackendURL(),
		WithToken(config.Get("BSLNAV_BACKEND_TOKEN")),
		WithHTTPClient(&http.Client{Timeout: config.BackendTimeout()}),
		WithLogger(logger),
	)
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string { return c.baseURL }

type analyzeRequest struct {
	ModuleName   string `json:"module_name"`
	FunctionName string `json:"function_name"`
}

// AnalyzeDependencies asks the service for the callers and callees of a
// function. Network failures and 5xx/429 responses are retried.
func (c *Client) AnalyzeDependencies(ctx context.Context, moduleName, functionName string) (*Response, error) {
	if moduleName == "" || functionName == "" {
		return nil, fmt.Errorf("module and function names are required")
	}
	payload, err := json.Marshal(analyzeRequest{ModuleName: moduleName, FunctionName: functionName})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	var body []byte
	err = retry.Do(ctx, c.retry, func() error {
		var callErr error
		body, callErr = c.post(ctx, analyzePath, payload)
		return callErr
	}, isTransient)
	if err != nil {
		return nil, fmt.Errorf("analyze dependencies of %s.%s: %w", moduleName, functionName, err)
	}

	resp, err := DecodeResponse(body)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug().Str("request_id", requestID).Str("url", req.URL.String()).Msg("backend request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug().
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Msg("backend response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text := strings.TrimSpace(string(data))
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: text}
	}
	return data, nil
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return true
}
