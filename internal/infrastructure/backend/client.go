// Package backend is the HTTP+JSON client for the GameStore REST backend.
//
// Every backend endpoint answers with the same envelope: success:true plus a
// payload key, or success:false plus a human-readable error string. Client
// turns the second form (and any non-2xx status) into an *APIError whose
// Message is the backend text, unchanged.
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

	"github.com/gamestore/storefront/internal/domain/shared"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

var (
	// ErrUnavailable is returned when the backend cannot be reached or the
	// circuit breaker is open.
	ErrUnavailable = errors.New("backend: unavailable")
	// ErrMalformedResponse is returned when a 2xx body is not valid JSON.
	ErrMalformedResponse = errors.New("backend: malformed response")
	// ErrRejected is the sentinel every *APIError unwraps to.
	ErrRejected = errors.New("backend: request rejected")
)

// APIError is an application-level failure reported by the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return ErrRejected
}

// Config configures the backend client
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Validate validates the client configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend: invalid base URL %q", c.BaseURL)
	}
	return nil
}

type rawResponse struct {
	status int
	body   []byte
}

var errServerStatus = errors.New("backend: server error status")

// Client talks to the REST backend on behalf of one storefront request.
// The shopper's cookies travel in the request context (see WithCookies).
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[rawResponse]
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default instrumented http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for breaker state changes and call tracing
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a backend client
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, _ := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}

	c := &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	failures := cfg.BreakerFailures
	c.breaker = gobreaker.NewCircuitBreaker[rawResponse](gobreaker.Settings{
		Name:    "backend",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("Backend circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return c, nil
}

// BreakerState reports the circuit breaker state as gobreaker names it
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// Call performs one request against path and decodes the envelope into out.
// body, when non-nil, is sent as JSON. out may be nil.
func (c *Client) Call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	return decodeEnvelope(resp, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (rawResponse, error) {
	endpoint := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return rawResponse{}, fmt.Errorf("backend: failed to marshal request: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.breaker.Execute(func() (rawResponse, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
		if err != nil {
			return rawResponse{}, err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for _, ck := range cookiesFromContext(ctx) {
			req.AddCookie(ck)
		}

		httpResp, err := c.httpClient.Do(req)
		if err != nil {
			return rawResponse{}, err
		}
		defer httpResp.Body.Close()

		data, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return rawResponse{}, err
		}
		out := rawResponse{status: httpResp.StatusCode, body: data}
		if httpResp.StatusCode >= 500 {
			return out, errServerStatus
		}
		return out, nil
	})

	c.logger.Debug("Backend call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.status),
		zap.Duration("latency", time.Since(start)),
		zap.Error(err))

	if err != nil && !errors.Is(err, errServerStatus) {
		// transport failure, or the breaker rejected the call
		return rawResponse{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func decodeEnvelope(resp rawResponse, out any) error {
	var env envelope
	jsonErr := json.Unmarshal(resp.body, &env)

	if resp.status < 200 || resp.status >= 300 {
		msg := env.Error
		if jsonErr != nil || msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.status)
		}
		return &APIError{Status: resp.status, Message: msg}
	}
	if jsonErr != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, jsonErr)
	}
	// Endpoints such as the count or the preference omit the success key.
	if env.Success != nil && !*env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = "Error desconocido"
		}
		return &APIError{Status: resp.status, Message: msg}
	}
	if out != nil {
		if err := json.Unmarshal(resp.body, out); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	return nil
}

// Message returns the text to show the shopper for a failed call:
// the backend's own error text, or the connection notice for transport failures.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Error de conexión"
}

// UserError converts a failed call into the error shown to the shopper.
// Backend refusals keep their text; everything else is a connection error.
func UserError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return shared.ErrConnection
	}
	if apiErr.Status == http.StatusUnauthorized {
		return shared.ErrUnauthorized.WithMessage(Message(err))
	}
	return shared.ErrRejected.WithMessage(Message(err))
}
