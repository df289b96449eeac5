package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Constants for Hyperliquid API URLs
const (
	MainnetURL = "https://api.hyperliquid.xyz"
	TestnetURL = "https://api.hyperliquid-testnet.xyz"

	infoPath     = "/info"
	exchangePath = "/exchange"

	defaultTimeout = 10 * time.Second
)

var (
	// ErrRateLimited is returned for HTTP 429 responses.
	ErrRateLimited = errors.New("hyperliquid: rate limited")
	// ErrUnavailable wraps requests refused by the open circuit breaker.
	ErrUnavailable = errors.New("hyperliquid: venue unavailable")
)

// APIError is a non-2xx venue response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hyperliquid: http %d: %s", e.StatusCode, e.Body)
}

// Options configures a Client. Zero values select defaults.
type Options struct {
	Testnet bool
	// BaseURL overrides the network URL. Signing still follows Testnet.
	BaseURL    string
	HTTPClient *http.Client

	RequestsPerSecond float64
	Burst             int
	BreakerFailures   uint32
	BreakerTimeout    time.Duration

	// Observe is called once per request with the endpoint and an outcome
	// of "ok", "error", "rate_limited" or "breaker_open".
	Observe func(endpoint, outcome string)
	Logger  *slog.Logger
}

// Client handles Hyperliquid REST communication. It throttles requests
// client-side and stops calling a venue that keeps failing.
type Client struct {
	baseURL    string
	mainnet    bool
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	observe    func(endpoint, outcome string)
	logger     *slog.Logger
}

// NewClient creates a new REST client. The network is fixed for its lifetime.
func NewClient(opts Options) *Client {
	baseURL := MainnetURL
	if opts.Testnet {
		baseURL = TestnetURL
	}
	if opts.BaseURL != "" {
		baseURL = strings.TrimRight(opts.BaseURL, "/")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	timeout := opts.BreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "hyperliquid"))

	observe := opts.Observe
	if observe == nil {
		observe = func(string, string) {}
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "hyperliquid",
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Client-side mistakes say nothing about venue health.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < 500
			}
			return err == nil || errors.Is(err, ErrRateLimited) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return &Client{
		baseURL:    baseURL,
		mainnet:    !opts.Testnet,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		breaker:    breaker,
		observe:    observe,
		logger:     logger,
	}
}

// BaseURL returns the REST root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsMainnet reports which chain L1 actions are signed for.
func (c *Client) IsMainnet() bool {
	return c.mainnet
}

// post sends body as JSON and decodes the response into out.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, path, payload)
	})
	if err != nil {
		c.observe(path, outcomeOf(err))
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}
	c.observe(path, "ok")

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 300:
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	default:
		return "error"
	}
}
