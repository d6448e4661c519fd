// Package client provides the core HTTP requester shared by every
// knowledge-base endpoint: it sends one request at a time with an
// identifying User-Agent, honors 429 Retry-After waits, and verifies
// that the response carries the representation the caller asked for.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wikitools/wikikb/pkg/cache"
)

// Prometheus metrics for requester operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wikikb_requests_total",
		Help: "Total requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wikikb_request_duration_seconds",
		Help:    "Request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	rateLimitSleepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikikb_rate_limit_sleeps_total",
		Help: "Total number of Retry-After waits performed",
	})

	rateLimitSleepSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wikikb_rate_limit_sleep_seconds",
		Help:    "Duration of Retry-After waits",
		Buckets: []float64{1, 5, 15, 60, 120, 300, 600},
	})
)

// MaxRetryAfter is the default ceiling for a single Retry-After wait.
// A server asking for more than this is not worth blocking on.
const MaxRetryAfter = 600 * time.Second

// Accept selects the representation requested from the server.
// Header is sent as the Accept header when non-empty; Match is the
// Content-Type prefix the response must declare.
type Accept struct {
	Header string
	Match  string
}

// JSON is the Accept selector for plain JSON APIs.
var JSON = Accept{Header: "application/json", Match: "application/json"}

// Config holds the requester configuration.
type Config struct {
	// UserAgent identifies the client to the remote service (required;
	// wiki APIs ask for a descriptive agent with contact information).
	UserAgent string

	// HTTPClient is the underlying transport. Defaults to a client with
	// a 30 second timeout.
	HTTPClient *http.Client

	// MaxRetryAfter caps a single 429 wait. A Retry-After above this
	// fails with RateLimitError instead of sleeping. Defaults to 600s.
	MaxRetryAfter time.Duration

	// Cache is an optional response cache consulted for GET requests.
	Cache *cache.Store
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent:     userAgent,
		MaxRetryAfter: MaxRetryAfter,
	}
}

// Client issues single HTTP requests with rate-limit handling.
// It performs no batching or pagination itself.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a requester from cfg.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.UserAgent) == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.MaxRetryAfter <= 0 {
		cfg.MaxRetryAfter = MaxRetryAfter
	}

	return &Client{
		httpClient: cfg.HTTPClient,
		config:     cfg,
		logger:     log.With().Str("component", "requester").Logger(),
	}, nil
}

// UserAgent returns the configured identifying header value.
func (c *Client) UserAgent() string {
	return c.config.UserAgent
}

// Send issues one GET or POST request to endpoint with params and
// returns the response body. On 429 it sleeps for the server-reported
// Retry-After and retries the same request; the retry count is
// unbounded but each individual wait is capped by MaxRetryAfter.
// Any other non-2xx status fails with *StatusError without retry, and
// a response whose Content-Type does not match accept.Match fails
// with *ContentTypeError.
func (c *Client) Send(ctx context.Context, endpoint, method string, params url.Values, accept Accept) ([]byte, error) {
	if method != http.MethodGet && method != http.MethodPost {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}

	cacheable := method == http.MethodGet && c.config.Cache != nil
	cacheKey := ""
	if cacheable {
		cacheKey = cache.Key(endpoint, params)
		if entry, err := c.config.Cache.Get(ctx, cacheKey); err == nil {
			if accept.Match == "" || strings.HasPrefix(entry.ContentType, accept.Match) {
				c.logger.Debug().Str("endpoint", endpoint).Msg("Response served from cache")
				return entry.Body, nil
			}
		} else if err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	for {
		resp, err := c.do(ctx, endpoint, method, params, accept)
		if err != nil {
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return nil, fmt.Errorf("request %s: %w", endpoint, err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			requestsTotal.WithLabelValues(endpoint, "read_error").Inc()
			return nil, fmt.Errorf("read response from %s: %w", endpoint, err)
		}

		requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusTooManyRequests {
			if err := c.waitRetryAfter(ctx, endpoint, resp.Header.Get("Retry-After")); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status_code", resp.StatusCode).
				Msg("Request failed")
			return nil, &StatusError{
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				URL:        endpoint,
			}
		}

		contentType := resp.Header.Get("Content-Type")
		if accept.Match != "" && !strings.HasPrefix(contentType, accept.Match) {
			return nil, &ContentTypeError{
				Requested: accept.Match,
				Actual:    contentType,
			}
		}

		if cacheable {
			entry := &cache.Entry{
				Body:        body,
				ContentType: contentType,
				CachedAt:    time.Now(),
			}
			if err := c.config.Cache.Set(ctx, cacheKey, entry); err != nil {
				c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to cache response")
			}
		}

		return body, nil
	}
}

// do builds and executes one physical request.
func (c *Client) do(ctx context.Context, endpoint, method string, params url.Values, accept Accept) (*http.Response, error) {
	var req *http.Request
	var err error

	switch method {
	case http.MethodGet:
		target := endpoint
		if len(params) > 0 {
			target = endpoint + "?" + params.Encode()
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	case http.MethodPost:
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	if accept.Header != "" {
		req.Header.Set("Accept", accept.Header)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", method).
		Msg("Executing request")

	return c.httpClient.Do(req)
}

// waitRetryAfter interprets a 429 Retry-After header and blocks for the
// computed duration. A wait above the configured ceiling fails with
// *RateLimitError without sleeping.
func (c *Client) waitRetryAfter(ctx context.Context, endpoint, retryAfter string) error {
	wait, err := parseRetryAfter(retryAfter, time.Now())
	if err != nil {
		return fmt.Errorf("got 429 from %s: %w", endpoint, err)
	}

	if wait > c.config.MaxRetryAfter {
		c.logger.Error().
			Str("endpoint", endpoint).
			Str("retry_after", retryAfter).
			Dur("wait", wait).
			Msg("Retry-After above ceiling, giving up")
		return &RateLimitError{
			RetryAfter: retryAfter,
			Wait:       wait,
			Limit:      c.config.MaxRetryAfter,
		}
	}

	c.logger.Warn().
		Str("endpoint", endpoint).
		Str("retry_after", retryAfter).
		Dur("wait", wait).
		Msg("Received 429, sleeping before retry")

	rateLimitSleepsTotal.Inc()
	rateLimitSleepSeconds.Observe(wait.Seconds())

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w during rate limit wait: %v", ErrContextCancelled, ctx.Err())
	case <-time.After(wait):
		return nil
	}
}
