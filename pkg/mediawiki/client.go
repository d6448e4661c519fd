// Package mediawiki implements the wiki content API client: batched
// title queries with continuation draining, in-body rate limit
// handling, and resolution of requested titles to the canonical form
// the API answered under.
package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wikitools/wikikb/pkg/client"
	"github.com/wikitools/wikikb/pkg/normalize"
	"github.com/wikitools/wikikb/pkg/pagination"
)

// TitleLimit is the hard cap on titles per query request. Clients
// without the apihighlimits right get at most 50.
const TitleLimit = 50

// Config holds the wiki API client configuration.
type Config struct {
	// Requester issues the physical requests (required).
	Requester *client.Client

	// Project is the wiki host, e.g. "en.wikipedia.org" (required).
	Project string

	// BaseURL overrides the API URL derived from Project (tests).
	BaseURL string

	// MaxPages bounds continuation draining per batch.
	MaxPages int

	// RateLimitAttempts is how many in-body "ratelimited" errors are
	// retried (with growing sleeps) before giving up.
	RateLimitAttempts int
}

// DefaultConfig returns a safe default configuration for project.
func DefaultConfig(requester *client.Client, project string) Config {
	return Config{
		Requester:         requester,
		Project:           project,
		MaxPages:          pagination.DefaultMaxPages,
		RateLimitAttempts: 2,
	}
}

// Client queries one wiki project's content API.
type Client struct {
	cfg    Config
	url    string
	logger zerolog.Logger
}

// New creates a wiki API client.
func New(cfg Config) (*Client, error) {
	if cfg.Requester == nil {
		return nil, fmt.Errorf("requester is required")
	}
	if strings.TrimSpace(cfg.Project) == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("project is required")
	}
	if cfg.RateLimitAttempts < 0 {
		cfg.RateLimitAttempts = 0
	}

	apiURL := cfg.BaseURL
	if apiURL == "" {
		apiURL = "https://" + cfg.Project + "/w/api.php"
	}

	return &Client{
		cfg:    cfg,
		url:    apiURL,
		logger: log.With().Str("component", "mediawiki").Str("project", cfg.Project).Logger(),
	}, nil
}

// Project returns the configured wiki host.
func (c *Client) Project() string {
	return c.cfg.Project
}

// newQuery returns the parameter set every action=query request shares.
func newQuery() url.Values {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("action", "query")
	return params
}

// request performs one API request and decodes the envelope. In-body
// "ratelimited" errors are retried with sleeps of 60s, 120s, ... up to
// the configured attempt count; any other API error is fatal.
func (c *Client) request(ctx context.Context, params url.Values) (*response, error) {
	if titles := params.Get("titles"); titles != "" {
		if n := strings.Count(titles, "|") + 1; n > TitleLimit {
			return nil, fmt.Errorf("%d titles exceeds the API limit of %d per request", n, TitleLimit)
		}
	}

	attempt := 0
	for {
		body, err := c.cfg.Requester.Send(ctx, c.url, http.MethodGet, params, client.JSON)
		if err != nil {
			return nil, err
		}

		var resp response
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		for module, warning := range resp.Warnings {
			c.logger.Warn().
				Str("module", module).
				Str("warning", warning.Warnings).
				Msg("API warning")
		}

		if resp.Error == nil {
			return &resp, nil
		}

		if resp.Error.Code == "ratelimited" {
			attempt++
			if attempt > c.cfg.RateLimitAttempts {
				return nil, fmt.Errorf("%d ratelimited attempts reached: %w", attempt, resp.Error)
			}
			wait := time.Duration(attempt) * 60 * time.Second
			c.logger.Warn().
				Int("attempt", attempt).
				Dur("wait", wait).
				Msg("API reported ratelimited, sleeping before retry")
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("ratelimited wait aborted: %w", ctx.Err())
			case <-time.After(wait):
			}
			continue
		}

		return nil, resp.Error
	}
}

// drainConfig returns the continuation bound for one batch.
func (c *Client) drainConfig() pagination.Config {
	return pagination.Config{MaxPages: c.cfg.MaxPages}
}

// resolveAll precomputes the normalization record of every batch title
// against one page's metadata.
func resolveAll(batch []string, q *queryResult) []normalize.Record {
	records := make([]normalize.Record, len(batch))
	for i, title := range batch {
		records[i] = normalize.Resolve(title, q.Normalized, q.Redirects)
	}
	return records
}
