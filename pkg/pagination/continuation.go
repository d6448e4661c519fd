package pagination

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var pagesPerDrain = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "wikikb_continuation_pages",
	Help:    "Continuation pages consumed per drained request sequence",
	Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
})

// ErrExhausted is returned when the page limit is reached while the
// server still reports a continuation token.
var ErrExhausted = errors.New("continuation not finished at page limit")

// DefaultMaxPages bounds one drained sequence. The reference behavior
// trusted the server to terminate; this guard makes a misbehaving
// server an error instead of an infinite loop.
const DefaultMaxPages = 500

// Config holds drain configuration.
type Config struct {
	// MaxPages is the maximum number of pages fetched for one sequence.
	MaxPages int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{MaxPages: DefaultMaxPages}
}

// FetchFunc performs one request with the given parameters, folds the
// page's records into the caller's accumulation, and returns the
// continuation fields for the next request. A nil or empty map ends
// the sequence.
type FetchFunc func(ctx context.Context, params url.Values) (map[string]string, error)

// Drain repeatedly calls fetch until it reports no continuation token,
// merging each token's fields verbatim into params for the next call.
// It returns the number of pages fetched. params is mutated in place.
func Drain(ctx context.Context, cfg Config, params url.Values, fetch FetchFunc) (int, error) {
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	pages := 0
	for {
		if err := ctx.Err(); err != nil {
			return pages, fmt.Errorf("continuation aborted: %w", err)
		}

		cont, err := fetch(ctx, params)
		pages++
		if err != nil {
			return pages, err
		}

		if len(cont) == 0 {
			pagesPerDrain.Observe(float64(pages))
			return pages, nil
		}

		if pages >= maxPages {
			log.Warn().
				Int("pages", pages).
				Msg("Continuation still present at page limit")
			return pages, fmt.Errorf("%w after %d pages", ErrExhausted, pages)
		}

		log.Debug().
			Int("page", pages).
			Msg("Continue response, fetching next page")

		for field, value := range cont {
			params.Set(field, value)
		}
	}
}
