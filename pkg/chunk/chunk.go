// Package chunk splits arbitrarily large work lists into API-legal
// batches, runs a worker per batch, and merges the heterogeneous
// partial results into one aggregate. Batches are processed strictly
// sequentially in list order: the remote services ask clients not to
// parallelize, and ordering keeps the merge deterministic.
package chunk

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var (
	batchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikikb_batches_total",
		Help: "Total batches executed",
	})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wikikb_batch_duration_seconds",
		Help:    "Duration of one batch including all its continuation pages",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60},
	})
)

// Worker executes one batch and returns its partial result. Returning
// (nil, nil) is the empty sentinel: the run is aborted and the caller
// receives a nil aggregate.
type Worker func(ctx context.Context, batch []string) (Partial, error)

// Run partitions items into batches of at most size elements, invokes
// worker per batch in list order, and merges the partial results.
//
// A worker error aborts the run and discards already-merged batches;
// callers needing partial-progress durability must checkpoint
// externally. No retry happens at this layer.
func Run(ctx context.Context, worker Worker, items []string, size int) (Partial, error) {
	if size < 1 {
		return nil, &ConfigError{Reason: "chunk size must be at least 1"}
	}
	if len(items) == 0 {
		return nil, nil
	}

	start := time.Now()
	var aggregate Partial

	for offset := 0; offset < len(items); offset += size {
		end := offset + size
		if end > len(items) {
			end = len(items)
		}
		batch := items[offset:end]

		log.Debug().
			Int("batch_from", offset+1).
			Int("batch_to", end).
			Int("total", len(items)).
			Msg("Executing batch")

		batchStart := time.Now()
		partial, err := worker(ctx, batch)
		batchesTotal.Inc()
		batchDuration.Observe(time.Since(batchStart).Seconds())

		if err != nil {
			return nil, err
		}
		if partial == nil {
			// Empty sentinel: fail fast, drop what was merged so far.
			log.Warn().
				Int("batch_from", offset+1).
				Int("batch_to", end).
				Msg("Worker returned no result, aborting remaining batches")
			return nil, nil
		}

		if aggregate == nil {
			aggregate = partial
			continue
		}
		aggregate, err = merge(aggregate, partial)
		if err != nil {
			return nil, err
		}
	}

	log.Debug().
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("All batches complete")

	return aggregate, nil
}
