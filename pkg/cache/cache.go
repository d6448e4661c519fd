// Package cache provides an optional Redis-backed cache for idempotent
// GET responses. Wiki APIs encourage clients to cache results instead of
// repeating identical requests.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Entry is one cached response body.
type Entry struct {
	// Body is the raw response body.
	Body []byte `json:"body"`

	// ContentType is the Content-Type header the server declared.
	ContentType string `json:"content_type"`

	// CachedAt is when the response was stored.
	CachedAt time.Time `json:"cached_at"`
}

// Key builds a deterministic cache key from an endpoint URL and its
// request parameters. Parameters are sorted so that equivalent requests
// share one key.
func Key(endpoint string, params url.Values) string {
	parts := []string{"wikikb", strings.TrimRight(endpoint, "/")}

	if len(params) > 0 {
		names := make([]string, 0, len(params))
		for name := range params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, params.Get(name)))
		}
	}

	return strings.Join(parts, ":")
}

// Store handles caching operations with a Redis backend.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewStore creates a cache store. Entries expire after ttl.
func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Store{
		redis: redisClient,
		ttl:   ttl,
	}
}

// Get retrieves a cached entry by key.
// Returns ErrCacheMiss if the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	CacheHits.Inc()
	return &entry, nil
}

// Set stores an entry under key with the store's TTL.
func (s *Store) Set(ctx context.Context, key string, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.Add(float64(len(data)))
	return nil
}

// Delete removes a cached entry.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// TTL returns the configured entry lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}
