// Package wdqs implements the SPARQL query service client: raw
// queries in JSON, XML or CSV, plus entity-oriented operations that
// batch large entity lists into VALUES clauses.
package wdqs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wikitools/wikikb/pkg/client"
)

// Endpoint is the public SPARQL endpoint.
const Endpoint = "https://query.wikidata.org/sparql"

// entityPrefix is the URI prefix the service puts in front of every
// entity identifier in result bindings.
const entityPrefix = "http://www.wikidata.org/entity/"

// Format selects the result serialization of a query.
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
	FormatCSV  Format = "csv"
)

// accept maps the format to the Accept header plus the content type
// prefix the response must carry.
func (f Format) accept() (client.Accept, error) {
	switch f {
	case FormatJSON:
		return client.Accept{
			Header: "application/sparql-results+json",
			Match:  "application/sparql-results+json",
		}, nil
	case FormatXML:
		return client.Accept{
			Header: "application/sparql-results+xml",
			Match:  "application/sparql-results+xml",
		}, nil
	case FormatCSV:
		return client.Accept{
			Header: "text/csv",
			Match:  "text/csv",
		}, nil
	default:
		return client.Accept{}, fmt.Errorf("unknown result format %q", string(f))
	}
}

// Config holds the query service client configuration.
type Config struct {
	// Requester issues the physical requests (required).
	Requester *client.Client

	// Endpoint overrides the public SPARQL endpoint (tests).
	Endpoint string

	// ChunkSize is the default entity batch size of the entity
	// operations when the caller passes no explicit size.
	ChunkSize int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(requester *client.Client) Config {
	return Config{
		Requester: requester,
		Endpoint:  Endpoint,
		ChunkSize: 10000,
	}
}

// Client queries one SPARQL endpoint.
type Client struct {
	cfg    Config
	logger zerolog.Logger
}

// New creates a query service client.
func New(cfg Config) (*Client, error) {
	if cfg.Requester == nil {
		return nil, fmt.Errorf("requester is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = Endpoint
	}
	if cfg.ChunkSize < 1 {
		cfg.ChunkSize = DefaultConfig(nil).ChunkSize
	}

	return &Client{
		cfg:    cfg,
		logger: log.With().Str("component", "wdqs").Logger(),
	}, nil
}

// Query runs one SPARQL SELECT query and returns the raw response
// body. Use POST for queries with long VALUES clauses.
func (c *Client) Query(ctx context.Context, sparql, method string, format Format) ([]byte, error) {
	accept, err := format.accept()
	if err != nil {
		return nil, err
	}
	if method == "" {
		method = http.MethodGet
	}

	params := url.Values{}
	params.Set("query", sparql)

	c.logger.Debug().
		Str("method", method).
		Str("format", string(format)).
		Int("query_len", len(sparql)).
		Msg("Running SPARQL query")

	return c.cfg.Requester.Send(ctx, c.cfg.Endpoint, method, params, accept)
}

// chunkSize resolves a caller-supplied batch size.
func (c *Client) chunkSize(size int) int {
	if size < 1 {
		return c.cfg.ChunkSize
	}
	return size
}

// stripEntity removes the entity URI prefix from one value.
func stripEntity(v string) string {
	return strings.TrimPrefix(v, entityPrefix)
}

// stripEntities removes the entity URI prefix everywhere in a
// separator-joined value list.
func stripEntities(v string) string {
	return strings.ReplaceAll(v, entityPrefix, "")
}
