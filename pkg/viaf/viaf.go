// Package viaf implements the bibliographic authority cluster client:
// CQL searches over the SRU endpoint with transparent result paging,
// and single-record retrieval by identifier.
package viaf

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wikitools/wikikb/pkg/client"
)

// RecordLimit is the hard cap on records per search request.
const RecordLimit = 250

// Default service locations.
const (
	SearchURL = "https://www.viaf.org/viaf/search"
	RecordURL = "https://viaf.org/viaf"
)

// Schema selects the record schema of search results.
type Schema string

const (
	// SchemaJSON returns full cluster records.
	SchemaJSON Schema = "JSON"

	// SchemaBrief returns brief cluster records, without birth and
	// death dates, gender and occupations. Faster for title matching.
	SchemaBrief Schema = "brief"
)

func (s Schema) recordSchema() (string, error) {
	switch s {
	case SchemaJSON, "":
		return "info:srw/schema/1/JSON", nil
	case SchemaBrief:
		return "http://viaf.org/BriefVIAFCluster", nil
	default:
		return "", fmt.Errorf("unknown record schema %q", string(s))
	}
}

// Config holds the authority client configuration.
type Config struct {
	// Requester issues the physical requests (required).
	Requester *client.Client

	// SearchURL and RecordURL override the service locations (tests).
	SearchURL string
	RecordURL string

	// MaxRecords is the default result cap of Search when the options
	// carry none.
	MaxRecords int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(requester *client.Client) Config {
	return Config{
		Requester:  requester,
		SearchURL:  SearchURL,
		RecordURL:  RecordURL,
		MaxRecords: 30,
	}
}

// Client talks to one authority cluster service.
type Client struct {
	cfg    Config
	logger zerolog.Logger
}

// New creates an authority client.
func New(cfg Config) (*Client, error) {
	if cfg.Requester == nil {
		return nil, fmt.Errorf("requester is required")
	}
	if cfg.SearchURL == "" {
		cfg.SearchURL = SearchURL
	}
	if cfg.RecordURL == "" {
		cfg.RecordURL = RecordURL
	}
	if cfg.MaxRecords < 1 {
		cfg.MaxRecords = DefaultConfig(nil).MaxRecords
	}

	return &Client{
		cfg:    cfg,
		logger: log.With().Str("component", "viaf").Logger(),
	}, nil
}

// SearchOptions tune one search.
type SearchOptions struct {
	// Schema of the returned records, SchemaJSON when empty.
	Schema Schema

	// Start is the 1-based position of the first record, 1 when zero.
	Start int

	// Max caps the total records returned across pages; the client
	// default applies when zero.
	Max int
}

// Search runs a CQL query and returns the records found, keyed by
// their cluster identifier. Result sets beyond the per-request cap are
// drained with successive requests until Max records are collected.
func (c *Client) Search(ctx context.Context, cql string, opts SearchOptions) (map[string]json.RawMessage, error) {
	recordSchema, err := opts.Schema.recordSchema()
	if err != nil {
		return nil, err
	}
	start := opts.Start
	if start < 1 {
		start = 1
	}
	first := start
	max := opts.Max
	if max < 1 {
		max = c.cfg.MaxRecords
	}

	pageSize := max
	if pageSize > RecordLimit {
		pageSize = RecordLimit
	}

	params := url.Values{}
	params.Set("httpAccept", "application/json")
	params.Set("recordSchema", recordSchema)
	params.Set("query", cql)

	out := make(map[string]json.RawMessage)
	remaining := max
	for {
		params.Set("startRecord", strconv.Itoa(start))
		params.Set("maximumRecords", strconv.Itoa(pageSize))

		body, err := c.cfg.Requester.Send(ctx, c.cfg.SearchURL, http.MethodGet, params, client.JSON)
		if err != nil {
			return nil, err
		}

		var resp searchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decoding search response: %w", err)
		}

		total := int(resp.Envelope.NumberOfRecords)
		if total == 0 {
			return out, nil
		}

		added := 0
		for _, rec := range resp.Envelope.Records {
			id, err := clusterID(rec.Record.RecordData)
			if err != nil {
				return nil, err
			}
			if _, seen := out[id]; !seen {
				added++
			}
			out[id] = rec.Record.RecordData
		}
		if added == 0 {
			// The service stopped making progress; returning what we
			// have beats looping forever.
			c.logger.Warn().
				Int("records", len(out)).
				Msg("Search page added no new records, stopping")
			return out, nil
		}

		if len(out) >= max || len(out) >= total+1-first {
			return out, nil
		}

		c.logger.Debug().
			Int("records", len(out)).
			Int("total", total).
			Msg("Draining further search pages")

		start += pageSize
		remaining -= pageSize
		pageSize = remaining
		if pageSize > RecordLimit {
			pageSize = RecordLimit
		}
		if pageSize < 1 {
			return out, nil
		}
	}
}

// SearchAnyField searches one string over all record fields,
// case insensitive.
func (c *Client) SearchAnyField(ctx context.Context, text, op string, opts SearchOptions) (map[string]json.RawMessage, error) {
	return c.Search(ctx, buildCQL("cql.any", op, text), opts)
}

// NameMode selects which record fields a name search covers.
type NameMode string

const (
	// NameMain searches the preferred name forms only.
	NameMain NameMode = "mainHeadingEl"

	// NameAll searches preferred, variant and related name forms.
	NameAll NameMode = "names"

	// NamePersonal searches personal name forms only.
	NamePersonal NameMode = "personalNames"
)

// SearchByName searches for an author name. For better results give
// the name as "last name, first name" with optional life dates.
func (c *Client) SearchByName(ctx context.Context, name string, mode NameMode, op string, opts SearchOptions) (map[string]json.RawMessage, error) {
	switch mode {
	case NameMain, NameAll, NamePersonal:
	default:
		return nil, fmt.Errorf("unknown name search mode %q", string(mode))
	}
	return c.Search(ctx, buildCQL("local."+string(mode), op, name), opts)
}

// SearchByTitle searches for a work title.
func (c *Client) SearchByTitle(ctx context.Context, title, op string, opts SearchOptions) (map[string]json.RawMessage, error) {
	return c.Search(ctx, buildCQL("local.title", op, title), opts)
}

// buildCQL renders one CQL clause. Double quotes in the term would
// terminate the quoted string, the service treats single quotes the
// same for matching.
func buildCQL(index, op, term string) string {
	if op == "" {
		op = "="
	}
	term = strings.ReplaceAll(term, `"`, "'")
	return index + " " + op + " \"" + term + "\""
}

// RecordFormat selects the serialization of one cluster record.
type RecordFormat string

const (
	RecordJSON RecordFormat = "viaf.json"
	RecordXML  RecordFormat = "viaf.xml"
)

// GetRecord retrieves one cluster record by identifier. Note the
// returned record may be a redirect or scavenged stub rather than a
// live cluster.
func (c *Client) GetRecord(ctx context.Context, id string, format RecordFormat) ([]byte, error) {
	var accept client.Accept
	switch format {
	case RecordJSON, "":
		format = RecordJSON
		accept = client.JSON
	case RecordXML:
		accept = client.Accept{Header: "application/xml"}
	default:
		return nil, fmt.Errorf("unknown record format %q", string(format))
	}

	endpoint := c.cfg.RecordURL + "/" + url.PathEscape(id) + "/" + string(format)
	return c.cfg.Requester.Send(ctx, endpoint, http.MethodGet, nil, accept)
}
