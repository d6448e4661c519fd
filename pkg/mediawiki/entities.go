package mediawiki

import (
	"context"
	"net/url"
	"strings"

	"github.com/wikitools/wikikb/pkg/chunk"
	"github.com/wikitools/wikikb/pkg/normalize"
	"github.com/wikitools/wikikb/pkg/pagination"
)

// Page lookup statuses.
const (
	StatusOK             = "OK"
	StatusInvalid        = "invalid"
	StatusMissing        = "missing"
	StatusNoPageProps    = "no_pageprops"
	StatusNoWikibase     = "no_wikibase_item"
	StatusDisambiguation = "disambiguation"
)

// EntityRecord is the result of looking up one page title: its lookup
// status, the rewrites the API applied, and the knowledge-base entity
// bound to the page when one exists.
type EntityRecord struct {
	Status     string
	Normalized string
	Target     string
	Entity     string
}

// WikidataEntities resolves page titles to their knowledge-base
// entities, following redirects. Results are keyed by the caller's
// original titles; two titles sharing a normalized or target form get
// the same record. Requests run in batches of at most chunkSize titles
// (capped at TitleLimit).
func (c *Client) WikidataEntities(ctx context.Context, titles []string, chunkSize int) (map[string]EntityRecord, error) {
	valid, err := chunk.Titles(titles)
	if err != nil {
		return nil, err
	}

	agg, err := chunk.Run(ctx, c.entityWorker, valid, clampChunk(chunkSize))
	if err != nil || agg == nil {
		return nil, err
	}

	mapping := agg.(chunk.Mapping)
	out := make(map[string]EntityRecord, len(mapping))
	for title, rec := range mapping {
		out[title] = rec.(EntityRecord)
	}
	return out, nil
}

// entityWorker resolves one batch, draining continuation pages.
// Continuation is not expected for a pageprops-only query, but the API
// reserves the right.
func (c *Client) entityWorker(ctx context.Context, batch []string) (chunk.Partial, error) {
	params := newQuery()
	params.Set("redirects", "1")
	params.Set("prop", "pageprops")
	params.Set("ppprop", "wikibase_item|disambiguation")
	params.Set("titles", strings.Join(batch, "|"))

	out := chunk.Mapping{}
	_, err := pagination.Drain(ctx, c.drainConfig(), params,
		func(ctx context.Context, params url.Values) (map[string]string, error) {
			resp, err := c.request(ctx, params)
			if err != nil {
				return nil, err
			}
			if resp.Query == nil {
				return nil, ErrMalformed
			}

			for i, rec := range resolveAll(batch, resp.Query) {
				p := resp.Query.find(rec.Resolved())
				if p == nil {
					continue
				}
				out[batch[i]] = entityRecord(p, rec)
			}
			return resp.ContinueFields(), nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// entityRecord classifies one response page.
func entityRecord(p *page, rec normalize.Record) EntityRecord {
	out := EntityRecord{
		Normalized: rec.Normalized,
		Target:     rec.Target,
	}

	switch {
	case p.Invalid:
		out.Status = StatusInvalid
	case p.Missing:
		out.Status = StatusMissing
	case p.PageProps == nil:
		out.Status = StatusNoPageProps
	default:
		item, ok := p.PageProps["wikibase_item"]
		if !ok {
			out.Status = StatusNoWikibase
			break
		}
		out.Entity = item
		if _, disambiguation := p.PageProps["disambiguation"]; disambiguation {
			out.Status = StatusDisambiguation
		} else {
			out.Status = StatusOK
		}
	}
	return out
}

// clampChunk keeps a caller-supplied chunk size within the API limit.
func clampChunk(size int) int {
	if size <= 0 || size > TitleLimit {
		return TitleLimit
	}
	return size
}
