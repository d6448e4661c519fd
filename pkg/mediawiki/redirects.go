package mediawiki

import (
	"context"
	"net/url"
	"strings"

	"github.com/wikitools/wikikb/pkg/chunk"
	"github.com/wikitools/wikikb/pkg/pagination"
)

// Redirects returns, for each requested title, the pages that redirect
// to it (namespace 0 only). The first element of each list is the
// resolved target title itself; the value is nil when the title is
// invalid or missing in the project. Results are keyed by the caller's
// original titles.
func (c *Client) Redirects(ctx context.Context, titles []string, chunkSize int) (map[string][]string, error) {
	valid, err := chunk.Titles(titles)
	if err != nil {
		return nil, err
	}

	agg, err := chunk.Run(ctx, c.redirectsWorker, valid, clampChunk(chunkSize))
	if err != nil || agg == nil {
		return nil, err
	}

	mapping := agg.(chunk.Mapping)
	out := make(map[string][]string, len(mapping))
	for title, names := range mapping {
		list := names.([]string)
		if len(list) == 0 {
			list = nil
		}
		out[title] = list
	}
	return out, nil
}

// redirectsWorker drains one batch. The normalization and redirect
// metadata repeats on every continuation page, but the redirect source
// lists differ per page and are extended.
func (c *Client) redirectsWorker(ctx context.Context, batch []string) (chunk.Partial, error) {
	params := newQuery()
	params.Set("redirects", "1")
	params.Set("prop", "redirects")
	params.Set("rdnamespace", "0")
	params.Set("rdprop", "title")
	params.Set("rdlimit", "max")
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
				title := batch[i]
				key := rec.Resolved()
				p := resp.Query.find(key)
				if p == nil {
					continue
				}

				if _, seen := out[title]; !seen {
					if p.Invalid || p.Missing {
						out[title] = []string{}
						continue
					}
					out[title] = []string{key}
				}
				if list := out[title].([]string); len(list) > 0 {
					out[title] = append(list, titleNames(p.Redirects)...)
				}
			}
			return resp.ContinueFields(), nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}
