package mediawiki

import (
	"context"
	"net/url"
	"strings"

	"github.com/wikitools/wikikb/pkg/chunk"
	"github.com/wikitools/wikikb/pkg/pagination"
)

// InLinksRecord is the accumulated incoming-link information for one
// requested title. Links arrive a continuation page at a time: NLinks
// is summed and LinksHere extended as pages are drained.
type InLinksRecord struct {
	Status     string
	Normalized string
	Target     string
	NLinks     int
	LinksHere  []string
}

// InLinks returns the pages linking to each title from namespace 0,
// keyed by the caller's original titles. With followRedirects, every
// redirect of a target page is looked up too and the links of the
// whole redirect group are combined (duplicates removed).
func (c *Client) InLinks(ctx context.Context, titles []string, followRedirects bool, chunkSize int) (map[string]InLinksRecord, error) {
	valid, err := chunk.Titles(titles)
	if err != nil {
		return nil, err
	}

	if !followRedirects {
		return c.inLinksPlain(ctx, valid, chunkSize)
	}

	groups, err := c.Redirects(ctx, valid, chunkSize)
	if err != nil || groups == nil {
		return nil, err
	}

	// Fetch links for every member of every redirect group, plus the
	// invalid/missing originals so they keep a record.
	expanded := make([]string, 0, len(valid))
	for _, title := range valid {
		if group := groups[title]; group != nil {
			expanded = append(expanded, group...)
		} else {
			expanded = append(expanded, title)
		}
	}
	expanded = Dedup(expanded)

	c.logger.Debug().
		Int("titles", len(valid)).
		Int("expanded", len(expanded)).
		Msg("Following redirects for incoming links")

	base, err := c.inLinksPlain(ctx, expanded, chunkSize)
	if err != nil || base == nil {
		return nil, err
	}

	out := make(map[string]InLinksRecord, len(valid))
	for _, title := range valid {
		group := groups[title]
		if group == nil {
			out[title] = base[title]
			continue
		}

		rec := base[group[0]]
		var links []string
		for _, member := range group {
			links = append(links, base[member].LinksHere...)
		}
		links = Dedup(links)
		rec.LinksHere = links
		rec.NLinks = len(links)
		out[title] = rec
	}
	return out, nil
}

// inLinksPlain fetches incoming links without redirect expansion.
func (c *Client) inLinksPlain(ctx context.Context, titles []string, chunkSize int) (map[string]InLinksRecord, error) {
	agg, err := chunk.Run(ctx, c.inLinksWorker, titles, clampChunk(chunkSize))
	if err != nil || agg == nil {
		return nil, err
	}

	mapping := agg.(chunk.Mapping)
	out := make(map[string]InLinksRecord, len(mapping))
	for title, rec := range mapping {
		out[title] = rec.(InLinksRecord)
	}
	return out, nil
}

// inLinksWorker drains one batch, summing link counters and extending
// link lists across continuation pages.
func (c *Client) inLinksWorker(ctx context.Context, batch []string) (chunk.Partial, error) {
	params := newQuery()
	params.Set("prop", "linkshere")
	params.Set("lhnamespace", "0")
	params.Set("lhprop", "title")
	params.Set("lhlimit", "max")
	params.Set("titles", strings.Join(batch, "|"))

	acc := pagination.NewAccumulator()
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
				p := resp.Query.find(rec.Resolved())
				if p == nil {
					continue
				}

				acc.Seed(title, pagination.Record{
					"status":     linkStatus(p),
					"normalized": rec.Normalized,
					"target":     rec.Target,
					"nlinks":     0,
					"linkshere":  []string{},
				})
				if links := titleNames(p.LinksHere); len(links) > 0 {
					acc.Merge(title, pagination.Record{
						"nlinks":    len(links),
						"linkshere": links,
					})
				}
			}
			return resp.ContinueFields(), nil
		})
	if err != nil {
		return nil, err
	}

	out := chunk.Mapping{}
	for _, title := range acc.Keys() {
		rec, _ := acc.Get(title)
		out[title] = InLinksRecord{
			Status:     rec["status"].(string),
			Normalized: rec["normalized"].(string),
			Target:     rec["target"].(string),
			NLinks:     rec["nlinks"].(int),
			LinksHere:  rec["linkshere"].([]string),
		}
	}
	return out, nil
}

func linkStatus(p *page) string {
	switch {
	case p.Invalid:
		return StatusInvalid
	case p.Missing:
		return StatusMissing
	case p.PageID == 0:
		return "no_pageid"
	default:
		return StatusOK
	}
}

// Dedup removes duplicates from a title list, first occurrence wins.
func Dedup(titles []string) []string {
	seen := make(map[string]struct{}, len(titles))
	out := make([]string, 0, len(titles))
	for _, title := range titles {
		if _, ok := seen[title]; ok {
			continue
		}
		seen[title] = struct{}{}
		out = append(out, title)
	}
	return out
}
