package mediawiki

import (
	"context"
	"net/url"
	"strings"

	"github.com/wikitools/wikikb/pkg/chunk"
	"github.com/wikitools/wikikb/pkg/pagination"
)

// ImageRecord is the primary image of one page, when it has one.
type ImageRecord struct {
	Status     string
	Normalized string
	Target     string
	Image      string
	Width      int
	Height     int
}

// PrimaryImage returns the original-size primary image URL of each
// title, following redirects. Pages without a primary image get an OK
// record with an empty Image. Results are keyed by the caller's
// original titles.
func (c *Client) PrimaryImage(ctx context.Context, titles []string, chunkSize int) (map[string]ImageRecord, error) {
	valid, err := chunk.Titles(titles)
	if err != nil {
		return nil, err
	}

	agg, err := chunk.Run(ctx, c.imageWorker, valid, clampChunk(chunkSize))
	if err != nil || agg == nil {
		return nil, err
	}

	mapping := agg.(chunk.Mapping)
	out := make(map[string]ImageRecord, len(mapping))
	for title, rec := range mapping {
		out[title] = rec.(ImageRecord)
	}
	return out, nil
}

// imageWorker resolves one batch. Image metadata is one value per
// page, so later continuation pages never overwrite an earlier record.
func (c *Client) imageWorker(ctx context.Context, batch []string) (chunk.Partial, error) {
	params := newQuery()
	params.Set("redirects", "1")
	params.Set("prop", "pageimages")
	params.Set("piprop", "original")
	params.Set("pilimit", "max")
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
				if _, seen := out[title]; seen {
					continue
				}
				p := resp.Query.find(rec.Resolved())
				if p == nil {
					continue
				}

				img := ImageRecord{
					Normalized: rec.Normalized,
					Target:     rec.Target,
				}
				switch {
				case p.Invalid:
					img.Status = StatusInvalid
				case p.Missing:
					img.Status = StatusMissing
				default:
					img.Status = StatusOK
					if p.Original != nil {
						img.Image = p.Original.Source
						img.Width = p.Original.Width
						img.Height = p.Original.Height
					}
				}
				out[title] = img
			}
			return resp.ContinueFields(), nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}
