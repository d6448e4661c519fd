// Package pagination drives a sequence of requests through a
// continuation-token API to completion.
//
// The wiki content API signals "more pages" by embedding a continue
// structure in the response; its fields must be echoed back verbatim in
// the next request's parameters. Draining is strictly sequential: one
// request is outstanding at a time, and pages are folded into the
// caller's accumulator in arrival order.
//
// Example usage:
//
//	acc := pagination.NewAccumulator()
//	pages, err := pagination.Drain(ctx, pagination.DefaultConfig(), params,
//		func(ctx context.Context, params url.Values) (map[string]string, error) {
//			page, err := fetchPage(ctx, params)
//			if err != nil {
//				return nil, err
//			}
//			foldInto(acc, page)
//			return page.Continue, nil
//		})
//
// A server that keeps returning a continuation token would otherwise
// loop forever, so draining is bounded by MaxPages and fails with
// ErrExhausted when the bound is hit with a token still present.
package pagination
