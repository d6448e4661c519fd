package mediawiki

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wikitools/wikikb/pkg/normalize"
)

// ErrMalformed is returned when a response lacks a structural key the
// operation requires.
var ErrMalformed = errors.New("malformed API response")

// APIError is an error reported inside the JSON response body.
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("wiki API error %s: %s", e.Code, e.Info)
}

// response is the envelope of one action=query response
// (formatversion=2).
type response struct {
	Error    *APIError                  `json:"error"`
	Warnings map[string]warningBody     `json:"warnings"`
	Continue map[string]json.RawMessage `json:"continue"`
	Query    *queryResult               `json:"query"`
}

type warningBody struct {
	Warnings string `json:"warnings"`
}

// ContinueFields flattens the continuation structure into parameter
// values to echo back verbatim; nil when the sequence is finished.
func (r *response) ContinueFields() map[string]string {
	if len(r.Continue) == 0 {
		return nil
	}
	fields := make(map[string]string, len(r.Continue))
	for name, raw := range r.Continue {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			fields[name] = s
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			fields[name] = n.String()
			continue
		}
		fields[name] = string(raw)
	}
	return fields
}

// queryResult carries this page's records plus the normalization and
// redirect metadata valid for the batch that produced it.
type queryResult struct {
	Normalized []normalize.Normalization `json:"normalized"`
	Redirects  []normalize.Redirect      `json:"redirects"`
	Pages      []page                    `json:"pages"`
}

// page is one record of a query response. Which optional fields are
// populated depends on the requested prop.
type page struct {
	Title     string            `json:"title"`
	PageID    int               `json:"pageid"`
	Invalid   bool              `json:"invalid"`
	Missing   bool              `json:"missing"`
	PageProps map[string]string `json:"pageprops"`
	Redirects []titleRef        `json:"redirects"`
	LinksHere []titleRef        `json:"linkshere"`
	Original  *imageRef         `json:"original"`
}

type titleRef struct {
	Title string `json:"title"`
}

type imageRef struct {
	Source string `json:"source"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// find returns the page whose title equals the resolved key.
func (q *queryResult) find(key string) *page {
	for i := range q.Pages {
		if q.Pages[i].Title == key {
			return &q.Pages[i]
		}
	}
	return nil
}

// titleNames extracts the title of every reference.
func titleNames(refs []titleRef) []string {
	if len(refs) == 0 {
		return nil
	}
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.Title
	}
	return names
}
