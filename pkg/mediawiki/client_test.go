package mediawiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/wikitools/wikikb/pkg/client"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	requester, err := client.New(client.DefaultConfig("wikikb-test/1.0"))
	if err != nil {
		t.Fatalf("client.New failed: %v", err)
	}

	cfg := DefaultConfig(requester, "test.example.org")
	cfg.BaseURL = server.URL
	cfg.RateLimitAttempts = 0

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c, server
}

func writeJSON(t *testing.T, w http.ResponseWriter, body string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write([]byte(body)); err != nil {
		t.Errorf("write response: %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	requester, err := client.New(client.DefaultConfig("wikikb-test/1.0"))
	if err != nil {
		t.Fatalf("client.New failed: %v", err)
	}

	if _, err := New(Config{Project: "en.wikipedia.org"}); err == nil {
		t.Error("Expected error without requester")
	}
	if _, err := New(Config{Requester: requester}); err == nil {
		t.Error("Expected error without project or base URL")
	}

	c, err := New(DefaultConfig(requester, "en.wikipedia.org"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.url != "https://en.wikipedia.org/w/api.php" {
		t.Errorf("Expected derived API URL, got %s", c.url)
	}
}

func TestRequestTitleLimit(t *testing.T) {
	requests := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		writeJSON(t, w, `{"query":{"pages":[]}}`)
	})

	titles := make([]string, TitleLimit+1)
	for i := range titles {
		titles[i] = fmt.Sprintf("Title %d", i)
	}
	params := newQuery()
	params.Set("titles", strings.Join(titles, "|"))

	_, err := c.request(context.Background(), params)
	if err == nil {
		t.Fatal("Expected error for oversized title list")
	}
	if requests != 0 {
		t.Errorf("Expected no HTTP requests, got %d", requests)
	}
}

func TestRequestRatelimited(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, `{"error":{"code":"ratelimited","info":"slow down"}}`)
	})

	_, err := c.request(context.Background(), newQuery())
	if err == nil {
		t.Fatal("Expected error after exhausting ratelimited attempts")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "ratelimited" {
		t.Errorf("Expected wrapped ratelimited APIError, got %v", err)
	}
}

func TestRequestAPIErrorFatal(t *testing.T) {
	requests := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		writeJSON(t, w, `{"error":{"code":"invalidparammix","info":"bad request"}}`)
	})

	_, err := c.request(context.Background(), newQuery())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "invalidparammix" {
		t.Fatalf("Expected APIError invalidparammix, got %v", err)
	}
	if requests != 1 {
		t.Errorf("Expected exactly 1 request, got %d", requests)
	}
}

func TestRequestMalformedBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, `{"query":`)
	})

	_, err := c.request(context.Background(), newQuery())
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed, got %v", err)
	}
}

func TestWikidataEntities(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("prop") != "pageprops" {
			t.Errorf("Expected prop=pageprops, got %s", r.FormValue("prop"))
		}
		writeJSON(t, w, `{"query":{
			"normalized":[{"from":"douglas adams","to":"Douglas adams"}],
			"redirects":[{"from":"Douglas adams","to":"Douglas Adams"}],
			"pages":[
				{"title":"Douglas Adams","pageid":8091,"pageprops":{"wikibase_item":"Q42"}},
				{"title":"Mercury","pageid":19694,"pageprops":{"wikibase_item":"Q925","disambiguation":""}},
				{"title":"No Such Page","missing":true},
				{"title":"<bad>","invalid":true},
				{"title":"Propless","pageid":7}
			]}}`)
	})

	got, err := c.WikidataEntities(context.Background(),
		[]string{"douglas adams", "Mercury", "No Such Page", "Propless"}, 0)
	if err != nil {
		t.Fatalf("WikidataEntities failed: %v", err)
	}

	want := map[string]EntityRecord{
		"douglas adams": {Status: StatusOK, Normalized: "Douglas adams", Target: "Douglas Adams", Entity: "Q42"},
		"Mercury":       {Status: StatusDisambiguation, Entity: "Q925"},
		"No Such Page":  {Status: StatusMissing},
		"Propless":      {Status: StatusNoPageProps},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestWikidataEntitiesInvalidTitle(t *testing.T) {
	requests := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		writeJSON(t, w, `{"query":{"pages":[]}}`)
	})

	_, err := c.WikidataEntities(context.Background(), []string{"ok", "bad|pipe"}, 0)
	if err == nil || !strings.Contains(err.Error(), "bad|pipe") {
		t.Fatalf("Expected validation error naming the title, got %v", err)
	}
	if requests != 0 {
		t.Errorf("Expected no HTTP requests, got %d", requests)
	}
}

func TestRedirects(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, `{"query":{
			"redirects":[{"from":"HHGTTG","to":"The Hitchhiker's Guide to the Galaxy"}],
			"pages":[
				{"title":"The Hitchhiker's Guide to the Galaxy","pageid":11,
				 "redirects":[{"title":"HHGTTG"},{"title":"Hitchhikers Guide"}]},
				{"title":"Lonely Page","pageid":12},
				{"title":"Gone","missing":true}
			]}}`)
	})

	got, err := c.Redirects(context.Background(), []string{"HHGTTG", "Lonely Page", "Gone"}, 0)
	if err != nil {
		t.Fatalf("Redirects failed: %v", err)
	}

	want := map[string][]string{
		"HHGTTG":      {"The Hitchhiker's Guide to the Galaxy", "HHGTTG", "Hitchhikers Guide"},
		"Lonely Page": {"Lonely Page"},
		"Gone":        nil,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestInLinksContinuation(t *testing.T) {
	requests := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		switch requests {
		case 1:
			if r.FormValue("lhcontinue") != "" {
				t.Error("First request must not carry a continuation token")
			}
			writeJSON(t, w, `{
				"continue":{"lhcontinue":"0|Berlin|10","continue":"||"},
				"query":{"pages":[
					{"title":"Berlin","pageid":3354,
					 "linkshere":[{"title":"Germany"},{"title":"Hamburg"}]}
				]}}`)
		case 2:
			if r.FormValue("lhcontinue") != "0|Berlin|10" {
				t.Errorf("Expected echoed lhcontinue, got %q", r.FormValue("lhcontinue"))
			}
			writeJSON(t, w, `{"query":{"pages":[
				{"title":"Berlin","pageid":3354,
				 "linkshere":[{"title":"Potsdam"}]}
			]}}`)
		default:
			t.Errorf("Unexpected request %d", requests)
		}
	})

	got, err := c.InLinks(context.Background(), []string{"Berlin"}, false, 0)
	if err != nil {
		t.Fatalf("InLinks failed: %v", err)
	}
	if requests != 2 {
		t.Fatalf("Expected 2 requests, got %d", requests)
	}

	rec := got["Berlin"]
	if rec.Status != StatusOK {
		t.Errorf("Expected status OK, got %s", rec.Status)
	}
	if rec.NLinks != 3 {
		t.Errorf("Expected 3 links counted across pages, got %d", rec.NLinks)
	}
	wantLinks := []string{"Germany", "Hamburg", "Potsdam"}
	if !reflect.DeepEqual(rec.LinksHere, wantLinks) {
		t.Errorf("Expected links %v, got %v", wantLinks, rec.LinksHere)
	}
}

func TestInLinksFollowRedirects(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.FormValue("prop") {
		case "redirects":
			writeJSON(t, w, `{"query":{"pages":[
				{"title":"Berlin","pageid":3354,"redirects":[{"title":"Berlin, Germany"}]}
			]}}`)
		case "linkshere":
			writeJSON(t, w, `{"query":{"pages":[
				{"title":"Berlin","pageid":3354,
				 "linkshere":[{"title":"Germany"},{"title":"Hamburg"}]},
				{"title":"Berlin, Germany","pageid":99,
				 "linkshere":[{"title":"Hamburg"},{"title":"Potsdam"}]}
			]}}`)
		default:
			t.Errorf("Unexpected prop %q", r.FormValue("prop"))
		}
	})

	got, err := c.InLinks(context.Background(), []string{"Berlin"}, true, 0)
	if err != nil {
		t.Fatalf("InLinks failed: %v", err)
	}

	rec := got["Berlin"]
	wantLinks := []string{"Germany", "Hamburg", "Potsdam"}
	if !reflect.DeepEqual(rec.LinksHere, wantLinks) {
		t.Errorf("Expected deduplicated union %v, got %v", wantLinks, rec.LinksHere)
	}
	if rec.NLinks != len(wantLinks) {
		t.Errorf("Expected NLinks %d, got %d", len(wantLinks), rec.NLinks)
	}
}

func TestPrimaryImage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("piprop") != "original" {
			t.Errorf("Expected piprop=original, got %s", r.FormValue("piprop"))
		}
		writeJSON(t, w, `{"query":{"pages":[
			{"title":"Douglas Adams","pageid":8091,
			 "original":{"source":"https://upload.example.org/adams.jpg","width":2100,"height":2730}},
			{"title":"Plain Page","pageid":5},
			{"title":"Gone","missing":true}
		]}}`)
	})

	got, err := c.PrimaryImage(context.Background(), []string{"Douglas Adams", "Plain Page", "Gone"}, 0)
	if err != nil {
		t.Fatalf("PrimaryImage failed: %v", err)
	}

	adams := got["Douglas Adams"]
	if adams.Status != StatusOK || adams.Image != "https://upload.example.org/adams.jpg" {
		t.Errorf("Unexpected record %+v", adams)
	}
	if plain := got["Plain Page"]; plain.Status != StatusOK || plain.Image != "" {
		t.Errorf("Expected OK record without image, got %+v", plain)
	}
	if gone := got["Gone"]; gone.Status != StatusMissing {
		t.Errorf("Expected missing status, got %+v", gone)
	}
}

func TestContinueFields(t *testing.T) {
	resp := &response{Continue: map[string]json.RawMessage{
		"lhcontinue": json.RawMessage(`"0|Berlin|10"`),
		"gapoffset":  json.RawMessage(`50`),
		"continue":   json.RawMessage(`"||"`),
	}}

	want := map[string]string{
		"lhcontinue": "0|Berlin|10",
		"gapoffset":  "50",
		"continue":   "||",
	}
	if got := resp.ContinueFields(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	done := &response{}
	if got := done.ContinueFields(); got != nil {
		t.Errorf("Expected nil for a finished sequence, got %v", got)
	}
}
