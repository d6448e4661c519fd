package wdqs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/wikitools/wikikb/pkg/chunk"
	"github.com/wikitools/wikikb/pkg/client"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	requester, err := client.New(client.DefaultConfig("wikikb-test/1.0"))
	if err != nil {
		t.Fatalf("client.New failed: %v", err)
	}

	cfg := DefaultConfig(requester)
	cfg.Endpoint = server.URL

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func writeCSV(t *testing.T, w http.ResponseWriter, body string) {
	t.Helper()
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	if _, err := w.Write([]byte(body)); err != nil {
		t.Errorf("write response: %v", err)
	}
}

func TestFormatAccept(t *testing.T) {
	tests := []struct {
		format Format
		header string
	}{
		{FormatJSON, "application/sparql-results+json"},
		{FormatXML, "application/sparql-results+xml"},
		{FormatCSV, "text/csv"},
	}
	for _, tt := range tests {
		accept, err := tt.format.accept()
		if err != nil {
			t.Errorf("accept(%s) failed: %v", tt.format, err)
		}
		if accept.Header != tt.header {
			t.Errorf("Expected header %s, got %s", tt.header, accept.Header)
		}
	}

	if _, err := Format("yaml").accept(); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestQueryJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET, got %s", r.Method)
		}
		if got := r.URL.Query().Get("query"); got != "SELECT ?s WHERE {?s ?p ?o} LIMIT 1" {
			t.Errorf("Unexpected query parameter %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/sparql-results+json" {
			t.Errorf("Unexpected Accept header %q", got)
		}
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = w.Write([]byte(`{
			"head":{"vars":["s"]},
			"results":{"bindings":[
				{"s":{"type":"uri","value":"http://www.wikidata.org/entity/Q42"}}
			]}}`))
	})

	res, err := c.QueryJSON(context.Background(), "SELECT ?s WHERE {?s ?p ?o} LIMIT 1", http.MethodGet)
	if err != nil {
		t.Fatalf("QueryJSON failed: %v", err)
	}
	if !reflect.DeepEqual(res.Head.Vars, []string{"s"}) {
		t.Errorf("Unexpected vars %v", res.Head.Vars)
	}
	if len(res.Results.Bindings) != 1 || res.Results.Bindings[0]["s"].Value != "http://www.wikidata.org/entity/Q42" {
		t.Errorf("Unexpected bindings %v", res.Results.Bindings)
	}
}

func TestQueryCSV(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if got := r.FormValue("query"); !strings.Contains(got, "SELECT") {
			t.Errorf("Expected query in form body, got %q", got)
		}
		writeCSV(t, w, "a,b\n1,2\n3,4\n")
	})

	table, err := c.QueryCSV(context.Background(), "SELECT ?a ?b WHERE {}")
	if err != nil {
		t.Fatalf("QueryCSV failed: %v", err)
	}
	if !reflect.DeepEqual(table.Columns, []string{"a", "b"}) {
		t.Errorf("Unexpected columns %v", table.Columns)
	}
	want := [][]string{{"1", "2"}, {"3", "4"}}
	if !reflect.DeepEqual(table.Rows, want) {
		t.Errorf("Expected rows %v, got %v", want, table.Rows)
	}
}

func TestQueryContentTypeMismatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.QueryCSV(context.Background(), "SELECT ?a WHERE {}")
	var ctErr *client.ContentTypeError
	if !errors.As(err, &ctErr) {
		t.Fatalf("Expected ContentTypeError, got %v", err)
	}
}

func TestInstanceOf(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query := r.FormValue("query")
		if !strings.Contains(query, "wd:Q42 wd:Q2") {
			t.Errorf("Expected VALUES clause with both entities, got %q", query)
		}
		writeCSV(t, w, "entity,instanceof\n"+
			"http://www.wikidata.org/entity/Q42,http://www.wikidata.org/entity/Q5\n"+
			"http://www.wikidata.org/entity/Q2,http://www.wikidata.org/entity/Q3504248|http://www.wikidata.org/entity/Q128207\n")
	})

	table, err := c.InstanceOf(context.Background(), []string{"Q42", "Q2"}, "Q5", 0)
	if err != nil {
		t.Fatalf("InstanceOf failed: %v", err)
	}

	wantCols := []string{"entity", "instanceof", "instanceof_Q5"}
	if !reflect.DeepEqual(table.Columns, wantCols) {
		t.Errorf("Expected columns %v, got %v", wantCols, table.Columns)
	}
	wantRows := [][]string{
		{"Q42", "Q5", "true"},
		{"Q2", "Q3504248|Q128207", "false"},
	}
	if !reflect.DeepEqual(table.Rows, wantRows) {
		t.Errorf("Expected rows %v, got %v", wantRows, table.Rows)
	}
}

func TestInstanceOfChunked(t *testing.T) {
	requests := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		query := r.FormValue("query")
		switch {
		case strings.Contains(query, "wd:Q42"):
			writeCSV(t, w, "entity,instanceof\nhttp://www.wikidata.org/entity/Q42,http://www.wikidata.org/entity/Q5\n")
		case strings.Contains(query, "wd:Q64"):
			writeCSV(t, w, "entity,instanceof\nhttp://www.wikidata.org/entity/Q64,http://www.wikidata.org/entity/Q515\n")
		default:
			t.Errorf("Unexpected query %q", query)
		}
	})

	table, err := c.InstanceOf(context.Background(), []string{"Q42", "Q64"}, "", 1)
	if err != nil {
		t.Fatalf("InstanceOf failed: %v", err)
	}
	if requests != 2 {
		t.Errorf("Expected 2 requests for chunk size 1, got %d", requests)
	}

	wantRows := [][]string{{"Q42", "Q5"}, {"Q64", "Q515"}}
	if !reflect.DeepEqual(table.Rows, wantRows) {
		t.Errorf("Expected concatenated rows %v, got %v", wantRows, table.Rows)
	}
}

func TestIsValid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeCSV(t, w, "entity,valid,instanceof,redirection\n"+
			"http://www.wikidata.org/entity/Q9021,true,http://www.wikidata.org/entity/Q5,\n"+
			"http://www.wikidata.org/entity/Q105660123,false,,http://www.wikidata.org/entity/Q97352588\n")
	})

	table, err := c.IsValid(context.Background(), []string{"Q9021", "Q105660123"}, 0)
	if err != nil {
		t.Fatalf("IsValid failed: %v", err)
	}

	wantRows := [][]string{
		{"Q9021", "true", "Q5", ""},
		{"Q105660123", "false", "", "Q97352588"},
	}
	if !reflect.DeepEqual(table.Rows, wantRows) {
		t.Errorf("Expected rows %v, got %v", wantRows, table.Rows)
	}
}

func TestWikipedias(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query := r.FormValue("query")
		if !strings.Contains(query, "FILTER(?lang IN ('es', 'en'))") {
			t.Errorf("Expected language filter in query, got %q", query)
		}
		writeCSV(t, w, "entity,instanceof,npages,langs,names,pages\n"+
			"http://www.wikidata.org/entity/Q42,http://www.wikidata.org/entity/Q5,2,en|es,Douglas Adams|Douglas Adams (es),https://en.example.org/DA|https://es.example.org/DA\n"+
			"http://www.wikidata.org/entity/Q2,http://www.wikidata.org/entity/Q128207,1,en,Earth,https://en.example.org/Earth\n")
	})

	table, err := c.Wikipedias(context.Background(), []string{"Q42", "Q2"}, "es|en", "Q5", 0)
	if err != nil {
		t.Fatalf("Wikipedias failed: %v", err)
	}

	// Q2 is filtered out (not an instance of Q5); Q42's languages are
	// reordered to es before en.
	wantRows := [][]string{
		{"Q42", "Q5", "2", "es|en", "Douglas Adams (es)|Douglas Adams", "https://es.example.org/DA|https://en.example.org/DA"},
	}
	if !reflect.DeepEqual(table.Rows, wantRows) {
		t.Errorf("Expected rows %v, got %v", wantRows, table.Rows)
	}
}

func TestLabelDescValidation(t *testing.T) {
	requester, err := client.New(client.DefaultConfig("wikikb-test/1.0"))
	if err != nil {
		t.Fatalf("client.New failed: %v", err)
	}
	c, err := New(DefaultConfig(requester))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var cfgErr *chunk.ConfigError
	if _, err := c.LabelDesc(context.Background(), []string{"Q42"}, "LD", "", 0); !errors.As(err, &cfgErr) {
		t.Errorf("Expected ConfigError for empty language order, got %v", err)
	}
	if _, err := c.LabelDesc(context.Background(), []string{"Q42"}, "X", "en", 0); !errors.As(err, &cfgErr) {
		t.Errorf("Expected ConfigError for bad selector, got %v", err)
	}
}

func TestLabelDesc(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query := r.FormValue("query")
		if !strings.Contains(query, `wikibase:language "en,es"`) {
			t.Errorf("Expected language fallback chain in query, got %q", query)
		}
		writeCSV(t, w, "entity,labellang,label,descriptionlang,description\n"+
			"http://www.wikidata.org/entity/Q42,en,Douglas Adams,en,English writer\n")
	})

	table, err := c.LabelDesc(context.Background(), []string{"Q42"}, "LD", "en|es", 0)
	if err != nil {
		t.Fatalf("LabelDesc failed: %v", err)
	}

	wantRows := [][]string{{"Q42", "en", "Douglas Adams", "en", "English writer"}}
	if !reflect.DeepEqual(table.Rows, wantRows) {
		t.Errorf("Expected rows %v, got %v", wantRows, table.Rows)
	}
}
