package wdqs

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/wikitools/wikikb/pkg/chunk"
)

// Binding is one variable binding of a JSON result row.
type Binding struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Lang  string `json:"xml:lang"`
}

// Results is the decoded JSON serialization of a SELECT result.
type Results struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]Binding `json:"bindings"`
	} `json:"results"`
}

// QueryJSON runs one query and decodes the JSON result serialization.
func (c *Client) QueryJSON(ctx context.Context, sparql, method string) (*Results, error) {
	body, err := c.Query(ctx, sparql, method, FormatJSON)
	if err != nil {
		return nil, err
	}

	var res Results
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decoding SPARQL JSON result: %w", err)
	}
	return &res, nil
}

// QueryCSV runs one query via POST and decodes the CSV result
// serialization into a table. The header row becomes the columns; all
// cell values are strings.
func (c *Client) QueryCSV(ctx context.Context, sparql string) (*chunk.Table, error) {
	body, err := c.Query(ctx, sparql, http.MethodPost, FormatCSV)
	if err != nil {
		return nil, err
	}
	return parseCSV(body)
}

func parseCSV(body []byte) (*chunk.Table, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.ReuseRecord = false

	columns, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty CSV result")
	}
	if err != nil {
		return nil, fmt.Errorf("decoding CSV header: %w", err)
	}

	table := &chunk.Table{Columns: columns}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return table, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decoding CSV row: %w", err)
		}
		table.Append(row...)
	}
}

// colIndex returns the position of a column, or -1.
func colIndex(t *chunk.Table, name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}
