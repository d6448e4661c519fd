package viaf

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// searchResponse is the SRU envelope of one search page.
type searchResponse struct {
	Envelope struct {
		NumberOfRecords flexInt `json:"numberOfRecords"`
		Records         []struct {
			Record struct {
				RecordData json.RawMessage `json:"recordData"`
			} `json:"record"`
		} `json:"records"`
	} `json:"searchRetrieveResponse"`
}

// flexInt decodes an integer the service serializes either as a JSON
// number or as a quoted string.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("parsing record count %q: %w", s, err)
		}
		*f = flexInt(n)
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("parsing record count %s: %w", data, err)
	}
	*f = flexInt(n)
	return nil
}

// clusterID extracts the cluster identifier of one record. Full
// records carry it as a plain string, brief records wrap it in a
// {"#text": ...} object.
func clusterID(record json.RawMessage) (string, error) {
	var full struct {
		ViafID string `json:"viafID"`
	}
	if err := json.Unmarshal(record, &full); err == nil && full.ViafID != "" {
		return full.ViafID, nil
	}

	var brief struct {
		ViafID struct {
			Text string `json:"#text"`
		} `json:"viafID"`
	}
	if err := json.Unmarshal(record, &brief); err == nil && brief.ViafID.Text != "" {
		return brief.ViafID.Text, nil
	}

	return "", fmt.Errorf("record carries no cluster identifier")
}
