package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

// writeTable renders rows to the requested output format. CSV carries
// a header row; JSON renders one object per row.
func writeTable(out io.Writer, format string, columns []string, rows [][]string) error {
	switch format {
	case "csv":
		w := csv.NewWriter(out)
		if err := w.Write(columns); err != nil {
			return err
		}
		if err := w.WriteAll(rows); err != nil {
			return err
		}
		w.Flush()
		return w.Error()

	case "json":
		objects := make([]map[string]string, len(rows))
		for i, row := range rows {
			obj := make(map[string]string, len(columns))
			for j, col := range columns {
				if j < len(row) {
					obj[col] = row[j]
				}
			}
			objects[i] = obj
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(objects)

	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
