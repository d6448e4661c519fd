package main

import (
	"encoding/json"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wikitools/wikikb/pkg/viaf"
)

func newViafCmd(a *app) *cobra.Command {
	var (
		schema string
		max    int
	)

	cmd := &cobra.Command{
		Use:   "viaf <cql-query>",
		Short: "Search authority cluster records with a CQL query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requester, err := a.newRequester()
			if err != nil {
				return err
			}
			authority, err := viaf.New(viaf.DefaultConfig(requester))
			if err != nil {
				return err
			}

			records, err := authority.Search(cmd.Context(), args[0], viaf.SearchOptions{
				Schema: viaf.Schema(schema),
				Max:    max,
			})
			if err != nil {
				return err
			}

			if a.format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}

			ids := make([]string, 0, len(records))
			for id := range records {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			rows := make([][]string, len(ids))
			for i, id := range ids {
				rows[i] = []string{id, string(records[id])}
			}
			return writeTable(cmd.OutOrStdout(), a.format,
				[]string{"viaf_id", "record"}, rows)
		},
	}
	cmd.Flags().StringVar(&schema, "schema", string(viaf.SchemaJSON), "record schema: JSON or brief")
	cmd.Flags().IntVar(&max, "max", 0, "maximum records to return (0 = client default)")
	return cmd
}
