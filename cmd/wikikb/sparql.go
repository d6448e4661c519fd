package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wikitools/wikikb/pkg/wdqs"
)

func newSparqlCmd(a *app) *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "sparql <query>",
		Short: "Run a raw SPARQL query against the query service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requester, err := a.newRequester()
			if err != nil {
				return err
			}
			qs, err := wdqs.New(wdqs.DefaultConfig(requester))
			if err != nil {
				return err
			}

			var format wdqs.Format
			switch a.format {
			case "csv":
				format = wdqs.FormatCSV
			case "json":
				format = wdqs.FormatJSON
			case "xml":
				format = wdqs.FormatXML
			default:
				return fmt.Errorf("unknown output format %q", a.format)
			}

			switch strings.ToUpper(method) {
			case http.MethodGet, http.MethodPost:
				method = strings.ToUpper(method)
			default:
				return fmt.Errorf("unknown method %q", method)
			}

			body, err := qs.Query(cmd.Context(), args[0], method, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(body)
			return err
		},
	}
	cmd.Flags().StringVar(&method, "method", "GET", "HTTP method: GET, or POST for long queries")
	return cmd
}
