package main

import (
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wikitools/wikikb/pkg/mediawiki"
)

func (a *app) newWiki() (*mediawiki.Client, error) {
	requester, err := a.newRequester()
	if err != nil {
		return nil, err
	}
	return mediawiki.New(mediawiki.DefaultConfig(requester, a.project))
}

func newEntityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "entity <title>...",
		Short: "Resolve wiki page titles to their knowledge base entities",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wiki, err := a.newWiki()
			if err != nil {
				return err
			}

			records, err := wiki.WikidataEntities(cmd.Context(), args, a.chunkSize)
			if err != nil {
				return err
			}

			titles := make([]string, 0, len(records))
			for title := range records {
				titles = append(titles, title)
			}
			sort.Strings(titles)

			rows := make([][]string, 0, len(titles))
			for _, title := range titles {
				rec := records[title]
				rows = append(rows, []string{title, rec.Status, rec.Normalized, rec.Target, rec.Entity})
			}
			return writeTable(cmd.OutOrStdout(), a.format,
				[]string{"title", "status", "normalized", "target", "entity"}, rows)
		},
	}
}

func newRedirectsCmd(a *app) *cobra.Command {
	var inlinks bool

	cmd := &cobra.Command{
		Use:   "redirects <title>...",
		Short: "List the pages redirecting to wiki page titles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wiki, err := a.newWiki()
			if err != nil {
				return err
			}

			if inlinks {
				records, err := wiki.InLinks(cmd.Context(), args, true, a.chunkSize)
				if err != nil {
					return err
				}

				titles := make([]string, 0, len(records))
				for title := range records {
					titles = append(titles, title)
				}
				sort.Strings(titles)

				rows := make([][]string, 0, len(titles))
				for _, title := range titles {
					rec := records[title]
					rows = append(rows, []string{title, rec.Status, strconv.Itoa(rec.NLinks), strings.Join(rec.LinksHere, "|")})
				}
				return writeTable(cmd.OutOrStdout(), a.format,
					[]string{"title", "status", "nlinks", "linkshere"}, rows)
			}

			groups, err := wiki.Redirects(cmd.Context(), args, a.chunkSize)
			if err != nil {
				return err
			}

			titles := make([]string, 0, len(groups))
			for title := range groups {
				titles = append(titles, title)
			}
			sort.Strings(titles)

			rows := make([][]string, 0, len(titles))
			for _, title := range titles {
				rows = append(rows, []string{title, strings.Join(groups[title], "|")})
			}
			return writeTable(cmd.OutOrStdout(), a.format,
				[]string{"title", "redirects"}, rows)
		},
	}
	cmd.Flags().BoolVar(&inlinks, "inlinks", false, "count incoming links over the whole redirect group instead")
	return cmd
}
