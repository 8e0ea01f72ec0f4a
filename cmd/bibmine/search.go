// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bibmine/internal/acquire"
)

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search every backend and persist the results",
	Long: `Search sends the query to each configured backend (arXiv, OpenAlex,
Semantic Scholar) and stores every record returned. Articles already in the
database are refreshed in place. If any backend fails, nothing is stored.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("max-results", 0, "maximum records per backend (default from config)")
	searchCmd.Flags().StringSlice("backends", nil, "backends to query: arxiv, openalex, semantic_scholar")
	searchCmd.Flags().Bool("ids", false, "print the persisted article IDs")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	c := cfg
	if n, _ := cmd.Flags().GetInt("max-results"); n > 0 {
		c.Search.MaxResults = n
	}
	if b, _ := cmd.Flags().GetStringSlice("backends"); len(b) > 0 {
		c.Search.Backends = b
	}

	a, err := openApp(c, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.acquirer.PersistArticles(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	showIDs, _ := cmd.Flags().GetBool("ids")
	printSummary(os.Stdout, summary, showIDs)
	return nil
}

func printSummary(w io.Writer, s acquire.Summary, showIDs bool) {
	rows := make([][]string, 0, len(s.BySource))
	for _, name := range s.Sources() {
		rows = append(rows, []string{name, strconv.Itoa(s.BySource[name])})
	}
	if len(rows) > 0 {
		fmt.Fprintln(w, renderTable([]string{"Source", "Articles"}, rows, []columnAlignment{alignLeft, alignRight}))
	}
	fmt.Fprintf(w, "Persisted %d article(s) for %q in %s\n", s.Persisted, s.Query, s.Duration.Round(time.Millisecond))
	if showIDs {
		for _, id := range s.IDs {
			fmt.Fprintln(w, id)
		}
	}
}
