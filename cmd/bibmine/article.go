// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bibmine/internal/retrieve"
	"github.com/pdiddy/bibmine/pkg/types"
)

var articleCmd = &cobra.Command{
	Use:   "article",
	Short: "Read, list, and delete stored articles",
}

// --- raw subcommand ---

var articleRawCmd = &cobra.Command{
	Use:   "raw <aid>",
	Short: "Print the stored Atom entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		raw, err := a.retriever.GetArticleXML(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(raw)
		return err
	},
}

// --- full subcommand ---

var articleFullCmd = &cobra.Command{
	Use:   "full <aid>",
	Short: "Print the enriched representation",
	Long: `Full derives the enriched representation from the stored Atom entry.
--format csl prints only the citation as CSL YAML, ready for Pandoc.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		a, err := openApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		full, err := a.retriever.GetArticleFull(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeFull(os.Stdout, full, format)
	},
}

func writeFull(w io.Writer, full *types.FullArticle, format string) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(full)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(full); err != nil {
			return fmt.Errorf("encoding article: %w", err)
		}
		return enc.Close()
	case "csl":
		return retrieve.FormatCSL([]types.CSLItem{full.Citation}, w)
	default:
		return fmt.Errorf("unsupported format %q: use json, yaml, or csl", format)
	}
}

// --- delete subcommand ---

var articleDeleteCmd = &cobra.Command{
	Use:   "delete <aid>",
	Short: "Remove a stored article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		existed, err := a.store.Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if existed {
			fmt.Printf("Deleted %s\n", args[0])
		} else {
			fmt.Printf("%s was not stored\n", args[0])
		}
		return nil
	},
}

// --- list subcommand ---

var articleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored articles, most recently updated first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := openApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		articles, err := a.store.List(cmd.Context(), limit)
		if err != nil {
			return err
		}
		total, err := a.store.Count(cmd.Context())
		if err != nil {
			return err
		}
		printArticles(os.Stdout, articles, total)
		return nil
	},
}

func printArticles(w io.Writer, articles []types.Article, total int) {
	if len(articles) == 0 {
		fmt.Fprintln(w, "No articles stored.")
		return
	}
	rows := make([][]string, 0, len(articles))
	for _, a := range articles {
		rows = append(rows, []string{
			a.ID,
			a.Source,
			truncate(a.Title, 60),
			a.UpdatedAt.Local().Format(time.DateTime),
		})
	}
	fmt.Fprintln(w, renderTable([]string{"ID", "Source", "Title", "Updated"}, rows, nil))
	fmt.Fprintf(w, "%d of %d article(s)\n", len(articles), total)
}

func init() {
	articleFullCmd.Flags().String("format", "json", "output format: json, yaml, or csl")
	articleListCmd.Flags().Int("limit", 0, "maximum articles to list (0 = default)")

	articleCmd.AddCommand(articleRawCmd)
	articleCmd.AddCommand(articleFullCmd)
	articleCmd.AddCommand(articleDeleteCmd)
	articleCmd.AddCommand(articleListCmd)

	rootCmd.AddCommand(articleCmd)
}
