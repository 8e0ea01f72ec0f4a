// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every stored article to YAML",
	Long: `Export writes all stored articles, ordered by ID, as a YAML list. Each
entry carries the raw Atom entry alongside its bookkeeping fields.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	n, err := a.store.ExportYAML(cmd.Context(), w)
	if err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(os.Stderr, "Exported %d article(s) to %s\n", n, output)
	}
	return nil
}
