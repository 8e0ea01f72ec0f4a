// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the bibmine CLI. It serves the
// articles resource over HTTP and exposes the same operations locally.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bibmine/internal/secrets"
	"github.com/pdiddy/bibmine/internal/telemetry"
	"github.com/pdiddy/bibmine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the resolved configuration, populated before any subcommand runs.
	cfg types.Config

	// logger writes structured logs to stderr.
	logger *slog.Logger
)

// rootCmd is the base command for the bibmine CLI.
var rootCmd = &cobra.Command{
	Use:   "bibmine",
	Short: "Acquire and serve bibliographic records",
	Long: `bibmine searches bibliographic APIs (arXiv, OpenAlex, Semantic Scholar),
persists every record it finds as an Atom entry, and serves the stored
articles over an authenticated HTTP resource.

Use "serve" to run the resource. The search and article subcommands run the
same operations against the local database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		c, err := loadConfig(v)
		if err != nil {
			return err
		}
		l, err := telemetry.NewLogger(c.Log, os.Stderr)
		if err != nil {
			return err
		}

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, l)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			l.Debug("loaded secrets", slog.Any("keys", s.Keys()))
		}
		if err := applySecrets(&c, s); err != nil {
			return err
		}

		cfg, logger = c, l
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./bibmine.yaml or ~/.config/bibmine/bibmine.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory of secret files")
	rootCmd.PersistentFlags().String("db", "", "article database path (default data/bibmine.db)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	_ = viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("bibmine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "bibmine"))
		}
	}

	configureViper(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
