// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bibmine/internal/api"
	"github.com/pdiddy/bibmine/internal/auth"
	"github.com/pdiddy/bibmine/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the articles resource over HTTP",
	Long: `Serve exposes the articles resource:

  GET    /articles?query=...      search every backend and persist the results
  GET    /articles/{aid}          stored Atom entry
  GET    /articles/full/{aid}     enriched JSON representation
  DELETE /articles/{aid}          remove a stored article

Aids containing "/" (old arXiv IDs such as hep-th/9901001) are sent
percent-encoded: /articles/hep-th%2F9901001.

Every operation requires a bearer token bound to the "user" role. Tokens come
from auth.tokens in the config file and from the api-tokens secret.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.NewProvider(ctx, cfg.Telemetry, version, os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	authn, err := auth.NewAuthenticator(cfg.Auth.Tokens)
	if err != nil {
		return err
	}
	if authn.Len() == 0 {
		logger.Warn("no API tokens configured; every article request will be rejected")
	}

	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := api.NewHandler(api.Deps{
		Acquirer:  a.acquirer,
		Retriever: a.retriever,
		Store:     a.store,
		Guard:     auth.NewGuard(authn, auth.NewPolicy(cfg.Auth.Policy)),
		Logger:    logger,
	})

	logger.Info("starting bibmine",
		slog.String("version", version),
		slog.String("db", cfg.Store.Path),
		slog.Any("backends", cfg.Search.Backends),
		slog.Int("tokens", authn.Len()),
	)
	return api.NewServer(cfg.Server, handler, logger).Run(ctx)
}
