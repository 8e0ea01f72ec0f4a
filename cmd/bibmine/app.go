// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"log/slog"

	"github.com/pdiddy/bibmine/internal/acquire"
	"github.com/pdiddy/bibmine/internal/retrieve"
	"github.com/pdiddy/bibmine/internal/search"
	"github.com/pdiddy/bibmine/internal/store"
	"github.com/pdiddy/bibmine/pkg/types"
)

// app holds the components every subcommand works against.
type app struct {
	store     *store.Store
	acquirer  *acquire.Acquirer
	retriever *retrieve.Retriever
}

// openApp opens the article database and builds the acquirer and retriever.
// The caller must Close the app.
func openApp(c types.Config, logger *slog.Logger) (*app, error) {
	backends, err := search.NewBackends(c.Search, logger)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(c.Store)
	if err != nil {
		return nil, err
	}

	acq, err := acquire.New(backends, s, c.Search, logger.With(slog.String("component", "acquire")))
	if err != nil {
		s.Close()
		return nil, err
	}

	return &app{
		store:     s,
		acquirer:  acq,
		retriever: retrieve.New(s, logger.With(slog.String("component", "retrieve"))),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
