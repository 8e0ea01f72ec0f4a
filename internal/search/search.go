// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries external bibliographic APIs and returns article
// records ready for persistence. Every record carries an Atom entry as its
// raw representation regardless of the upstream wire format.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/pdiddy/bibmine/internal/httputil"
	"github.com/pdiddy/bibmine/pkg/types"
)

// Backend searches a single bibliographic API.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, cfg types.SearchConfig) ([]types.Article, error)
}

// Backend names accepted in SearchConfig.Backends.
const (
	BackendArxiv           = "arxiv"
	BackendOpenAlex        = "openalex"
	BackendSemanticScholar = "semantic_scholar"
)

const defaultMaxResults = 20

// URN returns the Atom id assigned to entries normalised from JSON sources.
// It embeds the article ID so the raw representation always names it.
func URN(aid string) string {
	return "urn:bibmine:article:" + aid
}

// NewBackends builds the backends named in cfg.Backends, each with its own
// throttled HTTP client.
func NewBackends(cfg types.SearchConfig, logger *slog.Logger) ([]Backend, error) {
	if len(cfg.Backends) == 0 {
		return nil, fmt.Errorf("no search backends configured")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var backends []Backend
	for _, name := range cfg.Backends {
		client := httputil.NewClient(cfg.HTTPConfig, logger.With(slog.String("backend", name)))
		switch strings.TrimSpace(name) {
		case BackendArxiv:
			backends = append(backends, &ArxivBackend{Client: client})
		case BackendOpenAlex:
			backends = append(backends, &OpenAlexBackend{Client: client, Email: cfg.OpenAlexEmail})
		case BackendSemanticScholar:
			backends = append(backends, &SemanticScholarBackend{Client: client, APIKey: cfg.SemanticScholarAPIKey})
		default:
			return nil, fmt.Errorf("unknown search backend %q", name)
		}
	}
	return backends, nil
}

// Search fans the query out to all backends concurrently and concatenates
// their records in backend order. The first backend error cancels the
// remaining requests and fails the whole search; records from different
// backends are neither merged nor ranked.
func Search(ctx context.Context, query string, backends []Backend, cfg types.SearchConfig) ([]types.Article, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is empty")
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("no search backends configured")
	}

	perBackend := make([][]types.Article, len(backends))
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	for i, b := range backends {
		p.Go(func(ctx context.Context) error {
			records, err := b.Search(ctx, query, cfg)
			if err != nil {
				return fmt.Errorf("%s: %w", b.Name(), err)
			}
			perBackend[i] = records
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	var all []types.Article
	for _, records := range perBackend {
		all = append(all, records...)
	}
	return all, nil
}

func maxResults(cfg types.SearchConfig, limit int) int {
	n := cfg.MaxResults
	if n <= 0 {
		n = defaultMaxResults
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}
