// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire turns a search query into persisted articles: it fans the
// query out to the configured backends and upserts every discovered record
// in one batch.
package acquire

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/pdiddy/bibmine/internal/search"
	"github.com/pdiddy/bibmine/pkg/types"
)

// Writer persists a batch of articles atomically.
type Writer interface {
	Upsert(ctx context.Context, articles []types.Article) error
}

// Summary holds the outcome of a successful acquisition run.
type Summary struct {
	Query     string
	Persisted int
	BySource  map[string]int
	IDs       []string
	Duration  time.Duration
}

// Sources returns the source names in Summary.BySource, sorted.
func (s Summary) Sources() []string {
	names := make([]string, 0, len(s.BySource))
	for name := range s.BySource {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Acquirer searches the configured backends and persists their records.
type Acquirer struct {
	backends []search.Backend
	store    Writer
	cfg      types.SearchConfig
	logger   *slog.Logger
	metrics  *instruments
}

// New builds an Acquirer. A nil logger discards log output.
func New(backends []search.Backend, store Writer, cfg types.SearchConfig, logger *slog.Logger) (*Acquirer, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	metrics, err := newInstruments(otel.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}
	return &Acquirer{
		backends: backends,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// PersistArticles searches every backend for query and upserts all records
// found, one per aid. An empty query fails with *types.ValidationError before any backend
// is contacted. A failing backend or store write fails the whole batch with
// *types.AcquisitionError; nothing is written when the search stage fails.
func (a *Acquirer) PersistArticles(ctx context.Context, query string) (Summary, error) {
	start := time.Now()
	query = strings.TrimSpace(query)
	if query == "" {
		a.record(ctx, "invalid", start)
		return Summary{}, &types.ValidationError{Field: "query", Reason: "must not be empty"}
	}

	ctx, span := tracer.Start(ctx, "Acquirer.PersistArticles")
	defer span.End()
	span.SetAttributes(
		attribute.String("bibmine.query", query),
		attribute.Int("bibmine.backends", len(a.backends)),
	)

	log := a.logger.With(slog.String("query", query))
	log.DebugContext(ctx, "acquisition started", slog.Int("backends", len(a.backends)))

	records, err := search.Search(ctx, query, a.backends, a.cfg)
	if err != nil {
		return Summary{}, a.fail(ctx, log, span, start, "search", query, err)
	}
	span.AddEvent("search_completed", trace.WithAttributes(attribute.Int("bibmine.records", len(records))))

	found := len(records)
	records = dedupe(records)
	if dropped := found - len(records); dropped > 0 {
		log.DebugContext(ctx, "collapsed duplicate articles", slog.Int("duplicates", dropped))
	}

	if err := a.store.Upsert(ctx, records); err != nil {
		return Summary{}, a.fail(ctx, log, span, start, "persist", query, err)
	}

	summary := Summary{
		Query:     query,
		Persisted: len(records),
		BySource:  make(map[string]int),
		IDs:       make([]string, 0, len(records)),
		Duration:  time.Since(start),
	}
	for _, r := range records {
		summary.BySource[r.Source]++
		summary.IDs = append(summary.IDs, r.ID)
	}
	for _, source := range summary.Sources() {
		a.metrics.articles.Add(ctx, int64(summary.BySource[source]),
			metric.WithAttributes(attribute.String("source", source)))
	}
	a.record(ctx, "success", start)

	span.SetAttributes(attribute.Int("bibmine.persisted", summary.Persisted))
	log.InfoContext(ctx, "acquisition completed",
		slog.Int("persisted", summary.Persisted),
		slog.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// dedupe keeps one record per aid, in first-seen order. A verbatim arXiv
// entry replaces an earlier normalised record for the same aid; otherwise
// the first record wins.
func dedupe(records []types.Article) []types.Article {
	index := make(map[string]int, len(records))
	out := make([]types.Article, 0, len(records))
	for _, r := range records {
		i, seen := index[r.ID]
		if !seen {
			index[r.ID] = len(out)
			out = append(out, r)
			continue
		}
		if r.Source == search.BackendArxiv && out[i].Source != search.BackendArxiv {
			out[i] = r
		}
	}
	return out
}

func (a *Acquirer) fail(ctx context.Context, log *slog.Logger, span trace.Span, start time.Time, stage, query string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage+" failed")
	a.record(ctx, stage+"_error", start)
	log.ErrorContext(ctx, "acquisition failed",
		slog.String("stage", stage),
		slog.Any("error", err),
	)
	return &types.AcquisitionError{Query: query, Stage: stage, Err: err}
}

func (a *Acquirer) record(ctx context.Context, status string, start time.Time) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	a.metrics.runs.Add(ctx, 1, attrs)
	a.metrics.duration.Record(ctx, time.Since(start).Seconds(), attrs)
}
