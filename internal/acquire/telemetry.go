// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/pdiddy/bibmine/internal/acquire"

var tracer = otel.Tracer(instrumentationName)

// instruments are the acquisition metrics. They are created from the global
// meter provider when an Acquirer is built, so a provider installed at
// startup is picked up.
type instruments struct {
	runs     metric.Int64Counter
	articles metric.Int64Counter
	duration metric.Float64Histogram
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	var (
		in  instruments
		err error
	)
	in.runs, err = meter.Int64Counter(
		"bibmine.acquire.runs",
		metric.WithDescription("Acquisition runs by outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating runs counter: %w", err)
	}
	in.articles, err = meter.Int64Counter(
		"bibmine.acquire.articles",
		metric.WithDescription("Articles persisted by source"),
		metric.WithUnit("{article}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating articles counter: %w", err)
	}
	in.duration, err = meter.Float64Histogram(
		"bibmine.acquire.duration",
		metric.WithDescription("Wall time of an acquisition run"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.25, 0.5, 1, 2, 5, 10, 30),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}
	return &in, nil
}
