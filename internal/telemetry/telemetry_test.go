// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/pdiddy/bibmine/pkg/types"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.ErrorContains(t, err, "unknown log level")
}

func TestNewLoggerJSONFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(types.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", slog.String("aid", "A123"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "A123", rec["aid"])
	assert.NotContains(t, rec, "trace_id")
}

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(types.LogConfig{Format: "text"}, &buf)
	require.NoError(t, err)

	logger.Info("hello", slog.Int("n", 3))
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "n=3")
}

func TestNewLoggerUnknownFormat(t *testing.T) {
	_, err := NewLogger(types.LogConfig{Format: "xml"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown log format")
}

func TestTraceHandlerInjectsSpanIDs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(types.LogConfig{}, &buf)
	require.NoError(t, err)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.With(slog.String("component", "api")).InfoContext(ctx, "served")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", rec["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", rec["span_id"])
	assert.Equal(t, "api", rec["component"])
}

func TestNewProviderDisabled(t *testing.T) {
	p, err := NewProvider(context.Background(), types.TelemetryConfig{}, "test", &bytes.Buffer{})
	require.NoError(t, err)
	assert.Nil(t, p.TracerProvider)
	assert.Nil(t, p.MeterProvider)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderExportsOnShutdown(t *testing.T) {
	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	})

	var buf bytes.Buffer
	ctx := context.Background()
	p, err := NewProvider(ctx, types.TelemetryConfig{
		Enabled:        true,
		ServiceName:    "bibmine-test",
		Environment:    "test",
		MetricInterval: time.Hour,
	}, "v0.0.1", &buf)
	require.NoError(t, err)
	require.NotNil(t, p.TracerProvider)

	_, span := otel.Tracer("telemetry-test").Start(ctx, "test-span")
	span.End()

	counter, err := otel.Meter("telemetry-test").Int64Counter("test.counter")
	require.NoError(t, err)
	counter.Add(ctx, 2)

	require.NoError(t, p.Shutdown(ctx))
	out := buf.String()
	assert.Contains(t, out, "test-span")
	assert.Contains(t, out, "test.counter")
	assert.Contains(t, out, "bibmine-test")
}
