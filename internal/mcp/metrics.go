package mcp

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/thebtf/keyscout/internal/mcp"

// metrics holds the router's OpenTelemetry instruments. A nil *metrics is
// valid and records nothing.
type metrics struct {
	requests         metric.Int64Counter
	errors           metric.Int64Counter
	keywordsAnalyzed metric.Int64Counter
	analysisDuration metric.Float64Histogram
}

// newMetrics builds instruments from mp, or from the global provider when mp
// is nil.
func newMetrics(mp metric.MeterProvider) *metrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	m, err := buildMetrics(mp.Meter(meterName))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create MCP metrics, falling back to no-op meter")
		m, _ = buildMetrics(noop.NewMeterProvider().Meter(meterName))
	}
	return m
}

func buildMetrics(meter metric.Meter) (*metrics, error) {
	requests, err := meter.Int64Counter(
		"keyscout.rpc.requests",
		metric.WithDescription("JSON-RPC requests received, by method"),
	)
	if err != nil {
		return nil, err
	}

	errors, err := meter.Int64Counter(
		"keyscout.rpc.errors",
		metric.WithDescription("JSON-RPC error responses, by error code"),
	)
	if err != nil {
		return nil, err
	}

	keywords, err := meter.Int64Counter(
		"keyscout.keywords.analyzed",
		metric.WithDescription("Keywords scored by analyzeKeywords"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"keyscout.analysis.duration",
		metric.WithDescription("analyzeKeywords batch duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metrics{
		requests:         requests,
		errors:           errors,
		keywordsAnalyzed: keywords,
		analysisDuration: duration,
	}, nil
}

func (m *metrics) recordRequest(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

func (m *metrics) recordError(ctx context.Context, code int) {
	if m == nil {
		return
	}
	m.errors.Add(ctx, 1, metric.WithAttributes(attribute.Int("code", code)))
}

func (m *metrics) recordAnalysis(ctx context.Context, keywords int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.keywordsAnalyzed.Add(ctx, int64(keywords))
	m.analysisDuration.Record(ctx, float64(elapsed.Microseconds())/1000)
}
