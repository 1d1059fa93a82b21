package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// MetricsInterval is how often metrics are pushed to the collector.
const MetricsInterval = 15 * time.Second

// SetupMetrics installs an SDK meter provider that pushes to the OTLP/gRPC
// collector at endpoint. An empty endpoint disables export and returns a nil
// provider with a no-op shutdown.
func SetupMetrics(ctx context.Context, endpoint, serviceName, serviceVersion string) (metric.MeterProvider, func(context.Context) error, error) {
	if endpoint == "" {
		log.Debug().Msg("OTLP endpoint not set, metrics export disabled")
		return nil, func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(MetricsInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)
	log.Info().Str("endpoint", endpoint).Msg("OTLP metrics export enabled")

	return provider, provider.Shutdown, nil
}
