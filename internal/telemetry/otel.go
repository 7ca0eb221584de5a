package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Config controls how OTEL providers are constructed. The tool only ever
// exposes a pull-based Prometheus endpoint; there is no OTLP collector in
// this deployment so the push exporters are intentionally absent.
type Config struct {
	ServiceName    string
	ServiceVersion string
}

// Providers bundles the tracer and meter providers created by Init, along
// with a Shutdown func that flushes and releases both.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Shutdown       func(context.Context) error
}

// Init creates an in-process tracer provider and a Prometheus-backed
// meter provider, registering both as the global OTEL providers.
func Init(cfg Config) (*Providers, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)

	shutdown := func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return err
		}
		return mp.Shutdown(ctx)
	}

	return &Providers{TracerProvider: tp, MeterProvider: mp, Shutdown: shutdown}, nil
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the migration-wide instrument set used by the
// orchestrator and its component stages.
type Metrics struct {
	ObjectsMigrated  metric.Int64Counter
	BytesMigrated    metric.Int64Counter
	ObjectErrors     metric.Int64Counter
	BucketsCompleted metric.Int64Counter
}

// NewMetrics registers the counters used across the pipeline.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	objectsMigrated, err := meter.Int64Counter("s3evacuate.objects_migrated",
		metric.WithDescription("objects successfully downloaded and verified"))
	if err != nil {
		return nil, err
	}
	bytesMigrated, err := meter.Int64Counter("s3evacuate.bytes_migrated",
		metric.WithDescription("bytes written to local storage"))
	if err != nil {
		return nil, err
	}
	objectErrors, err := meter.Int64Counter("s3evacuate.object_errors",
		metric.WithDescription("object operations that failed"))
	if err != nil {
		return nil, err
	}
	bucketsCompleted, err := meter.Int64Counter("s3evacuate.buckets_completed",
		metric.WithDescription("buckets that reached delete_complete"))
	if err != nil {
		return nil, err
	}
	return &Metrics{
		ObjectsMigrated:  objectsMigrated,
		BytesMigrated:    bytesMigrated,
		ObjectErrors:     objectErrors,
		BucketsCompleted: bucketsCompleted,
	}, nil
}
