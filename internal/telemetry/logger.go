// Package telemetry wires structured logging and OpenTelemetry tracing
// and metrics for the evacuation tool.
package telemetry

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// otelHook adds trace and span IDs to every log entry emitted with a
// context, so logs and traces correlate without separate plumbing.
type otelHook struct{}

func (h otelHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}
	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())
	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// Logger wraps zerolog with OTEL span correlation and a handful of
// domain-specific convenience methods used throughout the pipeline.
type Logger struct {
	zerolog.Logger
}

// NewLogger builds a logger that writes JSON to stdout tagged with the
// given service name.
func NewLogger(service string) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", service).
		Logger().
		Hook(otelHook{})
	return &Logger{Logger: logger}
}

// NewConsoleLogger builds a human-readable logger for interactive runs,
// mirroring the orchestrator's progress output without losing structure.
func NewConsoleLogger(service string) *Logger {
	zerolog.TimeFieldFormat = "15:04:05"
	writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	logger := zerolog.New(writer).
		With().
		Timestamp().
		Str("service", service).
		Logger().
		Hook(otelHook{})
	return &Logger{Logger: logger}
}

// WithContext returns a logger bound to ctx so the OTEL hook can attach
// trace/span IDs.
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.Logger.With().Ctx(ctx).Logger()
	return &logger
}

func (l *Logger) LogPhaseStart(ctx context.Context, phase string, attrs ...attribute.KeyValue) {
	event := l.WithContext(ctx).Info().Str("phase", phase)
	for _, attr := range attrs {
		event = addAttributeToEvent(event, attr)
	}
	event.Msg("phase started")
}

func (l *Logger) LogPhaseEnd(ctx context.Context, phase string, err error) {
	logger := l.WithContext(ctx)
	if err != nil {
		logger.Error().Err(err).Str("phase", phase).Msg("phase failed")
		return
	}
	logger.Info().Str("phase", phase).Msg("phase completed")
}

func (l *Logger) LogBucketProgress(ctx context.Context, bucket string, fileCount int64, totalBytes int64) {
	l.WithContext(ctx).Info().
		Str("bucket", bucket).
		Int64("file_count", fileCount).
		Int64("total_bytes", totalBytes).
		Msg("bucket progress")
}

func (l *Logger) LogObjectError(ctx context.Context, bucket, key string, err error) {
	l.WithContext(ctx).Error().
		Err(err).
		Str("bucket", bucket).
		Str("key", key).
		Msg("object operation failed")
}

func addAttributeToEvent(event *zerolog.Event, attr attribute.KeyValue) *zerolog.Event {
	key := string(attr.Key)
	switch attr.Value.Type() {
	case attribute.STRING:
		return event.Str(key, attr.Value.AsString())
	case attribute.INT64:
		return event.Int64(key, attr.Value.AsInt64())
	case attribute.FLOAT64:
		return event.Float64(key, attr.Value.AsFloat64())
	case attribute.BOOL:
		return event.Bool(key, attr.Value.AsBool())
	default:
		return event.Str(key, attr.Value.AsString())
	}
}
