// Package tracing sets up OpenTelemetry export for alert checks.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"alert-service/internal/logging"
)

// TracerName is the instrumentation scope of every span the service starts.
const TracerName = "alert-service"

// Options mirrors config.Config.Tracing.
type Options struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	Insecure    bool
	SampleRatio float64
}

// NewProvider installs a global TracerProvider exporting over OTLP/HTTP and
// returns its shutdown func. With tracing disabled it installs nothing and
// returns a no-op shutdown.
func NewProvider(ctx context.Context, opts Options, logger *logging.Logger) (func(context.Context) error, error) {
	if !opts.Enabled {
		logger.Debugf("Tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(semconv.ServiceName(opts.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build trace resource: %w", err)
	}

	exporterOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SampleRatio))),
	)
	otel.SetTracerProvider(tp)

	logger.Infof("Tracing enabled, exporting to %s", opts.Endpoint)
	return tp.Shutdown, nil
}

// Tracer returns the service tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
