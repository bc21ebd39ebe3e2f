package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracingConfig selects the OTLP/HTTP collector.
type TracingConfig struct {
	Enabled     bool
	Endpoint    string // host:port, no scheme
	Insecure    bool
	ServiceName string
	SampleRatio float64
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// SetupTracing installs a global tracer provider exporting over OTLP/HTTP and
// returns the tracer the engine should use. When tracing is disabled a no-op
// tracer is returned and nothing is exported.
func SetupTracing(ctx context.Context, cfg TracingConfig) (trace.Tracer, ShutdownFunc, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "hybridqa"
	}
	if !cfg.Enabled {
		return noop.NewTracerProvider().Tracer(name), func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("creating otlp exporter: %w", err)
	}

	tp, err := newTracerProvider(name, cfg.SampleRatio, sdktrace.WithBatcher(exporter))
	if err != nil {
		return nil, nil, err
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}))

	return tp.Tracer(name), tp.Shutdown, nil
}

func newTracerProvider(name string, ratio float64, opts ...sdktrace.TracerProviderOption) (*sdktrace.TracerProvider, error) {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(semconv.ServiceName(name)),
	)
	if err != nil {
		return nil, fmt.Errorf("building trace resource: %w", err)
	}
	sampler := sdktrace.AlwaysSample()
	if ratio < 1 {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
	opts = append(opts,
		sdktrace.WithResource(r),
		sdktrace.WithSampler(sampler),
	)
	return sdktrace.NewTracerProvider(opts...), nil
}
