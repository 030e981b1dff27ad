package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const serviceName = "chronophoto"

// Options configures the exported traces.
type Options struct {
	// Endpoint is the full OTLP/HTTP traces URL of the collector.
	Endpoint    string
	Version     string
	Environment string
	// SampleRatio is the share of root traces kept, in [0, 1]. Child spans
	// follow their parent's decision.
	SampleRatio float64
}

func (o Options) resource() *resource.Resource {
	attrs := []attribute.KeyValue{semconv.ServiceNameKey.String(serviceName)}
	if o.Version != "" {
		attrs = append(attrs, semconv.ServiceVersionKey.String(o.Version))
	}
	if o.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironmentKey.String(o.Environment))
	}
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}

// InitTracer installs a batching OTLP/HTTP tracer provider as the global one.
func InitTracer(ctx context.Context, opts Options) (*sdktrace.TracerProvider, error) {
	if opts.SampleRatio < 0 || opts.SampleRatio > 1 {
		return nil, fmt.Errorf("sample ratio out of range: %v", opts.SampleRatio)
	}
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(opts.Endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SampleRatio))),
		sdktrace.WithResource(opts.resource()),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}
