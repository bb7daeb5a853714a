// Package tracing provides OpenTelemetry tracing for scan runs. Disabled
// (no-op tracer) when no OTLP endpoint is configured.
package tracing

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
)

// Init initializes OpenTelemetry tracing. Returns a cleanup function that
// flushes and shuts the exporter down; callers defer it around the scan.
func Init(serviceName, endpoint string, samplingRate float64) (func(), error) {
	if endpoint == "" {
		// Tracing disabled
		return func() {}, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var exp sdktrace.SpanExporter
	if isGRPC(endpoint) {
		exp, err = otlptracegrpc.New(context.Background(),
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(), // Use WithInsecure() for non-TLS; production should use TLS
		)
	} else {
		exp, err = otlptracehttp.New(context.Background(),
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(), // Use WithInsecure() for non-TLS; production should use TLS
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	if samplingRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else if samplingRate <= 0.0 {
		sampler = sdktrace.NeverSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(samplingRate)
	}

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	tracer = otel.Tracer(serviceName)

	return func() {
		if tracerProvider != nil {
			_ = tracerProvider.Shutdown(context.Background())
		}
	}, nil
}

// Tracer returns the global tracer instance.
func Tracer() trace.Tracer {
	if tracer == nil {
		// Return no-op tracer if not initialized
		return trace.NewNoopTracerProvider().Tracer("noop")
	}
	return tracer
}

// StartSpanWithAttributes starts a new span with the given name and attributes.
func StartSpanWithAttributes(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// isGRPC checks if the endpoint should use the gRPC exporter. Defaults to
// HTTP unless the standard OTEL protocol env vars say otherwise.
func isGRPC(endpoint string) bool {
	return os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL") == "grpc" ||
		os.Getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL") == "grpc"
}
