package main

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const serviceName = "reactmesh"

// setupTracing installs an OTLP gRPC exporter when OTEL_EXPORTER_OTLP_ENDPOINT
// is set. The exporter reads the remaining OTEL_* variables itself.
func setupTracing(ctx context.Context, lookup func(string) (string, bool)) (context.Context, func(), error) {
	endpoint, ok := lookup("OTEL_EXPORTER_OTLP_ENDPOINT")
	if !ok || endpoint == "" {
		return ctx, func() {}, nil
	}

	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("otlp exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return ctx, nil, fmt.Errorf("otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}

	return ctx, shutdown, nil
}
