package main

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// setupTracing installs the global tracer provider. Spans are sampled and
// kept in-process; no exporter is configured yet.
func setupTracing() func(context.Context) error {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "kiosk-voice"),
		)),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}
