// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package tracing bootstraps OpenTelemetry tracing for the gateway from the
// standard OTEL_* environment variables. When tracing is disabled or no
// exporter is configured the graph degrades to a noop tracer, so callers
// never branch on whether tracing is on.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/contrib/exporters/autoexport"
	"go.opentelemetry.io/contrib/propagators/autoprop"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// scopeName identifies this instrumentation library in exported spans.
const scopeName = "agaheman/ReqRepTransformation"

// Tracing bundles the tracer handed to the pipeline executor with the
// propagator the host uses on inbound and outbound requests.
type Tracing struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	// shutdown is nil when we didn't create the provider.
	shutdown func(context.Context) error
}

// Tracer returns the tracer for pipeline spans.
func (t *Tracing) Tracer() trace.Tracer { return t.tracer }

// Propagator returns the configured context propagator.
func (t *Tracing) Propagator() propagation.TextMapPropagator { return t.propagator }

// Shutdown flushes and stops the provider this graph owns, if any.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if t.shutdown != nil {
		return t.shutdown(ctx)
	}
	return nil
}

// Noop returns a tracing graph that records nothing.
func Noop() *Tracing {
	return &Tracing{
		tracer:     noop.NewTracerProvider().Tracer(scopeName),
		propagator: propagation.NewCompositeTextMapPropagator(),
	}
}

// NewTracingFromEnv configures OpenTelemetry tracing based on environment
// variables. Returns a noop graph when disabled or when no exporter or
// endpoint is configured; the stdout writer receives console exporter output.
func NewTracingFromEnv(ctx context.Context, stdout io.Writer) (*Tracing, error) {
	exporter := os.Getenv("OTEL_TRACES_EXPORTER")
	if os.Getenv("OTEL_SDK_DISABLED") == "true" || exporter == "none" ||
		(exporter == "" && os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" &&
			os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT") == "") {
		return Noop(), nil
	}

	res, err := newResource(ctx)
	if err != nil {
		return nil, err
	}

	// Console is special cased to a synchronous exporter so tests and local
	// runs see spans immediately; everything else goes through autoexport
	// with a batcher, both configured by the usual OTEL_* variables.
	var tp *sdktrace.TracerProvider
	if exporter == "console" {
		stdoutExporter, err := stdouttrace.New(stdouttrace.WithWriter(stdout))
		if err != nil {
			return nil, fmt.Errorf("failed to create console exporter: %w", err)
		}
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(stdoutExporter),
			sdktrace.WithResource(res),
		)
	} else {
		autoExporter, err := autoexport.NewSpanExporter(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create exporter: %w", err)
		}
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(autoExporter),
			sdktrace.WithResource(res),
		)
	}

	return &Tracing{
		tracer:     tp.Tracer(scopeName),
		propagator: autoprop.NewTextMapPropagator(),
		shutdown:   tp.Shutdown,
	}, nil
}

// newResource merges the default resource, the gateway's fallback service
// name, and the environment resource, in that order, so OTEL_SERVICE_NAME
// and OTEL_RESOURCE_ATTRIBUTES take precedence over the fallback.
func newResource(ctx context.Context) (*resource.Resource, error) {
	envRes, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource from env: %w", err)
	}

	fallbackRes := resource.NewSchemaless(
		semconv.ServiceName("reqrep-gateway"),
	)

	res, err := resource.Merge(resource.Default(), fallbackRes)
	if err != nil {
		return nil, fmt.Errorf("failed to merge default resources: %w", err)
	}
	res, err = resource.Merge(res, envRes)
	if err != nil {
		return nil, fmt.Errorf("failed to merge env resource: %w", err)
	}
	return res, nil
}
