// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package metrics bootstraps the OpenTelemetry meter for the gateway. The
// Prometheus reader backing the admin /metrics endpoint is always wired in;
// console and OTLP exporters are added on top when the OTEL_* environment
// variables ask for them.
package metrics

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/contrib/exporters/autoexport"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// scopeName identifies this instrumentation library in exported metrics.
const scopeName = "agaheman/ReqRepTransformation"

// NewMetricsFromEnv configures an OpenTelemetry MeterProvider based on
// environment variables, always incorporating the provided Prometheus reader.
// It returns a meter for instrumentation and a shutdown function.
//
// The stdout parameter directs output for the console exporter (use os.Stdout
// in production). Environment variables checked directly:
//   - OTEL_SDK_DISABLED: if "true", no exporter beyond promReader is added.
//   - OTEL_METRICS_EXPORTER: "none", "console", "prometheus", or "otlp".
//   - OTEL_EXPORTER_OTLP_ENDPOINT / OTEL_EXPORTER_OTLP_METRICS_ENDPOINT:
//     enables OTLP when set.
func NewMetricsFromEnv(ctx context.Context, stdout io.Writer, promReader sdkmetric.Reader) (metric.Meter, func(context.Context) error, error) {
	options := []sdkmetric.Option{sdkmetric.WithReader(promReader)}

	if os.Getenv("OTEL_SDK_DISABLED") != "true" {
		exporter := os.Getenv("OTEL_METRICS_EXPORTER")
		hasOTLPEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" ||
			os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT") != ""

		if exporter == "console" || (exporter != "none" && exporter != "prometheus" && hasOTLPEndpoint) {
			res, err := newResource(ctx)
			if err != nil {
				return nil, nil, err
			}
			options = append(options, sdkmetric.WithResource(res))

			if exporter == "console" {
				exp, err := newNonEmptyConsoleExporter(stdout)
				if err != nil {
					return nil, nil, err
				}
				options = append(options, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
			} else {
				// autoexport handles the PeriodicReader internally.
				otelReader, err := autoexport.NewMetricReader(ctx)
				if err != nil {
					return nil, nil, err
				}
				options = append(options, sdkmetric.WithReader(otelReader))
			}
		}
	}

	mp := sdkmetric.NewMeterProvider(options...)
	return mp.Meter(scopeName), mp.Shutdown, nil
}

// newResource merges the default resource, the gateway's fallback service
// name, and the environment resource so that OTEL_SERVICE_NAME and
// OTEL_RESOURCE_ATTRIBUTES win over the fallback.
func newResource(ctx context.Context) (*resource.Resource, error) {
	envRes, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, err
	}

	fallbackRes := resource.NewSchemaless(
		semconv.ServiceName("reqrep-gateway"),
	)

	res, err := resource.Merge(resource.Default(), fallbackRes)
	if err != nil {
		return nil, err
	}
	return resource.Merge(res, envRes)
}
