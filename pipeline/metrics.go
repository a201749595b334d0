// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package pipeline

import "go.opentelemetry.io/otel/metric"

const (
	metricTransformExecuted = "reqrep.transform.executed"
	metricTransformSkipped  = "reqrep.transform.skipped"
	metricTransformFailed   = "reqrep.transform.failed"
)

// counters holds the per-transform pipeline counters.
type counters struct {
	executed metric.Int64Counter
	skipped  metric.Int64Counter
	failed   metric.Int64Counter
}

func newCounters(meter metric.Meter) *counters {
	return &counters{
		executed: mustRegisterCounter(meter, metricTransformExecuted,
			metric.WithDescription("Number of transforms that completed successfully."),
			metric.WithUnit("{transform}"),
		),
		skipped: mustRegisterCounter(meter, metricTransformSkipped,
			metric.WithDescription("Number of transforms whose guard declined the message."),
			metric.WithUnit("{transform}"),
		),
		failed: mustRegisterCounter(meter, metricTransformFailed,
			metric.WithDescription("Number of transforms that failed or timed out."),
			metric.WithUnit("{transform}"),
		),
	}
}

// mustRegisterCounter registers a counter with the meter and panics if it fails.
func mustRegisterCounter(meter metric.Meter, name string, options ...metric.Int64CounterOption) metric.Int64Counter {
	c, err := meter.Int64Counter(name, options...)
	if err != nil {
		panic(err)
	}
	return c
}
