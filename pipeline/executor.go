// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package pipeline executes resolved transformation plans against message
// contexts. The executor is stateless across exchanges: everything it needs
// per run arrives as the plan and the message, everything process-wide is
// bound once in Options.
package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/agaheman/ReqRepTransformation/detail"
	"github.com/agaheman/ReqRepTransformation/message"
	"github.com/agaheman/ReqRepTransformation/transform"
	"github.com/agaheman/ReqRepTransformation/transformapi"
)

// Log event IDs carried on every pipeline log record, partitioned by phase.
const (
	eventPipelineStart    = 1000
	eventPipelineStop     = 1001
	eventTransformExec    = 1100
	eventTransformDone    = 1101
	eventTransformSkipped = 1102
	eventTransformFailed  = 1400
	eventTransformTimeout = 1401
	eventPipelineAborted  = 1500
)

// Span names and attributes of the telemetry surface.
const (
	spanPipelinePrefix  = "reqrep.pipeline."
	spanTransformPrefix = "reqrep.transform."

	attrTransformName   = "transform.name"
	attrTransformSide   = "transform.side"
	attrTransformOrder  = "transform.order"
	attrTransformResult = "transform.result"
	attrContentType     = "payload.content_type"
	attrHTTPMethod      = "http.request.method"
	attrPipelineSide    = "pipeline.side"

	resultOK      = "ok"
	resultSkipped = "skipped"
	resultFailed  = "failed"
)

// Executor runs the entries of one plan side against a message context.
type Executor struct {
	logger  *slog.Logger
	opts    Options
	tracer  trace.Tracer
	metrics *counters
}

// NewExecutor constructs an executor. The tracer and meter must be non-nil;
// pass the otel noop implementations to disable telemetry. Zero fields of
// opts fall back to the built-in defaults.
func NewExecutor(logger *slog.Logger, opts Options, tracer trace.Tracer, meter metric.Meter) *Executor {
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = DefaultOptions().DefaultTimeout
	}
	if opts.DefaultFailureMode == "" {
		opts.DefaultFailureMode = DefaultOptions().DefaultFailureMode
	}
	return &Executor{
		logger:  logger,
		opts:    opts,
		tracer:  tracer,
		metrics: newCounters(meter),
	}
}

// Options returns the bound execution policy.
func (e *Executor) Options() Options { return e.opts }

// RunRequest executes the request-side entries of the plan.
func (e *Executor) RunRequest(ctx context.Context, plan *detail.Detail, msg *message.Context) error {
	return e.run(ctx, plan, plan.Request, message.SideRequest, msg)
}

// RunResponse executes the response-side entries of the plan.
func (e *Executor) RunResponse(ctx context.Context, plan *detail.Detail, msg *message.Context) error {
	return e.run(ctx, plan, plan.Response, message.SideResponse, msg)
}

// run is the shared core loop. It resolves the effective policy, sorts a
// copy of the entries, and dispatches them sequentially or fanned out.
//
// The returned error is either a *TransformationError (StopPipeline abort)
// or the ambient cancellation of ctx; every other failure is handled inside
// according to the effective failure mode.
func (e *Executor) run(ctx context.Context, plan *detail.Detail, entries []detail.Entry, side message.Side, msg *message.Context) error {
	timeout := e.opts.DefaultTimeout
	if plan.Timeout > 0 {
		timeout = plan.Timeout
	}
	// The explicit flag is authoritative: an unset enum value must not be
	// mistaken for a configured StopPipeline.
	mode := e.opts.DefaultFailureMode
	if plan.HasExplicitFailureMode {
		mode = plan.FailureMode
	}

	spanAttrs := []attribute.KeyValue{attribute.String(attrPipelineSide, string(side))}
	if m := msg.Method(); m != "" {
		spanAttrs = append(spanAttrs, attribute.String(attrHTTPMethod, m))
	}
	ctx, span := e.tracer.Start(ctx, spanPipelinePrefix+string(side), trace.WithAttributes(spanAttrs...))
	defer span.End()

	e.logger.Debug("pipeline started",
		slog.Int("event_id", eventPipelineStart),
		slog.String("side", string(side)),
		slog.Int("transforms", len(entries)),
	)

	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b detail.Entry) int { return cmp.Compare(a.Order, b.Order) })

	var err error
	if plan.AllowParallel {
		// Structured fan-out: one task per entry, wait for all. Order is not
		// preserved; plans enabling this must hold only commutative,
		// non-JSON-mutating transforms.
		g, gctx := errgroup.WithContext(ctx)
		for _, entry := range sorted {
			g.Go(func() error {
				return e.runOne(gctx, entry, side, msg, timeout, mode)
			})
		}
		err = g.Wait()
	} else {
		for _, entry := range sorted {
			if err = e.runOne(ctx, entry, side, msg, timeout, mode); err != nil {
				break
			}
		}
	}

	if err != nil {
		span.RecordError(err)
		var tfErr *TransformationError
		if errors.As(err, &tfErr) {
			span.SetStatus(codes.Error, "pipeline aborted")
			e.logger.Error("pipeline aborted",
				slog.Int("event_id", eventPipelineAborted),
				slog.String("side", string(side)),
				slog.String("transform", tfErr.Transform),
				slog.String("error", err.Error()),
			)
		} else {
			// Ambient cancellation: the client went away, the exchange is
			// over. Not a pipeline failure.
			span.SetStatus(codes.Error, "canceled")
			e.logger.Debug("pipeline canceled",
				slog.Int("event_id", eventPipelineStop),
				slog.String("side", string(side)),
				slog.String("error", err.Error()),
			)
		}
		return err
	}

	e.logger.Debug("pipeline completed",
		slog.Int("event_id", eventPipelineStop),
		slog.String("side", string(side)),
	)
	return nil
}

// runOne executes a single entry: guard, per-transform deadline, span,
// counters, failure handling. A non-nil return aborts the side.
func (e *Executor) runOne(ctx context.Context, entry detail.Entry, side message.Side, msg *message.Context, timeout time.Duration, mode transformapi.FailureMode) error {
	name := entry.Transform.Name()

	var shouldApply func() bool
	var apply func(context.Context) error
	switch tr := entry.Transform.(type) {
	case transform.Buffered:
		view := msg.Buffered()
		shouldApply = func() bool { return tr.ShouldApply(view) }
		apply = func(ctx context.Context) error { return tr.Apply(ctx, view) }
	case transform.Streaming:
		view := msg.Streaming()
		shouldApply = func() bool { return tr.ShouldApply(view) }
		apply = func(ctx context.Context) error { return tr.Apply(ctx, view) }
	default:
		e.logger.Warn("transform implements no known family, skipping",
			slog.String("transform", name))
		return nil
	}

	counterAttrs := metric.WithAttributes(
		attribute.String(attrTransformName, name),
		attribute.String(attrTransformSide, string(side)),
	)
	spanAttrs := []attribute.KeyValue{
		attribute.String(attrTransformName, name),
		attribute.String(attrTransformSide, string(side)),
		attribute.Int(attrTransformOrder, entry.Order),
		attribute.String(attrContentType, msg.Payload().ContentType()),
	}

	if !shouldApply() {
		e.metrics.skipped.Add(ctx, 1, counterAttrs)
		_, skipSpan := e.tracer.Start(ctx, spanTransformPrefix+name, trace.WithAttributes(spanAttrs...))
		skipSpan.SetAttributes(attribute.String(attrTransformResult, resultSkipped))
		skipSpan.End()
		e.logger.Debug("transform skipped",
			slog.Int("event_id", eventTransformSkipped),
			slog.String("transform", name),
			slog.String("side", string(side)),
		)
		return nil
	}

	tctx, span := e.tracer.Start(ctx, spanTransformPrefix+name, trace.WithAttributes(spanAttrs...))
	defer span.End()

	e.logger.Debug("transform executing",
		slog.Int("event_id", eventTransformExec),
		slog.String("transform", name),
		slog.String("side", string(side)),
		slog.Int("order", entry.Order),
	)

	applyCtx, cancel := context.WithTimeout(tctx, timeout)
	defer cancel()

	start := time.Now()
	err := safeApply(applyCtx, apply)
	elapsed := time.Since(start)

	if err == nil {
		e.metrics.executed.Add(tctx, 1, counterAttrs)
		span.SetAttributes(attribute.String(attrTransformResult, resultOK))
		e.logger.Debug("transform completed",
			slog.Int("event_id", eventTransformDone),
			slog.String("transform", name),
			slog.String("side", string(side)),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
		)
		return nil
	}

	// The ambient signal fired: propagate without failure handling, the
	// host treats it as a client abort.
	if ctx.Err() != nil {
		span.SetAttributes(attribute.String(attrTransformResult, resultFailed))
		span.RecordError(err)
		span.SetStatus(codes.Error, "canceled")
		return err
	}

	// The per-transform deadline fired first.
	if applyCtx.Err() != nil {
		err = &TimeoutError{Transform: name, Side: side, Timeout: timeout}
	}

	e.metrics.failed.Add(tctx, 1, counterAttrs)
	span.SetAttributes(attribute.String(attrTransformResult, resultFailed))
	span.RecordError(err)
	span.SetStatus(codes.Error, "transform failed")

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		e.logger.Error("transform timed out",
			slog.Int("event_id", eventTransformTimeout),
			slog.String("transform", name),
			slog.String("side", string(side)),
			slog.Int("order", entry.Order),
			slog.Int64("timeout_ms", timeout.Milliseconds()),
		)
	} else {
		e.logger.Error("transform failed",
			slog.Int("event_id", eventTransformFailed),
			slog.String("transform", name),
			slog.String("side", string(side)),
			slog.Int("order", entry.Order),
			slog.String("error", err.Error()),
		)
	}

	// LogAndSkip and Continue both proceed: the log and the failed counter
	// already happened. Only StopPipeline aborts the side.
	if mode == transformapi.FailureModeStopPipeline {
		return &TransformationError{Transform: name, Side: side, Err: err}
	}
	return nil
}

// safeApply runs the apply function and converts a panicking transform into
// an ordinary failure so one broken transform cannot take the process down.
func safeApply(ctx context.Context, apply func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transform panicked: %v", r)
		}
	}()
	return apply(ctx)
}
