// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package detail

import (
	"log/slog"

	"github.com/agaheman/ReqRepTransformation/transform"
	"github.com/agaheman/ReqRepTransformation/transformapi"
)

// Builder turns route rules into plans backed by freshly configured
// transform instances from a catalog.
type Builder struct {
	catalog *transform.Registry
	logger  *slog.Logger
}

// NewBuilder constructs a Builder over the given catalog.
func NewBuilder(catalog *transform.Registry, logger *slog.Logger) *Builder {
	return &Builder{catalog: catalog, logger: logger}
}

// Build resolves every transformation row of the rule to a fresh transform
// instance, configures it with the row's params, and partitions the entries
// by side. A row naming an unknown transformer or failing Configure is
// logged and dropped; the plan continues with all other rows.
func (b *Builder) Build(rule *transformapi.RouteRule) *Detail {
	d := &Detail{
		Timeout:       rule.Timeout.Duration,
		AllowParallel: rule.AllowParallel,
	}
	if rule.FailureMode != "" {
		d.FailureMode = rule.FailureMode
		d.HasExplicitFailureMode = true
	}
	for _, ref := range rule.Transformations {
		t, err := b.catalog.New(ref.Transformer)
		if err != nil {
			b.logger.Warn("dropping transformation row",
				slog.String("transformer", ref.Transformer),
				slog.String("path", rule.Path),
				slog.String("error", err.Error()))
			continue
		}
		if err := t.Configure(transform.ParseParams(ref.Params)); err != nil {
			b.logger.Warn("dropping misconfigured transformation row",
				slog.String("transformer", ref.Transformer),
				slog.String("path", rule.Path),
				slog.String("error", err.Error()))
			continue
		}
		e := Entry{Order: ref.Order, Transform: t}
		switch ref.Side {
		case transformapi.SideRequest:
			d.Request = append(d.Request, e)
		case transformapi.SideResponse:
			d.Response = append(d.Response, e)
		default:
			b.logger.Warn("dropping transformation row with invalid side",
				slog.String("transformer", ref.Transformer),
				slog.String("side", string(ref.Side)))
		}
	}
	return d
}
