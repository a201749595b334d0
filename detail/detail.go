// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package detail resolves incoming messages to transformation plans: which
// transforms run on which side, in which order, under which execution
// policy. Plans are built from route rows, cached per normalized route, and
// shared across every exchange that matches the route.
package detail

import (
	"time"

	"github.com/agaheman/ReqRepTransformation/transform"
	"github.com/agaheman/ReqRepTransformation/transformapi"
)

// Entry is one scheduled transform of a plan.
type Entry struct {
	// Order is the ascending sort key within the side. Entries with equal
	// order run in insertion order.
	Order int
	// Transform is the configured instance, shared by every exchange routed
	// to this plan.
	Transform transform.Transform
}

// Detail is the resolved transformation plan of one route: the per-side
// entry lists plus the execution policy shared by all of them.
type Detail struct {
	// Request and Response are the per-side entries in insertion order; the
	// executor sorts a copy on each run.
	Request  []Entry
	Response []Entry
	// Timeout bounds one transform execution. Zero means the global default.
	Timeout time.Duration
	// FailureMode is the route's failure handling. Only meaningful when
	// HasExplicitFailureMode is true; otherwise the global default applies.
	FailureMode transformapi.FailureMode
	// HasExplicitFailureMode records whether the route named a failure mode.
	// The executor must consult this flag, not the enum value: an unset
	// enum must never be mistaken for a configured mode.
	HasExplicitFailureMode bool
	// AllowParallel fans the entries out concurrently. Safe only for plans
	// whose transforms are order-independent and do not mutate JSON.
	AllowParallel bool
}

// Empty is the pass-through plan: no transforms, global defaults everywhere.
var Empty = &Detail{}

// IsEmpty returns true when the plan schedules no transforms.
func (d *Detail) IsEmpty() bool {
	return len(d.Request) == 0 && len(d.Response) == 0
}

// Equal reports structural equality: same policy and the same (order, name)
// sequence on both sides.
func (d *Detail) Equal(other *Detail) bool {
	if d == other {
		return true
	}
	if d == nil || other == nil {
		return false
	}
	if d.Timeout != other.Timeout ||
		d.FailureMode != other.FailureMode ||
		d.HasExplicitFailureMode != other.HasExplicitFailureMode ||
		d.AllowParallel != other.AllowParallel {
		return false
	}
	return equalEntries(d.Request, other.Request) && equalEntries(d.Response, other.Response)
}

func equalEntries(a, b []Entry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Order != b[i].Order || a[i].Transform.Name() != b[i].Transform.Name() {
			return false
		}
	}
	return true
}
