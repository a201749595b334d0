// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package transform

import (
	"context"

	"github.com/agaheman/ReqRepTransformation/message"
)

// streamAddHeader sets a header on a streaming message without touching the
// body pipe. Params: name (required), value.
type streamAddHeader struct {
	name, value string
}

// Name implements [Transform.Name].
func (t *streamAddHeader) Name() string { return "stream-add-header" }

// Configure implements [Transform.Configure].
func (t *streamAddHeader) Configure(params Params) error {
	name, err := params.RequiredString("name")
	if err != nil {
		return err
	}
	t.name = name
	t.value = params.String("value", "")
	return nil
}

// ShouldApply implements [Streaming.ShouldApply].
func (t *streamAddHeader) ShouldApply(*message.Streaming) bool { return true }

// Apply implements [Streaming.Apply].
func (t *streamAddHeader) Apply(_ context.Context, msg *message.Streaming) error {
	msg.Headers().Set(t.name, t.value)
	return nil
}

// streamRemoveHeader removes headers from a streaming message.
// Params: name (single key) or names (pipe-delimited list); one is required.
type streamRemoveHeader struct {
	names []string
}

// Name implements [Transform.Name].
func (t *streamRemoveHeader) Name() string { return "stream-remove-header" }

// Configure implements [Transform.Configure].
func (t *streamRemoveHeader) Configure(params Params) error {
	if names := params.List("names"); len(names) > 0 {
		t.names = names
		return nil
	}
	name, err := params.RequiredString("name")
	if err != nil {
		return err
	}
	t.names = []string{name}
	return nil
}

// ShouldApply implements [Streaming.ShouldApply].
func (t *streamRemoveHeader) ShouldApply(msg *message.Streaming) bool {
	for _, name := range t.names {
		if msg.Headers().Has(name) {
			return true
		}
	}
	return false
}

// Apply implements [Streaming.Apply].
func (t *streamRemoveHeader) Apply(_ context.Context, msg *message.Streaming) error {
	for _, name := range t.names {
		msg.Headers().Del(name)
	}
	return nil
}

// streamPassthrough does nothing. It marks a streaming route as deliberately
// untransformed so the decision is visible in traces. No params.
type streamPassthrough struct{}

// Name implements [Transform.Name].
func (t *streamPassthrough) Name() string { return "stream-passthrough" }

// Configure implements [Transform.Configure].
func (t *streamPassthrough) Configure(Params) error { return nil }

// ShouldApply implements [Streaming.ShouldApply].
func (t *streamPassthrough) ShouldApply(*message.Streaming) bool { return true }

// Apply implements [Streaming.Apply].
func (t *streamPassthrough) Apply(context.Context, *message.Streaming) error { return nil }
