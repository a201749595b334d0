// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package transform

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/agaheman/ReqRepTransformation/internal/version"
	"github.com/agaheman/ReqRepTransformation/message"
)

// newHexID returns a fresh 32-character lowercase hex identifier, a UUID
// with the dashes removed.
func newHexID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// addHeader sets a header to a fixed value, replacing existing values.
// Params: name (required), value.
type addHeader struct {
	name, value string
}

// Name implements [Transform.Name].
func (t *addHeader) Name() string { return "add-header" }

// Configure implements [Transform.Configure].
func (t *addHeader) Configure(params Params) error {
	name, err := params.RequiredString("name")
	if err != nil {
		return err
	}
	t.name = name
	t.value = params.String("value", "")
	return nil
}

// ShouldApply implements [Buffered.ShouldApply].
func (t *addHeader) ShouldApply(*message.Buffered) bool { return true }

// Apply implements [Buffered.Apply].
func (t *addHeader) Apply(_ context.Context, msg *message.Buffered) error {
	msg.Headers().Set(t.name, t.value)
	return nil
}

// appendHeader appends a value to a header, keeping existing values.
// Params: name (required), value.
type appendHeader struct {
	name, value string
}

// Name implements [Transform.Name].
func (t *appendHeader) Name() string { return "append-header" }

// Configure implements [Transform.Configure].
func (t *appendHeader) Configure(params Params) error {
	name, err := params.RequiredString("name")
	if err != nil {
		return err
	}
	t.name = name
	t.value = params.String("value", "")
	return nil
}

// ShouldApply implements [Buffered.ShouldApply].
func (t *appendHeader) ShouldApply(*message.Buffered) bool { return true }

// Apply implements [Buffered.Apply].
func (t *appendHeader) Apply(_ context.Context, msg *message.Buffered) error {
	msg.Headers().Add(t.name, t.value)
	return nil
}

// removeHeader removes one or more headers.
// Params: name (single key) or names (pipe-delimited list); one is required.
type removeHeader struct {
	names []string
}

// Name implements [Transform.Name].
func (t *removeHeader) Name() string { return "remove-header" }

// Configure implements [Transform.Configure].
func (t *removeHeader) Configure(params Params) error {
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

// ShouldApply implements [Buffered.ShouldApply].
func (t *removeHeader) ShouldApply(msg *message.Buffered) bool {
	for _, name := range t.names {
		if msg.Headers().Has(name) {
			return true
		}
	}
	return false
}

// Apply implements [Buffered.Apply].
func (t *removeHeader) Apply(_ context.Context, msg *message.Buffered) error {
	for _, name := range t.names {
		msg.Headers().Del(name)
	}
	return nil
}

// renameHeader moves all values of one header to another name, replacing
// whatever the target held. Params: from (required), to (required).
type renameHeader struct {
	from, to string
}

// Name implements [Transform.Name].
func (t *renameHeader) Name() string { return "rename-header" }

// Configure implements [Transform.Configure].
func (t *renameHeader) Configure(params Params) error {
	from, err := params.RequiredString("from")
	if err != nil {
		return err
	}
	to, err := params.RequiredString("to")
	if err != nil {
		return err
	}
	t.from, t.to = from, to
	return nil
}

// ShouldApply implements [Buffered.ShouldApply].
func (t *renameHeader) ShouldApply(msg *message.Buffered) bool {
	return msg.Headers().Has(t.from)
}

// Apply implements [Buffered.Apply].
func (t *renameHeader) Apply(_ context.Context, msg *message.Buffered) error {
	h := msg.Headers()
	values := h.Values(t.from)
	h.Del(t.from)
	h.Del(t.to)
	for _, v := range values {
		h.Add(t.to, v)
	}
	return nil
}

// correlationID assigns a correlation identifier unless the caller already
// sent one. Params: headerName (default X-Correlation-Id).
type correlationID struct {
	headerName string
}

// Name implements [Transform.Name].
func (t *correlationID) Name() string { return "correlation-id" }

// Configure implements [Transform.Configure].
func (t *correlationID) Configure(params Params) error {
	t.headerName = params.String("headerName", "X-Correlation-Id")
	return nil
}

// ShouldApply implements [Buffered.ShouldApply]. An existing correlation id
// is propagated untouched.
func (t *correlationID) ShouldApply(msg *message.Buffered) bool {
	return !msg.Headers().Has(t.headerName)
}

// Apply implements [Buffered.Apply].
func (t *correlationID) Apply(_ context.Context, msg *message.Buffered) error {
	msg.Headers().Set(t.headerName, newHexID())
	return nil
}

// requestID stamps a fresh per-hop request identifier, overwriting any
// inbound value. Params: headerName (default X-Request-Id).
type requestID struct {
	headerName string
}

// Name implements [Transform.Name].
func (t *requestID) Name() string { return "request-id" }

// Configure implements [Transform.Configure].
func (t *requestID) Configure(params Params) error {
	t.headerName = params.String("headerName", "X-Request-Id")
	return nil
}

// ShouldApply implements [Buffered.ShouldApply].
func (t *requestID) ShouldApply(*message.Buffered) bool { return true }

// Apply implements [Buffered.Apply].
func (t *requestID) Apply(_ context.Context, msg *message.Buffered) error {
	msg.Headers().Set(t.headerName, newHexID())
	return nil
}

// stripAuthorization removes the Authorization header before the request
// leaves the gateway. No params.
type stripAuthorization struct{}

// Name implements [Transform.Name].
func (t *stripAuthorization) Name() string { return "strip-authorization" }

// Configure implements [Transform.Configure].
func (t *stripAuthorization) Configure(Params) error { return nil }

// ShouldApply implements [Buffered.ShouldApply].
func (t *stripAuthorization) ShouldApply(msg *message.Buffered) bool {
	return msg.Headers().Has("Authorization")
}

// Apply implements [Buffered.Apply].
func (t *stripAuthorization) Apply(_ context.Context, msg *message.Buffered) error {
	msg.Headers().Del("Authorization")
	return nil
}

// internalResponseHeaders are backend implementation details that must not
// leak to clients.
var internalResponseHeaders = []string{
	"X-Internal-Token",
	"X-Backend-Version",
	"X-Upstream-Address",
	"Server",
	"X-Powered-By",
	"X-AspNet-Version",
	"X-AspNetMvc-Version",
}

// removeInternalResponseHeaders strips backend-internal headers from the
// response. Params: additional (pipe-delimited list appended to the default
// set).
type removeInternalResponseHeaders struct {
	names []string
}

// Name implements [Transform.Name].
func (t *removeInternalResponseHeaders) Name() string { return "remove-internal-response-headers" }

// Configure implements [Transform.Configure].
func (t *removeInternalResponseHeaders) Configure(params Params) error {
	t.names = append(t.names, internalResponseHeaders...)
	t.names = append(t.names, params.List("additional")...)
	return nil
}

// ShouldApply implements [Buffered.ShouldApply].
func (t *removeInternalResponseHeaders) ShouldApply(msg *message.Buffered) bool {
	return msg.Side() == message.SideResponse
}

// Apply implements [Buffered.Apply].
func (t *removeInternalResponseHeaders) Apply(_ context.Context, msg *message.Buffered) error {
	for _, name := range t.names {
		msg.Headers().Del(name)
	}
	return nil
}

// gatewayResponseTag marks responses as having passed through the gateway.
// Params: version (default: the build version), processedBy (default
// "ReqRepTransformation").
type gatewayResponseTag struct {
	version, processedBy string
}

// Name implements [Transform.Name].
func (t *gatewayResponseTag) Name() string { return "gateway-response-tag" }

// Configure implements [Transform.Configure].
func (t *gatewayResponseTag) Configure(params Params) error {
	t.version = params.String("version", version.Version)
	t.processedBy = params.String("processedBy", "ReqRepTransformation")
	return nil
}

// ShouldApply implements [Buffered.ShouldApply].
func (t *gatewayResponseTag) ShouldApply(msg *message.Buffered) bool {
	return msg.Side() == message.SideResponse
}

// Apply implements [Buffered.Apply].
func (t *gatewayResponseTag) Apply(_ context.Context, msg *message.Buffered) error {
	msg.Headers().Set("X-Gateway-Version", t.version)
	msg.Headers().Set("X-Processed-By", t.processedBy)
	return nil
}
