// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package transform defines the transform contract and the built-in catalog.
//
// A transform is configured once from a parameter bag and is immutable
// afterwards, so one instance can be shared by every exchange routed to the
// same plan. Transforms come in two disjoint families: buffered transforms
// see the full message including the body, streaming transforms see headers
// and address only. The split is enforced at compile time by the two view
// types, so a streaming transform cannot even name the body accessors.
package transform

import (
	"context"
	"fmt"
	"sort"

	"github.com/agaheman/ReqRepTransformation/message"
)

// Transform is the contract shared by both families.
type Transform interface {
	// Name returns the stable catalog key, e.g. "correlation-id".
	Name() string
	// Configure consumes the parameter bag. It is called exactly once,
	// before the transform is ever applied, and must capture everything the
	// transform needs; Apply must not reach for per-request mutable state.
	Configure(params Params) error
}

// Buffered is a transform over the full message view.
type Buffered interface {
	Transform
	// ShouldApply reports whether Apply should run for this message. It must
	// be synchronous and must not touch the body.
	ShouldApply(msg *message.Buffered) bool
	// Apply performs the mutation.
	Apply(ctx context.Context, msg *message.Buffered) error
}

// Streaming is a transform over the restricted streaming view.
type Streaming interface {
	Transform
	// ShouldApply reports whether Apply should run for this message.
	ShouldApply(msg *message.Streaming) bool
	// Apply performs the mutation. The built-in streaming transforms never
	// block; a custom one that consumes the pipe must hand a replacement
	// back via the body face.
	Apply(ctx context.Context, msg *message.Streaming) error
}

// Factory builds a fresh, unconfigured transform instance.
type Factory func() Transform

// Registry maps catalog keys to transform factories. Lookups return a fresh
// instance per call so that each route row gets its own configured transform.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds a factory under the given catalog key, replacing any
// previous registration.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// New returns a fresh instance of the named transform.
func (r *Registry) New(name string) (Transform, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown transformer %q", name)
	}
	return f(), nil
}

// Names returns the registered catalog keys in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewCatalog returns a registry pre-loaded with every built-in transform.
func NewCatalog() *Registry {
	r := NewRegistry()
	for name, f := range builtins {
		r.Register(name, f)
	}
	return r
}

var builtins = map[string]Factory{
	"add-header":                       func() Transform { return &addHeader{} },
	"append-header":                    func() Transform { return &appendHeader{} },
	"remove-header":                    func() Transform { return &removeHeader{} },
	"rename-header":                    func() Transform { return &renameHeader{} },
	"correlation-id":                   func() Transform { return &correlationID{} },
	"request-id":                       func() Transform { return &requestID{} },
	"strip-authorization":              func() Transform { return &stripAuthorization{} },
	"remove-internal-response-headers": func() Transform { return &removeInternalResponseHeaders{} },
	"gateway-response-tag":             func() Transform { return &gatewayResponseTag{} },
	"path-prefix-rewrite":              func() Transform { return &pathPrefixRewrite{} },
	"path-regex-rewrite":               func() Transform { return &pathRegexRewrite{} },
	"add-query-param":                  func() Transform { return &addQueryParam{} },
	"remove-query-param":               func() Transform { return &removeQueryParam{} },
	"host-rewrite":                     func() Transform { return &hostRewrite{} },
	"method-override":                  func() Transform { return &methodOverride{} },
	"json-field-add":                   func() Transform { return &jsonFieldAdd{} },
	"json-field-remove":                func() Transform { return &jsonFieldRemove{} },
	"json-field-rename":                func() Transform { return &jsonFieldRename{} },
	"json-path-set":                    func() Transform { return &jsonPathSet{} },
	"gateway-metadata":                 func() Transform { return &gatewayMetadata{} },
	"jwt-forward":                      func() Transform { return &jwtForward{} },
	"jwt-claims-extract":               func() Transform { return &jwtClaimsExtract{} },
	"stream-add-header":                func() Transform { return &streamAddHeader{} },
	"stream-remove-header":             func() Transform { return &streamRemoveHeader{} },
	"stream-passthrough":               func() Transform { return &streamPassthrough{} },
}
