// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package transform

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/agaheman/ReqRepTransformation/message"
)

// pathPrefixRewrite swaps a leading path prefix.
// Params: from (required), to (required).
type pathPrefixRewrite struct {
	from, to string
}

// Name implements [Transform.Name].
func (t *pathPrefixRewrite) Name() string { return "path-prefix-rewrite" }

// Configure implements [Transform.Configure].
func (t *pathPrefixRewrite) Configure(params Params) error {
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
func (t *pathPrefixRewrite) ShouldApply(msg *message.Buffered) bool {
	return strings.HasPrefix(msg.Address().Path(), t.from)
}

// Apply implements [Buffered.Apply].
func (t *pathPrefixRewrite) Apply(_ context.Context, msg *message.Buffered) error {
	addr := msg.Address()
	addr.SetPath(t.to + strings.TrimPrefix(addr.Path(), t.from))
	return nil
}

// pathRegexRewrite rewrites the path through a regular expression compiled
// once at configuration time. Params: pattern (required), replacement.
type pathRegexRewrite struct {
	re          *regexp.Regexp
	replacement string
}

// Name implements [Transform.Name].
func (t *pathRegexRewrite) Name() string { return "path-regex-rewrite" }

// Configure implements [Transform.Configure].
func (t *pathRegexRewrite) Configure(params Params) error {
	pattern, err := params.RequiredString("pattern")
	if err != nil {
		return err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	t.re = re
	t.replacement = params.String("replacement", "")
	return nil
}

// ShouldApply implements [Buffered.ShouldApply].
func (t *pathRegexRewrite) ShouldApply(msg *message.Buffered) bool {
	return t.re.MatchString(msg.Address().Path())
}

// Apply implements [Buffered.Apply].
func (t *pathRegexRewrite) Apply(_ context.Context, msg *message.Buffered) error {
	addr := msg.Address()
	addr.SetPath(t.re.ReplaceAllString(addr.Path(), t.replacement))
	return nil
}

// addQueryParam sets a query parameter, replacing existing values.
// Params: name (required), value.
type addQueryParam struct {
	name, value string
}

// Name implements [Transform.Name].
func (t *addQueryParam) Name() string { return "add-query-param" }

// Configure implements [Transform.Configure].
func (t *addQueryParam) Configure(params Params) error {
	name, err := params.RequiredString("name")
	if err != nil {
		return err
	}
	t.name = name
	t.value = params.String("value", "")
	return nil
}

// ShouldApply implements [Buffered.ShouldApply].
func (t *addQueryParam) ShouldApply(*message.Buffered) bool { return true }

// Apply implements [Buffered.Apply].
func (t *addQueryParam) Apply(_ context.Context, msg *message.Buffered) error {
	msg.Address().SetQueryParam(t.name, t.value)
	return nil
}

// removeQueryParam removes one or more query parameters.
// Params: name (single key) or names (pipe-delimited list); one is required.
type removeQueryParam struct {
	names []string
}

// Name implements [Transform.Name].
func (t *removeQueryParam) Name() string { return "remove-query-param" }

// Configure implements [Transform.Configure].
func (t *removeQueryParam) Configure(params Params) error {
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
func (t *removeQueryParam) ShouldApply(msg *message.Buffered) bool {
	values := msg.Address().QueryValues()
	for _, name := range t.names {
		if values.Has(name) {
			return true
		}
	}
	return false
}

// Apply implements [Buffered.Apply].
func (t *removeQueryParam) Apply(_ context.Context, msg *message.Buffered) error {
	for _, name := range t.names {
		msg.Address().DelQueryParam(name)
	}
	return nil
}

// hostRewrite redirects the request to a different upstream host.
// Request-side only; the response address is advisory.
// Params: host (required, optionally "host:port"), scheme.
type hostRewrite struct {
	host, scheme string
}

// Name implements [Transform.Name].
func (t *hostRewrite) Name() string { return "host-rewrite" }

// Configure implements [Transform.Configure].
func (t *hostRewrite) Configure(params Params) error {
	host, err := params.RequiredString("host")
	if err != nil {
		return err
	}
	t.host = host
	t.scheme = params.String("scheme", "")
	return nil
}

// ShouldApply implements [Buffered.ShouldApply].
func (t *hostRewrite) ShouldApply(msg *message.Buffered) bool {
	return msg.Side() == message.SideRequest
}

// Apply implements [Buffered.Apply].
func (t *hostRewrite) Apply(_ context.Context, msg *message.Buffered) error {
	addr := msg.Address()
	addr.SetHost(t.host)
	if t.scheme != "" {
		addr.SetScheme(t.scheme)
	}
	return nil
}

// methodOverride replaces the request method, optionally only when the
// current method matches a condition. Params: method (required), when.
type methodOverride struct {
	method, when string
}

// Name implements [Transform.Name].
func (t *methodOverride) Name() string { return "method-override" }

// Configure implements [Transform.Configure].
func (t *methodOverride) Configure(params Params) error {
	method, err := params.RequiredString("method")
	if err != nil {
		return err
	}
	t.method = strings.ToUpper(method)
	t.when = strings.ToUpper(params.String("when", ""))
	return nil
}

// ShouldApply implements [Buffered.ShouldApply].
func (t *methodOverride) ShouldApply(msg *message.Buffered) bool {
	if msg.Side() != message.SideRequest {
		return false
	}
	return t.when == "" || msg.Method() == t.when
}

// Apply implements [Buffered.Apply].
func (t *methodOverride) Apply(_ context.Context, msg *message.Buffered) error {
	msg.SetMethod(t.method)
	return nil
}
