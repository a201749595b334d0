// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package pipeline

import (
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/agaheman/ReqRepTransformation/message"
	"github.com/agaheman/ReqRepTransformation/transformapi"
)

// Redacted replaces every value whose key appears in a redacted-keys set
// before the value reaches a log record or span attribute.
const Redacted = "***REDACTED***"

var (
	defaultRedactedHeaderKeys = []string{
		"Authorization",
		"Cookie",
		"Set-Cookie",
		"X-Api-Key",
		"X-Client-Secret",
		"X-Api-Secret",
		"X-Internal-Token",
	}
	defaultRedactedQueryKeys = []string{
		"access_token",
		"api_key",
		"token",
		"secret",
	}
)

// Options is the process-wide execution policy. It is bound once at startup
// and shared by every exchange; per-route settings in the plan override the
// defaults per execution.
type Options struct {
	// DefaultTimeout bounds one transform execution when the plan does not
	// set its own timeout.
	DefaultTimeout time.Duration
	// DefaultFailureMode applies when the plan has no explicit failure mode.
	DefaultFailureMode transformapi.FailureMode
	// RedactedHeaderKeys are the header names whose values are masked in
	// logs and trace attributes. Matching is case-insensitive.
	RedactedHeaderKeys []string
	// RedactedQueryKeys are the query parameter names whose values are
	// masked in logs and trace attributes. Matching is case-insensitive.
	RedactedQueryKeys []string
}

// DefaultOptions returns the built-in policy: 5s timeout, LogAndSkip, and
// the default redaction sets.
func DefaultOptions() Options {
	return Options{
		DefaultTimeout:     5 * time.Second,
		DefaultFailureMode: transformapi.FailureModeLogAndSkip,
		RedactedHeaderKeys: slices.Clone(defaultRedactedHeaderKeys),
		RedactedQueryKeys:  slices.Clone(defaultRedactedQueryKeys),
	}
}

// OptionsFromConfig overlays the configuration on top of the defaults.
// Unset fields keep their built-in values.
func OptionsFromConfig(c *transformapi.Config) Options {
	o := DefaultOptions()
	if c == nil {
		return o
	}
	if c.DefaultTimeout.Duration > 0 {
		o.DefaultTimeout = c.DefaultTimeout.Duration
	}
	if c.DefaultFailureMode != "" {
		o.DefaultFailureMode = c.DefaultFailureMode
	}
	if len(c.RedactedHeaderKeys) > 0 {
		o.RedactedHeaderKeys = slices.Clone(c.RedactedHeaderKeys)
	}
	if len(c.RedactedQueryKeys) > 0 {
		o.RedactedQueryKeys = slices.Clone(c.RedactedQueryKeys)
	}
	return o
}

// RedactHeader returns the value to log for the given header: the original
// value, or the redaction mask when the key is in the redacted set.
func (o Options) RedactHeader(key, value string) string {
	if containsFold(o.RedactedHeaderKeys, key) {
		return Redacted
	}
	return value
}

// RedactQueryValues returns a copy of the query values with every redacted
// key's values masked. The input is not modified.
func (o Options) RedactQueryValues(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for key, vs := range values {
		if containsFold(o.RedactedQueryKeys, key) {
			out[key] = []string{Redacted}
			continue
		}
		out[key] = slices.Clone(vs)
	}
	return out
}

// RedactURL renders the address for logging with redacted query values.
func (o Options) RedactURL(addr *message.Address) string {
	if addr == nil {
		return ""
	}
	u := *addr.URL()
	u.RawQuery = o.RedactQueryValues(u.Query()).Encode()
	return u.String()
}

func containsFold(keys []string, key string) bool {
	for _, k := range keys {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}
