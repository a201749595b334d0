// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package transformapi provides the configuration for the request/response
// transformation pipeline.
//
// This is a public package so that hosts embedding the pipeline can construct
// and validate configuration without depending on any concrete host framework.
// The on-disk format is a YAML file whose settings live under the
// "ReqRepTransformation" section.
package transformapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"sigs.k8s.io/yaml"
)

// DefaultConfig is the default configuration that can be used as a
// fallback when the configuration is not explicitly provided.
const DefaultConfig = `
ReqRepTransformation:
  defaultTimeout: 5s
  defaultFailureMode: LogAndSkip
`

// File is the on-disk shape of the configuration file. All pipeline settings
// live under the "ReqRepTransformation" section so the file can be shared
// with other gateway components.
type File struct {
	ReqRepTransformation Config `json:"ReqRepTransformation"`
}

// Config is the configuration for the transformation pipeline.
type Config struct {
	// DefaultTimeout bounds a single transform execution when a route does
	// not set its own timeout. Zero means the built-in default of 5s.
	DefaultTimeout Duration `json:"defaultTimeout,omitempty"`
	// DefaultFailureMode is applied to routes that do not name a failure
	// mode. Empty means LogAndSkip.
	DefaultFailureMode FailureMode `json:"defaultFailureMode,omitempty"`
	// RedactedHeaderKeys overrides the header names whose values are masked
	// in logs and trace attributes. Empty means the built-in list.
	RedactedHeaderKeys []string `json:"redactedHeaderKeys,omitempty"`
	// RedactedQueryKeys overrides the query parameter names whose values are
	// masked in logs and trace attributes. Empty means the built-in list.
	RedactedQueryKeys []string `json:"redactedQueryKeys,omitempty"`
	// Routes is the list of routes with their transformation rows.
	Routes []RouteRule `json:"routes,omitempty"`
}

// RouteRule groups the transformation rows of one route together with the
// execution policy shared by every row of the route.
type RouteRule struct {
	// Method is the HTTP method the route matches, or "*" for any method.
	Method string `json:"method"`
	// Path is the normalized path prefix the route matches.
	Path string `json:"path"`
	// Timeout bounds a single transform execution for this route. Optional.
	// Zero means the global default applies.
	Timeout Duration `json:"timeout,omitempty"`
	// FailureMode is the failure handling for this route. Optional. When
	// empty the global default applies; an explicitly named mode always
	// wins over the global default.
	FailureMode FailureMode `json:"failureMode,omitempty"`
	// AllowParallel runs the route's transforms concurrently instead of in
	// order. Only meaningful for order-independent transform sets.
	AllowParallel bool `json:"allowParallel,omitempty"`
	// Transformations is the list of transformation rows of the route.
	Transformations []TransformRef `json:"transformations"`
}

// TransformRef is one transformation row: which catalog transform to run,
// on which side, in which position, with which parameters.
type TransformRef struct {
	// Transformer is the stable catalog key, e.g. "correlation-id".
	Transformer string `json:"transformer"`
	// Side is the pipeline side the transform runs on.
	Side Side `json:"side"`
	// Order is the ascending sort key within the side. Rows with equal
	// order keep their configuration order.
	Order int `json:"order"`
	// Params is a JSON object string passed to the transform at
	// configuration time. Optional.
	Params string `json:"params,omitempty"`
}

// MethodWildcard matches any HTTP method in a route rule. Rules with an
// exact method take precedence over wildcard rules on the same path.
const MethodWildcard = "*"

// Side identifies which half of the exchange a transformation row applies to.
type Side string

const (
	// SideRequest runs the row before the request is forwarded upstream.
	SideRequest Side = "Request"
	// SideResponse runs the row before the response is returned downstream.
	SideResponse Side = "Response"
)

// FailureMode is the failure handling applied when a transform returns an
// error or times out.
type FailureMode string

const (
	// FailureModeStopPipeline aborts the pipeline and surfaces the failure
	// to the host, which maps it to a 502 response.
	FailureModeStopPipeline FailureMode = "StopPipeline"
	// FailureModeContinue records the failure and proceeds with the
	// remaining transforms.
	FailureModeContinue FailureMode = "Continue"
	// FailureModeLogAndSkip logs the failure at warning level and proceeds,
	// treating the transform as skipped.
	FailureModeLogAndSkip FailureMode = "LogAndSkip"
)

// Duration wraps time.Duration so that YAML/JSON configuration can spell
// durations as strings like "250ms" or "5s".
type Duration struct {
	time.Duration
}

// UnmarshalJSON implements [json.Unmarshaler]. It accepts either a duration
// string or a plain number of nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
	case float64:
		d.Duration = time.Duration(value)
	default:
		return fmt.Errorf("invalid duration: %v", v)
	}
	return nil
}

// MarshalJSON implements [json.Marshaler].
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

// Validate checks the configuration for structural problems and returns all
// of them joined together.
func (c *Config) Validate() error {
	var errs []error
	if !validFailureMode(c.DefaultFailureMode, true) {
		errs = append(errs, fmt.Errorf("invalid defaultFailureMode %q", c.DefaultFailureMode))
	}
	for i := range c.Routes {
		r := &c.Routes[i]
		if r.Path == "" {
			errs = append(errs, fmt.Errorf("routes[%d]: path must not be empty", i))
		}
		if r.Method == "" {
			errs = append(errs, fmt.Errorf("routes[%d]: method must not be empty (use \"*\" for any)", i))
		}
		if !validFailureMode(r.FailureMode, true) {
			errs = append(errs, fmt.Errorf("routes[%d]: invalid failureMode %q", i, r.FailureMode))
		}
		for j, ref := range r.Transformations {
			if ref.Transformer == "" {
				errs = append(errs, fmt.Errorf("routes[%d].transformations[%d]: transformer must not be empty", i, j))
			}
			if ref.Side != SideRequest && ref.Side != SideResponse {
				errs = append(errs, fmt.Errorf("routes[%d].transformations[%d]: invalid side %q", i, j, ref.Side))
			}
		}
	}
	return errors.Join(errs...)
}

func validFailureMode(m FailureMode, allowEmpty bool) bool {
	switch m {
	case FailureModeStopPipeline, FailureModeContinue, FailureModeLogAndSkip:
		return true
	case "":
		return allowEmpty
	}
	return false
}

// UnmarshalConfigYaml reads the file at the given path and unmarshals it into
// a Config struct.
func UnmarshalConfigYaml(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if err := f.ReqRepTransformation.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config at %s: %w", path, err)
	}
	return &f.ReqRepTransformation, nil
}

// MustLoadDefaultConfig loads the default configuration.
// This panics if the configuration fails to be loaded.
func MustLoadDefaultConfig() *Config {
	var f File
	if err := yaml.Unmarshal([]byte(DefaultConfig), &f); err != nil {
		panic(err)
	}
	return &f.ReqRepTransformation
}
