// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package transformapi

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUnmarshalConfigYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ReqRepTransformation:
  defaultTimeout: 2s
  defaultFailureMode: Continue
  redactedHeaderKeys: [Authorization, X-Api-Key]
  redactedQueryKeys: [token]
  routes:
    - method: POST
      path: /api/orders
      timeout: 250ms
      failureMode: StopPipeline
      transformations:
        - transformer: correlation-id
          side: Request
          order: 10
          params: '{"headerName":"X-Correlation-Id"}'
        - transformer: remove-internal-response-headers
          side: Response
          order: 10
    - method: "*"
      path: /api
      allowParallel: true
      transformations:
        - transformer: request-id
          side: Request
          order: 20
`), 0o600))
	cfg, err := UnmarshalConfigYaml(path)
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, cfg.DefaultTimeout.Duration)
	require.Equal(t, FailureModeContinue, cfg.DefaultFailureMode)
	require.Equal(t, []string{"Authorization", "X-Api-Key"}, cfg.RedactedHeaderKeys)
	require.Equal(t, []string{"token"}, cfg.RedactedQueryKeys)
	require.Len(t, cfg.Routes, 2)

	orders := cfg.Routes[0]
	require.Equal(t, "POST", orders.Method)
	require.Equal(t, "/api/orders", orders.Path)
	require.Equal(t, 250*time.Millisecond, orders.Timeout.Duration)
	require.Equal(t, FailureModeStopPipeline, orders.FailureMode)
	require.False(t, orders.AllowParallel)
	require.Len(t, orders.Transformations, 2)
	require.Equal(t, "correlation-id", orders.Transformations[0].Transformer)
	require.Equal(t, SideRequest, orders.Transformations[0].Side)
	require.Equal(t, 10, orders.Transformations[0].Order)
	require.JSONEq(t, `{"headerName":"X-Correlation-Id"}`, orders.Transformations[0].Params)

	wildcard := cfg.Routes[1]
	require.Equal(t, "*", wildcard.Method)
	require.True(t, wildcard.AllowParallel)
	// Unset policy fields inherit the globals at execution time.
	require.Zero(t, wildcard.Timeout.Duration)
	require.Empty(t, wildcard.FailureMode)
}

func TestUnmarshalConfigYaml_errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := UnmarshalConfigYaml(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
		_, err := UnmarshalConfigYaml(path)
		require.Error(t, err)
	})
	t.Run("invalid config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
ReqRepTransformation:
  routes:
    - method: GET
      path: /x
      transformations:
        - transformer: add-header
          side: Sideways
          order: 10
`), 0o600))
		_, err := UnmarshalConfigYaml(path)
		require.ErrorContains(t, err, `invalid side "Sideways"`)
	})
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	require.Equal(t, 5*time.Second, cfg.DefaultTimeout.Duration)
	require.Equal(t, FailureModeLogAndSkip, cfg.DefaultFailureMode)
	require.Empty(t, cfg.Routes)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		expErr string
	}{
		{
			name: "ok",
			cfg: Config{
				DefaultFailureMode: FailureModeLogAndSkip,
				Routes: []RouteRule{
					{Method: "GET", Path: "/x", Transformations: []TransformRef{
						{Transformer: "add-header", Side: SideRequest, Order: 10},
					}},
				},
			},
		},
		{
			name:   "bad default failure mode",
			cfg:    Config{DefaultFailureMode: "Explode"},
			expErr: `invalid defaultFailureMode "Explode"`,
		},
		{
			name:   "empty path",
			cfg:    Config{Routes: []RouteRule{{Method: "GET"}}},
			expErr: "routes[0]: path must not be empty",
		},
		{
			name:   "empty method",
			cfg:    Config{Routes: []RouteRule{{Path: "/x"}}},
			expErr: "routes[0]: method must not be empty",
		},
		{
			name: "empty transformer",
			cfg: Config{Routes: []RouteRule{
				{Method: "GET", Path: "/x", Transformations: []TransformRef{{Side: SideRequest}}},
			}},
			expErr: "routes[0].transformations[0]: transformer must not be empty",
		},
		{
			name: "bad route failure mode",
			cfg: Config{Routes: []RouteRule{
				{Method: "GET", Path: "/x", FailureMode: "Retry"},
			}},
			expErr: `routes[0]: invalid failureMode "Retry"`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.expErr == "" {
				require.NoError(t, err)
			} else {
				require.ErrorContains(t, err, tc.expErr)
			}
		})
	}
}

func TestDurationJSON(t *testing.T) {
	t.Run("string", func(t *testing.T) {
		var d Duration
		require.NoError(t, d.UnmarshalJSON([]byte(`"1500ms"`)))
		require.Equal(t, 1500*time.Millisecond, d.Duration)
	})
	t.Run("number is nanoseconds", func(t *testing.T) {
		var d Duration
		require.NoError(t, d.UnmarshalJSON([]byte(`1000000`)))
		require.Equal(t, time.Millisecond, d.Duration)
	})
	t.Run("invalid", func(t *testing.T) {
		var d Duration
		require.Error(t, d.UnmarshalJSON([]byte(`"soon"`)))
		require.Error(t, d.UnmarshalJSON([]byte(`true`)))
	})
	t.Run("round trip", func(t *testing.T) {
		b, err := Duration{Duration: 5 * time.Second}.MarshalJSON()
		require.NoError(t, err)
		require.Equal(t, `"5s"`, string(b))
	})
}
