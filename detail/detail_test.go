// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package detail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agaheman/ReqRepTransformation/transform"
	"github.com/agaheman/ReqRepTransformation/transformapi"
)

func newTransform(t *testing.T, key string) transform.Transform {
	t.Helper()
	tr, err := transform.NewCatalog().New(key)
	require.NoError(t, err)
	return tr
}

func TestDetailIsEmpty(t *testing.T) {
	require.True(t, Empty.IsEmpty())
	require.True(t, (&Detail{Timeout: time.Second}).IsEmpty())
	require.False(t, (&Detail{
		Request: []Entry{{Order: 10, Transform: newTransform(t, "add-header")}},
	}).IsEmpty())
	require.False(t, (&Detail{
		Response: []Entry{{Order: 10, Transform: newTransform(t, "add-header")}},
	}).IsEmpty())
}

func TestDetailEqual(t *testing.T) {
	base := func() *Detail {
		return &Detail{
			Request: []Entry{
				{Order: 10, Transform: newTransform(t, "correlation-id")},
				{Order: 20, Transform: newTransform(t, "add-header")},
			},
			Response: []Entry{
				{Order: 10, Transform: newTransform(t, "gateway-response-tag")},
			},
			Timeout:                time.Second,
			FailureMode:            transformapi.FailureModeContinue,
			HasExplicitFailureMode: true,
		}
	}

	t.Run("same pointer", func(t *testing.T) {
		d := base()
		require.True(t, d.Equal(d))
	})
	t.Run("nil", func(t *testing.T) {
		var null *Detail
		require.True(t, null.Equal(nil))
		require.False(t, null.Equal(base()))
		require.False(t, base().Equal(nil))
	})
	t.Run("structurally equal distinct instances", func(t *testing.T) {
		require.True(t, base().Equal(base()))
	})
	t.Run("order differs", func(t *testing.T) {
		other := base()
		other.Request[1].Order = 30
		require.False(t, base().Equal(other))
	})
	t.Run("transform differs", func(t *testing.T) {
		other := base()
		other.Response[0].Transform = newTransform(t, "remove-header")
		require.False(t, base().Equal(other))
	})
	t.Run("length differs", func(t *testing.T) {
		other := base()
		other.Request = other.Request[:1]
		require.False(t, base().Equal(other))
	})
	t.Run("timeout differs", func(t *testing.T) {
		other := base()
		other.Timeout = 2 * time.Second
		require.False(t, base().Equal(other))
	})
	t.Run("failure mode differs", func(t *testing.T) {
		other := base()
		other.FailureMode = transformapi.FailureModeStopPipeline
		require.False(t, base().Equal(other))
	})
	t.Run("explicit flag differs", func(t *testing.T) {
		other := base()
		other.HasExplicitFailureMode = false
		require.False(t, base().Equal(other))
	})
	t.Run("parallel flag differs", func(t *testing.T) {
		other := base()
		other.AllowParallel = true
		require.False(t, base().Equal(other))
	})
}
