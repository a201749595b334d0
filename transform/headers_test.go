// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package transform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddHeader(t *testing.T) {
	tr := mustConfigure(t, "add-header", `{"name":"X-Env","value":"prod"}`)
	msg := newRequest(t, "GET", "http://b/", nil, "")
	msg.Headers().Set("X-Env", "stale")
	require.True(t, apply(t, tr, msg))
	require.Equal(t, []string{"prod"}, msg.Headers().Values("X-Env"))
}

func TestAddHeader_requiresName(t *testing.T) {
	tr, err := NewCatalog().New("add-header")
	require.NoError(t, err)
	err = tr.Configure(ParseParams(`{"value":"prod"}`))
	var missing *MissingParamError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "name", missing.Key)
}

func TestAppendHeader(t *testing.T) {
	tr := mustConfigure(t, "append-header", `{"name":"Via","value":"gateway"}`)
	msg := newRequest(t, "GET", "http://b/", nil, "")
	msg.Headers().Add("Via", "lb")
	require.True(t, apply(t, tr, msg))
	require.Equal(t, []string{"lb", "gateway"}, msg.Headers().Values("Via"))
}

func TestRemoveHeader(t *testing.T) {
	t.Run("single name", func(t *testing.T) {
		tr := mustConfigure(t, "remove-header", `{"name":"X-Debug"}`)
		msg := newRequest(t, "GET", "http://b/", nil, "")
		msg.Headers().Set("X-Debug", "1")
		require.True(t, apply(t, tr, msg))
		require.False(t, msg.Headers().Has("X-Debug"))
	})
	t.Run("name list", func(t *testing.T) {
		tr := mustConfigure(t, "remove-header", `{"names":"X-A|X-B"}`)
		msg := newRequest(t, "GET", "http://b/", nil, "")
		msg.Headers().Set("X-A", "1")
		msg.Headers().Set("X-B", "2")
		msg.Headers().Set("X-C", "3")
		require.True(t, apply(t, tr, msg))
		require.False(t, msg.Headers().Has("X-A"))
		require.False(t, msg.Headers().Has("X-B"))
		require.True(t, msg.Headers().Has("X-C"))
	})
	t.Run("skips when absent", func(t *testing.T) {
		tr := mustConfigure(t, "remove-header", `{"name":"X-Debug"}`)
		msg := newRequest(t, "GET", "http://b/", nil, "")
		require.False(t, apply(t, tr, msg))
	})
}

func TestRenameHeader(t *testing.T) {
	tr := mustConfigure(t, "rename-header", `{"from":"X-Old","to":"X-New"}`)

	t.Run("moves all values and replaces the target", func(t *testing.T) {
		msg := newRequest(t, "GET", "http://b/", nil, "")
		msg.Headers().Add("X-Old", "1")
		msg.Headers().Add("X-Old", "2")
		msg.Headers().Set("X-New", "stale")
		require.True(t, apply(t, tr, msg))
		require.False(t, msg.Headers().Has("X-Old"))
		require.Equal(t, []string{"1", "2"}, msg.Headers().Values("X-New"))
	})
	t.Run("skips when source absent", func(t *testing.T) {
		msg := newRequest(t, "GET", "http://b/", nil, "")
		require.False(t, apply(t, tr, msg))
	})
}

func TestCorrelationID(t *testing.T) {
	tr := mustConfigure(t, "correlation-id", "")

	t.Run("assigns a 32-hex id", func(t *testing.T) {
		msg := newRequest(t, "GET", "http://b/", nil, "")
		require.True(t, apply(t, tr, msg))
		id := msg.Headers().Get("X-Correlation-Id")
		require.Regexp(t, "^[0-9a-f]{32}$", id)
	})
	t.Run("propagates an existing id untouched", func(t *testing.T) {
		msg := newRequest(t, "GET", "http://b/", nil, "")
		msg.Headers().Set("X-Correlation-Id", "caller-supplied")
		require.False(t, apply(t, tr, msg))
		require.Equal(t, "caller-supplied", msg.Headers().Get("X-Correlation-Id"))
	})
	t.Run("custom header name", func(t *testing.T) {
		tr := mustConfigure(t, "correlation-id", `{"headerName":"X-Trace"}`)
		msg := newRequest(t, "GET", "http://b/", nil, "")
		require.True(t, apply(t, tr, msg))
		require.Regexp(t, "^[0-9a-f]{32}$", msg.Headers().Get("X-Trace"))
	})
}

func TestRequestID_overwritesInbound(t *testing.T) {
	tr := mustConfigure(t, "request-id", "")
	msg := newRequest(t, "GET", "http://b/", nil, "")
	msg.Headers().Set("X-Request-Id", "spoofed")
	require.True(t, apply(t, tr, msg))
	id := msg.Headers().Get("X-Request-Id")
	require.NotEqual(t, "spoofed", id)
	require.Regexp(t, "^[0-9a-f]{32}$", id)
}

func TestStripAuthorization(t *testing.T) {
	tr := mustConfigure(t, "strip-authorization", "")

	msg := newRequest(t, "GET", "http://b/", nil, "")
	msg.Headers().Set("Authorization", "Bearer secret")
	require.True(t, apply(t, tr, msg))
	require.False(t, msg.Headers().Has("Authorization"))

	require.False(t, apply(t, tr, msg), "nothing left to strip")
}

func TestRemoveInternalResponseHeaders(t *testing.T) {
	tr := mustConfigure(t, "remove-internal-response-headers", `{"additional":"X-Custom-Internal"}`)

	t.Run("strips the default set and additions", func(t *testing.T) {
		msg := newResponse(t, 200, nil, "")
		for _, h := range []string{
			"X-Internal-Token", "X-Backend-Version", "X-Upstream-Address",
			"Server", "X-Powered-By", "X-AspNet-Version", "X-AspNetMvc-Version",
			"X-Custom-Internal",
		} {
			msg.Headers().Set(h, "leak")
		}
		msg.Headers().Set("Content-Type", "application/json")
		require.True(t, apply(t, tr, msg))
		require.Equal(t, []string{"Content-Type"}, msg.Headers().Keys())
	})
	t.Run("request side is skipped", func(t *testing.T) {
		msg := newRequest(t, "GET", "http://b/", nil, "")
		msg.Headers().Set("Server", "kept")
		require.False(t, apply(t, tr, msg))
		require.True(t, msg.Headers().Has("Server"))
	})
}

func TestGatewayResponseTag(t *testing.T) {
	tr := mustConfigure(t, "gateway-response-tag", `{"version":"1.2.3"}`)

	msg := newResponse(t, 200, nil, "")
	require.True(t, apply(t, tr, msg))
	require.Equal(t, "1.2.3", msg.Headers().Get("X-Gateway-Version"))
	require.Equal(t, "ReqRepTransformation", msg.Headers().Get("X-Processed-By"))

	req := newRequest(t, "GET", "http://b/", nil, "")
	require.False(t, apply(t, tr, req))
}
