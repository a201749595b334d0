// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package transform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPathPrefixRewrite(t *testing.T) {
	tr := mustConfigure(t, "path-prefix-rewrite", `{"from":"/api/products","to":"/catalog"}`)

	t.Run("rewrites a matching prefix", func(t *testing.T) {
		msg := newRequest(t, "GET", "http://b/api/products/42?x=1", nil, "")
		require.True(t, apply(t, tr, msg))
		require.Equal(t, "/catalog/42", msg.Address().Path())
		require.Equal(t, "1", msg.Address().Query("x"))
	})
	t.Run("skips a non-matching path", func(t *testing.T) {
		msg := newRequest(t, "GET", "http://b/api/orders", nil, "")
		require.False(t, apply(t, tr, msg))
		require.Equal(t, "/api/orders", msg.Address().Path())
	})
}

func TestPathRegexRewrite(t *testing.T) {
	t.Run("rewrites with capture groups", func(t *testing.T) {
		tr := mustConfigure(t, "path-regex-rewrite", `{"pattern":"^/v([0-9]+)/(.*)$","replacement":"/api/v$1/$2"}`)
		msg := newRequest(t, "GET", "http://b/v2/orders", nil, "")
		require.True(t, apply(t, tr, msg))
		require.Equal(t, "/api/v2/orders", msg.Address().Path())
	})
	t.Run("skips when the pattern does not match", func(t *testing.T) {
		tr := mustConfigure(t, "path-regex-rewrite", `{"pattern":"^/legacy/","replacement":"/"}`)
		msg := newRequest(t, "GET", "http://b/current/x", nil, "")
		require.False(t, apply(t, tr, msg))
	})
	t.Run("bad pattern fails at configure time", func(t *testing.T) {
		tr, err := NewCatalog().New("path-regex-rewrite")
		require.NoError(t, err)
		require.ErrorContains(t, tr.Configure(ParseParams(`{"pattern":"["}`)), "invalid pattern")
	})
}

func TestAddQueryParam(t *testing.T) {
	tr := mustConfigure(t, "add-query-param", `{"name":"version","value":"2"}`)
	msg := newRequest(t, "GET", "http://b/api?version=1&keep=x", nil, "")
	require.True(t, apply(t, tr, msg))
	require.Equal(t, "2", msg.Address().Query("version"))
	require.Equal(t, "x", msg.Address().Query("keep"))
}

func TestRemoveQueryParam(t *testing.T) {
	t.Run("removes listed params", func(t *testing.T) {
		tr := mustConfigure(t, "remove-query-param", `{"names":"token|secret"}`)
		msg := newRequest(t, "GET", "http://b/api?token=a&secret=b&keep=c", nil, "")
		require.True(t, apply(t, tr, msg))
		require.Equal(t, "keep=c", msg.Address().URL().RawQuery)
	})
	t.Run("skips when none present", func(t *testing.T) {
		tr := mustConfigure(t, "remove-query-param", `{"name":"token"}`)
		msg := newRequest(t, "GET", "http://b/api?keep=c", nil, "")
		require.False(t, apply(t, tr, msg))
	})
}

func TestHostRewrite(t *testing.T) {
	tr := mustConfigure(t, "host-rewrite", `{"host":"internal:9000","scheme":"https"}`)

	t.Run("rewrites the request target", func(t *testing.T) {
		msg := newRequest(t, "GET", "http://public.example.com/api", nil, "")
		require.True(t, apply(t, tr, msg))
		require.Equal(t, "https://internal:9000/api", msg.Address().String())
	})
	t.Run("response side is skipped", func(t *testing.T) {
		msg := newResponse(t, 200, nil, "")
		require.False(t, apply(t, tr, msg))
	})
}

func TestMethodOverride(t *testing.T) {
	t.Run("unconditional", func(t *testing.T) {
		tr := mustConfigure(t, "method-override", `{"method":"put"}`)
		msg := newRequest(t, "POST", "http://b/", nil, "")
		require.True(t, apply(t, tr, msg))
		require.Equal(t, "PUT", msg.Method())
	})
	t.Run("conditional on current method", func(t *testing.T) {
		tr := mustConfigure(t, "method-override", `{"method":"PUT","when":"PATCH"}`)
		msg := newRequest(t, "POST", "http://b/", nil, "")
		require.False(t, apply(t, tr, msg))
		require.Equal(t, "POST", msg.Method())

		patched := newRequest(t, "PATCH", "http://b/", nil, "")
		require.True(t, apply(t, tr, patched))
		require.Equal(t, "PUT", patched.Method())
	})
	t.Run("response side is skipped", func(t *testing.T) {
		tr := mustConfigure(t, "method-override", `{"method":"PUT"}`)
		msg := newResponse(t, 200, nil, "")
		require.False(t, apply(t, tr, msg))
	})
}
