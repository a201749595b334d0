// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package transform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	t.Run("empty input yields empty bag", func(t *testing.T) {
		p := ParseParams("")
		require.Equal(t, "fallback", p.String("x", "fallback"))
	})
	t.Run("invalid json yields empty bag", func(t *testing.T) {
		p := ParseParams(`{"broken":`)
		require.Equal(t, "fallback", p.String("x", "fallback"))
	})
	t.Run("non-object yields empty bag", func(t *testing.T) {
		p := ParseParams(`[1,2,3]`)
		require.Equal(t, "fallback", p.String("x", "fallback"))
	})
}

func TestParamsString(t *testing.T) {
	p := ParseParams(`{"name":"X-Id","empty":""}`)
	require.Equal(t, "X-Id", p.String("name", "def"))
	require.Equal(t, "", p.String("empty", "def"))
	require.Equal(t, "def", p.String("absent", "def"))
}

func TestParamsRequiredString(t *testing.T) {
	p := ParseParams(`{"name":"X-Id","empty":""}`)

	v, err := p.RequiredString("name")
	require.NoError(t, err)
	require.Equal(t, "X-Id", v)

	for _, key := range []string{"absent", "empty"} {
		_, err := p.RequiredString(key)
		var missing *MissingParamError
		require.ErrorAs(t, err, &missing)
		require.Equal(t, key, missing.Key)
	}
}

func TestParamsBool(t *testing.T) {
	p := ParseParams(`{"t":true,"f":false,"ts":"true","fs":"FALSE","junk":"maybe"}`)
	require.True(t, p.Bool("t", false))
	require.False(t, p.Bool("f", true))
	require.True(t, p.Bool("ts", false))
	require.False(t, p.Bool("fs", true))
	require.True(t, p.Bool("junk", true))
	require.False(t, p.Bool("absent", false))
}

func TestParamsInt(t *testing.T) {
	p := ParseParams(`{"n":42,"s":"42"}`)
	require.Equal(t, 42, p.Int("n", 0))
	// Strings are not coerced to ints.
	require.Equal(t, -1, p.Int("s", -1))
	require.Equal(t, 7, p.Int("absent", 7))
}

func TestParamsList(t *testing.T) {
	p := ParseParams(`{"pipe":"a|b| c |","arr":["x","y"],"one":"solo"}`)
	require.Equal(t, []string{"a", "b", "c"}, p.List("pipe"))
	require.Equal(t, []string{"x", "y"}, p.List("arr"))
	require.Equal(t, []string{"solo"}, p.List("one"))
	require.Nil(t, p.List("absent"))
}

func TestParamsPairMap(t *testing.T) {
	p := ParseParams(`{"map":"sub=X-User-Id|email=X-User-Email","junk":"noequals","partial":"a=1|broken|b=2"}`)
	require.Equal(t, map[string]string{"sub": "X-User-Id", "email": "X-User-Email"}, p.PairMap("map"))
	require.Nil(t, p.PairMap("junk"))
	require.Equal(t, map[string]string{"a": "1", "b": "2"}, p.PairMap("partial"))
	require.Nil(t, p.PairMap("absent"))
}

func TestParamsDecode(t *testing.T) {
	type cfg struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	var c cfg
	require.NoError(t, ParseParams(`{"name":"x","count":3}`).Decode(&c))
	require.Equal(t, cfg{Name: "x", Count: 3}, c)

	var empty cfg
	require.NoError(t, ParseParams("").Decode(&empty))
	require.Zero(t, empty)
}
