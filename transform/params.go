// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package transform

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Params is the read-only parameter bag a transform is configured from. It
// wraps one opaque JSON object string; invalid JSON yields an empty bag
// rather than an error so that a broken row degrades to "no params".
type Params struct {
	obj gjson.Result
}

// ParseParams builds a bag from a JSON object string. Empty, invalid, or
// non-object input yields an empty bag.
func ParseParams(raw string) Params {
	if raw == "" || !gjson.Valid(raw) {
		return Params{}
	}
	obj := gjson.Parse(raw)
	if !obj.IsObject() {
		return Params{}
	}
	return Params{obj: obj}
}

// MissingParamError is returned by RequiredString when a required key is
// absent. It surfaces at Configure time only; the plan builder logs it and
// drops the row.
type MissingParamError struct {
	// Key is the absent parameter name.
	Key string
}

// Error implements error.
func (e *MissingParamError) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Key)
}

// String returns the value of the given key, or def when absent.
func (p Params) String(key, def string) string {
	v := p.obj.Get(key)
	if !v.Exists() {
		return def
	}
	return v.String()
}

// RequiredString returns the value of the given key, or a *MissingParamError
// when it is absent or empty.
func (p Params) RequiredString(key string) (string, error) {
	v := p.obj.Get(key)
	if !v.Exists() || v.String() == "" {
		return "", &MissingParamError{Key: key}
	}
	return v.String(), nil
}

// Bool returns the value of the given key as a bool. JSON booleans and the
// strings "true"/"false" are accepted; anything else yields def.
func (p Params) Bool(key string, def bool) bool {
	v := p.obj.Get(key)
	switch {
	case !v.Exists():
		return def
	case v.Type == gjson.True:
		return true
	case v.Type == gjson.False:
		return false
	}
	switch strings.ToLower(v.String()) {
	case "true":
		return true
	case "false":
		return false
	}
	return def
}

// Int returns the value of the given key as an int, or def when absent or
// not a number.
func (p Params) Int(key string, def int) int {
	v := p.obj.Get(key)
	if !v.Exists() || v.Type != gjson.Number {
		return def
	}
	return int(v.Int())
}

// List returns the value of the given key as a string list. A JSON array is
// taken element-wise; a plain string is split on "|". Blank elements are
// dropped.
func (p Params) List(key string) []string {
	v := p.obj.Get(key)
	if !v.Exists() {
		return nil
	}
	var parts []string
	if v.IsArray() {
		for _, e := range v.Array() {
			parts = append(parts, e.String())
		}
	} else {
		parts = strings.Split(v.String(), "|")
	}
	var out []string
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// PairMap returns the value of the given key as a map parsed from the
// "k=v|k=v" form. Entries without "=" are dropped.
func (p Params) PairMap(key string) map[string]string {
	pairs := p.List(key)
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Decode unmarshals the whole parameter object into v.
func (p Params) Decode(v any) error {
	if !p.obj.Exists() {
		return nil
	}
	return json.Unmarshal([]byte(p.obj.Raw), v)
}
