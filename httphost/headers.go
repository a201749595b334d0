// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package httphost

import (
	"net/http"
	"sort"

	"github.com/agaheman/ReqRepTransformation/message"
)

// httpHeaders adapts http.Header to the pipeline's header view in place:
// transform mutations write straight through to the native container, so the
// host never has to copy headers back after a pipeline run.
type httpHeaders struct {
	h http.Header
}

func newHTTPHeaders(h http.Header) message.Headers { return httpHeaders{h: h} }

// Get implements [message.Headers.Get].
func (w httpHeaders) Get(key string) string { return w.h.Get(key) }

// Values implements [message.Headers.Values].
func (w httpHeaders) Values(key string) []string { return w.h.Values(key) }

// Set implements [message.Headers.Set].
func (w httpHeaders) Set(key, value string) { w.h.Set(key, value) }

// Add implements [message.Headers.Add].
func (w httpHeaders) Add(key, value string) { w.h.Add(key, value) }

// Del implements [message.Headers.Del].
func (w httpHeaders) Del(key string) { w.h.Del(key) }

// Has implements [message.Headers.Has].
func (w httpHeaders) Has(key string) bool { return len(w.h.Values(key)) > 0 }

// Keys implements [message.Headers.Keys].
func (w httpHeaders) Keys() []string {
	keys := make([]string, 0, len(w.h))
	for k := range w.h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
