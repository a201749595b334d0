// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package message defines the host-neutral view of one HTTP exchange that
// transforms operate on: the message context with its side, method, address,
// headers, and payload.
package message

import (
	"net/textproto"
	"sort"
)

// Headers is the case-insensitive multi-value header collection of a message.
// Host adapters back it with their native header type; NewHeaders returns a
// standalone implementation for tests and framework-less hosts.
type Headers interface {
	// Get returns the first value for the given key, or "".
	Get(key string) string
	// Values returns all values for the given key in insertion order.
	Values(key string) []string
	// Set replaces all values for the given key.
	Set(key, value string)
	// Add appends a value to the given key.
	Add(key, value string)
	// Del removes all values for the given key.
	Del(key string)
	// Has returns true if the key is present.
	Has(key string) bool
	// Keys returns the canonical key set in sorted order.
	Keys() []string
}

type mapHeaders map[string][]string

// NewHeaders returns an empty map-backed Headers implementation.
func NewHeaders() Headers { return mapHeaders{} }

// NewHeadersFromMap returns a map-backed Headers pre-populated from raw.
// Keys are canonicalized; empty keys are dropped.
func NewHeadersFromMap(raw map[string][]string) Headers {
	h := mapHeaders{}
	for k, vs := range raw {
		if k == "" {
			continue
		}
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	return h
}

func canonical(key string) string { return textproto.CanonicalMIMEHeaderKey(key) }

// Get implements [Headers.Get].
func (h mapHeaders) Get(key string) string {
	if vs := h[canonical(key)]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Values implements [Headers.Values].
func (h mapHeaders) Values(key string) []string { return h[canonical(key)] }

// Set implements [Headers.Set].
func (h mapHeaders) Set(key, value string) { h[canonical(key)] = []string{value} }

// Add implements [Headers.Add].
func (h mapHeaders) Add(key, value string) {
	ck := canonical(key)
	h[ck] = append(h[ck], value)
}

// Del implements [Headers.Del].
func (h mapHeaders) Del(key string) { delete(h, canonical(key)) }

// Has implements [Headers.Has].
func (h mapHeaders) Has(key string) bool {
	_, ok := h[canonical(key)]
	return ok
}

// Keys implements [Headers.Keys].
func (h mapHeaders) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
