// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package payload

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// JSON is a parsed JSON document backed by its raw bytes. Reads go through
// gjson and mutations through sjson, so the byte layout of untouched parts of
// the document is preserved as-is.
//
// A JSON is not safe for concurrent mutation; the pipeline runs transforms
// over one document sequentially.
type JSON struct {
	raw   []byte
	dirty bool
}

// NewJSON parses raw into a JSON document. The bytes are retained, not
// copied, so callers must not modify raw afterwards.
func NewJSON(raw []byte) (*JSON, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("invalid json document")
	}
	return &JSON{raw: raw}, nil
}

// Get returns the value at the given gjson path.
func (j *JSON) Get(path string) gjson.Result {
	return gjson.GetBytes(j.raw, path)
}

// Exists returns true if a value exists at the given path.
func (j *JSON) Exists(path string) bool {
	return j.Get(path).Exists()
}

// Set sets the value at the given path, creating intermediate objects as
// needed, and marks the document dirty.
func (j *JSON) Set(path string, value any) error {
	raw, err := sjson.SetBytesOptions(j.raw, path, value, &sjson.Options{ReplaceInPlace: true})
	if err != nil {
		return fmt.Errorf("failed to set field %s: %w", path, err)
	}
	j.raw = raw
	j.dirty = true
	return nil
}

// SetRaw sets a pre-encoded JSON value (object, array, number, quoted
// string, ...) at the given path and marks the document dirty.
func (j *JSON) SetRaw(path string, value []byte) error {
	raw, err := sjson.SetRawBytesOptions(j.raw, path, value, &sjson.Options{ReplaceInPlace: true})
	if err != nil {
		return fmt.Errorf("failed to set field %s: %w", path, err)
	}
	j.raw = raw
	j.dirty = true
	return nil
}

// Delete removes the value at the given path. Deleting a path that does not
// exist is a no-op.
func (j *JSON) Delete(path string) error {
	raw, err := sjson.DeleteBytes(j.raw, path)
	if err != nil {
		return fmt.Errorf("failed to remove field %s: %w", path, err)
	}
	j.raw = raw
	j.dirty = true
	return nil
}

// Rename moves the value at oldPath to newPath. If oldPath does not exist,
// the document is left untouched.
func (j *JSON) Rename(oldPath, newPath string) error {
	v := j.Get(oldPath)
	if !v.Exists() {
		return nil
	}
	if err := j.SetRaw(newPath, []byte(v.Raw)); err != nil {
		return err
	}
	return j.Delete(oldPath)
}

// Bytes returns the current raw document. The returned slice is the backing
// store, not a copy.
func (j *JSON) Bytes() []byte { return j.raw }

// Len returns the length of the raw document in bytes.
func (j *JSON) Len() int { return len(j.raw) }

// Dirty returns true if the document has been mutated since it was parsed.
func (j *JSON) Dirty() bool { return j.dirty }
