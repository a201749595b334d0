// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package payload

import "fmt"

// AccessError is returned when a payload accessor is used against the
// payload's classification or lifecycle, e.g. JSON access on a non-JSON
// body, buffered access on a streaming body, or any access after Flush.
type AccessError struct {
	// Op is the accessor that was misused, e.g. "Bytes".
	Op string
	// Reason says why the access is invalid.
	Reason string
}

// Error implements error.
func (e *AccessError) Error() string {
	return fmt.Sprintf("payload access violation: %s: %s", e.Op, e.Reason)
}

func accessErr(op, reason string) *AccessError {
	return &AccessError{Op: op, Reason: reason}
}
