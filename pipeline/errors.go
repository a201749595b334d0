// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package pipeline

import (
	"fmt"
	"time"

	"github.com/agaheman/ReqRepTransformation/message"
)

// TimeoutError is synthesized by the executor when the per-transform
// deadline fires before the ambient context is canceled.
type TimeoutError struct {
	// Transform is the name of the transform that exceeded the deadline.
	Transform string
	// Side is the pipeline side the transform ran on.
	Side message.Side
	// Timeout is the effective per-transform timeout that fired.
	Timeout time.Duration
}

// Error implements error.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transform %q timed out after %dms", e.Transform, e.Timeout.Milliseconds())
}

// TransformationError is the terminal pipeline failure raised when the
// effective failure mode is StopPipeline. The host maps it to a 502 gateway
// error and must not forward the exchange any further.
type TransformationError struct {
	// Transform is the name of the failing transform.
	Transform string
	// Side is the pipeline side the failure happened on.
	Side message.Side
	// Err is the underlying failure.
	Err error
}

// Error implements error.
func (e *TransformationError) Error() string {
	return fmt.Sprintf("%s transformation failed in %q: %v", e.Side, e.Transform, e.Err)
}

// Unwrap exposes the underlying failure to errors.Is/As.
func (e *TransformationError) Unwrap() error { return e.Err }
