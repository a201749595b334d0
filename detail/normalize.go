// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package detail

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// NormalizePath collapses volatile path segments so that all instances of a
// parameterized route share one cache key. Segments parsing as a 64-bit
// integer or as a UUID become "{id}"; everything else is kept verbatim.
func NormalizePath(path string) string {
	if !strings.Contains(path, "/") {
		return path
	}
	segments := strings.Split(path, "/")
	changed := false
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if isIDSegment(seg) {
			segments[i] = "{id}"
			changed = true
		}
	}
	if !changed {
		return path
	}
	return strings.Join(segments, "/")
}

func isIDSegment(seg string) bool {
	if _, err := strconv.ParseInt(seg, 10, 64); err == nil {
		return true
	}
	_, err := uuid.Parse(seg)
	return err == nil
}

// CacheKey is the plan cache key of one method and path.
func CacheKey(method, path string) string {
	return strings.ToUpper(method) + ":" + NormalizePath(path)
}
