// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package httphost

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// decodeBody decompresses a captured body according to its Content-Encoding.
// It returns the decoded bytes and whether decoding took place; unrecognized
// encodings pass through untouched so the host never corrupts an upstream
// response it cannot interpret.
func decodeBody(body []byte, contentEncoding string) ([]byte, bool, error) {
	switch contentEncoding {
	case "gzip":
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, false, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		decoded, err := io.ReadAll(zr)
		if err != nil {
			return nil, false, fmt.Errorf("failed to decode gzip body: %w", err)
		}
		return decoded, true, nil
	case "br":
		decoded, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, false, fmt.Errorf("failed to decode brotli body: %w", err)
		}
		return decoded, true, nil
	default:
		return body, false, nil
	}
}
