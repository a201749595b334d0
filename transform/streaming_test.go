// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package transform

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agaheman/ReqRepTransformation/message"
	"github.com/agaheman/ReqRepTransformation/payload"
)

// newStreamingRequest builds a streaming request view over an octet-stream
// body.
func newStreamingRequest(t *testing.T, body io.Reader) (*message.Streaming, *payload.Payload) {
	t.Helper()
	addr, err := message.ParseAddress("http://b/upload")
	require.NoError(t, err)
	p := payload.New(body, "application/octet-stream")
	return message.NewRequest("POST", addr, message.NewHeaders(), p).Streaming(), p
}

func TestStreamAddHeader(t *testing.T) {
	tr := mustConfigureStreaming(t, "stream-add-header", `{"name":"X-Stream","value":"on"}`)
	msg, _ := newStreamingRequest(t, nil)
	require.True(t, tr.ShouldApply(msg))
	require.NoError(t, tr.Apply(context.Background(), msg))
	require.Equal(t, "on", msg.Headers().Get("X-Stream"))
}

func TestStreamRemoveHeader(t *testing.T) {
	tr := mustConfigureStreaming(t, "stream-remove-header", `{"names":"X-A|X-B"}`)
	msg, _ := newStreamingRequest(t, nil)
	msg.Headers().Set("X-A", "1")
	require.True(t, tr.ShouldApply(msg))
	require.NoError(t, tr.Apply(context.Background(), msg))
	require.False(t, msg.Headers().Has("X-A"))

	require.False(t, tr.ShouldApply(msg), "nothing left to remove")
}

func TestStreamPassthrough_neverTouchesThePipe(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	tr := mustConfigureStreaming(t, "stream-passthrough", "")
	msg, p := newStreamingRequest(t, pr)
	require.True(t, tr.ShouldApply(msg))
	// Apply must return without reading: the writer side is idle, so any
	// read would block forever.
	require.NoError(t, tr.Apply(context.Background(), msg))

	out, err := p.Flush()
	require.NoError(t, err)
	require.Equal(t, io.Reader(pr), out, "the original pipe flows through untouched")
}
