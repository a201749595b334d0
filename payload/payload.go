// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package payload implements the message body model of the transformation
// pipeline. A Payload classifies the body by content type into buffered or
// streaming, parses JSON bodies lazily at most once, renders mutations at
// most once, and hands the final body back to the host exactly once via
// Flush.
package payload

import (
	"bytes"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync/atomic"
)

var (
	jsonContentTypePrefixes = []string{
		"application/json",
		"application/graphql",
		"application/ndjson",
	}
	streamingContentTypePrefixes = []string{
		"application/octet-stream",
		"multipart/",
		"application/grpc",
		"application/protobuf",
		"application/vnd.google.protobuf",
	}
)

// IsJSONContentType returns true for content types whose bodies are parsed
// into a JSON document, e.g. "application/json; charset=utf-8".
func IsJSONContentType(contentType string) bool {
	return matchesPrefix(contentType, jsonContentTypePrefixes)
}

// IsStreamingContentType returns true for content types whose bodies are
// piped through without buffering, e.g. "application/octet-stream" or
// "multipart/form-data".
func IsStreamingContentType(contentType string) bool {
	return matchesPrefix(contentType, streamingContentTypePrefixes)
}

func matchesPrefix(contentType string, prefixes []string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	for _, p := range prefixes {
		if strings.HasPrefix(ct, p) {
			return true
		}
	}
	return false
}

// States of the one-shot load and parse transitions. The words are advanced
// with CompareAndSwap so that exactly one goroutine does the work while
// concurrent readers yield until it is published.
const (
	stateUnstarted int32 = iota
	stateInProgress
	stateDone
)

// Payload is the body of one message. Reads of the body are lazy: nothing is
// drained or parsed until a transform asks for it, and each of those steps
// happens at most once for the lifetime of the payload.
//
// First access is safe for concurrent readers; mutation is single-writer by
// the pipeline contract.
type Payload struct {
	contentType string
	streaming   bool
	jsonable    bool
	hasBody     bool

	// reader is the unread original source. It is consumed at most once,
	// either by buffering or by Flush streaming it through.
	reader io.Reader
	// replaced is a streaming replacement pipe set via [Streaming.Replace].
	replaced io.Reader

	loadState atomic.Int32
	buf       []byte
	loadErr   error
	bufDirty  bool

	parseState   atomic.Int32
	tree         *JSON
	parseErr     error
	jsonReplaced bool

	flushed bool
}

// New returns a payload reading its body from r. A nil r means no body.
func New(r io.Reader, contentType string) *Payload {
	return &Payload{
		contentType: contentType,
		streaming:   IsStreamingContentType(contentType),
		jsonable:    IsJSONContentType(contentType),
		hasBody:     r != nil,
		reader:      r,
	}
}

// NewBytes returns a payload over an already-buffered body.
func NewBytes(b []byte, contentType string) *Payload {
	p := &Payload{
		contentType: contentType,
		streaming:   IsStreamingContentType(contentType),
		jsonable:    IsJSONContentType(contentType),
		hasBody:     len(b) > 0,
		buf:         b,
	}
	p.loadState.Store(stateDone)
	return p
}

// Empty returns a payload with no body, for bodyless messages.
func Empty() *Payload { return NewBytes(nil, "") }

// ContentType returns the content type the payload was constructed with.
func (p *Payload) ContentType() string { return p.contentType }

// HasBody returns true if the payload carries a body.
func (p *Payload) HasBody() bool { return p.hasBody }

// IsJSON returns true if the body is classified as a JSON document.
func (p *Payload) IsJSON() bool { return p.jsonable }

// IsStreaming returns true if the body is classified as streaming.
// A streaming payload can never be buffered or parsed.
func (p *Payload) IsStreaming() bool { return p.streaming }

// Buffered returns the buffered access face of the payload.
func (p *Payload) Buffered() *Buffered { return &Buffered{p: p} }

// Streaming returns the streaming access face of the payload.
func (p *Payload) Streaming() *Streaming { return &Streaming{p: p} }

// loadBytes drains the original reader into the buffer. Exactly one caller
// performs the read; concurrent callers yield until it completes.
func (p *Payload) loadBytes() ([]byte, error) {
	if p.loadState.CompareAndSwap(stateUnstarted, stateInProgress) {
		if p.reader != nil {
			b, err := io.ReadAll(p.reader)
			p.reader = nil
			if err != nil {
				p.loadErr = fmt.Errorf("failed to read body: %w", err)
			} else {
				p.buf = b
			}
		}
		p.loadState.Store(stateDone)
	} else {
		for p.loadState.Load() != stateDone {
			runtime.Gosched()
		}
	}
	return p.buf, p.loadErr
}

// parse builds the JSON document over the buffered bytes. Exactly one caller
// parses; concurrent callers yield until the result is published. An empty
// body and a body replaced via SetBytes both publish a nil document.
func (p *Payload) parse() (*JSON, error) {
	if p.parseState.CompareAndSwap(stateUnstarted, stateInProgress) {
		b, err := p.loadBytes()
		switch {
		case err != nil:
			p.parseErr = err
		case len(b) == 0:
			// No body parses to no document.
		default:
			p.tree, p.parseErr = NewJSON(b)
		}
		p.parseState.Store(stateDone)
	} else {
		for p.parseState.Load() != stateDone {
			runtime.Gosched()
		}
	}
	return p.tree, p.parseErr
}

// Flush finalizes the payload and returns the body the host must send. It is
// terminal: it can be called once, and every accessor fails afterwards.
//
// The body returned is, in order of precedence: a replacement stream, the
// mutated JSON document rendered once, mutated raw bytes, the clean buffered
// bytes verbatim, or the untouched original reader piped through.
func (p *Payload) Flush() (io.Reader, error) {
	if p.flushed {
		return nil, accessErr("Flush", "payload already flushed")
	}
	p.flushed = true
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	if p.replaced != nil {
		return p.replaced, nil
	}
	if p.tree != nil && (p.tree.Dirty() || p.jsonReplaced) {
		return bytes.NewReader(p.tree.Bytes()), nil
	}
	if p.bufDirty || p.loadState.Load() == stateDone {
		return bytes.NewReader(p.buf), nil
	}
	if p.reader != nil {
		return p.reader, nil
	}
	return bytes.NewReader(nil), nil
}

// Buffered is the payload face handed to buffered transforms. It gives full
// access to the body bytes and the JSON document.
type Buffered struct {
	p *Payload
}

// HasBody returns true if the payload carries a body.
func (b *Buffered) HasBody() bool { return b.p.hasBody }

// ContentType returns the payload content type.
func (b *Buffered) ContentType() string { return b.p.contentType }

// IsJSON returns true if the body is classified as a JSON document.
func (b *Buffered) IsJSON() bool { return b.p.jsonable }

// JSON returns the body parsed as a JSON document. The parse happens on the
// first call and the same document pointer is returned on every subsequent
// call. The document is nil without error when the body is empty or the
// bytes were replaced via SetBytes after the classification.
func (b *Buffered) JSON() (*JSON, error) {
	p := b.p
	switch {
	case p.flushed:
		return nil, accessErr("JSON", "payload already flushed")
	case p.streaming:
		return nil, accessErr("JSON", "payload is streaming")
	case !p.jsonable:
		return nil, accessErr("JSON", fmt.Sprintf("content type %q is not json", p.contentType))
	}
	return p.parse()
}

// Bytes returns the buffered body bytes, draining the original reader on the
// first call. The returned slice is the backing store, not a copy.
func (b *Buffered) Bytes() ([]byte, error) {
	p := b.p
	switch {
	case p.flushed:
		return nil, accessErr("Bytes", "payload already flushed")
	case p.streaming:
		return nil, accessErr("Bytes", "payload is streaming")
	case !p.hasBody:
		return nil, nil
	}
	return p.loadBytes()
}

// SetJSON replaces the body with the given document. It will be rendered
// exactly once at Flush.
func (b *Buffered) SetJSON(doc *JSON) error {
	p := b.p
	switch {
	case p.flushed:
		return accessErr("SetJSON", "payload already flushed")
	case p.streaming:
		return accessErr("SetJSON", "payload is streaming")
	}
	p.tree = doc
	p.jsonReplaced = true
	p.hasBody = doc != nil && doc.Len() > 0
	p.parseState.Store(stateDone)
	return nil
}

// SetBytes replaces the body with raw bytes. Any parsed document is
// discarded and the body is not re-parsed: a later JSON call returns a nil
// document.
func (b *Buffered) SetBytes(bs []byte) error {
	p := b.p
	switch {
	case p.flushed:
		return accessErr("SetBytes", "payload already flushed")
	case p.streaming:
		return accessErr("SetBytes", "payload is streaming")
	}
	p.buf = bs
	p.bufDirty = true
	p.hasBody = len(bs) > 0
	p.reader = nil
	p.loadState.Store(stateDone)
	p.tree = nil
	p.jsonReplaced = false
	p.parseState.Store(stateDone)
	return nil
}

// Streaming is the payload face handed to streaming transforms. The body is
// only reachable as a raw pipe; nothing is ever buffered.
type Streaming struct {
	p *Payload
}

// HasBody returns true if the payload carries a body.
func (s *Streaming) HasBody() bool { return s.p.hasBody }

// ContentType returns the payload content type.
func (s *Streaming) ContentType() string { return s.p.contentType }

// Reader returns the current body pipe: the replacement set by the last
// Replace call, or the untouched original. Reading consumes the pipe, so a
// transform that wraps it must hand the wrapper back via Replace.
func (s *Streaming) Reader() (io.Reader, error) {
	p := s.p
	switch {
	case p.flushed:
		return nil, accessErr("Reader", "payload already flushed")
	case !p.streaming:
		return nil, accessErr("Reader", "payload is buffered")
	}
	if p.replaced != nil {
		return p.replaced, nil
	}
	if p.reader != nil {
		return p.reader, nil
	}
	return bytes.NewReader(p.buf), nil
}

// Replace substitutes the body pipe. Flush will return r instead of the
// original reader.
func (s *Streaming) Replace(r io.Reader) error {
	p := s.p
	switch {
	case p.flushed:
		return accessErr("Replace", "payload already flushed")
	case !p.streaming:
		return accessErr("Replace", "payload is buffered")
	}
	p.replaced = r
	p.hasBody = r != nil
	return nil
}
