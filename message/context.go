// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package message

import (
	"strings"

	"github.com/agaheman/ReqRepTransformation/payload"
)

// Side identifies the half of the exchange a message belongs to. The values
// double as telemetry attribute values.
type Side string

const (
	// SideRequest is the client-to-upstream half.
	SideRequest Side = "request"
	// SideResponse is the upstream-to-client half.
	SideResponse Side = "response"
)

// Context is the host-neutral description of one message. The host builds
// one per side and hands it to the pipeline; transforms only ever see it
// through the Buffered or Streaming view.
type Context struct {
	side    Side
	method  string
	status  int
	addr    *Address
	headers Headers
	payload *payload.Payload
}

// NewRequest builds the request-side context. The address is retained, so
// address mutations propagate to the host's outbound URL.
func NewRequest(method string, addr *Address, headers Headers, p *payload.Payload) *Context {
	if headers == nil {
		headers = NewHeaders()
	}
	if p == nil {
		p = payload.Empty()
	}
	return &Context{
		side:    SideRequest,
		method:  strings.ToUpper(method),
		addr:    addr,
		headers: headers,
		payload: p,
	}
}

// NewResponse builds the response-side context. The address should be a
// detached copy of the request target: the request has already been sent, so
// response-side address mutation is advisory.
func NewResponse(status int, addr *Address, headers Headers, p *payload.Payload) *Context {
	if headers == nil {
		headers = NewHeaders()
	}
	if p == nil {
		p = payload.Empty()
	}
	return &Context{
		side:    SideResponse,
		status:  status,
		addr:    addr,
		headers: headers,
		payload: p,
	}
}

// Side returns which half of the exchange this message is.
func (c *Context) Side() Side { return c.side }

// Method returns the request method. Empty on the response side.
func (c *Context) Method() string { return c.method }

// StatusCode returns the upstream status code on the response side, 0 on
// the request side.
func (c *Context) StatusCode() int { return c.status }

// Address returns the message address. Never nil after construction with a
// non-nil address.
func (c *Context) Address() *Address { return c.addr }

// Headers returns the message headers.
func (c *Context) Headers() Headers { return c.headers }

// Payload returns the message payload. Never nil.
func (c *Context) Payload() *payload.Payload { return c.payload }

// Buffered returns the full-access view used by buffered transforms.
func (c *Context) Buffered() *Buffered { return &Buffered{c: c, body: c.payload.Buffered()} }

// Streaming returns the restricted view used by streaming transforms.
func (c *Context) Streaming() *Streaming { return &Streaming{c: c, body: c.payload.Streaming()} }

// Buffered is the view of a message handed to buffered transforms: headers,
// address, method, and full body access.
type Buffered struct {
	c    *Context
	body *payload.Buffered
}

// Side returns which half of the exchange this message is.
func (b *Buffered) Side() Side { return b.c.side }

// Method returns the request method. Empty on the response side.
func (b *Buffered) Method() string { return b.c.method }

// SetMethod overrides the request method. On the response side this is a
// no-op: the request has already been sent.
func (b *Buffered) SetMethod(method string) {
	if b.c.side == SideResponse {
		return
	}
	b.c.method = strings.ToUpper(method)
}

// StatusCode returns the upstream status code on the response side, 0 on
// the request side.
func (b *Buffered) StatusCode() int { return b.c.status }

// Address returns the message address.
func (b *Buffered) Address() *Address { return b.c.addr }

// Headers returns the message headers.
func (b *Buffered) Headers() Headers { return b.c.headers }

// Body returns the buffered body face.
func (b *Buffered) Body() *payload.Buffered { return b.body }

// Streaming is the view of a message handed to streaming transforms. The
// body is only reachable as a raw pipe and the method cannot be changed.
type Streaming struct {
	c    *Context
	body *payload.Streaming
}

// Side returns which half of the exchange this message is.
func (s *Streaming) Side() Side { return s.c.side }

// Method returns the request method. Empty on the response side.
func (s *Streaming) Method() string { return s.c.method }

// StatusCode returns the upstream status code on the response side, 0 on
// the request side.
func (s *Streaming) StatusCode() int { return s.c.status }

// Address returns the message address.
func (s *Streaming) Address() *Address { return s.c.addr }

// Headers returns the message headers.
func (s *Streaming) Headers() Headers { return s.c.headers }

// Body returns the streaming body face.
func (s *Streaming) Body() *payload.Streaming { return s.body }
