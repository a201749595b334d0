// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package httphost adapts the transformation pipeline to net/http: an
// http.Handler that resolves the route plan, runs the request-side pipeline,
// forwards to the upstream, runs the response-side pipeline, and relays the
// result. Transformation failures that abort a pipeline surface to the client
// as 502 responses; everything else passes through.
package httphost

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/agaheman/ReqRepTransformation/detail"
	"github.com/agaheman/ReqRepTransformation/message"
	"github.com/agaheman/ReqRepTransformation/payload"
	"github.com/agaheman/ReqRepTransformation/pipeline"
)

// Config wires a Handler.
type Config struct {
	// Logger receives host logs. Defaults to slog.Default().
	Logger *slog.Logger
	// Provider resolves the transformation plan for each request.
	Provider detail.Provider
	// Executor runs resolved plans.
	Executor *pipeline.Executor
	// Upstream supplies the scheme and host requests are forwarded to; path
	// and query come from the (possibly rewritten) inbound request.
	Upstream *url.URL
	// Client performs upstream requests. Defaults to a client that does not
	// follow redirects, so 3xx responses relay to the caller unchanged.
	Client *http.Client
	// ServeOriginalOnResponseFailure serves the captured upstream body when a
	// response-side transformation aborts the pipeline, instead of a 502.
	ServeOriginalOnResponseFailure bool
}

// Handler is the net/http host adapter for the transformation pipeline.
type Handler struct {
	logger       *slog.Logger
	provider     detail.Provider
	exec         *pipeline.Executor
	upstream     *url.URL
	client       *http.Client
	serveOnError bool
}

// NewHandler validates cfg and builds the handler.
func NewHandler(cfg Config) (*Handler, error) {
	switch {
	case cfg.Provider == nil:
		return nil, errors.New("httphost: Provider is required")
	case cfg.Executor == nil:
		return nil, errors.New("httphost: Executor is required")
	case cfg.Upstream == nil:
		return nil, errors.New("httphost: Upstream is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		}
	}
	return &Handler{
		logger:       logger,
		provider:     cfg.Provider,
		exec:         cfg.Executor,
		upstream:     cfg.Upstream,
		client:       client,
		serveOnError: cfg.ServeOriginalOnResponseFailure,
	}, nil
}

// ServeHTTP implements [http.Handler].
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	opts := h.exec.Options()

	// The outbound URL starts as upstream scheme+host with the inbound path
	// and query. The address wraps it directly, so request-side transforms
	// rewrite the real target.
	outURL := &url.URL{
		Scheme:   h.upstream.Scheme,
		Host:     h.upstream.Host,
		Path:     r.URL.Path,
		RawPath:  r.URL.RawPath,
		RawQuery: r.URL.RawQuery,
	}
	addr := message.NewAddress(outURL)
	msg := message.NewRequest(r.Method, addr, newHTTPHeaders(r.Header), requestPayload(r))

	h.logger.Debug("handling request",
		slog.String("method", r.Method),
		slog.String("url", opts.RedactURL(addr)),
	)

	plan, err := h.provider.DetailFor(ctx, msg)
	if err != nil {
		h.logger.Warn("route plan unavailable, passing request through",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		plan = detail.Empty
	}

	if err := h.exec.RunRequest(ctx, plan, msg); err != nil {
		var tfErr *pipeline.TransformationError
		if errors.As(err, &tfErr) {
			h.writeGatewayError(w, tfErr)
			return
		}
		// Ambient cancellation: the client is gone, there is nobody to answer.
		return
	}

	out, err := h.buildUpstreamRequest(r, msg)
	if err != nil {
		h.logger.Error("failed to build upstream request", slog.String("error", err.Error()))
		http.Error(w, "invalid upstream request", http.StatusBadGateway)
		return
	}

	resp, err := h.client.Do(out)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		h.logger.Error("upstream request failed",
			slog.String("url", opts.RedactURL(message.NewAddress(out.URL))),
			slog.String("error", err.Error()),
		)
		http.Error(w, "upstream request failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	h.relayResponse(w, r, resp, plan, msg)
}

// buildUpstreamRequest turns the transformed request message back into an
// outbound http.Request.
func (h *Handler) buildUpstreamRequest(r *http.Request, msg *message.Context) (*http.Request, error) {
	body, err := msg.Payload().Flush()
	if err != nil {
		return nil, fmt.Errorf("failed to flush request body: %w", err)
	}

	out, err := http.NewRequestWithContext(r.Context(), msg.Method(), msg.Address().URL().String(), body)
	if err != nil {
		return nil, err
	}

	switch b := body.(type) {
	case *bytes.Reader:
		out.ContentLength = int64(b.Len())
	default:
		if body == io.Reader(r.Body) {
			// Untouched client stream, keep the client's framing.
			out.ContentLength = r.ContentLength
		} else {
			out.ContentLength = -1
		}
	}

	// Transforms mutated r.Header in place through the live adapter.
	out.Header = r.Header.Clone()
	removeHopByHopHeaders(out.Header)
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		prior := out.Header.Values("X-Forwarded-For")
		out.Header.Set("X-Forwarded-For", strings.Join(append(prior, ip), ", "))
	}
	return out, nil
}

// relayResponse runs the response-side pipeline over the upstream response
// and writes the result to the client.
func (h *Handler) relayResponse(w http.ResponseWriter, r *http.Request, resp *http.Response, plan *detail.Detail, reqMsg *message.Context) {
	ctx := r.Context()
	respCT := resp.Header.Get("Content-Type")

	// Buffered response transforms need the whole body up front. Streaming
	// content types and plans with no response side relay the stream as-is.
	var (
		respPayload *payload.Payload
		captured    []byte
	)
	if len(plan.Response) > 0 && !payload.IsStreamingContentType(respCT) {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			h.logger.Error("failed to read upstream response", slog.String("error", err.Error()))
			http.Error(w, "upstream response unreadable", http.StatusBadGateway)
			return
		}
		decoded, wasEncoded, err := decodeBody(raw, resp.Header.Get("Content-Encoding"))
		if err != nil {
			h.logger.Warn("failed to decode upstream response, transforming raw bytes",
				slog.String("error", err.Error()))
			decoded, wasEncoded = raw, false
		}
		if wasEncoded {
			resp.Header.Del("Content-Encoding")
			resp.Header.Del("Content-Length")
		}
		captured = decoded
		respPayload = payload.NewBytes(decoded, respCT)
	} else {
		respPayload = payload.New(resp.Body, respCT)
	}

	copyHeader(w.Header(), resp.Header)
	removeHopByHopHeaders(w.Header())

	respMsg := message.NewResponse(resp.StatusCode, reqMsg.Address().Clone(), newHTTPHeaders(w.Header()), respPayload)

	if err := h.exec.RunResponse(ctx, plan, respMsg); err != nil {
		var tfErr *pipeline.TransformationError
		if !errors.As(err, &tfErr) {
			// Ambient cancellation.
			return
		}
		if h.serveOnError && captured != nil {
			h.logger.Warn("serving original upstream response after transformation failure",
				slog.String("transform", tfErr.Transform),
				slog.String("error", tfErr.Error()),
			)
			w.Header().Set("Content-Length", strconv.Itoa(len(captured)))
			w.WriteHeader(resp.StatusCode)
			_, _ = w.Write(captured)
			return
		}
		h.writeGatewayError(w, tfErr)
		return
	}

	flushed, err := respMsg.Payload().Flush()
	if err != nil {
		h.logger.Error("failed to flush response body", slog.String("error", err.Error()))
		clear(w.Header())
		http.Error(w, "failed to render response body", http.StatusBadGateway)
		return
	}

	switch b := flushed.(type) {
	case *bytes.Reader:
		w.Header().Set("Content-Length", strconv.Itoa(b.Len()))
	default:
		if flushed != io.Reader(resp.Body) {
			// Replaced stream of unknown length.
			w.Header().Del("Content-Length")
		}
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, flushed); err != nil {
		h.logger.Debug("failed to relay response body", slog.String("error", err.Error()))
	}
}

// writeGatewayError reports an aborted pipeline to the client. The body
// format is part of the host contract and carries no upstream information.
func (h *Handler) writeGatewayError(w http.ResponseWriter, tfErr *pipeline.TransformationError) {
	clear(w.Header())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusBadGateway)
	fmt.Fprintf(w, "Gateway error: %s transformation failed in '%s'.", tfErr.Side, tfErr.Transform)
}

// requestPayload wraps the inbound body. Bodiless requests get the shared
// empty payload so HasBody gates stay accurate.
func requestPayload(r *http.Request) *payload.Payload {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return payload.Empty()
	}
	return payload.New(r.Body, r.Header.Get("Content-Type"))
}

// Hop-by-hop headers per RFC 9110 section 7.6.1. They describe the connection
// to the gateway, not the end-to-end exchange, and must not be forwarded.
var hopByHopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func removeHopByHopHeaders(h http.Header) {
	for _, f := range h["Connection"] {
		for _, name := range strings.Split(f, ",") {
			if name = textproto.TrimString(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
}

func copyHeader(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}
