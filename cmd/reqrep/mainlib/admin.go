// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package mainlib

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// dialCheck returns a health probe that reports whether the given address
// currently accepts TCP connections.
func dialCheck(addr net.Addr) func(context.Context) error {
	return func(ctx context.Context) error {
		var d net.Dialer
		conn, err := d.DialContext(ctx, addr.Network(), addr.String())
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

// startAdminServer starts an HTTP admin server on the provided listener for
// serving Prometheus metrics and health checks. It exposes two endpoints:
//   - /metrics: Serves Prometheus metrics using the provided registry.
//   - /health: Runs the given probe, which tracks the gateway listener
//     rather than just the admin server itself.
//
// The server returned is running in a goroutine.
func startAdminServer(lis net.Listener, logger *slog.Logger, registry prometheus.Gatherer, health func(context.Context) error) *http.Server {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(
		registry,
		promhttp.HandlerOpts{},
	))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()

		if err := health(ctx); err != nil {
			http.Error(w, fmt.Sprintf("health check failed: %v", err), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK\n"))
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("starting admin server", "address", lis.Addr())
		if err := server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Admin server failed", "error", err)
		}
	}()

	return server
}
