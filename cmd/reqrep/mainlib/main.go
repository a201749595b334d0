// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package mainlib wires the transformation pipeline into a runnable gateway:
// flag parsing, logging, telemetry bootstrap, config watching, and the
// gateway and admin HTTP servers.
package mainlib

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"

	"github.com/agaheman/ReqRepTransformation/detail"
	"github.com/agaheman/ReqRepTransformation/httphost"
	"github.com/agaheman/ReqRepTransformation/internal/metrics"
	"github.com/agaheman/ReqRepTransformation/internal/tracing"
	"github.com/agaheman/ReqRepTransformation/internal/version"
	"github.com/agaheman/ReqRepTransformation/pipeline"
	"github.com/agaheman/ReqRepTransformation/transform"
	"github.com/agaheman/ReqRepTransformation/transformapi"
)

const (
	// configWatchInterval is how often the configuration file is polled for
	// changes.
	configWatchInterval = 5 * time.Second
	// planCacheTTL bounds how long a resolved plan can outlive the rows it was
	// built from. Config reloads invalidate the cache immediately, so the TTL
	// only matters for row sources that change without a reload.
	planCacheTTL = 5 * time.Minute
)

// gatewayFlags is the struct that holds the flags passed to the gateway.
type gatewayFlags struct {
	configPath string     // path to the configuration file.
	addr       string     // listen address for the gateway server.
	backend    *url.URL   // base URL of the upstream backend.
	adminPort  int        // HTTP port for the admin server (metrics and health).
	logLevel   slog.Level // log level for the gateway.
}

// parseAndValidateFlags parses and validates the flags passed to the gateway.
func parseAndValidateFlags(args []string) (gatewayFlags, error) {
	var (
		flags gatewayFlags
		errs  []error
		fs    = flag.NewFlagSet("ReqRep Transformation Gateway", flag.ContinueOnError)
	)

	fs.StringVar(&flags.configPath,
		"configPath",
		"",
		"path to the configuration file. The file must be in YAML format specified in transformapi.Config type. "+
			"The configuration file is watched for changes.",
	)
	fs.StringVar(&flags.addr,
		"addr",
		":8080",
		"listen address for the gateway server. For example, :8080 or 127.0.0.1:8080.",
	)
	backendPtr := fs.String(
		"backend",
		"",
		"base URL of the upstream backend requests are forwarded to. For example, http://localhost:9000.",
	)
	logLevelPtr := fs.String(
		"logLevel",
		"info",
		"log level for the gateway. One of 'debug', 'info', 'warn', or 'error'.",
	)
	fs.IntVar(&flags.adminPort, "adminPort", 9090, "HTTP port for the admin server (serves /metrics and /health endpoints).")

	if err := fs.Parse(args); err != nil {
		return gatewayFlags{}, fmt.Errorf("failed to parse gatewayFlags: %w", err)
	}

	if flags.configPath == "" {
		errs = append(errs, fmt.Errorf("configPath must be provided"))
	}
	if *backendPtr == "" {
		errs = append(errs, fmt.Errorf("backend must be provided"))
	} else if u, err := url.Parse(*backendPtr); err != nil {
		errs = append(errs, fmt.Errorf("failed to parse backend URL: %w", err))
	} else if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend must be an absolute http or https URL, got %q", *backendPtr))
	} else {
		flags.backend = u
	}
	if err := flags.logLevel.UnmarshalText([]byte(*logLevelPtr)); err != nil {
		errs = append(errs, fmt.Errorf("failed to unmarshal log level: %w", err))
	}

	return flags, errors.Join(errs...)
}

// configSource bridges the config watcher to the plan provider. It holds the
// most recently loaded configuration, serves its route rules to the caching
// provider, and drops the provider's cache whenever a new configuration
// arrives so the next resolution per route sees the new rows.
type configSource struct {
	logger   *slog.Logger
	provider *detail.CachingProvider

	mu  sync.RWMutex
	cfg *transformapi.Config
}

func newConfigSource(logger *slog.Logger) *configSource {
	return &configSource{logger: logger}
}

// bindProvider attaches the provider whose cache is invalidated on reloads.
// Must be called before the config watcher starts.
func (s *configSource) bindProvider(p *detail.CachingProvider) { s.provider = p }

// LoadConfig implements [transformapi.ConfigReceiver.LoadConfig].
func (s *configSource) LoadConfig(_ context.Context, cfg *transformapi.Config) error {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	if s.provider != nil {
		s.provider.Invalidate()
	}
	s.logger.Info("loaded configuration", slog.Int("routes", len(cfg.Routes)))
	return nil
}

// Rows implements [detail.RowSource.Rows].
func (s *configSource) Rows(context.Context) ([]transformapi.RouteRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg == nil {
		return nil, nil
	}
	return s.cfg.Routes, nil
}

// config returns the most recently loaded configuration.
func (s *configSource) config() *transformapi.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Main is the gateway entry point, exposed for allowing users to embed the
// gateway in their own binaries.
//
//   - ctx is the context for the gateway. Cancellation begins a graceful shutdown.
//   - args are the command line arguments passed to the gateway without the program name.
//   - stderr is the writer to use for standard error where the gateway will output logs.
//
// This returns an error if the gateway fails to start, or nil otherwise. When
// the `ctx` is canceled, the function will return nil.
func Main(ctx context.Context, args []string, stderr io.Writer) (err error) {
	defer func() {
		// Don't err the caller about normal shutdown scenarios.
		if errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}()
	flags, err := parseAndValidateFlags(args)
	if err != nil {
		return fmt.Errorf("failed to parse and validate gatewayFlags: %w", err)
	}

	l := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: flags.logLevel}))

	l.Info("starting gateway",
		slog.String("version", version.Version),
		slog.String("address", flags.addr),
		slog.String("backend", flags.backend.String()),
		slog.String("configPath", flags.configPath),
	)

	gatewayLis, err := listen(ctx, "gateway server", "tcp", flags.addr)
	if err != nil {
		return err
	}
	adminLis, err := listen(ctx, "admin server", "tcp", fmt.Sprintf(":%d", flags.adminPort))
	if err != nil {
		return err
	}

	// Create Prometheus registry and reader which automatically converts
	// attributes to Prometheus-compatible format (e.g. dots to underscores).
	promRegistry := prometheus.NewRegistry()
	promReader, err := otelprom.New(otelprom.WithRegisterer(promRegistry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus reader: %w", err)
	}

	// Create meter with Prometheus + optionally OTEL.
	meter, metricsShutdown, err := metrics.NewMetricsFromEnv(ctx, os.Stdout, promReader)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	tracing, err := tracing.NewTracingFromEnv(ctx, os.Stdout)
	if err != nil {
		return err
	}

	builder := detail.NewBuilder(transform.NewCatalog(), l)
	src := newConfigSource(l)
	provider := detail.NewCachingProvider(src, builder, planCacheTTL, false)
	src.bindProvider(provider)

	// The watcher performs the initial load synchronously, so the
	// configuration is available below. A missing file loads the defaults and
	// the gateway starts as a pass-through.
	if err = transformapi.StartConfigWatcher(ctx, flags.configPath, src, l, configWatchInterval); err != nil {
		return fmt.Errorf("failed to start config watcher: %w", err)
	}

	exec := pipeline.NewExecutor(l, pipeline.OptionsFromConfig(src.config()), tracing.Tracer(), meter)
	handler, err := httphost.NewHandler(httphost.Config{
		Logger:   l,
		Provider: provider,
		Executor: exec,
		Upstream: flags.backend,
	})
	if err != nil {
		return fmt.Errorf("failed to create gateway handler: %w", err)
	}

	gatewayServer := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	// Start HTTP admin server for metrics and health checks.
	adminServer := startAdminServer(adminLis, l, promRegistry, dialCheck(gatewayLis.Addr()))

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := gatewayServer.Shutdown(shutdownCtx); err != nil {
			l.Error("Failed to shutdown gateway server gracefully", "error", err)
		}
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			l.Error("Failed to shutdown admin server gracefully", "error", err)
		}
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			l.Error("Failed to shutdown tracing gracefully", "error", err)
		}
		if err := metricsShutdown(shutdownCtx); err != nil {
			l.Error("Failed to shutdown metrics gracefully", "error", err)
		}
	}()

	// Emit startup message to stderr when all listeners are ready.
	l.Info("ReqRep transformation gateway is ready")
	err = gatewayServer.Serve(gatewayLis)
	if ctx.Err() != nil {
		// Serve returns as soon as Shutdown is called. Wait for the drain and
		// the telemetry flush before handing control back.
		<-shutdownDone
	}
	return err
}

func listen(ctx context.Context, name, network, address string) (net.Listener, error) {
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for %s: %w", name, err)
	}
	return lis, nil
}
