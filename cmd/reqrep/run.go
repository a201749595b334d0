// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package main

import (
	"context"
	"io"
	"log/slog"
	"strconv"

	"github.com/agaheman/ReqRepTransformation/cmd/reqrep/mainlib"
	"github.com/agaheman/ReqRepTransformation/internal/pprof"
)

// run starts the gateway with the parsed `reqrep run` arguments. It blocks
// until ctx is canceled.
func run(ctx context.Context, c cmdRun, _, stderr io.Writer) error {
	args := []string{
		"-configPath", c.Path,
		"-addr", c.Addr,
		"-backend", c.Backend,
		"-adminPort", strconv.Itoa(c.AdminPort),
	}
	if c.Debug {
		args = append(args, "-logLevel", "debug")
	}
	pprof.Run(ctx, slog.New(slog.NewTextHandler(stderr, nil)))
	return mainlib.Main(ctx, args, stderr)
}
