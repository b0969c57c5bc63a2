// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"log/slog"

	"github.com/bureau-foundation/portrelay/lib/endpoint"
)

// ResolveRemote runs the resolvers in order and returns the first
// endpoint one of them produces. Each failure is logged as a
// ResolutionFailure and the next resolver is tried; if all fail, or
// once ctx is done, the fallback is returned. It never fails, so the
// relay always binds: an unreachable fallback shows up later as
// per-connection dial failures.
func ResolveRemote(ctx context.Context, logger *slog.Logger, fallback endpoint.Endpoint, resolvers ...endpoint.Named) endpoint.Endpoint {
	if logger == nil {
		logger = slog.Default()
	}
	for _, named := range resolvers {
		if err := ctx.Err(); err != nil {
			logger.Warn("remote endpoint resolution cancelled",
				"strategy", named.Name,
				"error", err,
			)
			break
		}
		resolved, err := named.Resolver.Resolve(ctx)
		if err == nil {
			logger.Info("remote endpoint resolved",
				"strategy", named.Name,
				"remote_addr", resolved.String(),
			)
			return resolved
		}
		logger.Warn("remote endpoint strategy failed",
			"strategy", named.Name,
			"error", &Error{Kind: ResolutionFailure, Op: "resolve " + named.Name, Err: err},
		)
	}
	logger.Warn("using fallback remote endpoint", "remote_addr", fallback.String())
	return fallback
}
