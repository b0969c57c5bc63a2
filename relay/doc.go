// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay forwards TCP connections from a local port to a fixed
// remote endpoint, byte for byte.
//
// A VM, WSL instance or sandbox often cannot reach a service on its
// host directly, while programs inside it expect that service on a
// local port (a browser's remote debugging port, for instance). The
// relay listens on that port and pairs every accepted connection with a
// fresh connection to the remote endpoint, so the remote service
// appears to be local. The byte stream is never inspected.
//
// [Server] binds the listener with SO_REUSEADDR and accepts in a
// background goroutine. Each accepted connection becomes a bridge: one
// dial to the remote endpoint, then two [Pump] copy loops, one per
// direction. Whichever direction ends first closes both connections;
// the other direction then fails its blocked read and ends as well.
// Close is idempotent, so the two directions never coordinate beyond
// that.
//
// Failures are classified by [Kind]. Only a bind failure stops the
// relay; dial failures and stream errors end the affected connection
// and are logged. [ResolveRemote] runs the configured endpoint
// resolvers in order and falls back to loopback, so a failed probe
// never prevents the relay from binding.
//
// There are no default timeouts. [Server.IdleTimeout] and
// [Server.DialTimeout] are opt-in.
package relay
