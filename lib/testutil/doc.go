// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for portrelay packages.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// safety valve so tests never hang on a broken relay. [RequireEOF]
// asserts that a connection observes closure within a bound, which is
// how close propagation through a bridge is checked.
//
// [EchoServer], [AcceptServer] and [ClosedPort] set up the remote side of
// a bridge on loopback TCP. [SocketDir] creates a short directory in
// /tmp for Unix sockets, whose paths are limited to 108 bytes.
//
// [UniqueID] tags payloads so tests can detect cross-talk between
// concurrent bridges.
//
// All helpers call t.Fatalf on failure.
package testutil
