// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package endpoint defines the host/port pair the relay listens on and
// dials, and the strategies that decide which remote host to dial.
//
// A relay running inside a VM or WSL instance usually wants to reach a
// service on the machine hosting it, whose address is not known in
// advance. Three [Resolver] implementations cover the ways to find it:
//
//   - [Static] returns a configured endpoint.
//   - [ResolvConf] takes the first non-loopback nameserver from
//     /etc/resolv.conf. WSL2 writes the Windows host's address there.
//   - [Gateway] takes the IPv4 default gateway from /proc/net/route,
//     which is the host side of a NAT-ed virtual switch.
//
// Resolvers only report failures; the policy of trying them in order
// and falling back to loopback lives with the relay, which must keep
// starting even when every probe fails.
package endpoint
