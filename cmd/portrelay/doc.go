// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Portrelay forwards a local TCP port to a remote endpoint, so a service
// reachable only from the other side of a VM or WSL boundary (typically
// a browser's remote debugging port on the host) looks local. Every
// accepted connection gets its own remote connection and bytes pass
// through unmodified.
//
// The remote host is configured statically or probed from the local
// network configuration (the nameserver in /etc/resolv.conf, or the
// default gateway), falling back to 127.0.0.1.
//
// Three modes:
//
//	portrelay [flags]                        serve until SIGINT/SIGTERM
//	portrelay [flags] -- command [args...]   serve while command runs
//	portrelay status --socket PATH           query a running relay
package main
