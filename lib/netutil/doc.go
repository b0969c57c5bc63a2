// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides the socket helpers the relay is built on.
//
// [Listen] binds a TCP listener with SO_REUSEADDR set explicitly, so a
// restarted relay can rebind its port while connections from the
// previous process linger in TIME_WAIT. [IsAddressInUse] recognizes the
// bind failure that means another live process owns the port.
//
// [IsExpectedCloseError] and [IsTimeout] classify the errors a copy loop
// sees when a bridge is torn down: EOF, a closed connection, a peer
// reset or a broken pipe are normal teardown, while an expired deadline
// is not.
package netutil
