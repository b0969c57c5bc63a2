// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package netutil

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// Listen binds a TCP listener on address. SO_REUSEADDR has different
// semantics outside unix (it permits stealing a bound port), so the
// platform default is kept.
func Listen(ctx context.Context, address string) (net.Listener, error) {
	var listenConfig net.ListenConfig
	return listenConfig.Listen(ctx, "tcp", address)
}

// IsAddressInUse reports whether err is an address-in-use bind failure.
func IsAddressInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}
