// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package netutil

import (
	"context"
	"errors"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// Listen binds a TCP listener on address with SO_REUSEADDR enabled.
//
// SO_REUSEPORT is deliberately not set: a second relay must fail to bind
// while the first one is alive, otherwise the kernel would split
// incoming connections between the two processes.
func Listen(ctx context.Context, address string) (net.Listener, error) {
	listenConfig := net.ListenConfig{
		Control: func(network, address string, rawConnection syscall.RawConn) error {
			var optionError error
			controlError := rawConnection.Control(func(fd uintptr) {
				optionError = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if controlError != nil {
				return controlError
			}
			return optionError
		},
	}
	return listenConfig.Listen(ctx, "tcp", address)
}

// IsAddressInUse reports whether err is the EADDRINUSE failure returned
// when another socket is already listening on the requested address.
func IsAddressInUse(err error) bool {
	return errors.Is(err, unix.EADDRINUSE)
}
