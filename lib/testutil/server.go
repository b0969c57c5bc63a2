// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"io"
	"net"
	"os"
	"sync"
	"testing"
)

// EchoServer listens on a loopback TCP port and echoes every byte it
// reads back to the sender. Each connection is closed once its client
// closes. Returns the listen address; the listener is closed when the
// test completes.
func EchoServer(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("EchoServer: listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			connection, acceptError := listener.Accept()
			if acceptError != nil {
				return
			}
			go func() {
				defer connection.Close()
				io.Copy(connection, connection)
			}()
		}
	}()

	return listener.Addr().String()
}

// AcceptServer listens on a loopback TCP port and delivers every
// accepted connection on the returned channel so the test can drive the
// remote side of a bridge by hand. The listener and every accepted
// connection are closed when the test completes.
func AcceptServer(t *testing.T) (string, <-chan net.Conn) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("AcceptServer: listen: %v", err)
	}

	var mu sync.Mutex
	var connections []net.Conn
	t.Cleanup(func() {
		listener.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, connection := range connections {
			connection.Close()
		}
	})

	accepted := make(chan net.Conn, 64)
	go func() {
		for {
			connection, acceptError := listener.Accept()
			if acceptError != nil {
				return
			}
			mu.Lock()
			connections = append(connections, connection)
			mu.Unlock()
			accepted <- connection
		}
	}()

	return listener.Addr().String(), accepted
}

// ClosedPort returns a loopback address on which nothing listens, so a
// dial to it is refused.
func ClosedPort(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ClosedPort: listen: %v", err)
	}
	address := listener.Addr().String()
	listener.Close()
	return address
}

// SocketDir creates a short temporary directory in /tmp for Unix domain
// sockets. It is removed when the test completes.
func SocketDir(t *testing.T) string {
	t.Helper()
	directory, err := os.MkdirTemp("/tmp", "portrelay-test-*")
	if err != nil {
		t.Fatalf("creating socket directory: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(directory)
	})
	return directory
}
