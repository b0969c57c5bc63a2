// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/portrelay/lib/codec"
	"github.com/bureau-foundation/portrelay/lib/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startServer runs server.Serve until the test ends and returns the
// socket path once the socket exists.
func startServer(t *testing.T, server *Server, socketPath string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, done, 5*time.Second, "Serve did not return"); err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	})
	waitForSocket(t, socketPath)
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	for {
		if _, err := os.Stat(path); err == nil {
			return
		}
		if t.Context().Err() != nil {
			t.Fatalf("socket %s did not appear before test context expired", path)
		}
		runtime.Gosched()
	}
}

// sendRaw writes request bytes verbatim and decodes the response.
func sendRaw(t *testing.T, socketPath string, request []byte) Response {
	t.Helper()
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write(request); err != nil {
		t.Fatalf("writing request: %v", err)
	}
	conn.(*net.UnixConn).CloseWrite()

	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return response
}

type status struct {
	Listen   string    `cbor:"listen"`
	Accepted int64     `cbor:"accepted"`
	Started  time.Time `cbor:"started"`
}

func TestCallDecodesData(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "control.sock")
	started := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	server := NewServer(socketPath, testLogger())
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return status{Listen: "0.0.0.0:9222", Accepted: 7, Started: started}, nil
	})
	startServer(t, server, socketPath)

	var got status
	if err := NewClient(socketPath).Call(t.Context(), "status", &got); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.Listen != "0.0.0.0:9222" || got.Accepted != 7 {
		t.Errorf("status = %+v", got)
	}
	if !got.Started.Equal(started) {
		t.Errorf("Started = %v, want %v", got.Started, started)
	}
}

func TestCallNilResult(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "control.sock")
	server := NewServer(socketPath, testLogger())
	server.Handle("noop", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
	startServer(t, server, socketPath)

	var got status
	if err := NewClient(socketPath).Call(t.Context(), "noop", &got); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != (status{}) {
		t.Errorf("result modified without data: %+v", got)
	}
}

func TestCallHandlerError(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "control.sock")
	server := NewServer(socketPath, testLogger())
	server.Handle("fail", func(ctx context.Context, raw []byte) (any, error) {
		return nil, fmt.Errorf("relay not started")
	})
	startServer(t, server, socketPath)

	err := NewClient(socketPath).Call(t.Context(), "fail", nil)
	var actionError *ActionError
	if !errors.As(err, &actionError) {
		t.Fatalf("Call error = %v (%T), want *ActionError", err, err)
	}
	if actionError.Action != "fail" || actionError.Message != "relay not started" {
		t.Errorf("ActionError = %+v", actionError)
	}
}

func TestCallUnknownAction(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "control.sock")
	server := NewServer(socketPath, testLogger())
	startServer(t, server, socketPath)

	err := NewClient(socketPath).Call(t.Context(), "reboot", nil)
	var actionError *ActionError
	if !errors.As(err, &actionError) {
		t.Fatalf("Call error = %v, want *ActionError", err)
	}
	if actionError.Message != `unknown action "reboot"` {
		t.Errorf("Message = %q", actionError.Message)
	}
}

func TestMissingAction(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "control.sock")
	server := NewServer(socketPath, testLogger())
	startServer(t, server, socketPath)

	request, err := codec.Marshal(map[string]any{"verb": "status"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	response := sendRaw(t, socketPath, request)
	if response.OK {
		t.Fatal("expected ok=false")
	}
	if response.Error != "missing required field: action" {
		t.Errorf("Error = %q", response.Error)
	}
}

func TestInvalidRequest(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "control.sock")
	server := NewServer(socketPath, testLogger())
	startServer(t, server, socketPath)

	// 0xff is a CBOR break code with no open indefinite-length item.
	response := sendRaw(t, socketPath, []byte{0xff})
	if response.OK {
		t.Fatal("expected ok=false")
	}
	if response.Error == "" {
		t.Error("expected an error message")
	}
}

func TestCallWithoutServer(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "absent.sock")
	err := NewClient(socketPath).Call(t.Context(), "status", nil)
	if err == nil {
		t.Fatal("expected error without a listening server")
	}
	var actionError *ActionError
	if errors.As(err, &actionError) {
		t.Errorf("connection failure reported as ActionError: %v", err)
	}
}

func TestServeRemovesStaleSocket(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "control.sock")
	if err := os.WriteFile(socketPath, nil, 0600); err != nil {
		t.Fatalf("writing stale file: %v", err)
	}

	server := NewServer(socketPath, testLogger())
	server.Handle("noop", func(ctx context.Context, raw []byte) (any, error) { return nil, nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()

	// The stale regular file satisfies os.Stat immediately, so poll
	// until a call succeeds.
	client := NewClient(socketPath)
	for {
		if err := client.Call(t.Context(), "noop", nil); err == nil {
			break
		}
		if t.Context().Err() != nil {
			t.Fatal("server never answered")
		}
		time.Sleep(time.Millisecond) //nolint:realclock // polling a real socket
	}

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "Serve did not return"); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Error("socket file not removed after Serve returned")
	}
}

func TestConcurrentCalls(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "control.sock")
	server := NewServer(socketPath, testLogger())
	var mu sync.Mutex
	calls := 0
	server.Handle("count", func(ctx context.Context, raw []byte) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil, nil
	})
	startServer(t, server, socketPath)

	const clients = 16
	errs := make(chan error, clients)
	for range clients {
		go func() {
			errs <- NewClient(socketPath).Call(t.Context(), "count", nil)
		}()
	}
	for range clients {
		if err := testutil.RequireReceive(t, errs, 5*time.Second, "call did not finish"); err != nil {
			t.Errorf("Call: %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != clients {
		t.Errorf("handler ran %d times, want %d", calls, clients)
	}
}

func TestServeDrainsInFlightHandler(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "control.sock")
	server := NewServer(socketPath, testLogger())

	started := make(chan struct{})
	release := make(chan struct{})
	server.Handle("slow", func(ctx context.Context, raw []byte) (any, error) {
		close(started)
		<-release
		return map[string]any{"completed": true}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()
	waitForSocket(t, socketPath)

	results := make(chan error, 1)
	var data map[string]any
	go func() {
		results <- NewClient(socketPath).Call(context.Background(), "slow", &data)
	}()

	testutil.RequireClosed(t, started, 5*time.Second, "handler did not start")
	cancel()
	close(release)

	if err := testutil.RequireReceive(t, results, 5*time.Second, "in-flight call did not finish"); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if data["completed"] != true {
		t.Errorf("data = %v", data)
	}
	if err := testutil.RequireReceive(t, done, 5*time.Second, "Serve did not return"); err != nil {
		t.Errorf("Serve: %v", err)
	}
}

func TestDuplicateHandlerPanics(t *testing.T) {
	server := NewServer("/tmp/unused.sock", testLogger())
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) { return nil, nil })

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate handler")
		}
	}()
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) { return nil, nil })
}
