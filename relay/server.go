// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bureau-foundation/portrelay/lib/clock"
	"github.com/bureau-foundation/portrelay/lib/endpoint"
	"github.com/bureau-foundation/portrelay/lib/netutil"
)

// Dialer opens the remote side of a bridge. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Accept retry backoff bounds, matching net/http's accept loop.
const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// Server accepts TCP connections on Listen and bridges each one to
// Remote.
type Server struct {
	// Listen is the local endpoint. An empty host binds all interfaces;
	// port 0 picks a free port (see Addr).
	Listen endpoint.Endpoint

	// Remote is the endpoint every accepted connection is forwarded to.
	// It is resolved once, before Start (see ResolveRemote).
	Remote endpoint.Endpoint

	// Logger receives structured log output. If nil, slog.Default() is
	// used. Per-connection events are logged at Debug; failures at
	// Warn/Error; lifecycle at Info.
	Logger *slog.Logger

	// Dialer opens remote connections. Nil means a plain net.Dialer.
	Dialer Dialer

	// DialTimeout bounds each remote dial. Zero leaves it to the OS.
	DialTimeout time.Duration

	// IdleTimeout closes a bridge once neither direction has moved a
	// byte for this long, or a single write stalls this long. Zero, the
	// default, lets a stalled peer hold its bridge open indefinitely.
	IdleTimeout time.Duration

	// BufferSize is the per-direction chunk size. Zero means
	// DefaultBufferSize.
	BufferSize int

	// Clock paces accept retries and stamps the start time. Nil means
	// clock.Real().
	Clock clock.Clock

	listener    net.Listener
	cancel      context.CancelFunc
	done        chan struct{}
	connections sync.WaitGroup
	buffers     sync.Pool
	counters    counters
	startedAt   time.Time

	// err is written by the accept loop before done is closed.
	err error
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Server) clock() clock.Clock {
	if s.Clock != nil {
		return s.Clock
	}
	return clock.Real()
}

// Start binds the listener and begins accepting in the background. It
// returns once the listener is bound, or a *Error of kind BindConflict
// or ListenFailure if binding fails. The relay runs until Stop is
// called, ctx is cancelled, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s.listener != nil {
		return fmt.Errorf("relay: already started")
	}
	if s.Remote.Host == "" {
		return fmt.Errorf("relay: Remote host is required")
	}
	if s.Remote.Port <= 0 || s.Remote.Port > 65535 {
		return fmt.Errorf("relay: Remote port %d out of range", s.Remote.Port)
	}
	if err := s.Listen.Validate(); err != nil {
		return fmt.Errorf("relay: %w", err)
	}

	listenAddress := s.Listen.String()
	listener, err := netutil.Listen(ctx, listenAddress)
	if err != nil {
		kind := ListenFailure
		if netutil.IsAddressInUse(err) {
			kind = BindConflict
		}
		return &Error{Kind: kind, Op: "listen", Address: listenAddress, Err: err}
	}

	bufferSize := s.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	s.buffers.New = func() any {
		buffer := make([]byte, bufferSize)
		return &buffer
	}

	s.listener = listener
	s.startedAt = s.clock().Now()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	// Unblock Accept when the context is cancelled.
	context.AfterFunc(ctx, func() { listener.Close() })

	go func() {
		defer close(s.done)
		s.acceptLoop(ctx)
	}()

	s.logger().Info("relay started",
		"listen_addr", listener.Addr().String(),
		"remote_addr", s.Remote.String(),
	)
	s.warnIfSelfLoop(listener.Addr())
	return nil
}

// warnIfSelfLoop flags a remote endpoint that is this relay's own
// listener: every bridge would dial the relay again, recursively. This
// is what the loopback fallback produces when listen and remote ports
// match.
func (s *Server) warnIfSelfLoop(address net.Addr) {
	bound, err := endpoint.FromAddr(address)
	if err != nil || bound.Port != s.Remote.Port || !s.Remote.IsLoopback() {
		return
	}
	s.logger().Warn("remote endpoint is this relay's own listener; connections will loop",
		"listen_addr", address.String(),
		"remote_addr", s.Remote.String(),
	)
}

// Addr returns the listener's address, useful when binding to port 0.
// Returns nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener, abandons pending dials, closes every live
// bridge and waits for all connection goroutines to exit. Safe to call
// more than once.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.listener != nil {
		s.listener.Close()
	}
	if s.done != nil {
		<-s.done
	}
}

// Wait blocks until the relay has stopped. It returns nil after Stop or
// context cancellation, and a *Error of kind ListenFailure if the
// listener failed on its own.
func (s *Server) Wait() error {
	if s.done == nil {
		return nil
	}
	<-s.done
	return s.err
}

// Stats returns a snapshot of the relay's counters.
func (s *Server) Stats() Stats {
	stats := s.counters.snapshot()
	stats.Remote = s.Remote.String()
	stats.StartedAt = s.startedAt
	if address := s.Addr(); address != nil {
		stats.Listen = address.String()
	}
	return stats
}

// acceptLoop hands every accepted connection to its own goroutine. It
// waits for those goroutines before returning, so a closed done channel
// means no bridge is left.
func (s *Server) acceptLoop(ctx context.Context) {
	defer s.connections.Wait()

	var connectionCount int64
	var backoff time.Duration
	for {
		connection, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, net.ErrClosed) {
				s.err = &Error{Kind: ListenFailure, Op: "accept", Address: s.Listen.String(), Err: err}
				s.logger().Error("listener closed unexpectedly", "error", s.err)
				s.cancel()
				return
			}

			backoff = max(minAcceptBackoff, min(2*backoff, maxAcceptBackoff))
			s.logger().Error("accept failed", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return
			case <-s.clock().After(backoff):
			}
			continue
		}
		backoff = 0

		connectionCount++
		connectionID := connectionCount
		s.counters.accepted.Add(1)
		s.connections.Add(1)
		go func() {
			defer s.connections.Done()
			s.handleConnection(ctx, connection, connectionID)
		}()
	}
}

// handleConnection dials the remote endpoint for one accepted client
// and runs the bridge. Each client gets exactly one dial attempt.
func (s *Server) handleConnection(ctx context.Context, client net.Conn, connectionID int64) {
	logger := s.logger().With("connection_id", connectionID)
	logger.Debug("connection accepted", "client_addr", client.RemoteAddr())

	remote, err := s.dial(ctx)
	if err != nil {
		client.Close()
		if ctx.Err() != nil {
			return
		}
		s.counters.dialFailures.Add(1)
		logger.Warn("dial failed",
			"error", &Error{
				Kind:         DialFailure,
				Op:           "dial",
				Address:      s.Remote.String(),
				ConnectionID: connectionID,
				Err:          err,
			},
		)
		return
	}

	s.counters.active.Add(1)
	defer s.counters.active.Add(-1)

	b := &bridge{
		id:          connectionID,
		client:      client,
		remote:      remote,
		logger:      logger,
		idleTimeout: s.IdleTimeout,
		buffers:     &s.buffers,
		counters:    &s.counters,
	}
	stopClosing := context.AfterFunc(ctx, b.close)
	defer stopClosing()

	logger.Debug("bridge established", "remote_local_addr", remote.LocalAddr())
	b.run()
	logger.Debug("connection closed")
}

func (s *Server) dial(ctx context.Context) (net.Conn, error) {
	dialer := s.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	if s.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.DialTimeout)
		defer cancel()
	}
	return dialer.DialContext(ctx, "tcp", s.Remote.String())
}
