// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/portrelay/lib/netutil"
)

// bridge owns one client connection and its remote connection for the
// lifetime of a forwarded session. Nothing outside the bridge reads,
// writes or closes either connection.
type bridge struct {
	id     int64
	client net.Conn
	remote net.Conn
	logger *slog.Logger

	idleTimeout time.Duration
	buffers     *sync.Pool
	counters    *counters

	// lastActivity is shared by both pumps so the idle timeout measures
	// the bridge, not one direction.
	lastActivity atomic.Int64

	closeOnce sync.Once
}

// close closes both connections exactly once. Both pumps call it when
// they finish, and server shutdown calls it from a context callback;
// every call after the first is a no-op.
func (b *bridge) close() {
	b.closeOnce.Do(func() {
		b.client.Close()
		b.remote.Close()
	})
}

// run forwards in both directions until both have ended. The calling
// goroutine pumps client->remote; a second goroutine pumps
// remote->client.
func (b *bridge) run() {
	b.lastActivity.Store(time.Now().UnixNano())

	var peer sync.WaitGroup
	peer.Add(1)
	go func() {
		defer peer.Done()
		b.pump("remote->client", b.remote, b.client, &b.counters.bytesToClient)
	}()

	b.pump("client->remote", b.client, b.remote, &b.counters.bytesToRemote)
	peer.Wait()
}

// pump runs one direction and then closes the whole bridge. The
// opposite direction is blocked reading one of the two connections and
// fails with net.ErrClosed, which ends it too.
func (b *bridge) pump(direction string, source, destination net.Conn, written *atomic.Int64) {
	buffer := b.buffers.Get().(*[]byte)
	defer b.buffers.Put(buffer)

	pump := Pump{
		Source:       source,
		Destination:  destination,
		Buffer:       *buffer,
		IdleTimeout:  b.idleTimeout,
		Written:      written,
		LastActivity: &b.lastActivity,
	}
	bytesCopied, copyError := pump.Copy()
	b.close()

	if copyError == nil || netutil.IsExpectedCloseError(copyError) {
		b.logger.Debug("direction finished",
			"direction", direction,
			"bytes_copied", bytesCopied,
		)
		return
	}

	b.counters.streamErrors.Add(1)
	failure := &Error{
		Kind:         StreamError,
		Op:           direction,
		ConnectionID: b.id,
		Err:          copyError,
	}
	if netutil.IsTimeout(copyError) {
		b.logger.Info("idle timeout",
			"direction", direction,
			"bytes_copied", bytesCopied,
			"error", failure,
		)
		return
	}
	b.logger.Warn("stream error",
		"direction", direction,
		"bytes_copied", bytesCopied,
		"error", failure,
	)
}
