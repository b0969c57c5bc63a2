// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
	"time"
)

// DefaultBufferSize is the chunk size of a pump when none is configured.
const DefaultBufferSize = 32 * 1024

// Pump copies one direction of a bridge: it reads a chunk from Source
// and writes it unchanged to Destination until Source reports EOF or
// either side fails. At most one chunk is in flight.
type Pump struct {
	Source      io.Reader
	Destination io.Writer

	// Buffer holds the in-flight chunk. A nil Buffer is allocated with
	// DefaultBufferSize.
	Buffer []byte

	// IdleTimeout, when positive, bounds every individual read and
	// write. It only takes effect on a Source or Destination that
	// supports deadlines (every net.Conn does). Deadlines are compared
	// against the kernel's wall clock, so they use time.Now directly.
	// With LastActivity set, a read deadline only ends the pump once
	// nothing was written for IdleTimeout. Zero waits forever.
	IdleTimeout time.Duration

	// Written, if set, is incremented after every successful write.
	Written *atomic.Int64

	// LastActivity, if set, holds the UnixNano time of the latest
	// successful write. A bridge shares one between its two pumps so
	// that a read timing out on the quiet side is retried while the
	// other side is still moving bytes.
	LastActivity *atomic.Int64
}

type readDeadliner interface {
	SetReadDeadline(time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(time.Time) error
}

// Copy runs the copy loop and returns the number of bytes written to
// Destination. A clean EOF on Source returns a nil error; any other
// read or write failure is returned as is, except a read deadline
// excused by LastActivity. A short write without an error is reported
// as io.ErrShortWrite.
func (p *Pump) Copy() (int64, error) {
	buffer := p.Buffer
	if len(buffer) == 0 {
		buffer = make([]byte, DefaultBufferSize)
	}

	var written int64
	for {
		if err := p.armRead(); err != nil {
			return written, err
		}
		count, readError := p.Source.Read(buffer)
		if count > 0 {
			if err := p.armWrite(); err != nil {
				return written, err
			}
			n, writeError := p.Destination.Write(buffer[:count])
			if n < 0 || n > count {
				n = 0
				if writeError == nil {
					writeError = io.ErrShortWrite
				}
			}
			written += int64(n)
			if n > 0 {
				p.recordActivity(int64(n))
			}
			if writeError != nil {
				return written, writeError
			}
			if n != count {
				return written, io.ErrShortWrite
			}
		}
		if readError == io.EOF {
			return written, nil
		}
		if readError != nil {
			if p.peerActive(readError) {
				continue
			}
			return written, readError
		}
	}
}

func (p *Pump) recordActivity(n int64) {
	if p.Written != nil {
		p.Written.Add(n)
	}
	if p.LastActivity != nil {
		p.LastActivity.Store(time.Now().UnixNano())
	}
}

// peerActive reports whether err is an idle read deadline that should
// be re-armed because the bridge wrote something within IdleTimeout.
func (p *Pump) peerActive(err error) bool {
	if p.LastActivity == nil || !errors.Is(err, os.ErrDeadlineExceeded) {
		return false
	}
	last := time.Unix(0, p.LastActivity.Load())
	return time.Since(last) < p.IdleTimeout
}

func (p *Pump) armRead() error {
	if p.IdleTimeout <= 0 {
		return nil
	}
	if source, ok := p.Source.(readDeadliner); ok {
		return source.SetReadDeadline(time.Now().Add(p.IdleTimeout))
	}
	return nil
}

func (p *Pump) armWrite() error {
	if p.IdleTimeout <= 0 {
		return nil
	}
	if destination, ok := p.Destination.(writeDeadliner); ok {
		return destination.SetWriteDeadline(time.Now().Add(p.IdleTimeout))
	}
	return nil
}
