// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies relay failures by how far they are allowed to
// propagate.
type Kind int

const (
	// KindUnknown is returned by KindOf for errors that did not come
	// from the relay.
	KindUnknown Kind = iota

	// BindConflict means the listen port is owned by another live
	// socket. Fatal to startup and never retried.
	BindConflict

	// ListenFailure is any other failure of the listening socket: a bind
	// error other than a conflict, or the listener dying while the relay
	// runs. Fatal.
	ListenFailure

	// ResolutionFailure means one endpoint resolver could not produce an
	// address. Recovered by trying the next resolver or the fallback.
	ResolutionFailure

	// DialFailure means the remote endpoint refused or could not be
	// reached for one client. That client's connection is closed.
	DialFailure

	// StreamError is an unexpected read or write failure while
	// forwarding, including an expired idle deadline. It tears down one
	// bridge.
	StreamError
)

func (k Kind) String() string {
	switch k {
	case BindConflict:
		return "bind conflict"
	case ListenFailure:
		return "listen failure"
	case ResolutionFailure:
		return "resolution failure"
	case DialFailure:
		return "dial failure"
	case StreamError:
		return "stream error"
	default:
		return "unknown"
	}
}

// Fatal reports whether errors of this kind stop the relay.
func (k Kind) Fatal() bool {
	return k == BindConflict || k == ListenFailure
}

// Error is a classified relay failure.
type Error struct {
	Kind Kind

	// Op is the operation that failed: "listen", "accept", "resolve",
	// "dial", or a copy direction such as "client->remote".
	Op string

	// Address is the endpoint involved, when there is one.
	Address string

	// ConnectionID identifies the bridge for per-connection failures.
	// Zero for server-level failures.
	ConnectionID int64

	Err error
}

func (e *Error) Error() string {
	var builder strings.Builder
	builder.WriteString("relay: ")
	builder.WriteString(e.Op)
	if e.Address != "" {
		builder.WriteString(" ")
		builder.WriteString(e.Address)
	}
	if e.ConnectionID != 0 {
		fmt.Fprintf(&builder, " (connection %d)", e.ConnectionID)
	}
	builder.WriteString(": ")
	builder.WriteString(e.Kind.String())
	if e.Err != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Err.Error())
	}
	return builder.String()
}

func (e *Error) Unwrap() error { return e.Err }

// ExitCode is the process exit status for a fatal relay error. A bind
// conflict exits with 2 so scripts can tell "already running" apart
// from other failures.
func (e *Error) ExitCode() int {
	if e.Kind == BindConflict {
		return 2
	}
	return 1
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var relayError *Error
	if errors.As(err, &relayError) {
		return relayError.Kind
	}
	return KindUnknown
}
