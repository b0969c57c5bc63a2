// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"sync/atomic"
	"time"
)

// Stats is a point-in-time snapshot of a running relay. It is served
// over the control socket and printed by "portrelay status".
type Stats struct {
	Listen    string    `json:"listen"`
	Remote    string    `json:"remote"`
	StartedAt time.Time `json:"started_at"`

	// Accepted counts client connections accepted since start.
	Accepted int64 `json:"accepted"`

	// Active counts bridges whose remote dial succeeded and that have
	// not yet closed.
	Active int64 `json:"active"`

	DialFailures int64 `json:"dial_failures"`
	StreamErrors int64 `json:"stream_errors"`

	// BytesToRemote and BytesToClient count bytes written in each
	// direction, updated after every chunk.
	BytesToRemote int64 `json:"bytes_to_remote"`
	BytesToClient int64 `json:"bytes_to_client"`
}

type counters struct {
	accepted      atomic.Int64
	active        atomic.Int64
	dialFailures  atomic.Int64
	streamErrors  atomic.Int64
	bytesToRemote atomic.Int64
	bytesToClient atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Accepted:      c.accepted.Load(),
		Active:        c.active.Load(),
		DialFailures:  c.dialFailures.Load(),
		StreamErrors:  c.streamErrors.Load(),
		BytesToRemote: c.bytesToRemote.Load(),
		BytesToClient: c.bytesToClient.Load(),
	}
}
