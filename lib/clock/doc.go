// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source used by the relay.
//
// The relay reads the time in two places: to compute per-chunk idle
// deadlines and to wait out the backoff after a failed accept. Both go
// through [Clock] so tests can substitute [Fake] and step time
// explicitly instead of sleeping:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	server := &relay.Server{Clock: c}
//	c.Advance(5 * time.Second)
//
// Production code uses [Real].
package clock
