// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"strconv"
	"sync/atomic"
)

var payloadSequence atomic.Uint64

// UniqueID tags a payload with prefix and a sequence number that never
// repeats within the test binary, so a byte stream that lands on the
// wrong bridge is recognisable.
func UniqueID(prefix string) string {
	return prefix + "#" + strconv.FormatUint(payloadSequence.Add(1), 10)
}
