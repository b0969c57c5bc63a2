// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the exit path for portrelay binaries: the
// single place where an error is written raw to stderr, before or after
// the structured logger exists.
package process
