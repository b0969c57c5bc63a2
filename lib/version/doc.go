// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version carries build information for the portrelay binary.
//
// [GitCommit], [GitDirty], [BuildTime] and [Version] are injected with
// -ldflags -X. A plain "go build" from a checkout still reports its
// commit through the VCS stamp in the binary's build info. Releases
// stamp explicitly:
//
//	go build -ldflags "-X github.com/bureau-foundation/portrelay/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version
