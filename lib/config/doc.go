// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads portrelay configuration.
//
// Configuration comes from a single file, named by the PORTRELAY_CONFIG
// environment variable ([Load]) or passed explicitly ([LoadFile]). YAML
// is the native format; files ending in .json or .jsonc are accepted
// too, with comments and trailing commas stripped before decoding.
// Command-line flags are applied on top by the binary.
//
// A preset names a known deployment of the relay. The file's "preset"
// field selects one; its values form the base that the rest of the
// file then overrides:
//
//   - resolvconf: remote port 9222, host taken from the nameserver in
//     /etc/resolv.conf (the WSL2 host).
//   - portproxy: remote port 9223, host taken from the default gateway,
//     for hosts that expose the service through a port proxy on the
//     virtual switch address.
//
// [Config.Resolvers] turns the remote section into the ordered list of
// endpoint resolvers the relay consults at startup: a static host first
// when one is configured, then the probes in configured order.
package config
