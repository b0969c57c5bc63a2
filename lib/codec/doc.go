// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration shared by portrelay's
// control socket server and client.
//
// The relay never encodes the forwarded byte stream. CBOR is only used
// for the control protocol, where the status snapshot of a running
// relay travels from the relay process to "portrelay status". Both ends
// import this package so they agree on the encoding modes.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2) and
// writes time.Time values as RFC 3339 text so that timestamps survive
// the round trip with their sub-second precision:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Stream helpers wrap a connection:
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Types that are also printed as JSON by the CLI carry `json` tags;
// fxamacker/cbor falls back to them when no `cbor` tag is present.
// Types that only ever cross the control socket use `cbor` tags.
package codec
