// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package control implements the relay's local status socket.
//
// The protocol is one CBOR request and one CBOR response per Unix socket
// connection. A request is a map carrying at least an "action" string;
// the response is a [Response] envelope {ok, error, data}. CBOR values
// are self-delimiting so no framing is needed.
//
// [Server] dispatches actions to handlers registered with
// [Server.Handle]. [Client.Call] opens a connection, sends the action,
// and decodes the response data into a caller-supplied value.
//
// The forwarded TCP stream never passes through this package; the
// control socket only reports on the relay.
package control
