// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package endpoint

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// DefaultPort is the port used for both ends of the relay when nothing
// else is configured: the Chrome DevTools remote debugging port.
const DefaultPort = 9222

// LoopbackHost is the address dialed when no remote host could be
// determined.
const LoopbackHost = "127.0.0.1"

// Endpoint identifies a TCP listener. An empty Host means all
// interfaces when listening.
type Endpoint struct {
	Host string
	Port int
}

// String returns the "host:port" form accepted by net.Dial and
// net.Listen, bracketing IPv6 literals.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Validate checks that the port is in range. Port 0 is accepted and
// means "any free port" when listening.
func (e Endpoint) Validate() error {
	if e.Port < 0 || e.Port > 65535 {
		return fmt.Errorf("endpoint %s: port %d out of range", e, e.Port)
	}
	return nil
}

// IsLoopback reports whether Host is a loopback IP literal or
// "localhost".
func (e Endpoint) IsLoopback() bool {
	if e.Host == "localhost" {
		return true
	}
	address, err := netip.ParseAddr(e.Host)
	return err == nil && address.IsLoopback()
}

// Parse parses a "host:port" string. The host may be empty (":9222").
func Parse(s string) (Endpoint, error) {
	host, portText, err := net.SplitHostPort(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("parsing endpoint %q: %w", s, err)
	}
	port, err := strconv.Atoi(portText)
	if err != nil {
		return Endpoint{}, fmt.Errorf("parsing endpoint %q: invalid port %q", s, portText)
	}
	endpoint := Endpoint{Host: host, Port: port}
	if err := endpoint.Validate(); err != nil {
		return Endpoint{}, err
	}
	return endpoint, nil
}

// FromAddr converts a resolved TCP address (such as a listener's Addr)
// to an Endpoint.
func FromAddr(address net.Addr) (Endpoint, error) {
	tcpAddress, ok := address.(*net.TCPAddr)
	if !ok {
		return Parse(address.String())
	}
	return Endpoint{Host: tcpAddress.IP.String(), Port: tcpAddress.Port}, nil
}
