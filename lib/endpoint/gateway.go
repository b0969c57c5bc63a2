// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package endpoint

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strconv"
	"strings"
)

// DefaultRouteTablePath is the Linux IPv4 routing table read by Gateway.
const DefaultRouteTablePath = "/proc/net/route"

// routeFlagGateway is RTF_GATEWAY from <linux/route.h>.
const routeFlagGateway = 0x2

// Gateway resolves the remote host to the IPv4 default gateway. A VM or
// WSL instance behind a NAT-ed virtual switch reaches its host through
// that address.
type Gateway struct {
	// Path is the route table to read. Empty means DefaultRouteTablePath.
	Path string

	// Port is the remote port paired with the discovered host.
	Port int
}

// Resolve returns the gateway of the first default route (destination
// 0.0.0.0 with the gateway flag set).
func (g Gateway) Resolve(ctx context.Context) (Endpoint, error) {
	path := g.Path
	if path == "" {
		path = DefaultRouteTablePath
	}
	file, err := os.Open(path)
	if err != nil {
		return Endpoint{}, fmt.Errorf("gateway: %w", err)
	}
	defer file.Close()

	address, err := defaultGateway(file)
	if err != nil {
		return Endpoint{}, fmt.Errorf("gateway: %s: %w", path, err)
	}
	return Endpoint{Host: address.String(), Port: g.Port}, nil
}

// defaultGateway parses the /proc/net/route format:
//
//	Iface	Destination	Gateway 	Flags	RefCnt	Use	Metric	Mask ...
//	eth0	00000000	01F01EAC	0003	0	0	0	00000000 ...
//
// Addresses are hex in host byte order (little-endian on every platform
// Linux runs WSL on).
func defaultGateway(reader io.Reader) (netip.Addr, error) {
	scanner := bufio.NewScanner(reader)
	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[1] != "00000000" {
			continue
		}
		flags, err := strconv.ParseUint(fields[3], 16, 32)
		if err != nil || flags&routeFlagGateway == 0 {
			continue
		}
		raw, err := hex.DecodeString(fields[2])
		if err != nil || len(raw) != 4 {
			continue
		}
		var octets [4]byte
		binary.BigEndian.PutUint32(octets[:], binary.LittleEndian.Uint32(raw))
		address := netip.AddrFrom4(octets)
		if address.IsUnspecified() {
			continue
		}
		return address, nil
	}
	if err := scanner.Err(); err != nil {
		return netip.Addr{}, err
	}
	return netip.Addr{}, ErrNotFound
}
