// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package endpoint

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"
)

// DefaultResolvConfPath is the resolver configuration read by ResolvConf.
const DefaultResolvConfPath = "/etc/resolv.conf"

// ResolvConf resolves the remote host from the nameserver entries of a
// resolv.conf file. Under WSL2 the generated file names the Windows
// host, which is the machine the relay needs to reach.
type ResolvConf struct {
	// Path is the file to read. Empty means DefaultResolvConfPath.
	Path string

	// Port is the remote port paired with the discovered host.
	Port int
}

// Resolve returns the first nameserver that parses as an IP address and
// is not a loopback stub resolver (systemd-resolved's 127.0.0.53, for
// example, says nothing about neighbouring hosts).
func (r ResolvConf) Resolve(ctx context.Context) (Endpoint, error) {
	path := r.Path
	if path == "" {
		path = DefaultResolvConfPath
	}
	file, err := os.Open(path)
	if err != nil {
		return Endpoint{}, fmt.Errorf("resolvconf: %w", err)
	}
	defer file.Close()

	address, err := firstNameserver(file)
	if err != nil {
		return Endpoint{}, fmt.Errorf("resolvconf: %s: %w", path, err)
	}
	return Endpoint{Host: address.String(), Port: r.Port}, nil
}

func firstNameserver(reader io.Reader) (netip.Addr, error) {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "nameserver" {
			continue
		}
		// Zone suffixes ("fe80::1%eth0") are valid in resolv.conf.
		address, err := netip.ParseAddr(fields[1])
		if err != nil || address.IsLoopback() || address.IsUnspecified() {
			continue
		}
		return address.Unmap(), nil
	}
	if err := scanner.Err(); err != nil {
		return netip.Addr{}, err
	}
	return netip.Addr{}, ErrNotFound
}
