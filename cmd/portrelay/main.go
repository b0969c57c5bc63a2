// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/portrelay/lib/process"
	"github.com/bureau-foundation/portrelay/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		var status *exitStatus
		if errors.As(err, &status) {
			os.Exit(status.code)
		}
		process.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) > 0 && args[0] == "status" {
		return runStatus(context.Background(), args[1:], os.Stdout)
	}

	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.help {
		printHelp(opts.flagSet)
		return nil
	}
	if opts.showVersion {
		fmt.Printf("portrelay %s\n", version.Full())
		return nil
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging, opts.verbose, os.Stderr)
	if err != nil {
		return err
	}

	if len(opts.command) > 0 {
		return runExec(cfg, logger, opts.command)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return runServe(ctx, cfg, logger)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `portrelay - forward a local TCP port to a remote endpoint

USAGE
    portrelay [flags]
    portrelay [flags] -- <command> [args...]
    portrelay status [--socket PATH] [--json]

The remote host is --remote-host when given. Otherwise the configured
probes run in order (resolvconf: nameserver in /etc/resolv.conf;
gateway: default route in /proc/net/route) and 127.0.0.1 is used if
none succeeds.

In exec mode the relay runs while the command runs and the command's
exit status becomes portrelay's.

Exit status is 2 when the listen port is already in use.

PRESETS
    resolvconf    remote port 9222, probe resolv.conf (default)
    portproxy     remote port 9223, probe default gateway then resolv.conf

EXAMPLES
    # Expose the host's Chrome debugger inside WSL2
    portrelay

    # Windows host with "netsh interface portproxy" on port 9223
    portrelay --preset portproxy

    # Fixed remote, only while a test suite runs
    portrelay --remote-host 192.168.1.20 -- npm test

FLAGS
%s`, flagSet.FlagUsages())
}
