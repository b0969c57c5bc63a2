// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/portrelay/lib/config"
	"github.com/bureau-foundation/portrelay/lib/control"
	"github.com/bureau-foundation/portrelay/relay"
)

// statusTimeout bounds the whole status query.
const statusTimeout = 10 * time.Second

// runStatus queries a running relay's control socket and prints its
// counters. Without --socket, the socket comes from the config file
// named by $PORTRELAY_CONFIG.
func runStatus(ctx context.Context, args []string, stdout io.Writer) error {
	var socketPath string
	var jsonOutput bool
	var help bool

	flagSet := pflag.NewFlagSet("portrelay status", pflag.ContinueOnError)
	flagSet.SetOutput(os.Stderr)
	flagSet.Usage = func() {}
	flagSet.StringVarP(&socketPath, "socket", "s", "", "control socket of the running relay")
	flagSet.BoolVar(&jsonOutput, "json", false, "print the raw counters as JSON")
	flagSet.BoolVarP(&help, "help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if help {
		fmt.Fprintf(os.Stderr, "Usage: portrelay status [--socket PATH] [--json]\n\n%s", flagSet.FlagUsages())
		return nil
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	if socketPath == "" {
		if os.Getenv(config.EnvironmentVariable) != "" {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			socketPath = cfg.Control.Socket
		}
		if socketPath == "" {
			return fmt.Errorf("no control socket: pass --socket or set control.socket in the config file")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	var stats relay.Stats
	if err := control.NewClient(socketPath).Call(ctx, "status", &stats); err != nil {
		return err
	}

	if jsonOutput {
		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(stats)
	}
	return printStats(stdout, stats, time.Now())
}

func printStats(w io.Writer, stats relay.Stats, now time.Time) error {
	table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(table, "listen:\t%s\n", stats.Listen)
	fmt.Fprintf(table, "remote:\t%s\n", stats.Remote)
	fmt.Fprintf(table, "uptime:\t%s\n", now.Sub(stats.StartedAt).Truncate(time.Second))
	fmt.Fprintf(table, "connections:\t%d accepted, %d active\n", stats.Accepted, stats.Active)
	fmt.Fprintf(table, "dial failures:\t%d\n", stats.DialFailures)
	fmt.Fprintf(table, "stream errors:\t%d\n", stats.StreamErrors)
	fmt.Fprintf(table, "bytes:\t%d to remote, %d to client\n", stats.BytesToRemote, stats.BytesToClient)
	return table.Flush()
}
