// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/portrelay/lib/config"
)

// options is the parsed command line. Config-backed values live in
// overrides and are applied only when the flag was given.
type options struct {
	flagSet *pflag.FlagSet

	configPath  string
	preset      string
	verbose     bool
	showVersion bool
	help        bool

	overrides overrides

	// command is everything after "--".
	command []string
}

type overrides struct {
	listenHost    string
	listenPort    int
	remoteHost    string
	remotePort    int
	probes        []string
	dialTimeout   time.Duration
	idleTimeout   time.Duration
	bufferSize    int
	logLevel      string
	logFormat     string
	controlSocket string
}

func parseFlags(args []string) (*options, error) {
	defaults := config.Default()
	opts := &options{}

	flagSet := pflag.NewFlagSet("portrelay", pflag.ContinueOnError)
	flagSet.SetOutput(os.Stderr)
	flagSet.Usage = func() {}
	opts.flagSet = flagSet

	flagSet.StringVarP(&opts.configPath, "config", "c", "", "config file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&opts.preset, "preset", "", "deployment preset: resolvconf or portproxy")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log every connection (debug level)")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	flagSet.BoolVarP(&opts.help, "help", "h", false, "show help")

	o := &opts.overrides
	flagSet.StringVar(&o.listenHost, "listen-host", defaults.Listen.Host, "local address to bind (default: all interfaces)")
	flagSet.IntVarP(&o.listenPort, "port", "p", defaults.Listen.Port, "local port to bind")
	flagSet.StringVar(&o.remoteHost, "remote-host", defaults.Remote.Host, "remote host (skips probing)")
	flagSet.IntVar(&o.remotePort, "remote-port", defaults.Remote.Port, "remote port")
	flagSet.StringSliceVar(&o.probes, "probe", defaults.Remote.Probes, "remote host probes in order: resolvconf, gateway")
	flagSet.DurationVar(&o.dialTimeout, "dial-timeout", defaults.Relay.DialTimeout, "remote dial timeout (0: none)")
	flagSet.DurationVar(&o.idleTimeout, "idle-timeout", defaults.Relay.IdleTimeout, "close a connection idle this long (0: never)")
	flagSet.IntVar(&o.bufferSize, "buffer-size", defaults.Relay.BufferSize, "per-direction chunk size in bytes")
	flagSet.StringVar(&o.logLevel, "log-level", defaults.Logging.Level, "debug, info, warn or error")
	flagSet.StringVar(&o.logFormat, "log-format", defaults.Logging.Format, "auto, text or json")
	flagSet.StringVar(&o.controlSocket, "control-socket", defaults.Control.Socket, "Unix socket for status queries (empty: disabled)")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}

	rest := flagSet.Args()
	if dash := flagSet.ArgsLenAtDash(); dash >= 0 {
		if dash > 0 {
			return nil, fmt.Errorf("unexpected argument: %s", rest[0])
		}
		opts.command = rest
		if len(opts.command) == 0 {
			return nil, fmt.Errorf("no command after --")
		}
	} else if len(rest) > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return opts, nil
}

// loadConfig reads the config file (--config, then $PORTRELAY_CONFIG,
// then built-in defaults), applies --preset and any explicitly set
// flags, and validates the result.
func loadConfig(opts *options) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case opts.configPath != "":
		cfg, err = config.LoadFile(opts.configPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}

	if opts.preset != "" {
		if err := cfg.ApplyPreset(opts.preset); err != nil {
			return nil, err
		}
	}
	opts.applyOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

func (opts *options) applyOverrides(cfg *config.Config) {
	changed := opts.flagSet.Changed
	o := &opts.overrides
	if changed("listen-host") {
		cfg.Listen.Host = o.listenHost
	}
	if changed("port") {
		cfg.Listen.Port = o.listenPort
	}
	if changed("remote-host") {
		cfg.Remote.Host = o.remoteHost
	}
	if changed("remote-port") {
		cfg.Remote.Port = o.remotePort
	}
	if changed("probe") {
		cfg.Remote.Probes = o.probes
	}
	if changed("dial-timeout") {
		cfg.Relay.DialTimeout = o.dialTimeout
	}
	if changed("idle-timeout") {
		cfg.Relay.IdleTimeout = o.idleTimeout
	}
	if changed("buffer-size") {
		cfg.Relay.BufferSize = o.bufferSize
	}
	if changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if changed("log-format") {
		cfg.Logging.Format = o.logFormat
	}
	if changed("control-socket") {
		cfg.Control.Socket = o.controlSocket
	}
}
