// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/bureau-foundation/portrelay/lib/config"
)

// newLogger builds the process logger and installs it as the slog
// default. With format "auto", a terminal gets slog.TextHandler and
// anything else (systemd, pipes, log shippers) gets slog.JSONHandler.
func newLogger(logging config.LoggingConfig, verbose bool, output *os.File) (*slog.Logger, error) {
	level, err := logging.SlogLevel()
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	terminal := term.IsTerminal(int(output.Fd()))
	logger := slog.New(newHandler(logging.Format, terminal, output, level))
	slog.SetDefault(logger)
	return logger, nil
}

func newHandler(format string, terminal bool, output io.Writer, level slog.Level) slog.Handler {
	options := &slog.HandlerOptions{Level: level}
	switch format {
	case config.FormatText:
		return slog.NewTextHandler(output, options)
	case config.FormatJSON:
		return slog.NewJSONHandler(output, options)
	}
	if terminal {
		return slog.NewTextHandler(output, options)
	}
	return slog.NewJSONHandler(output, options)
}
