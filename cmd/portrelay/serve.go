// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/portrelay/lib/config"
	"github.com/bureau-foundation/portrelay/lib/control"
	"github.com/bureau-foundation/portrelay/lib/version"
	"github.com/bureau-foundation/portrelay/relay"
)

// exitStatus carries a child's exit code out of exec mode. main exits
// with it without printing anything.
type exitStatus struct {
	code int
}

func (e *exitStatus) Error() string {
	return fmt.Sprintf("command exited with status %d", e.code)
}

func (e *exitStatus) ExitCode() int { return e.code }

// instance is a started relay plus its optional control socket.
type instance struct {
	server *relay.Server

	cancelControl context.CancelFunc
	controlDone   chan error
}

// startRelay resolves the remote endpoint, binds the relay, and starts
// the control socket when one is configured.
func startRelay(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*instance, error) {
	remote := relay.ResolveRemote(ctx, logger, cfg.FallbackEndpoint(), cfg.Resolvers()...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	server := &relay.Server{
		Listen:      cfg.ListenEndpoint(),
		Remote:      remote,
		Logger:      logger,
		DialTimeout: cfg.Relay.DialTimeout,
		IdleTimeout: cfg.Relay.IdleTimeout,
		BufferSize:  cfg.Relay.BufferSize,
	}
	if err := server.Start(ctx); err != nil {
		return nil, err
	}

	inst := &instance{server: server}
	if cfg.Control.Socket != "" {
		controlServer := control.NewServer(cfg.Control.Socket, logger)
		controlServer.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
			return server.Stats(), nil
		})
		controlServer.Handle("version", func(ctx context.Context, raw []byte) (any, error) {
			return map[string]string{"version": version.Info()}, nil
		})

		var controlContext context.Context
		controlContext, inst.cancelControl = context.WithCancel(ctx)
		inst.controlDone = make(chan error, 1)
		go func() {
			err := controlServer.Serve(controlContext)
			if err != nil {
				logger.Error("control socket failed", "error", err)
			}
			inst.controlDone <- err
		}()
	}
	return inst, nil
}

// stop shuts the relay and the control socket down and waits for both.
func (inst *instance) stop() error {
	inst.server.Stop()
	if inst.cancelControl == nil {
		return nil
	}
	inst.cancelControl()
	if err := <-inst.controlDone; err != nil {
		return err
	}
	inst.cancelControl = nil
	return nil
}

// runServe relays until ctx is cancelled or the listener fails.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	inst, err := startRelay(ctx, cfg, logger)
	if err != nil {
		if ctx.Err() != nil {
			// Interrupted before the listener was up.
			return nil
		}
		return err
	}

	waitErr := inst.server.Wait()
	stopErr := inst.stop()
	stats := inst.server.Stats()
	logger.Info("relay stopped",
		"accepted", stats.Accepted,
		"dial_failures", stats.DialFailures,
		"stream_errors", stats.StreamErrors,
	)
	return errors.Join(waitErr, stopErr)
}

// runExec starts the relay, runs command with the relay's stdio and
// environment, and stops the relay when the command exits. SIGINT and
// SIGTERM go to the command, not the relay. The command's non-zero exit
// status is returned as an *exitStatus; after a successful command, a
// failure to shut the control socket down is returned instead.
func runExec(cfg *config.Config, logger *slog.Logger, command []string) error {
	inst, err := startRelay(context.Background(), cfg, logger)
	if err != nil {
		return err
	}

	commandErr := runCommand(command)
	stopErr := inst.stop()
	if commandErr != nil {
		return commandErr
	}
	return stopErr
}

// runCommand runs command in the foreground, forwarding SIGINT and
// SIGTERM to it.
func runCommand(command []string) error {
	commandPath, err := exec.LookPath(command[0])
	if err != nil {
		return fmt.Errorf("command not found: %s", command[0])
	}

	cmd := exec.Command(commandPath, command[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", command[0], err)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for sig := range signals {
			cmd.Process.Signal(sig)
		}
	}()

	err = cmd.Wait()
	signal.Stop(signals)
	close(signals)

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &exitStatus{code: exitCode(exitErr)}
	}
	return err
}

// exitCode maps a child's termination to a shell-style status: its exit
// code, or 128 plus the signal number if a signal killed it.
func exitCode(exitErr *exec.ExitError) int {
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	return exitErr.ExitCode()
}
