// go-wyzesense
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-wyzesense.
//
// go-wyzesense is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-wyzesense is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-wyzesense; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chzyer/readline"

	wyzesense "github.com/ZaparooProject/go-wyzesense"
	"github.com/ZaparooProject/go-wyzesense/capture"
	"github.com/ZaparooProject/go-wyzesense/detection"
	_ "github.com/ZaparooProject/go-wyzesense/detection/hidraw"
)

// resolveDevicePath returns cfg.Device, or the best detected hub when empty.
func resolveDevicePath(ctx context.Context, cfg *config, out io.Writer) (string, error) {
	if cfg.Device != "" {
		return cfg.Device, nil
	}

	if cfg.Debug {
		_, _ = fmt.Fprintln(out, "Auto-detecting WyzeSense hubs...")
	}
	opts := detection.DefaultOptions()
	device, err := detection.DetectFirst(ctx, &opts)
	if err != nil {
		return "", fmt.Errorf("failed to detect hub: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Found %s\n", device)
	return device.Path, nil
}

// openCapture builds the capture logger for cfg. The returned close func
// must be called after the session stops.
func openCapture(cfg *config, stderr io.Writer) (capture.Logger, func(), error) {
	var loggers []capture.Logger
	closeFn := func() {}

	if cfg.Capture != "" {
		fileLogger, err := capture.NewFileLogger(cfg.Capture)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open capture file: %w", err)
		}
		loggers = append(loggers, fileLogger)
		closeFn = func() {
			if err := fileLogger.Close(); err != nil {
				_, _ = fmt.Fprintf(stderr, "Failed to close capture file: %v\n", err)
			}
		}
	}
	if cfg.Debug {
		handler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		loggers = append(loggers, capture.NewSlogAdapter(slog.New(handler)))
	}

	switch len(loggers) {
	case 0:
		return capture.NoopLogger{}, closeFn, nil
	case 1:
		return loggers[0], closeFn, nil
	default:
		return capture.NewMultiLogger(loggers...), closeFn, nil
	}
}

func openRetryConfig(cfg *config, stderr io.Writer) *wyzesense.RetryConfig {
	retry := wyzesense.DefaultOpenRetryConfig()
	retry.MaxAttempts = cfg.Retries
	retry.OnRetry = func(attempt int, err error, sleep time.Duration) {
		_, _ = fmt.Fprintf(stderr, "Open attempt %d failed: %v (retrying in %v)\n", attempt, err, sleep.Round(time.Millisecond))
	}
	return retry
}

func run(ctx context.Context, cfg *config) error {
	if cfg.Debug {
		wyzesense.SetDebugEnabled(true)
	}
	if cfg.LogDir != "" {
		path, err := wyzesense.InitSessionLog(cfg.LogDir)
		if err != nil {
			return fmt.Errorf("failed to start session log: %w", err)
		}
		_, _ = fmt.Printf("Debug log: %s\n", path)
		defer func() {
			if err := wyzesense.CloseSessionLog(); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "Failed to close session log: %v\n", err)
			}
		}()
	}

	devicePath, err := resolveDevicePath(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}

	captureLogger, closeCapture, err := openCapture(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closeCapture()

	queue := wyzesense.NewEventQueue(cfg.EventBuffer)
	session, err := wyzesense.OpenWithRetry(ctx, devicePath, queue.Handle, openRetryConfig(cfg, os.Stderr),
		wyzesense.WithCommandTimeout(cfg.CommandTimeout),
		wyzesense.WithCaptureLogger(captureLogger),
	)
	if err != nil {
		return fmt.Errorf("failed to open hub: %w", err)
	}
	defer func() {
		if err := session.Stop(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to stop session: %v\n", err)
		}
	}()

	info := session.Info()
	_, _ = fmt.Printf("Hub %s ready (%s) on %s\n", info.MAC, info.Version, devicePath)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "wyzesense> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer func() { _ = rl.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go printEvents(ctx, rl.Stdout(), queue)
	go func() {
		select {
		case <-session.Done():
			_, _ = fmt.Fprintf(rl.Stderr(), "Hub session ended: %v\n", session.Err())
		case <-ctx.Done():
		}
		cancel()
		_ = rl.Close()
	}()

	newShell(session, rl.Stdout(), cfg.ScanTimeout).run(ctx, rl)

	if err := session.Err(); err != nil && !errors.Is(err, wyzesense.ErrStopped) {
		return err
	}
	return nil
}

func main() {
	os.Exit(mainWithExitCode(os.Args[1:]))
}

func mainWithExitCode(args []string) int {
	if len(args) > 0 && args[0] == "dump" {
		if err := runDump(args[1:], os.Stdout, os.Stderr); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return 0
			}
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	cfg, err := parseArgs(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		_, _ = fmt.Print("\nShutting down gracefully...\n")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
