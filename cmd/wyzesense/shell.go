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
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	wyzesense "github.com/ZaparooProject/go-wyzesense"
)

// hub is the part of *wyzesense.Session the shell drives.
type hub interface {
	ListContext(ctx context.Context) ([]string, error)
	ScanContext(ctx context.Context, timeout time.Duration) (*wyzesense.PairingResult, error)
	DeleteContext(ctx context.Context, mac string) error
	Info() wyzesense.HubInfo
	Path() string
	State() wyzesense.State
	DroppedFrames() int64
}

// shell runs hub commands typed at the prompt.
type shell struct {
	hub         hub
	out         io.Writer
	scanTimeout time.Duration
}

func newShell(h hub, out io.Writer, scanTimeout time.Duration) *shell {
	return &shell{hub: h, out: out, scanTimeout: scanTimeout}
}

// run reads commands until exit, EOF or ctx ends. Pending commands are
// cancelled with ctx.
func (sh *shell) run(ctx context.Context, rl *readline.Instance) {
	sh.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			_, _ = fmt.Fprintln(sh.out, "Exiting...")
			return
		}

		if sh.execute(ctx, line) {
			return
		}
	}
}

// execute runs one command line and reports whether the shell should exit.
func (sh *shell) execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		sh.printHelp()
	case "list", "ls":
		sh.cmdList(ctx)
	case "pair", "scan":
		sh.cmdPair(ctx, args)
	case "unpair", "delete", "rm":
		sh.cmdUnpair(ctx, args)
	case "info", "i":
		sh.cmdInfo()
	case "quit", "exit", "q":
		_, _ = fmt.Fprintln(sh.out, "Exiting...")
		return true
	default:
		_, _ = fmt.Fprintf(sh.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (sh *shell) printHelp() {
	_, _ = fmt.Fprint(sh.out, `
Commands:
  list              List paired sensors
  pair [timeout]    Put the hub in pairing mode and wait for a sensor
  unpair <mac>      Remove a paired sensor
  info              Show hub identity
  help              Show this help
  exit              Quit
`)
}

func (sh *shell) cmdList(ctx context.Context) {
	macs, err := sh.hub.ListContext(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(sh.out, "List failed: %v\n", err)
		return
	}
	if len(macs) == 0 {
		_, _ = fmt.Fprintln(sh.out, "No paired sensors")
		return
	}

	_, _ = fmt.Fprintf(sh.out, "Paired sensors (%d):\n", len(macs))
	for _, mac := range macs {
		_, _ = fmt.Fprintf(sh.out, "  %s\n", mac)
	}
}

func (sh *shell) cmdPair(ctx context.Context, args []string) {
	timeout := sh.scanTimeout
	if len(args) > 0 {
		d, err := time.ParseDuration(args[0])
		if err != nil || d <= 0 {
			_, _ = fmt.Fprintln(sh.out, "Usage: pair [timeout]")
			_, _ = fmt.Fprintln(sh.out, "  Example: pair 30s")
			return
		}
		timeout = d
	}

	_, _ = fmt.Fprintf(sh.out, "Pairing for %v, press the sensor reset button...\n", timeout)
	result, err := sh.hub.ScanContext(ctx, timeout)
	switch {
	case err != nil:
		_, _ = fmt.Fprintf(sh.out, "Pair failed: %v\n", err)
	case result == nil:
		_, _ = fmt.Fprintln(sh.out, "No sensor found")
	default:
		_, _ = fmt.Fprintf(sh.out, "Paired %s (%s, type 0x%02X, version 0x%02X)\n",
			result.MAC, result.SensorType(), result.Type, result.Version)
	}
}

func (sh *shell) cmdUnpair(ctx context.Context, args []string) {
	if len(args) != 1 {
		_, _ = fmt.Fprintln(sh.out, "Usage: unpair <mac>")
		return
	}

	mac := strings.ToUpper(args[0])
	if err := sh.hub.DeleteContext(ctx, mac); err != nil {
		_, _ = fmt.Fprintf(sh.out, "Unpair failed: %v\n", err)
		return
	}
	_, _ = fmt.Fprintf(sh.out, "Removed %s\n", mac)
}

func (sh *shell) cmdInfo() {
	info := sh.hub.Info()
	_, _ = fmt.Fprintf(sh.out, "Device:  %s\n", sh.hub.Path())
	_, _ = fmt.Fprintf(sh.out, "State:   %s\n", sh.hub.State())
	_, _ = fmt.Fprintf(sh.out, "MAC:     %s\n", info.MAC)
	_, _ = fmt.Fprintf(sh.out, "Version: %s\n", info.Version)
	_, _ = fmt.Fprintf(sh.out, "ENR:     % X\n", info.ENR)
	if dropped := sh.hub.DroppedFrames(); dropped > 0 {
		_, _ = fmt.Fprintf(sh.out, "Dropped: %d frames\n", dropped)
	}
}

// printEvents writes queued sensor events until ctx ends.
func printEvents(ctx context.Context, out io.Writer, q *wyzesense.EventQueue) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-q.Events():
			_, _ = fmt.Fprintf(out, "[%s] %s rssi=%d\n", ev.Timestamp.Format("15:04:05"), ev, ev.RSSI())
		}
	}
}
