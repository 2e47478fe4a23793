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
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/ZaparooProject/go-wyzesense/capture"
	"github.com/ZaparooProject/go-wyzesense/internal/frame"
)

// runDump prints the events of a capture file, one per line.
func runDump(args []string, out, stderr io.Writer) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	sessionID := fs.String("session", "", "Only show events from this session id")
	framesOnly := fs.Bool("frames", false, "Only show wire frames")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: wyzesense dump [-session id] [-frames] <file>")
	}

	filter := capture.Filter{SessionID: *sessionID}
	if *framesOnly {
		category := capture.CategoryFrame
		filter.Category = &category
	}

	reader, err := capture.NewFilteredReader(fs.Arg(0), filter)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer func() { _ = reader.Close() }()

	count := 0
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, formatEvent(event))
		count++
	}
	_, _ = fmt.Fprintf(out, "%d events\n", count)
	return nil
}

func formatEvent(event capture.Event) string {
	ts := event.Timestamp.Format("15:04:05.000")
	switch event.Category {
	case capture.CategoryFrame:
		line := fmt.Sprintf("%s %-3s %s % X", ts, event.Direction, frame.Command(event.Command), event.Data)
		if event.Note != "" {
			line += " (" + event.Note + ")"
		}
		return line
	case capture.CategoryState:
		if event.Note != "" {
			return fmt.Sprintf("%s STATE %s (%s)", ts, event.State, event.Note)
		}
		return fmt.Sprintf("%s STATE %s", ts, event.State)
	default:
		return fmt.Sprintf("%s %s %s: %s", ts, event.Category, frame.Command(event.Command), event.Note)
	}
}
