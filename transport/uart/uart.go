// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package uart implements the hub transport over a serial port, for hubs
// bridged through a USB serial adapter and for bench rigs.
package uart

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/ZaparooProject/go-wyzesense/internal/syncutil"
	"go.bug.st/serial"
)

// DefaultBaudRate is the hub serial speed.
const DefaultBaudRate = 115200

// ErrClosed is returned by operations on a closed transport.
var ErrClosed = errors.New("uart transport is closed")

// Transport implements the byte stream hub transport on a serial port.
type Transport struct {
	port     serial.Port
	portName string
	writeMu  syncutil.Mutex
	closeMu  syncutil.Mutex
	closed   bool
}

// getReadTimeout returns the platform read timeout, which is also the poll
// interval seen by the session reader.
func getReadTimeout() time.Duration {
	if runtime.GOOS == "windows" {
		return 150 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// New opens portName at the hub baud rate.
func New(portName string) (*Transport, error) {
	return NewWithReadTimeout(portName, getReadTimeout())
}

// NewWithReadTimeout opens portName. Read returns (0, nil) after readTimeout
// without data.
func NewWithReadTimeout(portName string, readTimeout time.Duration) (*Transport, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: DefaultBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open UART port %s: %w", portName, err)
	}

	t, err := newWithPort(port, portName, readTimeout)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return t, nil
}

func newWithPort(port serial.Port, portName string, readTimeout time.Duration) (*Transport, error) {
	if err := port.SetReadTimeout(readTimeout); err != nil {
		return nil, fmt.Errorf("failed to set UART read timeout: %w", err)
	}
	// Stale bytes from a previous session would only be dropped by the decoder.
	if err := port.ResetInputBuffer(); err != nil {
		return nil, fmt.Errorf("failed to reset UART input buffer: %w", err)
	}
	return &Transport{
		port:     port,
		portName: portName,
	}, nil
}

// Path returns the port name.
func (t *Transport) Path() string {
	return t.portName
}

// Read returns available bytes, or (0, nil) when the read timeout elapsed.
func (t *Transport) Read(p []byte) (int, error) {
	if t.isClosed() {
		return 0, ErrClosed
	}
	n, err := t.port.Read(p)
	if err != nil {
		return n, fmt.Errorf("UART read %s: %w", t.portName, err)
	}
	return n, nil
}

// Write writes one frame completely.
func (t *Transport) Write(p []byte) (int, error) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.isClosed() {
		return 0, ErrClosed
	}

	written := 0
	for written < len(p) {
		n, err := t.port.Write(p[written:])
		written += n
		if err != nil {
			return written, fmt.Errorf("UART write %s: %w", t.portName, err)
		}
		if n == 0 {
			return written, fmt.Errorf("UART write %s: %w", t.portName, io.ErrShortWrite)
		}
	}
	return written, nil
}

// Close closes the port. Further calls return ErrClosed.
func (t *Transport) Close() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()

	if t.closed {
		return ErrClosed
	}
	t.closed = true
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("UART close %s: %w", t.portName, err)
	}
	return nil
}

func (t *Transport) isClosed() bool {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	return t.closed
}
