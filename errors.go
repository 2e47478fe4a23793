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

package wyzesense

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ZaparooProject/go-wyzesense/internal/frame"
	"github.com/ZaparooProject/go-wyzesense/transport/hidraw"
	"github.com/ZaparooProject/go-wyzesense/transport/uart"
)

// Session errors
var (
	// ErrDeviceOpen matches every *DeviceOpenError.
	ErrDeviceOpen = errors.New("failed to open hub device")
	// ErrHandshakeFailed matches every *HandshakeError.
	ErrHandshakeFailed = errors.New("hub handshake failed")
	// ErrDeviceDisconnected is the terminal error after the transport fails.
	// Every later command is rejected with it.
	ErrDeviceDisconnected = errors.New("hub disconnected")
	// ErrCommandTimeout means no matching reply arrived in time.
	ErrCommandTimeout = errors.New("command timed out")
	// ErrStopped is returned to commands issued or in flight after Stop.
	ErrStopped = errors.New("session stopped")
	// ErrInvalidResponse means the hub replied with a malformed payload.
	ErrInvalidResponse = errors.New("invalid response format")
	// ErrInvalidFrame marks frames the decoder rejected. It is counted and
	// logged but never returned from a session operation.
	ErrInvalidFrame = frame.ErrInvalidFrame
)

// Data errors - not retryable
var (
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Transport errors
var (
	ErrTransportWrite  = errors.New("transport write failed")
	ErrTransportRead   = errors.New("transport read failed")
	ErrTransportClosed = errors.New("transport is closed")
)

// ErrorType represents the category of error for retry logic
type ErrorType int

const (
	// ErrorTypeTransient indicates a potentially retryable error
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent indicates a non-retryable error
	ErrorTypePermanent
	// ErrorTypeTimeout indicates a timeout error (special handling)
	ErrorTypeTimeout
)

// TransportError wraps transport-level errors with additional context
type TransportError struct {
	Err       error     // Underlying error
	Op        string    // Operation that failed
	Port      string    // Port or device identifier
	Type      ErrorType // Error category
	Retryable bool      // Whether the error is retryable
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a standard transport error with consistent formatting
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// classifyTransportError wraps an I/O error, marking unplug errors permanent.
func classifyTransportError(op, port string, err error) *TransportError {
	switch {
	case isClosedError(err):
		return NewTransportError(op, port, fmt.Errorf("%w: %w", ErrTransportClosed, err), ErrorTypePermanent)
	case isDeviceGoneError(err) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe):
		return NewTransportError(op, port, err, ErrorTypePermanent)
	case isTimeoutError(err):
		return NewTransportError(op, port, err, ErrorTypeTimeout)
	default:
		return NewTransportError(op, port, err, ErrorTypeTransient)
	}
}

// isClosedError reports whether err comes from a transport that was already
// closed on this side.
func isClosedError(err error) bool {
	return errors.Is(err, ErrTransportClosed) ||
		errors.Is(err, hidraw.ErrClosed) ||
		errors.Is(err, uart.ErrClosed) ||
		errors.Is(err, os.ErrClosed)
}

func isTimeoutError(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, syscall.ETIMEDOUT)
}

// DeviceOpenError reports that the hub device could not be opened.
// errors.Is(err, ErrDeviceOpen) holds for every DeviceOpenError.
type DeviceOpenError struct {
	Err  error
	Path string
}

func (e *DeviceOpenError) Error() string {
	return fmt.Sprintf("open hub device %s: %v", e.Path, e.Err)
}

func (e *DeviceOpenError) Unwrap() error {
	return e.Err
}

// Is matches ErrDeviceOpen.
func (*DeviceOpenError) Is(target error) bool {
	return target == ErrDeviceOpen
}

// HandshakeError reports which handshake step failed.
// errors.Is(err, ErrHandshakeFailed) holds for every HandshakeError.
type HandshakeError struct {
	Err  error
	Step frame.Command
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("hub handshake failed at %s: %v", e.Step, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// Is matches ErrHandshakeFailed.
func (*HandshakeError) Is(target error) bool {
	return target == ErrHandshakeFailed
}

// CommandError names the hub command an error belongs to.
type CommandError struct {
	Err error
	Cmd frame.Command
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Cmd, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if a fresh attempt may succeed. Timeouts and
// handshake failures qualify; a missing device or a stopped session do not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrDeviceOpen),
		errors.Is(err, ErrStopped),
		errors.Is(err, ErrInvalidParameter):
		return false
	case errors.Is(err, ErrCommandTimeout),
		errors.Is(err, ErrHandshakeFailed),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite):
		return true
	default:
		return false
	}
}

// IsFatal returns true if the error indicates the session can no longer
// talk to the hub and must be reopened.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, ErrDeviceDisconnected),
		errors.Is(err, ErrStopped),
		errors.Is(err, ErrTransportClosed):
		return true
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type == ErrorTypePermanent
	}

	if isDeviceGoneError(err) {
		return true
	}

	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe)
}

// Windows error codes for device disconnection detection.
// These are defined here because they're not available on non-Windows platforms.
const (
	errAccessDenied syscall.Errno = 5   // ERROR_ACCESS_DENIED
	errGenFailure   syscall.Errno = 31  // ERROR_GEN_FAILURE
	errNoSuchDevice syscall.Errno = 433 // ERROR_NO_SUCH_DEVICE
)

// isDeviceGoneError checks for OS-level errors indicating device disconnection.
// These errors occur when the hub is unplugged during I/O operations.
func isDeviceGoneError(err error) bool {
	if err == nil {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		//nolint:exhaustive // Only checking specific device-gone errors, not all errno values
		switch errno {
		case syscall.EIO, syscall.ENXIO, syscall.ENODEV:
			return true
		}

		if runtime.GOOS == "windows" {
			//nolint:exhaustive // Only checking specific device-gone errors, not all errno values
			switch errno {
			case errAccessDenied, errGenFailure, errNoSuchDevice:
				return true
			}
		}
	}

	return false
}

// =============================================================================
// Wire Trace Logging
// =============================================================================
// TraceableError embeds the frames exchanged around a failed command, so
// applications can report what the hub actually sent.

// TraceDirection indicates the direction of wire data
type TraceDirection string

const (
	// TraceTX indicates data sent to the hub
	TraceTX TraceDirection = "TX"
	// TraceRX indicates data received from the hub
	TraceRX TraceDirection = "RX"
)

// TraceEntry represents a single wire-level operation
type TraceEntry struct {
	Timestamp time.Time
	Direction TraceDirection
	Note      string
	Data      []byte
}

// String formats a trace entry for display
func (e TraceEntry) String() string {
	hexData := formatHexBytes(e.Data)
	if e.Note != "" {
		return fmt.Sprintf("[%s] %s: %s (%s)", e.Timestamp.Format("15:04:05.000"), e.Direction, hexData, e.Note)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Timestamp.Format("15:04:05.000"), e.Direction, hexData)
}

// TraceableError wraps an error with wire-level trace data for debugging.
// Consumer applications can use errors.As() to extract trace information:
//
//	var te *wyzesense.TraceableError
//	if errors.As(err, &te) {
//	    log.Printf("Wire trace:\n%s", te.FormatTrace())
//	}
type TraceableError struct {
	Err       error
	Transport string
	Port      string
	Trace     []TraceEntry
}

// Error implements the error interface
func (e *TraceableError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As compatibility
func (e *TraceableError) Unwrap() error {
	return e.Err
}

// FormatTrace returns a human-readable formatted trace log
func (e *TraceableError) FormatTrace() string {
	if len(e.Trace) == 0 {
		return fmt.Sprintf("[%s:%s] (no trace data)", e.Transport, e.Port)
	}

	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "[%s:%s] Wire trace (%d entries):\n", e.Transport, e.Port, len(e.Trace))

	for _, entry := range e.Trace {
		direction := ">"
		if entry.Direction == TraceRX {
			direction = "<"
		}
		hexData := formatHexBytes(entry.Data)
		if entry.Note != "" {
			_, _ = fmt.Fprintf(&sb, "  %s %s (%s)\n", direction, hexData, entry.Note)
		} else {
			_, _ = fmt.Fprintf(&sb, "  %s %s\n", direction, hexData)
		}
	}

	return sb.String()
}

// formatHexBytes formats a byte slice as space-separated hex values
func formatHexBytes(data []byte) string {
	if len(data) == 0 {
		return "(empty)"
	}
	if len(data) > 32 {
		return fmt.Sprintf("% X ... (%d bytes total)", data[:32], len(data))
	}
	return fmt.Sprintf("% X", data)
}

// TraceBuffer collects trace entries around a command.
// It keeps only the most recent maxSize entries. It is not safe for
// concurrent use; the session guards it with its pending lock.
type TraceBuffer struct {
	transport string
	port      string
	entries   []TraceEntry
	maxSize   int
}

// NewTraceBuffer creates a new trace buffer with the specified capacity
func NewTraceBuffer(transport, port string, maxSize int) *TraceBuffer {
	if maxSize <= 0 {
		maxSize = 16
	}
	return &TraceBuffer{
		entries:   make([]TraceEntry, 0, maxSize),
		maxSize:   maxSize,
		transport: transport,
		port:      port,
	}
}

// RecordTX records a frame sent to the hub
func (tb *TraceBuffer) RecordTX(data []byte, note string) {
	tb.record(TraceTX, data, note)
}

// RecordRX records a frame received from the hub
func (tb *TraceBuffer) RecordRX(data []byte, note string) {
	tb.record(TraceRX, data, note)
}

// RecordTimeout records a timeout event
func (tb *TraceBuffer) RecordTimeout(note string) {
	tb.record(TraceRX, nil, "TIMEOUT: "+note)
}

// record adds an entry to the buffer, evicting oldest if full
func (tb *TraceBuffer) record(dir TraceDirection, data []byte, note string) {
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	entry := TraceEntry{
		Direction: dir,
		Data:      dataCopy,
		Timestamp: time.Now(),
		Note:      note,
	}

	if len(tb.entries) >= tb.maxSize {
		copy(tb.entries, tb.entries[1:])
		tb.entries[len(tb.entries)-1] = entry
	} else {
		tb.entries = append(tb.entries, entry)
	}
}

// WrapError wraps an error with the collected trace data.
// Returns nil if err is nil.
func (tb *TraceBuffer) WrapError(err error) error {
	if err == nil {
		return nil
	}

	entriesCopy := make([]TraceEntry, len(tb.entries))
	copy(entriesCopy, tb.entries)

	return &TraceableError{
		Err:       err,
		Trace:     entriesCopy,
		Transport: tb.transport,
		Port:      tb.port,
	}
}

// Clear resets the trace buffer
func (tb *TraceBuffer) Clear() {
	tb.entries = tb.entries[:0]
}

// HasTrace checks if an error contains trace data
func HasTrace(err error) bool {
	var te *TraceableError
	return errors.As(err, &te)
}

// GetTrace extracts trace data from an error, returning nil if not present
func GetTrace(err error) *TraceableError {
	var te *TraceableError
	if errors.As(err, &te) {
		return te
	}
	return nil
}
