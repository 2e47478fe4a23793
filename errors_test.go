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
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-wyzesense/internal/frame"
	"github.com/ZaparooProject/go-wyzesense/transport/hidraw"
	"github.com/ZaparooProject/go-wyzesense/transport/uart"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "timeout", err: &CommandError{Cmd: frame.CmdInquiry, Err: ErrCommandTimeout}, want: true},
		{name: "handshake", err: &HandshakeError{Step: frame.CmdGetMAC, Err: ErrInvalidResponse}, want: true},
		{name: "transient transport", err: NewTransportError("write", "/dev/hidraw0", syscall.EAGAIN, ErrorTypeTransient), want: true},
		{name: "permanent transport", err: NewTransportError("read", "/dev/hidraw0", syscall.ENODEV, ErrorTypePermanent), want: false},
		{name: "device open", err: &DeviceOpenError{Path: "/dev/hidraw0", Err: syscall.ENOENT}, want: false},
		{name: "stopped", err: fmt.Errorf("list: %w", ErrStopped), want: false},
		{name: "invalid parameter", err: ErrInvalidParameter, want: false},
		{name: "transport read sentinel", err: ErrTransportRead, want: true},
		{name: "other", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "disconnected", err: fmt.Errorf("%w: eof", ErrDeviceDisconnected), want: true},
		{name: "stopped", err: ErrStopped, want: true},
		{name: "closed", err: ErrTransportClosed, want: true},
		{name: "permanent", err: NewTransportError("read", "p", io.ErrUnexpectedEOF, ErrorTypePermanent), want: true},
		{name: "transient", err: NewTransportError("read", "p", io.ErrUnexpectedEOF, ErrorTypeTransient), want: false},
		{name: "enodev", err: syscall.ENODEV, want: true},
		{name: "eof", err: io.EOF, want: true},
		{name: "timeout", err: ErrCommandTimeout, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestClassifyTransportError(t *testing.T) {
	t.Parallel()

	gone := classifyTransportError("read", "/dev/hidraw0", syscall.ENODEV)
	assert.Equal(t, ErrorTypePermanent, gone.Type)
	assert.False(t, gone.Retryable)
	require.ErrorIs(t, gone, syscall.ENODEV)

	eof := classifyTransportError("read", "/dev/hidraw0", io.EOF)
	assert.Equal(t, ErrorTypePermanent, eof.Type)

	busy := classifyTransportError("write", "/dev/hidraw0", syscall.EAGAIN)
	assert.Equal(t, ErrorTypeTransient, busy.Type)
	assert.True(t, busy.Retryable)
	assert.Contains(t, busy.Error(), "write")
	assert.Contains(t, busy.Error(), "/dev/hidraw0")

	for _, closed := range []error{hidraw.ErrClosed, uart.ErrClosed, os.ErrClosed} {
		te := classifyTransportError("write", "/dev/hidraw0", closed)
		assert.Equal(t, ErrorTypePermanent, te.Type, closed)
		require.ErrorIs(t, te, ErrTransportClosed)
		require.ErrorIs(t, te, closed)
		assert.True(t, IsFatal(te))
	}

	for _, timeout := range []error{os.ErrDeadlineExceeded, syscall.ETIMEDOUT} {
		te := classifyTransportError("read", "/dev/ttyUSB0", timeout)
		assert.Equal(t, ErrorTypeTimeout, te.Type, timeout)
		assert.True(t, te.Retryable)
		assert.False(t, IsFatal(te))
	}
}

func TestTypedErrors(t *testing.T) {
	t.Parallel()

	openErr := &DeviceOpenError{Path: "/dev/hidraw0", Err: syscall.EACCES}
	require.ErrorIs(t, openErr, ErrDeviceOpen)
	require.ErrorIs(t, openErr, syscall.EACCES)
	assert.Contains(t, openErr.Error(), "/dev/hidraw0")

	hsErr := &HandshakeError{Step: frame.CmdGetENR, Err: ErrCommandTimeout}
	require.ErrorIs(t, hsErr, ErrHandshakeFailed)
	require.ErrorIs(t, hsErr, ErrCommandTimeout)
	assert.Contains(t, hsErr.Error(), "GetENR")

	cmdErr := &CommandError{Cmd: frame.CmdDelSensor, Err: ErrStopped}
	require.ErrorIs(t, cmdErr, ErrStopped)
	assert.Equal(t, "DelSensor: session stopped", cmdErr.Error())
}

func TestTraceBuffer(t *testing.T) {
	t.Parallel()

	tb := NewTraceBuffer("mock", "/dev/virtual", 3)
	for i := range 5 {
		tb.RecordTX([]byte{byte(i)}, fmt.Sprintf("frame %d", i))
	}
	tb.RecordTimeout("GetMAC after 2s")

	err := tb.WrapError(ErrCommandTimeout)
	require.ErrorIs(t, err, ErrCommandTimeout)
	require.True(t, HasTrace(err))

	trace := GetTrace(fmt.Errorf("wrapped: %w", err))
	require.NotNil(t, trace)
	require.Len(t, trace.Trace, 3)
	assert.Equal(t, "frame 3", trace.Trace[0].Note)
	assert.Equal(t, "TIMEOUT: GetMAC after 2s", trace.Trace[2].Note)

	formatted := trace.FormatTrace()
	assert.True(t, strings.HasPrefix(formatted, "[mock:/dev/virtual] Wire trace (3 entries):"))
	assert.Contains(t, formatted, "> 04 (frame 4)")
	assert.Contains(t, formatted, "< (empty) (TIMEOUT: GetMAC after 2s)")

	tb.Clear()
	empty := tb.WrapError(ErrCommandTimeout)
	assert.Contains(t, GetTrace(empty).FormatTrace(), "(no trace data)")
	assert.NoError(t, tb.WrapError(nil))
	assert.Nil(t, GetTrace(ErrCommandTimeout))
}

func TestTraceEntry_String(t *testing.T) {
	t.Parallel()

	entry := TraceEntry{Direction: TraceRX, Data: []byte{0x55, 0xAA}, Note: "InquiryResp"}
	assert.Contains(t, entry.String(), "RX: 55 AA (InquiryResp)")
	entry.Note = ""
	assert.True(t, strings.HasSuffix(entry.String(), "RX: 55 AA"))
}

func TestFormatHexBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "(empty)", formatHexBytes(nil))
	assert.Equal(t, "AA 55 43", formatHexBytes([]byte{0xAA, 0x55, 0x43}))
	long := formatHexBytes(make([]byte, 40))
	assert.Contains(t, long, "(40 bytes total)")
}
