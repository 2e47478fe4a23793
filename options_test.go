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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-wyzesense/capture"
	testutil "github.com/ZaparooProject/go-wyzesense/internal/testing"
)

func TestApplyOptions_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := applyOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultCommandTimeout, cfg.commandTimeout)
	assert.Equal(t, DefaultVerifyTimeout, cfg.verifyTimeout)
	assert.Equal(t, DefaultStopTimeout, cfg.stopTimeout)
	assert.IsType(t, capture.NoopLogger{}, cfg.capture)
	assert.NotNil(t, cfg.transportFactory)
	assert.Nil(t, cfg.transport)
}

func TestApplyOptions(t *testing.T) {
	t.Parallel()

	hub := testutil.NewVirtualHub()
	fixed := time.Unix(100, 0)
	multi := capture.NewMultiLogger()

	cfg, err := applyOptions([]Option{
		WithTransport(hub),
		WithCommandTimeout(time.Second),
		WithVerifyTimeout(3 * time.Second),
		WithStopTimeout(0),
		WithCaptureLogger(multi),
		WithClock(func() time.Time { return fixed }),
	})
	require.NoError(t, err)
	assert.Same(t, hub, cfg.transport.(*testutil.VirtualHub))
	assert.Equal(t, string(TransportMock), cfg.transportName)
	assert.Equal(t, time.Second, cfg.commandTimeout)
	assert.Equal(t, 3*time.Second, cfg.verifyTimeout)
	assert.Zero(t, cfg.stopTimeout)
	assert.Same(t, multi, cfg.capture.(*capture.MultiLogger))
	assert.Equal(t, fixed, cfg.clock())

	cfg, err = applyOptions([]Option{WithCaptureLogger(nil)})
	require.NoError(t, err)
	assert.IsType(t, capture.NoopLogger{}, cfg.capture)
}

func TestApplyOptions_Invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]Option{
		"nil transport":   WithTransport(nil),
		"nil factory":     WithTransportFactory(nil),
		"zero timeout":    WithCommandTimeout(0),
		"negative verify": WithVerifyTimeout(-time.Second),
		"negative stop":   WithStopTimeout(-time.Second),
		"nil clock":       WithClock(nil),
	}
	for name, opt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := applyOptions([]Option{opt})
			require.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func TestTransportTypeForPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TransportHIDRaw, TransportTypeForPath("/dev/hidraw0"))
	assert.Equal(t, TransportHIDRaw, TransportTypeForPath("/dev/HIDRAW2"))
	assert.Equal(t, TransportUART, TransportTypeForPath("/dev/ttyUSB0"))
	assert.Equal(t, TransportUART, TransportTypeForPath("COM3"))
}
