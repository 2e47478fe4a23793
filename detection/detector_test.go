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

package detection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceInfo_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		expected string
		device   DeviceInfo
	}{
		{
			name:     "high",
			device:   DeviceInfo{Transport: "hidraw", Path: "/dev/hidraw0", Confidence: High},
			expected: "hidraw device at /dev/hidraw0 (confidence: high)",
		},
		{
			name:     "low",
			device:   DeviceInfo{Transport: "hidraw", Path: "/dev/hidraw3", Confidence: Low},
			expected: "hidraw device at /dev/hidraw3 (confidence: low)",
		},
		{
			name:     "unknown",
			device:   DeviceInfo{Transport: "uart", Path: "/dev/ttyUSB1", Confidence: Confidence(99)},
			expected: "uart device at /dev/ttyUSB1 (confidence: unknown)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, tc.device.String())
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	assert.True(t, opts.EnableCache)
	assert.Positive(t, opts.Timeout)
	assert.Positive(t, opts.CacheTTL)
	assert.Equal(t, Medium, opts.MinConfidence)
}

func TestNormalizeVIDPID(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"1a86:e024":         "1A86:E024",
		"00001A86:0000E024": "1A86:E024",
		" 1A86:E024 ":       "1A86:E024",
		"1:2":               "0001:0002",
		"garbage":           "GARBAGE",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeVIDPID(in), in)
	}
	assert.True(t, IsHubVIDPID("00001a86:0000e024"))
	assert.False(t, IsHubVIDPID("1A86:7523"))
}

func TestIsBlocked(t *testing.T) {
	t.Parallel()

	blocklist := []string{"1a86:e024", "ABCD:EF01"}
	assert.True(t, IsBlocked("1A86:E024", blocklist))
	assert.True(t, IsBlocked("0000abcd:0000ef01", blocklist))
	assert.False(t, IsBlocked("1234:5678", blocklist))
	assert.False(t, IsBlocked("1A86:E024", nil))
}

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		devicePath  string
		ignorePaths []string
		expected    bool
	}{
		{name: "empty ignore list", devicePath: "/dev/hidraw0", ignorePaths: []string{}, expected: false},
		{name: "empty device path", devicePath: "", ignorePaths: []string{"/dev/hidraw0"}, expected: false},
		{name: "exact", devicePath: "/dev/hidraw0", ignorePaths: []string{"/dev/hidraw0"}, expected: true},
		{name: "unclean", devicePath: "/dev/hidraw0", ignorePaths: []string{"/dev/../dev/hidraw0"}, expected: true},
		{name: "case", devicePath: "COM3", ignorePaths: []string{"com3"}, expected: true},
		{name: "different", devicePath: "/dev/hidraw1", ignorePaths: []string{"", "/dev/hidraw0"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsPathIgnored(tt.devicePath, tt.ignorePaths))
		})
	}
}

func TestCache_GetSetClear(t *testing.T) {
	clearCache()
	t.Cleanup(clearCache)

	devices := []DeviceInfo{{Transport: "hidraw", Path: "/dev/hidraw0"}}
	setCached("hidraw", devices)
	devices[0].Path = "/dev/changed"

	got, found := getCached("hidraw", time.Minute)
	require.True(t, found)
	assert.Equal(t, "/dev/hidraw0", got[0].Path, "cache must hold a copy")

	_, found = getCached("hidraw", 0)
	assert.False(t, found, "zero TTL expires immediately")

	setCached("uart", devices)
	ClearDetectionCacheForTransport("hidraw")
	_, found = getCached("hidraw", time.Minute)
	assert.False(t, found)
	_, found = getCached("uart", time.Minute)
	assert.True(t, found)

	ClearDetectionCache()
	_, found = getCached("uart", time.Minute)
	assert.False(t, found)
}

// stubDetector returns fixed results.
type stubDetector struct {
	err       error
	transport string
	devices   []DeviceInfo
	calls     int
}

func (s *stubDetector) Detect(context.Context, *Options) ([]DeviceInfo, error) {
	s.calls++
	return s.devices, s.err
}

func (s *stubDetector) Transport() string {
	return s.transport
}

// blockingDetector never returns until its context ends.
type blockingDetector struct{}

func (*blockingDetector) Detect(ctx context.Context, _ *Options) ([]DeviceInfo, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (*blockingDetector) Transport() string {
	return "blocking"
}

func withRegistry(t *testing.T, detectors ...Detector) {
	t.Helper()
	original := registry
	registry = nil
	for _, d := range detectors {
		RegisterDetector(d)
	}
	clearCache()
	t.Cleanup(func() {
		registry = original
		clearCache()
	})
}

func TestGetDetectors_FilterByTransport(t *testing.T) {
	withRegistry(t,
		&stubDetector{transport: "hidraw"},
		&stubDetector{transport: "uart"},
	)

	assert.Len(t, getDetectors(nil), 2)
	assert.Len(t, getDetectors([]string{"hidraw"}), 1)
	assert.Empty(t, getDetectors([]string{"usb"}))
}

func TestDetectAll_NoDetectors(t *testing.T) {
	withRegistry(t)

	opts := DefaultOptions()
	opts.Transports = []string{"nonexistent"}
	_, err := DetectAll(context.Background(), &opts)
	require.ErrorIs(t, err, ErrNoDetectors)
}

func TestDetectAll_Timeout(t *testing.T) {
	withRegistry(t, &blockingDetector{})

	opts := DefaultOptions()
	opts.Timeout = 10 * time.Millisecond
	opts.EnableCache = false

	_, err := DetectAll(context.Background(), &opts)
	require.ErrorIs(t, err, ErrDetectionTimeout)
}

func TestDetectAll_FiltersAndCaches(t *testing.T) {
	hub := DeviceInfo{
		Transport:  "hidraw",
		Path:       "/dev/hidraw1",
		Confidence: High,
		Metadata:   map[string]string{"vidpid": HubVIDPID},
	}
	mouse := DeviceInfo{Transport: "hidraw", Path: "/dev/hidraw0", Confidence: Low}
	stub := &stubDetector{transport: "hidraw", devices: []DeviceInfo{mouse, hub}}
	withRegistry(t, stub)

	opts := DefaultOptions()
	devices, err := DetectAll(context.Background(), &opts)
	require.NoError(t, err)
	assert.Equal(t, []DeviceInfo{hub}, devices)

	_, err = DetectAll(context.Background(), &opts)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls, "second run must come from the cache")

	opts.IgnorePaths = []string{"/dev/hidraw1"}
	_, err = DetectAll(context.Background(), &opts)
	require.ErrorIs(t, err, ErrNoDevicesFound, "cached results are filtered again")
}

func TestDetectAll_PartialFailure(t *testing.T) {
	errBroken := errors.New("broken")
	hub := DeviceInfo{Transport: "hidraw", Path: "/dev/hidraw0", Confidence: High}
	withRegistry(t,
		&stubDetector{transport: "hidraw", devices: []DeviceInfo{hub}},
		&stubDetector{transport: "uart", err: errBroken},
	)

	opts := DefaultOptions()
	opts.EnableCache = false
	devices, err := DetectAll(context.Background(), &opts)
	require.NoError(t, err)
	assert.Equal(t, []DeviceInfo{hub}, devices)

	opts.Transports = []string{"uart"}
	_, err = DetectAll(context.Background(), &opts)
	require.ErrorIs(t, err, errBroken)
}

func TestDetectFirst_PrefersHighestConfidence(t *testing.T) {
	named := DeviceInfo{Transport: "hidraw", Path: "/dev/hidraw0", Confidence: Medium}
	hub := DeviceInfo{Transport: "hidraw", Path: "/dev/hidraw2", Confidence: High}
	withRegistry(t, &stubDetector{transport: "hidraw", devices: []DeviceInfo{named, hub}})

	opts := DefaultOptions()
	opts.EnableCache = false
	got, err := DetectFirst(context.Background(), &opts)
	require.NoError(t, err)
	assert.Equal(t, hub, got)
}
