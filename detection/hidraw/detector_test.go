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

package hidraw

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-wyzesense/detection"
)

// fakeSysfs builds a /sys/class/hidraw tree with one uevent per node.
func fakeSysfs(t *testing.T, nodes map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, uevent := range nodes {
		dir := filepath.Join(root, "class", "hidraw", name, "device")
		require.NoError(t, os.MkdirAll(dir, 0o750))
		if uevent != "" {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "uevent"), []byte(uevent), 0o600))
		}
	}
	return root
}

const (
	hubUevent = "DRIVER=hid-generic\nHID_ID=0003:00001A86:0000E024\nHID_NAME=WCH.CN WyzeSense\nHID_PHYS=usb-0000:00:14.0-2/input0\n"
	keyboard  = "DRIVER=hid-generic\nHID_ID=0003:0000046D:0000C31C\nHID_NAME=Logitech Keyboard\n"
	bluetooth = "DRIVER=hid-generic\nHID_ID=0005:0000046D:0000B023\nHID_NAME=BT Mouse\n"
	named     = "HID_ID=0003:00001234:00005678\nHID_NAME=Wyze bridge clone\n"
)

func TestParseUevent(t *testing.T) {
	t.Parallel()

	var node hidNode
	parseUevent(&node, []byte(hubUevent))
	assert.Equal(t, "1A86:E024", node.VIDPID)
	assert.Equal(t, "0003", node.Bus)
	assert.Equal(t, "WCH.CN WyzeSense", node.HIDName)
	assert.Equal(t, "hid-generic", node.Driver)
	assert.Equal(t, "usb-0000:00:14.0-2/input0", node.HIDPhys)

	var broken hidNode
	parseUevent(&broken, []byte("HID_ID=bad\nnot a pair\n"))
	assert.Empty(t, broken.VIDPID)
}

func TestListHIDRawNodes(t *testing.T) {
	t.Parallel()

	root := fakeSysfs(t, map[string]string{
		"hidraw2": hubUevent,
		"hidraw0": keyboard,
		"hidraw1": bluetooth,
		"hidraw3": "",
	})

	nodes, err := listHIDRawNodes(context.Background(), root)
	require.NoError(t, err)

	var paths []string
	for _, n := range nodes {
		paths = append(paths, n.Path)
	}
	assert.Equal(t, []string{"/dev/hidraw0", "/dev/hidraw2", "/dev/hidraw3"}, paths,
		"non-USB nodes are skipped, unreadable ones kept")

	_, err = listHIDRawNodes(context.Background(), t.TempDir())
	require.Error(t, err)
}

func TestDetect_GradesNodes(t *testing.T) {
	t.Parallel()

	root := fakeSysfs(t, map[string]string{
		"hidraw0": keyboard,
		"hidraw1": hubUevent,
		"hidraw4": named,
	})

	devices, err := New().Detect(context.Background(), &detection.Options{SysfsRoot: root})
	require.NoError(t, err)
	require.Len(t, devices, 3)

	byPath := map[string]detection.DeviceInfo{}
	for _, d := range devices {
		byPath[d.Path] = d
	}
	assert.Equal(t, detection.Low, byPath["/dev/hidraw0"].Confidence)
	assert.Equal(t, detection.High, byPath["/dev/hidraw1"].Confidence)
	assert.Equal(t, detection.Medium, byPath["/dev/hidraw4"].Confidence)
	assert.Equal(t, "WCH.CN WyzeSense", byPath["/dev/hidraw1"].Name)
	assert.Equal(t, detection.HubVIDPID, byPath["/dev/hidraw1"].Metadata["vidpid"])
	assert.Equal(t, TransportName, byPath["/dev/hidraw1"].Transport)
}

func TestDetect_BlocklistAndIgnore(t *testing.T) {
	t.Parallel()

	root := fakeSysfs(t, map[string]string{
		"hidraw0": hubUevent,
		"hidraw1": named,
	})

	_, err := New().Detect(context.Background(), &detection.Options{
		SysfsRoot:   root,
		Blocklist:   []string{"1a86:e024"},
		IgnorePaths: []string{"/dev/hidraw1"},
	})
	require.ErrorIs(t, err, detection.ErrNoDevicesFound)
}

func TestDetector_Transport(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "hidraw", New().Transport())
}
