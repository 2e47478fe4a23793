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

// Package hidraw detects WyzeSense hubs exposed as Linux hidraw devices.
// Importing it registers the detector with the detection package.
package hidraw

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/ZaparooProject/go-wyzesense/detection"
)

// TransportName is the transport this detector handles.
const TransportName = "hidraw"

type detector struct{}

// New creates a new hidraw detector.
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type.
func (*detector) Transport() string {
	return TransportName
}

// Detect lists hidraw nodes and grades each one against the hub's identity.
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	root := opts.SysfsRoot
	if root == "" {
		if runtime.GOOS != "linux" {
			return nil, detection.ErrUnsupportedPlatform
		}
		root = defaultSysfsRoot
	}

	nodes, err := listHIDRawNodes(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate hidraw devices: %w", err)
	}

	var devices []detection.DeviceInfo
	for _, node := range nodes {
		if node.VIDPID != "" && detection.IsBlocked(node.VIDPID, opts.Blocklist) {
			continue
		}
		if detection.IsPathIgnored(node.Path, opts.IgnorePaths) {
			continue
		}
		devices = append(devices, toDeviceInfo(node))
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

func toDeviceInfo(node hidNode) detection.DeviceInfo {
	name := node.HIDName
	if name == "" {
		name = node.Name
	}
	return detection.DeviceInfo{
		Transport:  TransportName,
		Path:       node.Path,
		Name:       name,
		Confidence: grade(node),
		Metadata: map[string]string{
			"vidpid":   node.VIDPID,
			"hid_name": node.HIDName,
			"hid_phys": node.HIDPhys,
			"driver":   node.Driver,
		},
	}
}

// grade rates how likely a node is to be a hub.
func grade(node hidNode) detection.Confidence {
	switch {
	case detection.IsHubVIDPID(node.VIDPID):
		return detection.High
	case strings.Contains(strings.ToLower(node.HIDName), "wyze"):
		return detection.Medium
	default:
		return detection.Low
	}
}
