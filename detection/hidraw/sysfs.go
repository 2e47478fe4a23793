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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZaparooProject/go-wyzesense/detection"
)

const (
	defaultSysfsRoot = "/sys"
	// busUSB is the HID bus type for USB devices.
	busUSB = "0003"
)

// hidNode is one /sys/class/hidraw entry.
type hidNode struct {
	Path    string
	Name    string
	VIDPID  string
	HIDName string
	HIDPhys string
	Driver  string
	Bus     string
}

// listHIDRawNodes reads every hidraw entry under root. Entries whose uevent
// cannot be read are still listed, without identifiers.
func listHIDRawNodes(ctx context.Context, root string) ([]hidNode, error) {
	classDir := filepath.Join(root, "class", "hidraw")
	entries, err := os.ReadDir(classDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", classDir, err)
	}

	nodes := make([]hidNode, 0, len(entries))
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nodes, ctx.Err()
		}
		if !strings.HasPrefix(entry.Name(), "hidraw") {
			continue
		}

		node := hidNode{
			Name: entry.Name(),
			Path: "/dev/" + entry.Name(),
		}
		ueventPath := filepath.Join(classDir, entry.Name(), "device", "uevent")
		if data, err := os.ReadFile(ueventPath); err == nil { //nolint:gosec // path is built under the sysfs root
			parseUevent(&node, data)
		}
		if node.Bus != "" && node.Bus != busUSB {
			continue
		}
		nodes = append(nodes, node)
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Path < nodes[j].Path })
	return nodes, nil
}

// parseUevent fills node from KEY=VALUE lines such as
//
//	HID_ID=0003:00001A86:0000E024
//	HID_NAME=WyzeSense Bridge
func parseUevent(node *hidNode, data []byte) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "DRIVER":
			node.Driver = value
		case "HID_NAME":
			node.HIDName = value
		case "HID_PHYS":
			node.HIDPhys = value
		case "HID_ID":
			parts := strings.Split(value, ":")
			if len(parts) == 3 {
				node.Bus = strings.ToUpper(parts[0])
				node.VIDPID = detection.NormalizeVIDPID(parts[1] + ":" + parts[2])
			}
		}
	}
}
