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
	"path/filepath"
	"strings"
)

// WyzeSense hub USB identifiers. The hub enumerates as a CH554 HID device.
const (
	HubVendorID  = "1A86"
	HubProductID = "E024"
	// HubVIDPID is the hub's VID:PID in the form used by Options.Blocklist.
	HubVIDPID = HubVendorID + ":" + HubProductID
)

// DefaultBlocklist returns USB devices that should never be reported.
// Format: VID:PID in hexadecimal (case-insensitive).
func DefaultBlocklist() []string {
	return []string{}
}

// IsBlocked checks if a USB device is in the blocklist.
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = NormalizeVIDPID(vidpid)
	for _, blocked := range blocklist {
		if vidpid == NormalizeVIDPID(blocked) {
			return true
		}
	}
	return false
}

// NormalizeVIDPID upper-cases a VID:PID and pads each half to four digits,
// so "1a86:e024" and "00001A86:0000E024" both become "1A86:E024".
func NormalizeVIDPID(vidpid string) string {
	vid, pid, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(vidpid)), ":")
	if !ok {
		return strings.ToUpper(strings.TrimSpace(vidpid))
	}
	return normalizeID(vid) + ":" + normalizeID(pid)
}

func normalizeID(id string) string {
	id = strings.TrimLeft(id, "0")
	if len(id) < 4 {
		id = strings.Repeat("0", 4-len(id)) + id
	}
	return id
}

// IsHubVIDPID reports whether vidpid identifies a WyzeSense hub.
func IsHubVIDPID(vidpid string) bool {
	return NormalizeVIDPID(vidpid) == HubVIDPID
}

// IsPathIgnored checks if a device path is in the ignore list.
// Paths are compared after cleaning and case folding.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" || len(ignorePaths) == 0 {
		return false
	}

	normalizedDevice := normalizedPath(devicePath)
	for _, ignorePath := range ignorePaths {
		if ignorePath == "" {
			continue
		}
		if normalizedDevice == normalizedPath(ignorePath) {
			return true
		}
	}
	return false
}

func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
