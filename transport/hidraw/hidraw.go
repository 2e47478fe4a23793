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

// Package hidraw implements the hub transport over a Linux hidraw node.
//
// The hub exposes a vendor HID interface. Every input report is 64 bytes: the
// first byte holds the number of valid bytes that follow (at most 0x3F) and
// the rest is padding. Output is written as raw frame bytes.
package hidraw

import (
	"errors"
	"time"
)

const (
	// ReportSize is the size of one HID input report.
	ReportSize = 64
	// MaxReportData is the largest valid length prefix.
	MaxReportData = 0x3F
	// DefaultPollInterval bounds how long Read waits for a report.
	DefaultPollInterval = 100 * time.Millisecond
)

var (
	// ErrClosed is returned by operations on a closed transport.
	ErrClosed = errors.New("hidraw transport is closed")
	// ErrUnsupportedPlatform is returned where hidraw nodes do not exist.
	ErrUnsupportedPlatform = errors.New("hidraw is only available on linux")
)

// unpackReport returns the valid data carried by one input report.
func unpackReport(report []byte) []byte {
	if len(report) == 0 {
		return nil
	}
	n := int(report[0])
	if n > MaxReportData {
		n = MaxReportData
	}
	if n > len(report)-1 {
		n = len(report) - 1
	}
	return report[1 : 1+n]
}
