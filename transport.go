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
	"fmt"
	"strings"

	"github.com/ZaparooProject/go-wyzesense/transport/hidraw"
	"github.com/ZaparooProject/go-wyzesense/transport/uart"
)

// Transport is the byte stream the session runs the hub protocol over.
//
// Read must return within a bounded poll interval; it returns (0, nil) when
// nothing arrived so the reader can notice Stop. Any read error ends the
// session. Write is called with exactly one encoded frame and must write it
// atomically. Read and Write are called from different goroutines.
type Transport interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// TransportFactory opens a transport for a device path.
type TransportFactory func(path string) (Transport, error)

// TransportType names the transport a device path maps to.
type TransportType string

const (
	// TransportHIDRaw is a Linux hidraw node, the normal hub attachment.
	TransportHIDRaw TransportType = "hidraw"
	// TransportUART is a serial port.
	TransportUART TransportType = "uart"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// TransportTypeForPath picks the transport for a device path: hidraw nodes
// use the HID transport, everything else is treated as a serial port.
func TransportTypeForPath(path string) TransportType {
	if strings.Contains(strings.ToLower(path), "hidraw") {
		return TransportHIDRaw
	}
	return TransportUART
}

// DefaultTransportFactory opens path with the transport its name implies.
func DefaultTransportFactory(path string) (Transport, error) {
	switch TransportTypeForPath(path) {
	case TransportHIDRaw:
		t, err := hidraw.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create hidraw transport for %s: %w", path, err)
		}
		return t, nil
	default:
		t, err := uart.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create UART transport for %s: %w", path, err)
		}
		return t, nil
	}
}
