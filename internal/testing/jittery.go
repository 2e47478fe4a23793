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

package testing

import (
	"io"
	"math/rand/v2"
	"time"
)

// usbReportSize is the hidraw report length the boundary stress splits on.
const usbReportSize = 64

// JitterConfig configures JitteryTransport.
type JitterConfig struct {
	// MaxLatencyMs adds up to this many milliseconds before each read.
	MaxLatencyMs int
	// FragmentMinBytes is the smallest fragment returned.
	FragmentMinBytes int
	// Seed makes fragmentation reproducible. Zero picks a random seed.
	Seed uint64
	// FragmentReads splits reads at random points.
	FragmentReads bool
	// USBBoundaryStress never returns bytes across a 64-byte report boundary.
	USBBoundaryStress bool
}

// DefaultJitterConfig returns a sensible default configuration for testing.
func DefaultJitterConfig() JitterConfig {
	return JitterConfig{
		MaxLatencyMs:     2,
		FragmentReads:    true,
		FragmentMinBytes: 1,
	}
}

// JitteryTransport wraps a transport and hands reads back in random
// fragments with random latency, the way a USB HID link delivers a frame
// across several reports. Writes and Close pass through.
//
// Read must only be called from one goroutine.
type JitteryTransport struct {
	backend   io.ReadWriteCloser
	rng       *rand.Rand
	readBuf   []byte
	scratch   []byte
	config    JitterConfig
	delivered int
}

// NewJitteryTransport wraps backend with jitter simulation.
func NewJitteryTransport(backend io.ReadWriteCloser, config JitterConfig) *JitteryTransport {
	seed := config.Seed
	if seed == 0 {
		seed = rand.Uint64() //nolint:gosec // Test code, not crypto
	}
	if config.FragmentMinBytes < 1 {
		config.FragmentMinBytes = 1
	}

	return &JitteryTransport{
		backend: backend,
		config:  config,
		rng:     rand.New(rand.NewPCG(seed, seed^0xDEADBEEF)), //nolint:gosec // Test code, not crypto
		readBuf: make([]byte, 0, 1024),
		scratch: make([]byte, 1024),
	}
}

// Write passes writes through to the backend.
func (j *JitteryTransport) Write(data []byte) (int, error) {
	return j.backend.Write(data) //nolint:wrapcheck // Pass-through wrapper
}

// Close passes through to the backend.
func (j *JitteryTransport) Close() error {
	return j.backend.Close() //nolint:wrapcheck // Pass-through wrapper
}

// Read returns a fragment of the buffered backend data.
func (j *JitteryTransport) Read(buf []byte) (int, error) {
	if j.config.MaxLatencyMs > 0 {
		if delay := time.Duration(j.rng.IntN(j.config.MaxLatencyMs+1)) * time.Millisecond; delay > 0 {
			time.Sleep(delay)
		}
	}

	if len(j.readBuf) == 0 {
		n, err := j.backend.Read(j.scratch)
		if n > 0 {
			j.readBuf = append(j.readBuf, j.scratch[:n]...)
		}
		if n == 0 {
			return 0, err //nolint:wrapcheck // Pass-through wrapper
		}
	}

	toReturn := min(len(j.readBuf), len(buf))

	if j.config.USBBoundaryStress {
		untilBoundary := usbReportSize - j.delivered%usbReportSize
		toReturn = min(toReturn, untilBoundary)
	}

	if j.config.FragmentReads && toReturn > j.config.FragmentMinBytes {
		toReturn = j.config.FragmentMinBytes + j.rng.IntN(toReturn-j.config.FragmentMinBytes+1)
	}

	copy(buf, j.readBuf[:toReturn])
	j.readBuf = j.readBuf[toReturn:]
	j.delivered += toReturn
	return toReturn, nil
}

// Buffered returns the number of bytes read from the backend but not yet
// returned.
func (j *JitteryTransport) Buffered() int {
	return len(j.readBuf)
}
