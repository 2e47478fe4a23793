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

//go:build !linux

package hidraw

import "time"

// Transport is unavailable on this platform.
type Transport struct{}

// New always fails on this platform.
func New(path string) (*Transport, error) {
	return NewWithPollInterval(path, DefaultPollInterval)
}

// NewWithPollInterval always fails on this platform.
func NewWithPollInterval(_ string, _ time.Duration) (*Transport, error) {
	return nil, ErrUnsupportedPlatform
}

// Path returns an empty string.
func (*Transport) Path() string {
	return ""
}

// Read always fails on this platform.
func (*Transport) Read(_ []byte) (int, error) {
	return 0, ErrUnsupportedPlatform
}

// Write always fails on this platform.
func (*Transport) Write(_ []byte) (int, error) {
	return 0, ErrUnsupportedPlatform
}

// Close always fails on this platform.
func (*Transport) Close() error {
	return ErrUnsupportedPlatform
}
