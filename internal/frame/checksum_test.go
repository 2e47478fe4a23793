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

package frame

import "testing"

func TestChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{
			name: "empty data",
			data: []byte{},
			want: 0,
		},
		{
			name: "single byte",
			data: []byte{0x42},
			want: 0x42,
		},
		{
			name: "carries into high byte",
			data: []byte{0xFF, 0x01},
			want: 0x0100,
		},
		{
			name: "inquiry header",
			data: []byte{0xAA, 0x55, 0x43, 0x03, 0x27},
			want: 0x016C,
		},
		{
			name: "wraps at 16 bits",
			data: bytesOf(0xFF, 258),
			want: uint16((0xFF * 258) & 0xFFFF),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Checksum(tt.data); got != tt.want {
				t.Errorf("Checksum() = 0x%04X, want 0x%04X", got, tt.want)
			}
		})
	}
}

func TestValidChecksum(t *testing.T) {
	t.Parallel()

	if !validChecksum([]byte{0xAA, 0x55, 0x43, 0x03, 0x27, 0x01, 0x6C}) {
		t.Error("expected inquiry frame checksum to validate")
	}
	if validChecksum([]byte{0xAA, 0x55, 0x43, 0x03, 0x27, 0x01, 0x6D}) {
		t.Error("expected corrupted checksum to be rejected")
	}
	if validChecksum([]byte{0x01}) {
		t.Error("expected short buffer to be rejected")
	}
}

func bytesOf(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
