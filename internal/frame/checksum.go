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

import "encoding/binary"

// Checksum computes the frame checksum for a data buffer.
// This is the sum of all bytes truncated to 16 bits.
func Checksum(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum += uint16(b)
	}
	return sum
}

// appendChecksum appends the big-endian checksum of data to data.
func appendChecksum(data []byte) []byte {
	return binary.BigEndian.AppendUint16(data, Checksum(data))
}

// validChecksum reports whether the last two bytes of frame are the
// checksum of everything before them.
func validChecksum(frame []byte) bool {
	if len(frame) < ChecksumLen {
		return false
	}
	body := len(frame) - ChecksumLen
	return binary.BigEndian.Uint16(frame[body:]) == Checksum(frame[:body])
}
