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

import (
	"errors"
	"fmt"
)

var (
	// ErrPayloadTooLarge is returned when a payload does not fit the len byte.
	ErrPayloadTooLarge = errors.New("frame payload too large")
	// ErrAckNotEncodable is returned when Encode is asked to build an ack.
	ErrAckNotEncodable = errors.New("async ack must be built with EncodeAck")
)

// Encode builds a host to hub frame.
func Encode(cmd Command, payload []byte) ([]byte, error) {
	return EncodeWithMagic(HostMagic, cmd, payload)
}

// EncodeWithMagic builds a frame with an explicit magic pair. The hub side of
// the link uses HubMagic.
func EncodeWithMagic(magic [MagicLen]byte, cmd Command, payload []byte) ([]byte, error) {
	if cmd == CmdAsyncAck {
		return nil, ErrAckNotEncodable
	}
	if len(payload) > MaxPayloadLen {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayloadLen)
	}

	buf := make([]byte, 0, MinFrameLen+len(payload))
	buf = append(buf, magic[0], magic[1], cmd.Type(), byte(len(payload)+lenOverhead), cmd.ID())
	buf = append(buf, payload...)
	return appendChecksum(buf), nil
}

// EncodeAck builds the host acknowledgement for an async frame. The acked
// command id sits where the len byte would be.
func EncodeAck(acked Command) []byte {
	return EncodeAckWithMagic(HostMagic, acked)
}

// EncodeAckWithMagic builds an acknowledgement with an explicit magic pair.
func EncodeAckWithMagic(magic [MagicLen]byte, acked Command) []byte {
	buf := make([]byte, 0, AckFrameLen)
	buf = append(buf, magic[0], magic[1], TypeAsync, acked.ID(), CmdAsyncAck.ID())
	return appendChecksum(buf)
}
