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
	"bytes"
	"errors"
)

var (
	// ErrIncomplete means more bytes are needed before a decision can be made.
	ErrIncomplete = errors.New("incomplete frame")
	// ErrInvalidFrame means the candidate frame at the head of the buffer was
	// rejected. The returned remainder starts one byte past its magic.
	ErrInvalidFrame = errors.New("invalid frame")
)

// Packet is one validated frame.
type Packet struct {
	// Payload holds the bytes between the command id and the checksum.
	Payload []byte
	// Raw is the complete frame as received.
	Raw []byte
	// Cmd is the frame command code.
	Cmd Command
	// Acked is the acknowledged command when Cmd is CmdAsyncAck.
	Acked Command
}

// IsAck reports whether the packet is an async acknowledgement.
func (p Packet) IsAck() bool {
	return p.Cmd == CmdAsyncAck
}

// Decode extracts the first valid frame from buf.
//
// Bytes before the first magic pair are discarded. On ErrIncomplete the
// remainder holds every byte that may still belong to a frame, including a
// trailing lone magic byte. Decisions are made only on bytes that are present,
// so the result does not depend on how the stream was chunked.
func Decode(buf []byte) (Packet, []byte, error) {
	start := findMagic(buf)
	if start < 0 {
		return Packet{}, trailingMagicByte(buf), ErrIncomplete
	}
	buf = buf[start:]
	if len(buf) < HeaderLen {
		return Packet{}, buf, ErrIncomplete
	}

	typ, length, id := buf[2], buf[3], buf[4]
	if typ != TypeSync && typ != TypeAsync {
		return Packet{}, buf[1:], ErrInvalidFrame
	}

	cmd := MakeCommand(typ, id)
	total := AckFrameLen
	if cmd != CmdAsyncAck {
		if length < lenOverhead {
			return Packet{}, buf[1:], ErrInvalidFrame
		}
		total = int(length) + MagicLen + ChecksumLen
	}
	if len(buf) < total {
		return Packet{}, buf, ErrIncomplete
	}

	raw := buf[:total]
	if !validChecksum(raw) {
		return Packet{}, buf[1:], ErrInvalidFrame
	}

	pkt := Packet{
		Cmd: cmd,
		Raw: bytes.Clone(raw),
	}
	if cmd == CmdAsyncAck {
		pkt.Acked = MakeCommand(TypeAsync, length)
	} else {
		pkt.Payload = bytes.Clone(raw[HeaderLen : total-ChecksumLen])
	}
	return pkt, buf[total:], nil
}

// findMagic returns the offset of the first complete magic pair in either
// byte order, or -1.
func findMagic(buf []byte) int {
	for i := 0; i+1 < len(buf); i++ {
		if isMagic(buf[i], buf[i+1]) {
			return i
		}
	}
	return -1
}

func isMagic(a, b byte) bool {
	return (a == HostMagic[0] && b == HostMagic[1]) || (a == HubMagic[0] && b == HubMagic[1])
}

// trailingMagicByte keeps the last byte when it could open a magic pair.
func trailingMagicByte(buf []byte) []byte {
	if n := len(buf); n > 0 && (buf[n-1] == HostMagic[0] || buf[n-1] == HubMagic[0]) {
		return buf[n-1:]
	}
	return nil
}

// Decoder reassembles frames from an arbitrarily chunked byte stream.
// It is not safe for concurrent use.
type Decoder struct {
	buf     []byte
	dropped int
}

// NewDecoder creates an empty stream decoder.
func NewDecoder() *Decoder {
	return &Decoder{buf: make([]byte, 0, MaxFrameLen)}
}

// Feed appends received bytes to the decoder.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Next returns the next complete frame. Rejected frames are skipped and
// counted; false means more input is needed.
func (d *Decoder) Next() (Packet, bool) {
	for {
		pkt, rest, err := Decode(d.buf)
		d.buf = append(d.buf[:0], rest...)
		switch {
		case err == nil:
			return pkt, true
		case errors.Is(err, ErrInvalidFrame):
			d.dropped++
		default:
			return Packet{}, false
		}
	}
}

// Dropped returns how many candidate frames were rejected.
func (d *Decoder) Dropped() int {
	return d.dropped
}

// Buffered returns the number of bytes waiting for a complete frame.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Reset discards buffered bytes.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
}
