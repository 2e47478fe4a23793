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

// Package testing provides test utilities including an in-memory WyzeSense
// hub.
//
// VirtualHub speaks the hub side of the wire protocol: it decodes the
// frames the host writes, answers the handshake and sensor management
// commands from its own state, and lets tests inject notifications, drop or
// delay replies, and pull the plug.
package testing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/ZaparooProject/go-wyzesense/internal/frame"
	"github.com/ZaparooProject/go-wyzesense/internal/syncutil"
)

// Default identity reported by a new VirtualHub.
const (
	DefaultHubMAC     = "7788AABB"
	DefaultHubVersion = "0.0.0.30 V1.4 Dongle UD"
	// DefaultPollInterval is how long Read waits before returning no data.
	DefaultPollInterval = 5 * time.Millisecond
)

// ErrHubClosed is returned by Read and Write after Close.
var ErrHubClosed = errors.New("virtual hub closed")

// DefaultENR is the 16-byte ENR a new VirtualHub reports.
var DefaultENR = []byte("VirtualHubENR016")

// PairingSensor is a sensor that announces itself when scanning starts.
type PairingSensor struct {
	MAC     string
	Type    byte
	Version byte
}

// VirtualHub simulates a hub at the frame level. It implements the session
// Transport interface: Read, Write and Close.
type VirtualHub struct {
	disconnectErr error
	writeErr      error
	replies       map[frame.Command][][]byte
	delays        map[frame.Command]time.Duration
	dropped       map[frame.Command]int
	pairing       *PairingSensor
	decoder       *frame.Decoder
	notify        chan struct{}
	mac           string
	version       string
	written       []frame.Packet
	sensors       []string
	enr           []byte
	rx            bytes.Buffer
	pollInterval  time.Duration
	readChunk     int
	mu            syncutil.Mutex
	scanning      bool
	closed        bool
}

// NewVirtualHub creates a hub with no paired sensors.
func NewVirtualHub() *VirtualHub {
	return &VirtualHub{
		replies:      make(map[frame.Command][][]byte),
		delays:       make(map[frame.Command]time.Duration),
		dropped:      make(map[frame.Command]int),
		decoder:      frame.NewDecoder(),
		notify:       make(chan struct{}, 1),
		mac:          DefaultHubMAC,
		version:      DefaultHubVersion,
		enr:          slices.Clone(DefaultENR),
		pollInterval: DefaultPollInterval,
	}
}

// Write receives host frames and queues the hub's answers.
func (h *VirtualHub) Write(data []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0, ErrHubClosed
	}
	if h.disconnectErr != nil {
		return 0, h.disconnectErr
	}
	if h.writeErr != nil {
		return 0, h.writeErr
	}

	h.decoder.Feed(data)
	for {
		pkt, ok := h.decoder.Next()
		if !ok {
			break
		}
		h.written = append(h.written, pkt)
		if !pkt.IsAck() && pkt.Cmd != frame.CmdSyncTimeReply {
			h.handleCommand(pkt)
		}
	}
	return len(data), nil
}

// Read returns queued hub bytes. With nothing queued it waits up to the poll
// interval and returns 0, nil, like the hidraw transport.
func (h *VirtualHub) Read(buf []byte) (int, error) {
	timer := time.NewTimer(h.pollInterval)
	defer timer.Stop()

	for {
		h.mu.Lock()
		switch {
		case h.closed:
			h.mu.Unlock()
			return 0, ErrHubClosed
		case h.rx.Len() > 0:
			limit := len(buf)
			if h.readChunk > 0 {
				limit = min(limit, h.readChunk)
			}
			n, _ := h.rx.Read(buf[:limit])
			h.mu.Unlock()
			return n, nil
		case h.disconnectErr != nil:
			err := h.disconnectErr
			h.mu.Unlock()
			return 0, err
		}
		h.mu.Unlock()

		select {
		case <-h.notify:
		case <-timer.C:
			return 0, nil
		}
	}
}

// Close shuts the hub. Later reads and writes fail with ErrHubClosed.
func (h *VirtualHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	h.closed = true
	h.signal()
	return nil
}

// Disconnect makes every later read and write fail with err once queued
// bytes are drained. A nil err means io.EOF.
func (h *VirtualHub) Disconnect(err error) {
	if err == nil {
		err = io.EOF
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnectErr = err
	h.signal()
}

// FailWrites makes later writes fail with err while reads keep working. A nil
// err clears it.
func (h *VirtualHub) FailWrites(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writeErr = err
}

// SetIdentity changes what the handshake reports.
func (h *VirtualHub) SetIdentity(mac, version string, enr []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mac = mac
	h.version = version
	h.enr = slices.Clone(enr)
}

// SetReply overrides the reply frames sent for cmd. Each payload becomes one
// reply frame. Calling it with no payloads makes cmd go unanswered.
func (h *VirtualHub) SetReply(cmd frame.Command, payloads ...[]byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.replies[cmd] = payloads
}

// DropReplies makes the hub ignore the next n occurrences of cmd.
func (h *VirtualHub) DropReplies(cmd frame.Command, n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropped[cmd] = n
}

// DelayReplies holds back replies to cmd for d.
func (h *VirtualHub) DelayReplies(cmd frame.Command, d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.delays[cmd] = d
}

// SetReadChunk limits each Read to n bytes. Zero removes the limit.
func (h *VirtualHub) SetReadChunk(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readChunk = n
}

// SetPairingSensor makes a sensor announce itself on the next scan enable.
// A nil sensor means scans find nothing.
func (h *VirtualHub) SetPairingSensor(sensor *PairingSensor) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pairing = sensor
}

// AddSensor pairs a sensor without a scan.
func (h *VirtualHub) AddSensor(mac string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !slices.Contains(h.sensors, mac) {
		h.sensors = append(h.sensors, mac)
	}
}

// Sensors returns the paired sensor MACs.
func (h *VirtualHub) Sensors() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.sensors)
}

// Scanning reports whether scan mode is on.
func (h *VirtualHub) Scanning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scanning
}

// Inject queues a hub frame with the given command and payload.
func (h *VirtualHub) Inject(cmd frame.Command, payload []byte) error {
	encoded, err := frame.EncodeWithMagic(frame.HubMagic, cmd, payload)
	if err != nil {
		return err
	}
	h.InjectRaw(encoded)
	return nil
}

// InjectRaw queues bytes exactly as given.
func (h *VirtualHub) InjectRaw(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queue(data)
}

// InjectAlarm queues a sensor report. eventType is 0xA2 for an alarm and
// 0xA1 for a status report.
func (h *VirtualHub) InjectAlarm(ts time.Time, eventType byte, mac string, sensorType, battery, state, signal byte) error {
	return h.Inject(frame.CmdNotifySensorAlarm, AlarmPayload(ts, eventType, mac, sensorType, battery, state, signal))
}

// AlarmPayload builds a NotifySensorAlarm payload.
func AlarmPayload(ts time.Time, eventType byte, mac string, sensorType, battery, state, signal byte) []byte {
	payload := binary.BigEndian.AppendUint64(nil, uint64(ts.UnixMilli())) //nolint:gosec // test timestamps are after the epoch
	payload = append(payload, eventType)
	payload = append(payload, macBytes(mac)...)
	return append(payload, sensorType, 0x00, battery, 0x00, 0x00, state, 0x00, 0x00, signal)
}

// ScanPayload builds a NotifySensorScan payload.
func ScanPayload(sensor PairingSensor) []byte {
	payload := []byte{0xA3}
	payload = append(payload, macBytes(sensor.MAC)...)
	return append(payload, sensor.Type, sensor.Version)
}

// Written returns every frame the host wrote, in order.
func (h *VirtualHub) Written() []frame.Packet {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.written)
}

// WrittenCommands returns the command code of every frame the host wrote.
func (h *VirtualHub) WrittenCommands() []frame.Command {
	h.mu.Lock()
	defer h.mu.Unlock()
	cmds := make([]frame.Command, len(h.written))
	for i, pkt := range h.written {
		cmds[i] = pkt.Cmd
	}
	return cmds
}

// HostFrames returns every frame the host wrote except acks.
func (h *VirtualHub) HostFrames() []frame.Packet {
	h.mu.Lock()
	defer h.mu.Unlock()
	var frames []frame.Packet
	for _, pkt := range h.written {
		if !pkt.IsAck() {
			frames = append(frames, pkt)
		}
	}
	return frames
}

// HostCommands returns the command code of every non-ack host frame.
func (h *VirtualHub) HostCommands() []frame.Command {
	frames := h.HostFrames()
	cmds := make([]frame.Command, len(frames))
	for i, pkt := range frames {
		cmds[i] = pkt.Cmd
	}
	return cmds
}

// AckCount returns how many times the host acknowledged cmd.
func (h *VirtualHub) AckCount(cmd frame.Command) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, pkt := range h.written {
		if pkt.IsAck() && pkt.Acked == cmd {
			n++
		}
	}
	return n
}

// Acks returns the commands the host acknowledged.
func (h *VirtualHub) Acks() []frame.Command {
	h.mu.Lock()
	defer h.mu.Unlock()
	var acked []frame.Command
	for _, pkt := range h.written {
		if pkt.IsAck() {
			acked = append(acked, pkt.Acked)
		}
	}
	return acked
}

// Count returns how many times the host sent cmd.
func (h *VirtualHub) Count(cmd frame.Command) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, pkt := range h.written {
		if pkt.Cmd == cmd {
			n++
		}
	}
	return n
}

func (h *VirtualHub) handleCommand(pkt frame.Packet) {
	if n := h.dropped[pkt.Cmd]; n > 0 {
		h.dropped[pkt.Cmd] = n - 1
		return
	}

	payloads, overridden := h.replies[pkt.Cmd]
	if !overridden {
		payloads = h.defaultReply(pkt)
	}

	var out []byte
	for _, payload := range payloads {
		encoded, err := frame.EncodeWithMagic(frame.HubMagic, pkt.Cmd.Reply(), payload)
		if err != nil {
			continue
		}
		out = append(out, encoded...)
	}
	if pkt.Cmd == frame.CmdStartStopScan && h.scanning && h.pairing != nil {
		if encoded, err := frame.EncodeWithMagic(frame.HubMagic, frame.CmdNotifySensorScan, ScanPayload(*h.pairing)); err == nil {
			out = append(out, encoded...)
		}
	}
	if len(out) == 0 {
		return
	}

	if d := h.delays[pkt.Cmd]; d > 0 {
		time.AfterFunc(d, func() { h.InjectRaw(out) })
		return
	}
	h.queue(out)
}

// defaultReply answers from the hub's state. A nil slice means no reply.
func (h *VirtualHub) defaultReply(pkt frame.Packet) [][]byte {
	switch pkt.Cmd {
	case frame.CmdInquiry:
		return [][]byte{{0x01}}
	case frame.CmdGetENR:
		return [][]byte{slices.Clone(h.enr)}
	case frame.CmdGetMAC:
		return [][]byte{[]byte(h.mac)}
	case frame.CmdGetDongleVersion:
		return [][]byte{[]byte(h.version)}
	case frame.CmdFinishAuth:
		return [][]byte{{}}
	case frame.CmdStartStopScan:
		h.scanning = len(pkt.Payload) > 0 && pkt.Payload[0] == 0x01
		return [][]byte{{}}
	case frame.CmdGetSensorR1:
		return [][]byte{bytes.Repeat([]byte{0x52}, 16)}
	case frame.CmdVerifySensor:
		if len(pkt.Payload) >= 8 {
			mac := strings.TrimRight(string(pkt.Payload[:8]), "\x00")
			if !slices.Contains(h.sensors, mac) {
				h.sensors = append(h.sensors, mac)
			}
		}
		return [][]byte{{}}
	case frame.CmdDelSensor:
		mac := strings.TrimRight(string(pkt.Payload), "\x00")
		h.sensors = slices.DeleteFunc(h.sensors, func(s string) bool { return s == mac })
		return [][]byte{append(macBytes(mac), 0xFF)}
	case frame.CmdGetSensorCount:
		return [][]byte{{byte(len(h.sensors))}}
	case frame.CmdGetSensorList:
		list := make([][]byte, 0, len(h.sensors))
		for _, mac := range h.sensors {
			list = append(list, macBytes(mac))
		}
		return list
	default:
		return nil
	}
}

// queue appends hub bytes for the reader. Callers hold h.mu.
func (h *VirtualHub) queue(data []byte) {
	if h.closed {
		return
	}
	_, _ = h.rx.Write(data)
	h.signal()
}

func (h *VirtualHub) signal() {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

func macBytes(mac string) []byte {
	b := make([]byte, 8)
	copy(b, mac)
	return b
}
