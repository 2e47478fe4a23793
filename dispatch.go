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
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-wyzesense/capture"
	"github.com/ZaparooProject/go-wyzesense/internal/frame"
)

// eventLogHeaderLen is the >QB prefix of a hub event log notification.
const eventLogHeaderLen = 9

// dispatch handles frames that are not a reply to the pending command.
func (s *Session) dispatch(pkt frame.Packet) {
	switch pkt.Cmd {
	case frame.CmdAsyncAck:
		Debugf("hub acked %s", pkt.Acked)
	case frame.CmdNotifySensorAlarm:
		s.handleSensorAlarm(pkt.Payload)
	case frame.CmdNotifySensorScan:
		s.handleSensorScan(pkt.Payload)
	case frame.CmdNotifySyncTime:
		s.handleSyncTime()
	case frame.CmdNotifyEventLog:
		s.handleEventLog(pkt.Payload)
	default:
		Debugf("dropping unexpected %s frame: %s", pkt.Cmd, formatHexBytes(pkt.Payload))
	}
}

func (s *Session) handleSensorAlarm(payload []byte) {
	ev, ok, err := parseSensorEvent(payload)
	if err != nil {
		Debugf("dropping sensor alarm: %v", err)
		s.logError(frame.CmdNotifySensorAlarm, err.Error())
		return
	}
	if !ok {
		Debugf("ignoring sensor alarm event type 0x%02X: %s", payload[8], formatHexBytes(payload))
		return
	}

	Debugf("sensor event: %s", ev)
	s.capture.Log(capture.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Device:    s.path,
		Category:  capture.CategorySensor,
		Command:   uint16(frame.CmdNotifySensorAlarm),
		Data:      payload,
		Note:      ev.String(),
	})

	if s.onEvent == nil {
		return
	}
	if err := s.safeCallHandler(ev); err != nil {
		Debugf("%v", err)
		s.logError(frame.CmdNotifySensorAlarm, err.Error())
	}
}

// safeCallHandler runs the event callback with panic recovery so a faulty
// handler cannot take down the reader.
func (s *Session) safeCallHandler(ev SensorEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panicked: %v", r)
		}
	}()
	s.onEvent(s, ev)
	return nil
}

func (s *Session) handleSensorScan(payload []byte) {
	result, err := parsePairingResult(payload)
	if err != nil {
		Debugf("dropping scan notification: %v", err)
		s.logError(frame.CmdNotifySensorScan, err.Error())
		return
	}

	s.mu.Lock()
	wait := s.scanWait
	s.mu.Unlock()

	if wait == nil {
		Debugf("scan notification for %s outside a scan", result.MAC)
		return
	}
	select {
	case wait <- result:
	default:
		Debugf("scan already reported a sensor, ignoring %s", result.MAC)
	}
}

func (s *Session) handleSyncTime() {
	now := uint64(s.clock().UnixMilli()) //nolint:gosec // wall clock is after the epoch
	encoded, err := frame.Encode(frame.CmdSyncTimeReply, binary.BigEndian.AppendUint64(nil, now))
	if err != nil {
		Debugf("failed to encode time sync reply: %v", err)
		return
	}
	if err := s.writeFrame(frame.CmdSyncTimeReply, encoded, frame.CmdSyncTimeReply.String()); err != nil {
		Debugf("failed to answer time sync: %v", err)
	}
}

func (*Session) handleEventLog(payload []byte) {
	if len(payload) < eventLogHeaderLen {
		Debugf("short hub event log: %s", formatHexBytes(payload))
		return
	}
	ts := time.UnixMilli(int64(binary.BigEndian.Uint64(payload[:8]))) //nolint:gosec // hub clock is milliseconds since epoch
	msg := payload[eventLogHeaderLen:]
	if n := int(payload[8]); n < len(msg) {
		msg = msg[:n]
	}
	Debugf("hub event log %s: %s", ts.Format(time.RFC3339), formatHexBytes(msg))
}
