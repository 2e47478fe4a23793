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
	"strings"
	"sync/atomic"
	"time"
)

// SensorType is the kind of sensor that sent an event.
type SensorType int

const (
	// SensorUnknown is any sensor type byte not listed below.
	SensorUnknown SensorType = iota
	// SensorDoor is a contact (door or window) sensor.
	SensorDoor
	// SensorMotion is a PIR motion sensor.
	SensorMotion
	// SensorLeak is a water leak sensor.
	SensorLeak
)

// String returns the sensor type name.
func (t SensorType) String() string {
	switch t {
	case SensorDoor:
		return "door"
	case SensorMotion:
		return "motion"
	case SensorLeak:
		return "leak"
	default:
		return "unknown"
	}
}

// sensorTypeFromByte maps the hub sensor type byte. Version 2 sensors report
// 0x0E and 0x0F for contact and motion.
func sensorTypeFromByte(b byte) SensorType {
	switch b {
	case 0x01, 0x0E:
		return SensorDoor
	case 0x02, 0x0F:
		return SensorMotion
	case 0x03:
		return SensorLeak
	default:
		return SensorUnknown
	}
}

// EventKind distinguishes triggered reports from periodic check-ins.
type EventKind int

const (
	// EventAlarm is sent when the sensor state changes.
	EventAlarm EventKind = iota
	// EventStatus is the periodic heartbeat carrying the current state.
	EventStatus
)

// String returns the event kind name.
func (k EventKind) String() string {
	if k == EventStatus {
		return "status"
	}
	return "alarm"
}

// Alarm notification event type bytes.
const (
	alarmEventStatus byte = 0xA1
	alarmEventAlarm  byte = 0xA2
)

// Alarm notification layout: >Q timestamp, B event type, 8s MAC, then the
// sensor report.
const (
	alarmHeaderLen  = 8 + 1 + MACLength
	alarmTypeOffset = 0
	alarmBattery    = 2
	alarmState      = 5
	alarmSignal     = 8
	alarmMinLen     = alarmHeaderLen + alarmSignal + 1
)

// MACLength is the length of a sensor id.
const MACLength = 8

// SensorEvent is one decoded state report.
type SensorEvent struct {
	// Timestamp is the hub clock at the time of the report.
	Timestamp time.Time
	// MAC is the 8-character sensor id.
	MAC string
	// Type is the sensor kind.
	Type SensorType
	// Kind tells alarms from periodic status reports.
	Kind EventKind
	// State is 1 for open, active or wet and 0 otherwise.
	State int
	// Battery is the battery level in percent.
	Battery int
	// Signal is the raw signal strength; negate it for RSSI in dBm.
	Signal int
	// RawType is the sensor type byte as reported.
	RawType byte
	// RawState is the state byte as reported.
	RawState byte
}

// RSSI returns the signal strength in dBm.
func (e SensorEvent) RSSI() int {
	return -e.Signal
}

// StateName returns the state word matching the sensor type.
func (e SensorEvent) StateName() string {
	switch e.Type {
	case SensorDoor:
		return pick(e.State == 1, "open", "closed")
	case SensorMotion:
		return pick(e.State == 1, "active", "inactive")
	case SensorLeak:
		return pick(e.State == 1, "wet", "dry")
	default:
		return "unknown"
	}
}

func (e SensorEvent) String() string {
	return fmt.Sprintf("%s %s %s %s battery=%d%% signal=%d",
		e.MAC, e.Type, e.Kind, e.StateName(), e.Battery, e.Signal)
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

// parseSensorEvent decodes an alarm notification payload. It returns false
// for event types other than alarm and status reports.
func parseSensorEvent(payload []byte) (SensorEvent, bool, error) {
	if len(payload) < alarmHeaderLen {
		return SensorEvent{}, false, fmt.Errorf("%w: alarm payload %d bytes", ErrInvalidResponse, len(payload))
	}

	millis := binary.BigEndian.Uint64(payload[0:8])
	eventType := payload[8]
	if eventType != alarmEventAlarm && eventType != alarmEventStatus {
		return SensorEvent{}, false, nil
	}
	if len(payload) < alarmMinLen {
		return SensorEvent{}, false, fmt.Errorf("%w: sensor report %d bytes", ErrInvalidResponse, len(payload))
	}

	data := payload[alarmHeaderLen:]
	ev := SensorEvent{
		Timestamp: time.UnixMilli(int64(millis)), //nolint:gosec // hub clock is milliseconds since epoch
		MAC:       decodeMAC(payload[9:alarmHeaderLen]),
		Type:      sensorTypeFromByte(data[alarmTypeOffset]),
		Kind:      EventAlarm,
		Battery:   int(data[alarmBattery]),
		Signal:    int(data[alarmSignal]),
		RawType:   data[alarmTypeOffset],
		RawState:  data[alarmState],
	}
	if eventType == alarmEventStatus {
		ev.Kind = EventStatus
	}
	if ev.Type != SensorUnknown && ev.RawState == 1 {
		ev.State = 1
	}
	return ev, true, nil
}

// decodeMAC turns the wire MAC bytes into the sensor id string.
func decodeMAC(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}

// encodeMAC is the inverse of decodeMAC: a NUL padded MACLength field.
func encodeMAC(mac string) []byte {
	b := make([]byte, MACLength)
	copy(b, mac)
	return b
}

// EventHandler receives sensor events. It runs on the session reader
// goroutine and must return quickly; hand work off with EventQueue. Commands
// issued from inside the handler cannot complete until it returns.
type EventHandler func(s *Session, ev SensorEvent)

// EventQueue adapts the callback into a buffered channel. Events that do not
// fit are dropped and counted rather than stalling the reader.
type EventQueue struct {
	ch      chan SensorEvent
	dropped atomic.Uint64
}

// NewEventQueue creates a queue holding up to size events.
func NewEventQueue(size int) *EventQueue {
	if size < 1 {
		size = 1
	}
	return &EventQueue{ch: make(chan SensorEvent, size)}
}

// Handle is an EventHandler that enqueues without blocking.
func (q *EventQueue) Handle(_ *Session, ev SensorEvent) {
	select {
	case q.ch <- ev:
	default:
		q.dropped.Add(1)
	}
}

// Events returns the receive side of the queue.
func (q *EventQueue) Events() <-chan SensorEvent {
	return q.ch
}

// Dropped returns the number of events discarded because the queue was full.
func (q *EventQueue) Dropped() uint64 {
	return q.dropped.Load()
}

// PairingResult describes a sensor found by Scan.
type PairingResult struct {
	MAC     string
	Type    byte
	Version byte
}

// SensorType maps the reported type byte.
func (r PairingResult) SensorType() SensorType {
	return sensorTypeFromByte(r.Type)
}

// Scan notification layout: one leading byte, the 8-byte MAC, type, version.
const scanPayloadLen = 1 + MACLength + 2

func parsePairingResult(payload []byte) (PairingResult, error) {
	if len(payload) < scanPayloadLen {
		return PairingResult{}, fmt.Errorf("%w: scan payload %d bytes", ErrInvalidResponse, len(payload))
	}
	return PairingResult{
		MAC:     decodeMAC(payload[1 : 1+MACLength]),
		Type:    payload[1+MACLength],
		Version: payload[2+MACLength],
	}, nil
}

// validateMAC checks a sensor id before it goes on the wire.
func validateMAC(mac string) error {
	if len(mac) != MACLength {
		return fmt.Errorf("%w: sensor MAC %q must be %d characters", ErrInvalidParameter, mac, MACLength)
	}
	return nil
}
