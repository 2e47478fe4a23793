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

// Package capture records hub traffic and session lifecycle events.
//
// Events are CBOR encoded with integer keys and appended to a capture file,
// one after another, so a file can be replayed with Reader or inspected with
// the wyzesense dump command.
package capture

import "time"

// Event is one captured protocol event.
type Event struct {
	// Timestamp when the event occurred.
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the hub session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Device is the hub device path.
	Device string `cbor:"3,keyasint,omitempty"`

	// Direction indicates frame flow for frame events.
	Direction Direction `cbor:"4,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"5,keyasint"`

	// Command is the frame command code for frame events.
	Command uint16 `cbor:"6,keyasint,omitempty"`

	// Data is the raw frame, or the payload of a decoded notification.
	Data []byte `cbor:"7,keyasint,omitempty"`

	// State is the new session state for state events.
	State string `cbor:"8,keyasint,omitempty"`

	// Note is free-form context (command name, error text).
	Note string `cbor:"9,keyasint,omitempty"`
}

// Direction indicates the direction of frame flow.
type Direction uint8

const (
	// DirectionIn is a frame received from the hub.
	DirectionIn Direction = 0
	// DirectionOut is a frame written to the hub.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryFrame is a validated wire frame.
	CategoryFrame Category = 0
	// CategoryState is a session state change.
	CategoryState Category = 1
	// CategorySensor is a decoded sensor event delivered to the application.
	CategorySensor Category = 2
	// CategoryError is an error or a dropped frame.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryFrame:
		return "FRAME"
	case CategoryState:
		return "STATE"
	case CategorySensor:
		return "SENSOR"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
