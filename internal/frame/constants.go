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

// Package frame implements the WyzeSense hub wire format.
//
// Every frame is laid out as:
//
//	magic(2) | type | len | cmd | payload... | checksum(2)
//
// where len counts the payload plus three and the checksum is the 16-bit
// big-endian sum of every preceding byte. The host sends AA 55 as magic and
// the hub answers with 55 AA; the decoder accepts either order.
package frame

import "fmt"

// Frame type bytes.
const (
	TypeSync  byte = 0x43
	TypeAsync byte = 0x53
)

// Frame layout sizes.
const (
	MagicLen      = 2
	ChecksumLen   = 2
	HeaderLen     = MagicLen + 3 // magic, type, len, cmd
	MinFrameLen   = HeaderLen + ChecksumLen
	AckFrameLen   = MinFrameLen
	MaxPayloadLen = 0xFF - 3
	// lenOverhead is the difference between the len byte and the payload size.
	lenOverhead = 3
	// MaxFrameLen is the largest frame the len byte can describe.
	MaxFrameLen = 0xFF + 4
)

// Magic byte pairs.
var (
	HostMagic = [MagicLen]byte{0xAA, 0x55}
	HubMagic  = [MagicLen]byte{0x55, 0xAA}
)

// Command is a 16-bit command code: the frame type in the high byte and the
// command id in the low byte.
type Command uint16

// MakeCommand builds a command code from its type and id bytes.
func MakeCommand(typ, id byte) Command {
	return Command(uint16(typ)<<8 | uint16(id))
}

// Type returns the frame type byte.
func (c Command) Type() byte {
	return byte(c >> 8)
}

// ID returns the command id byte.
func (c Command) ID() byte {
	return byte(c)
}

// Reply returns the code the hub answers this command with.
func (c Command) Reply() Command {
	return c + 1
}

// IsAsync reports whether the command travels as an async frame.
func (c Command) IsAsync() bool {
	return c.Type() == TypeAsync
}

// String returns the command name, or its hex code when unknown.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("0x%04X", uint16(c))
}

// Host to hub commands answered with a sync frame.
const (
	CmdGetENR          Command = 0x4302
	CmdGetMAC          Command = 0x4304
	CmdGetKey          Command = 0x4306
	CmdSetCH554Upgrade Command = 0x430E
	CmdUpdateCC1310    Command = 0x4312
	CmdInquiry         Command = 0x4327
)

// Host to hub commands sent as async frames. The hub acks them and answers
// with an async reply that the host acks in turn.
const (
	CmdFinishAuth       Command = 0x5314
	CmdGetDongleVersion Command = 0x5316
	CmdStartStopScan    Command = 0x531C
	CmdGetSensorR1      Command = 0x5321
	CmdVerifySensor     Command = 0x5323
	CmdDelSensor        Command = 0x5325
	CmdGetSensorCount   Command = 0x532E
	CmdGetSensorList    Command = 0x5330
)

// Hub notifications and async traffic.
const (
	CmdNotifySensorAlarm Command = 0x5319
	CmdNotifySensorScan  Command = 0x5320
	CmdNotifySyncTime    Command = 0x5332
	CmdSyncTimeReply     Command = 0x5333
	CmdNotifyEventLog    Command = 0x5335
	CmdAsyncAck          Command = 0x53FF
)

var commandNames = map[Command]string{
	CmdGetENR:               "GetENR",
	CmdGetENR + 1:           "GetENRResp",
	CmdGetMAC:               "GetMAC",
	CmdGetMAC + 1:           "GetMACResp",
	CmdGetKey:               "GetKey",
	CmdGetKey + 1:           "GetKeyResp",
	CmdSetCH554Upgrade:      "SetCH554Upgrade",
	CmdUpdateCC1310:         "UpdateCC1310",
	CmdFinishAuth:           "FinishAuth",
	CmdFinishAuth + 1:       "FinishAuthResp",
	CmdGetDongleVersion:     "GetDongleVersion",
	CmdGetDongleVersion + 1: "GetDongleVersionResp",
	CmdStartStopScan:        "StartStopScan",
	CmdStartStopScan + 1:    "StartStopScanResp",
	CmdGetSensorR1:          "GetSensorR1",
	CmdGetSensorR1 + 1:      "GetSensorR1Resp",
	CmdVerifySensor:         "VerifySensor",
	CmdVerifySensor + 1:     "VerifySensorResp",
	CmdDelSensor:            "DelSensor",
	CmdDelSensor + 1:        "DelSensorResp",
	CmdInquiry:              "Inquiry",
	CmdInquiry + 1:          "InquiryResp",
	CmdGetSensorCount:       "GetSensorCount",
	CmdGetSensorCount + 1:   "GetSensorCountResp",
	CmdGetSensorList:        "GetSensorList",
	CmdGetSensorList + 1:    "GetSensorListResp",
	CmdNotifySensorAlarm:    "NotifySensorAlarm",
	CmdNotifySensorScan:     "NotifySensorScan",
	CmdNotifySyncTime:       "NotifySyncTime",
	CmdSyncTimeReply:        "SyncTimeReply",
	CmdNotifyEventLog:       "NotifyEventLog",
	CmdAsyncAck:             "AsyncAck",
}
