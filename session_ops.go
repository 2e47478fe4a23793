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
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-wyzesense/internal/frame"
)

// Protocol constants used by the startup exchange and pairing.
var (
	// enrChallenge is the fixed GetENR argument, four little-endian 0x30303030 words.
	enrChallenge = bytes.Repeat([]byte{0x30}, 16)
	// sensorKey is the pairing key sent with GetSensorR1.
	sensorKey = []byte("Ok5HPNQ4lf77u754")
)

const (
	enrLength          = 16
	inquiryReady  byte = 0x01
	finishAuthArg byte = 0xFF
	scanEnable    byte = 0x01
	scanDisable   byte = 0x00
	// delAckOK is the ack code the hub returns after removing a sensor.
	delAckOK byte = 0xFF
)

// verifySuffix follows the MAC in VerifySensor.
var verifySuffix = []byte{0xFF, 0x04}

// handshake runs the startup exchange once: Inquiry, GetENR, GetMAC,
// GetDongleVersion, FinishAuth.
func (s *Session) handshake(ctx context.Context) error {
	s.setState(StateHandshaking, "")

	steps := []struct {
		check   func(frame.Packet) error
		payload []byte
		cmd     frame.Command
	}{
		{cmd: frame.CmdInquiry, check: s.checkInquiry},
		{cmd: frame.CmdGetENR, payload: enrChallenge, check: s.storeENR},
		{cmd: frame.CmdGetMAC, check: s.storeMAC},
		{cmd: frame.CmdGetDongleVersion, check: s.storeVersion},
		{cmd: frame.CmdFinishAuth, payload: []byte{finishAuthArg}},
	}

	for _, step := range steps {
		reply, err := s.call(ctx, step.cmd, step.payload, 0)
		if err == nil && step.check != nil {
			err = step.check(reply)
		}
		if err != nil {
			Debugf("handshake %s failed: %v", step.cmd, err)
			return &HandshakeError{Step: step.cmd, Err: err}
		}
	}

	info := s.Info()
	Debugf("hub ready: mac=%s version=%s", info.MAC, info.Version)
	return nil
}

func (*Session) checkInquiry(pkt frame.Packet) error {
	if len(pkt.Payload) != 1 || pkt.Payload[0] != inquiryReady {
		return fmt.Errorf("%w: inquiry returned %s", ErrInvalidResponse, formatHexBytes(pkt.Payload))
	}
	return nil
}

func (s *Session) storeENR(pkt frame.Packet) error {
	if len(pkt.Payload) != enrLength {
		return fmt.Errorf("%w: ENR is %d bytes", ErrInvalidResponse, len(pkt.Payload))
	}
	s.mu.Lock()
	s.info.ENR = bytes.Clone(pkt.Payload)
	s.mu.Unlock()
	return nil
}

func (s *Session) storeMAC(pkt frame.Packet) error {
	if len(pkt.Payload) != MACLength {
		return fmt.Errorf("%w: hub MAC is %d bytes", ErrInvalidResponse, len(pkt.Payload))
	}
	s.mu.Lock()
	s.info.MAC = decodeMAC(pkt.Payload)
	s.mu.Unlock()
	return nil
}

func (s *Session) storeVersion(pkt frame.Packet) error {
	s.mu.Lock()
	s.info.Version = string(bytes.TrimRight(pkt.Payload, "\x00"))
	s.mu.Unlock()
	return nil
}

// Scan runs one pairing attempt. See ScanContext.
func (s *Session) Scan(timeout time.Duration) (*PairingResult, error) {
	return s.ScanContext(context.Background(), timeout)
}

// ScanContext enables pairing mode and waits up to timeout for a sensor to
// announce itself. A found sensor is registered and confirmed. Scan mode is
// always disabled again once it was enabled. When no sensor shows up the
// result is nil with a nil error. Concurrent scans wait for each other.
func (s *Session) ScanContext(ctx context.Context, timeout time.Duration) (*PairingResult, error) {
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}
	if err := s.acquire(ctx, s.scanSlot); err != nil {
		return nil, &CommandError{Cmd: frame.CmdStartStopScan, Err: err}
	}
	defer s.release(s.scanSlot)

	wait := make(chan PairingResult, 1)
	s.mu.Lock()
	s.scanWait = wait
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.scanWait = nil
		s.mu.Unlock()
	}()

	if _, err := s.call(ctx, frame.CmdStartStopScan, []byte{scanEnable}, 0); err != nil {
		return nil, err
	}
	Debugf("scan enabled for %v", timeout)

	found, waitErr := s.awaitSensor(ctx, wait, timeout)

	var pairErr error
	if found != nil {
		Debugf("scan found sensor %s type 0x%02X version %d", found.MAC, found.Type, found.Version)
		payload := append(encodeMAC(found.MAC), sensorKey...)
		_, pairErr = s.call(ctx, frame.CmdGetSensorR1, payload, 0)
	}

	// Disable even when the caller's context is done.
	disableCtx := context.WithoutCancel(ctx)
	_, disableErr := s.call(disableCtx, frame.CmdStartStopScan, []byte{scanDisable}, 0)
	if disableErr != nil {
		Debugf("failed to disable scan: %v", disableErr)
	}

	switch {
	case waitErr != nil:
		return nil, waitErr
	case pairErr != nil:
		return nil, pairErr
	case disableErr != nil:
		return nil, disableErr
	case found == nil:
		Debugf("scan finished without a sensor")
		return nil, nil
	}

	payload := append(encodeMAC(found.MAC), verifySuffix...)
	if _, err := s.call(ctx, frame.CmdVerifySensor, payload, s.cfg.verifyTimeout); err != nil {
		return nil, err
	}
	return found, nil
}

// awaitSensor waits for the first scan notification. A nil result with a nil
// error means the scan window expired.
func (s *Session) awaitSensor(ctx context.Context, wait <-chan PairingResult, timeout time.Duration) (*PairingResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-wait:
		return &result, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, &CommandError{Cmd: frame.CmdStartStopScan, Err: ctx.Err()}
	case <-s.stopCh:
		return nil, &CommandError{Cmd: frame.CmdStartStopScan, Err: ErrStopped}
	case <-s.doneCh:
		return nil, &CommandError{Cmd: frame.CmdStartStopScan, Err: s.terminalErr()}
	}
}

// Delete removes a paired sensor. See DeleteContext.
func (s *Session) Delete(mac string) error {
	return s.DeleteContext(context.Background(), mac)
}

// DeleteContext asks the hub to forget the sensor with the given MAC. Any
// reply counts as success, including for a MAC the hub never knew.
func (s *Session) DeleteContext(ctx context.Context, mac string) error {
	if err := validateMAC(mac); err != nil {
		return err
	}

	reply, err := s.call(ctx, frame.CmdDelSensor, encodeMAC(mac), 0)
	if err != nil {
		return err
	}

	switch {
	case len(reply.Payload) < MACLength+1:
		Debugf("delete %s: short ack %s", mac, formatHexBytes(reply.Payload))
	case decodeMAC(reply.Payload[:MACLength]) != mac:
		Debugf("delete %s: hub acked %q", mac, reply.Payload[:MACLength])
	case reply.Payload[MACLength] != delAckOK:
		Debugf("delete %s: ack code 0x%02X", mac, reply.Payload[MACLength])
	default:
		Debugf("deleted sensor %s", mac)
	}
	return nil
}

// List returns the MACs of every paired sensor. See ListContext.
func (s *Session) List() ([]string, error) {
	return s.ListContext(context.Background())
}

// ListContext asks the hub for its sensor count, then for the list, which
// arrives as one reply frame per sensor.
func (s *Session) ListContext(ctx context.Context) ([]string, error) {
	reply, err := s.call(ctx, frame.CmdGetSensorCount, nil, 0)
	if err != nil {
		return nil, err
	}
	if len(reply.Payload) != 1 {
		return nil, &CommandError{
			Cmd: frame.CmdGetSensorCount,
			Err: fmt.Errorf("%w: count is %d bytes", ErrInvalidResponse, len(reply.Payload)),
		}
	}

	count := int(reply.Payload[0])
	macs := make([]string, 0, count)
	if count == 0 {
		return macs, nil
	}

	var bad error
	err = s.execute(ctx, frame.CmdGetSensorList, []byte{byte(count)},
		s.cfg.commandTimeout*time.Duration(count),
		func(pkt frame.Packet) bool {
			if len(pkt.Payload) < MACLength {
				bad = fmt.Errorf("%w: list entry is %d bytes", ErrInvalidResponse, len(pkt.Payload))
			} else {
				macs = append(macs, decodeMAC(pkt.Payload[:MACLength]))
			}
			return len(macs) == count || bad != nil
		})
	if err != nil {
		return nil, err
	}
	if bad != nil {
		return nil, &CommandError{Cmd: frame.CmdGetSensorList, Err: bad}
	}
	return macs, nil
}
