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
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-wyzesense/capture"
	"github.com/ZaparooProject/go-wyzesense/internal/frame"
	"github.com/ZaparooProject/go-wyzesense/internal/syncutil"
	"github.com/google/uuid"
)

// readBufferSize is the size of each transport read.
const readBufferSize = 256

// State is the session lifecycle state.
type State int32

const (
	// StateCreated is a session whose transport is open but idle.
	StateCreated State = iota
	// StateHandshaking is a session running the startup exchange.
	StateHandshaking
	// StateReady is a session accepting commands.
	StateReady
	// StateStopped is a session that was stopped or lost its hub.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// HubInfo is what the hub reported during the handshake.
type HubInfo struct {
	MAC     string
	Version string
	ENR     []byte
}

// Session owns one hub connection: the transport, the background reader,
// the single in-flight command and the event callback.
//
// All methods are safe for concurrent use. Commands are serialized; a second
// caller blocks until the first completes, its context ends, or the session
// stops.
type Session struct {
	transport Transport
	capture   capture.Logger
	onEvent   EventHandler
	clock     func() time.Time
	err       error
	closeErr  error
	pending   *pendingCommand
	scanWait  chan PairingResult
	decoder   *frame.Decoder
	trace     *TraceBuffer
	stopCh    chan struct{}
	doneCh    chan struct{}
	cmdSlot   chan struct{}
	scanSlot  chan struct{}
	id        string
	path      string
	info      HubInfo
	cfg       sessionConfig
	dropped   atomic.Int64
	writeMu   syncutil.Mutex
	mu        syncutil.Mutex
	stopOnce  sync.Once
	closeOnce sync.Once
	state     atomic.Int32
}

// Open connects to the hub at devicePath, starts the reader and performs the
// handshake. onEvent may be nil. On failure nothing is left running.
func Open(devicePath string, onEvent EventHandler, opts ...Option) (*Session, error) {
	return OpenContext(context.Background(), devicePath, onEvent, opts...)
}

// OpenContext is Open with a context bounding the handshake.
func OpenContext(ctx context.Context, devicePath string, onEvent EventHandler, opts ...Option) (*Session, error) {
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	transport := cfg.transport
	if transport == nil {
		transport, err = cfg.transportFactory(devicePath)
		if err != nil {
			return nil, &DeviceOpenError{Path: devicePath, Err: err}
		}
		cfg.transportName = string(TransportTypeForPath(devicePath))
	}

	s := newSession(devicePath, transport, onEvent, cfg)
	Debugf("opened hub %s (session %s)", devicePath, s.id)
	go s.readLoop()

	if err := s.handshake(ctx); err != nil {
		_ = s.Stop()
		return nil, err
	}

	s.setState(StateReady, "")
	return s, nil
}

func newSession(path string, transport Transport, onEvent EventHandler, cfg *sessionConfig) *Session {
	s := &Session{
		transport: transport,
		capture:   cfg.capture,
		onEvent:   onEvent,
		clock:     cfg.clock,
		decoder:   frame.NewDecoder(),
		trace:     NewTraceBuffer(cfg.transportName, path, defaultTraceEntries),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		cmdSlot:   make(chan struct{}, 1),
		scanSlot:  make(chan struct{}, 1),
		id:        uuid.NewString(),
		path:      path,
		cfg:       *cfg,
	}
	s.logState(StateCreated, "")
	return s
}

// ID returns the session UUID used to tag capture events.
func (s *Session) ID() string {
	return s.id
}

// Path returns the device path the session was opened with.
func (s *Session) Path() string {
	return s.path
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Info returns what the hub reported during the handshake.
func (s *Session) Info() HubInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := s.info
	info.ENR = bytes.Clone(s.info.ENR)
	return info
}

// MAC returns the hub MAC address.
func (s *Session) MAC() string {
	return s.Info().MAC
}

// Version returns the hub firmware version.
func (s *Session) Version() string {
	return s.Info().Version
}

// Done is closed when the reader exits, after Stop or a disconnect. A
// disconnect closes the transport before Done fires; Stop is still safe to
// call afterwards.
func (s *Session) Done() <-chan struct{} {
	return s.doneCh
}

// Err returns the terminal error once the session has ended, or nil.
// It is ErrStopped after Stop and wraps ErrDeviceDisconnected after a
// transport failure.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// DroppedFrames returns how many malformed frames the decoder discarded.
func (s *Session) DroppedFrames() int64 {
	return s.dropped.Load()
}

// Stop ends the session: it signals the reader, waits up to the stop timeout
// for it to exit, then closes the transport. In-flight and later commands fail
// with ErrStopped. Calling Stop again is a no-op.
func (s *Session) Stop() error {
	var closeErr error
	s.stopOnce.Do(func() {
		Debugf("stopping hub session %s", s.id)
		close(s.stopCh)

		timer := time.NewTimer(s.cfg.stopTimeout)
		select {
		case <-s.doneCh:
		case <-timer.C:
			Debugf("hub reader did not exit within %v, closing transport", s.cfg.stopTimeout)
		}
		timer.Stop()

		closeErr = s.closeTransport()
		s.terminate(ErrStopped)
	})
	return closeErr
}

// closeTransport closes the transport once. Later calls return the result of
// the first.
func (s *Session) closeTransport() error {
	s.closeOnce.Do(func() {
		if err := s.transport.Close(); err != nil {
			s.closeErr = NewTransportError("close", s.path, err, ErrorTypePermanent)
		}
	})
	return s.closeErr
}

// terminalErr is the error returned to commands once the session has ended.
func (s *Session) terminalErr() error {
	if err := s.Err(); err != nil {
		return err
	}
	return ErrStopped
}

// ended reports whether Stop was called or the reader exited.
func (s *Session) ended() bool {
	select {
	case <-s.stopCh:
		return true
	case <-s.doneCh:
		return true
	default:
		return false
	}
}

// terminate records the first terminal error and marks the session stopped.
func (s *Session) terminate(err error) {
	s.mu.Lock()
	first := s.err == nil
	if first {
		s.err = err
	}
	s.mu.Unlock()

	if first {
		reason := ""
		if !errors.Is(err, ErrStopped) {
			reason = err.Error()
		}
		s.setState(StateStopped, reason)
	}
}

func (s *Session) setState(state State, reason string) {
	for {
		old := State(s.state.Load())
		if old == state || old == StateStopped {
			return
		}
		if s.state.CompareAndSwap(int32(old), int32(state)) {
			Debugf("hub session %s: %s -> %s", s.id, old, state)
			s.logState(state, reason)
			return
		}
	}
}

// readLoop is the only reader of the transport. It decodes frames, completes
// the pending command and dispatches notifications until Stop or a read error.
func (s *Session) readLoop() {
	defer close(s.doneCh)

	buf := make([]byte, readBufferSize)
	for {
		select {
		case <-s.stopCh:
			s.terminate(ErrStopped)
			return
		default:
		}

		n, err := s.transport.Read(buf)
		if n > 0 {
			s.decoder.Feed(buf[:n])
			s.drainFrames()
		}
		if err != nil {
			select {
			case <-s.stopCh:
				s.terminate(ErrStopped)
			default:
				Debugf("hub read failed: %v", err)
				s.logError(0, "read: "+err.Error())
				s.terminate(fmt.Errorf("%w: %w: %w", ErrDeviceDisconnected, ErrTransportRead,
					classifyTransportError("read", s.path, err)))
				if closeErr := s.closeTransport(); closeErr != nil {
					Debugf("close after disconnect: %v", closeErr)
				}
			}
			return
		}
	}
}

func (s *Session) drainFrames() {
	for {
		pkt, ok := s.decoder.Next()
		if dropped := int64(s.decoder.Dropped()); dropped != s.dropped.Load() {
			Debugf("discarded malformed frame (%d total)", dropped)
			s.logError(0, ErrInvalidFrame.Error())
			s.dropped.Store(dropped)
		}
		if !ok {
			return
		}
		s.handlePacket(pkt)
	}
}

func (s *Session) handlePacket(pkt frame.Packet) {
	s.mu.Lock()
	s.trace.RecordRX(pkt.Raw, pkt.Cmd.String())
	s.mu.Unlock()
	s.logFrame(capture.DirectionIn, pkt.Cmd, pkt.Raw, "")

	if pkt.Cmd.IsAsync() && !pkt.IsAck() {
		if err := s.writeFrame(frame.CmdAsyncAck, frame.EncodeAck(pkt.Cmd), "ack "+pkt.Cmd.String()); err != nil {
			Debugf("failed to ack %s: %v", pkt.Cmd, err)
		}
	}

	if s.deliverReply(pkt) {
		return
	}
	s.dispatch(pkt)
}

func (s *Session) logFrame(dir capture.Direction, cmd frame.Command, data []byte, note string) {
	s.capture.Log(capture.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Device:    s.path,
		Direction: dir,
		Category:  capture.CategoryFrame,
		Command:   uint16(cmd),
		Data:      bytes.Clone(data),
		Note:      note,
	})
}

func (s *Session) logState(state State, reason string) {
	s.capture.Log(capture.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Device:    s.path,
		Category:  capture.CategoryState,
		State:     state.String(),
		Note:      reason,
	})
}

func (s *Session) logError(cmd frame.Command, note string) {
	s.capture.Log(capture.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Device:    s.path,
		Category:  capture.CategoryError,
		Command:   uint16(cmd),
		Note:      note,
	})
}
