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
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ZaparooProject/go-wyzesense/capture"
	"github.com/ZaparooProject/go-wyzesense/internal/frame"
)

// replyHandler consumes one reply frame and reports whether the command is
// complete. It runs on the reader goroutine with the pending lock held.
type replyHandler func(pkt frame.Packet) bool

// pendingCommand is the single command awaiting its reply.
type pendingCommand struct {
	done   chan struct{}
	handle replyHandler
	cmd    frame.Command
	reply  frame.Command
}

// call sends cmd and returns its first reply frame.
func (s *Session) call(ctx context.Context, cmd frame.Command, payload []byte, timeout time.Duration) (frame.Packet, error) {
	var reply frame.Packet
	err := s.execute(ctx, cmd, payload, timeout, func(pkt frame.Packet) bool {
		reply = pkt
		return true
	})
	return reply, err
}

// execute sends cmd and waits until handle reports completion, the timeout
// elapses, ctx ends, or the session ends. Only one command is in flight; the
// frame matching cmd.Reply() that arrives first after the write is delivered
// to handle.
func (s *Session) execute(
	ctx context.Context,
	cmd frame.Command,
	payload []byte,
	timeout time.Duration,
	handle replyHandler,
) error {
	encoded, err := frame.Encode(cmd, payload)
	if err != nil {
		return &CommandError{Cmd: cmd, Err: err}
	}
	if timeout <= 0 {
		timeout = s.cfg.commandTimeout
	}

	if err := s.acquire(ctx, s.cmdSlot); err != nil {
		return &CommandError{Cmd: cmd, Err: err}
	}
	defer s.release(s.cmdSlot)

	p := &pendingCommand{
		cmd:    cmd,
		reply:  cmd.Reply(),
		handle: handle,
		done:   make(chan struct{}),
	}
	s.mu.Lock()
	s.pending = p
	s.trace.Clear()
	s.mu.Unlock()

	if err := s.writeFrame(cmd, encoded, cmd.String()); err != nil {
		s.clearPending(p)
		return &CommandError{Cmd: cmd, Err: err}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.done:
		return nil
	case <-timer.C:
		if !s.clearPending(p) {
			return nil
		}
		s.mu.Lock()
		s.trace.RecordTimeout(fmt.Sprintf("%s after %v", cmd, timeout))
		traced := s.trace.WrapError(ErrCommandTimeout)
		s.mu.Unlock()
		Debugf("%s timed out after %v", cmd, timeout)
		s.logError(cmd, ErrCommandTimeout.Error())
		return &CommandError{Cmd: cmd, Err: traced}
	case <-ctx.Done():
		if !s.clearPending(p) {
			return nil
		}
		return &CommandError{Cmd: cmd, Err: ctx.Err()}
	case <-s.stopCh:
		s.clearPending(p)
		return &CommandError{Cmd: cmd, Err: ErrStopped}
	case <-s.doneCh:
		if !s.clearPending(p) {
			return nil
		}
		return &CommandError{Cmd: cmd, Err: s.terminalErr()}
	}
}

// acquire takes a serialization slot, blocking until it is free.
func (s *Session) acquire(ctx context.Context, slot chan struct{}) error {
	if s.ended() {
		return s.terminalErr()
	}
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopCh:
		return s.terminalErr()
	case <-s.doneCh:
		return s.terminalErr()
	}
	if s.ended() {
		s.release(slot)
		return s.terminalErr()
	}
	return nil
}

func (*Session) release(slot chan struct{}) {
	<-slot
}

// clearPending removes p if it is still pending. False means the reader
// already completed it.
func (s *Session) clearPending(p *pendingCommand) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != p {
		return false
	}
	s.pending = nil
	return true
}

// deliverReply hands pkt to the pending command if it is the expected reply.
func (s *Session) deliverReply(pkt frame.Packet) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.pending
	if p == nil || pkt.Cmd != p.reply {
		return false
	}
	if p.handle(pkt) {
		s.pending = nil
		close(p.done)
	}
	return true
}

// writeFrame writes one encoded frame. Commands and reader replies share the
// write lock so frames never interleave on the wire.
func (s *Session) writeFrame(cmd frame.Command, data []byte, note string) error {
	s.writeMu.Lock()
	n, err := s.transport.Write(data)
	s.writeMu.Unlock()
	if err == nil && n != len(data) {
		err = io.ErrShortWrite
	}

	s.mu.Lock()
	s.trace.RecordTX(data, note)
	s.mu.Unlock()
	s.logFrame(capture.DirectionOut, cmd, data, note)

	if err != nil {
		Debugf("write %s failed: %v", note, err)
		return fmt.Errorf("%w: %w", ErrTransportWrite, classifyTransportError("write", s.path, err))
	}
	return nil
}
