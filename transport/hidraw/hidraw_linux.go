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

//go:build linux

package hidraw

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// Transport reads and writes a hidraw device node.
//
// Read and Write may be called from different goroutines. Concurrent Reads
// are not supported.
type Transport struct {
	path         string
	pending      []byte
	fd           int
	pollInterval time.Duration
	closed       atomic.Bool
}

// New opens path with the default poll interval.
func New(path string) (*Transport, error) {
	return NewWithPollInterval(path, DefaultPollInterval)
}

// NewWithPollInterval opens path. Read waits at most pollInterval for a report.
func NewWithPollInterval(path string, pollInterval time.Duration) (*Transport, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open hidraw device %s: %w", path, err)
	}
	return newFromFD(fd, path, pollInterval), nil
}

func newFromFD(fd int, path string, pollInterval time.Duration) *Transport {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Transport{
		fd:           fd,
		path:         path,
		pollInterval: pollInterval,
		pending:      make([]byte, 0, ReportSize),
	}
}

// Path returns the device node path.
func (t *Transport) Path() string {
	return t.path
}

// Read returns report data. It returns (0, nil) when no report arrived within
// the poll interval.
func (t *Transport) Read(p []byte) (int, error) {
	if len(t.pending) > 0 {
		n := copy(p, t.pending)
		t.pending = t.pending[n:]
		return n, nil
	}
	if t.closed.Load() {
		return 0, ErrClosed
	}

	ready, err := t.poll(unix.POLLIN)
	if err != nil || !ready {
		return 0, err
	}

	var report [ReportSize]byte
	n, err := unix.Read(t.fd, report[:])
	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("hidraw read %s: %w", t.path, err)
	case n == 0:
		return 0, io.EOF
	}

	data := unpackReport(report[:n])
	copied := copy(p, data)
	t.pending = append(t.pending[:0], data[copied:]...)
	return copied, nil
}

// Write sends one frame. It retries until every byte is written or the
// device stops accepting output for a full poll interval.
func (t *Transport) Write(p []byte) (int, error) {
	if t.closed.Load() {
		return 0, ErrClosed
	}

	written := 0
	for written < len(p) {
		n, err := unix.Write(t.fd, p[written:])
		if n > 0 {
			written += n
		}
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			ready, pollErr := t.poll(unix.POLLOUT)
			if pollErr != nil {
				return written, pollErr
			}
			if !ready {
				return written, fmt.Errorf("hidraw write %s: %w", t.path, unix.ETIMEDOUT)
			}
		case err != nil:
			return written, fmt.Errorf("hidraw write %s: %w", t.path, err)
		}
	}
	return written, nil
}

// Close releases the device node. Further calls return ErrClosed.
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	if err := unix.Close(t.fd); err != nil {
		return fmt.Errorf("hidraw close %s: %w", t.path, err)
	}
	return nil
}

// poll waits up to the poll interval for events. A hang-up or error
// condition without pending input means the device is gone.
func (t *Transport) poll(events int16) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(t.fd), Events: events}} //nolint:gosec // fd fits in int32
	n, err := unix.Poll(fds, int(t.pollInterval.Milliseconds()))
	switch {
	case errors.Is(err, unix.EINTR):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("hidraw poll %s: %w", t.path, err)
	case n == 0:
		return false, nil
	}

	revents := fds[0].Revents
	if revents&events != 0 {
		return true, nil
	}
	if revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
		return false, fmt.Errorf("hidraw poll %s: %w", t.path, unix.ENODEV)
	}
	return false, nil
}
