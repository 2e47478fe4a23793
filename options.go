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
	"fmt"
	"time"

	"github.com/ZaparooProject/go-wyzesense/capture"
)

// Protocol timing defaults.
const (
	// DefaultCommandTimeout bounds the wait for a command reply.
	DefaultCommandTimeout = 2 * time.Second
	// DefaultScanTimeout is how long Scan waits for a sensor to announce itself.
	DefaultScanTimeout = 60 * time.Second
	// DefaultVerifyTimeout bounds the final pairing confirmation.
	DefaultVerifyTimeout = 10 * time.Second
	// DefaultStopTimeout bounds how long Stop waits for the reader to exit.
	DefaultStopTimeout = time.Second
	// defaultTraceEntries is the number of frames kept for error traces.
	defaultTraceEntries = 16
)

// Option configures a session at Open.
type Option func(*sessionConfig) error

// sessionConfig holds the options applied at Open.
type sessionConfig struct {
	transport        Transport
	transportFactory TransportFactory
	capture          capture.Logger
	clock            func() time.Time
	transportName    string
	commandTimeout   time.Duration
	verifyTimeout    time.Duration
	stopTimeout      time.Duration
}

// WithTransport runs the session over an already open transport instead of
// opening the device path. Stop closes it.
func WithTransport(t Transport) Option {
	return func(c *sessionConfig) error {
		if t == nil {
			return fmt.Errorf("%w: transport must not be nil", ErrInvalidParameter)
		}
		c.transport = t
		c.transportName = string(TransportMock)
		return nil
	}
}

// WithTransportFactory replaces DefaultTransportFactory.
func WithTransportFactory(factory TransportFactory) Option {
	return func(c *sessionConfig) error {
		if factory == nil {
			return fmt.Errorf("%w: transport factory must not be nil", ErrInvalidParameter)
		}
		c.transportFactory = factory
		return nil
	}
}

// WithCommandTimeout sets the reply timeout for each command.
func WithCommandTimeout(timeout time.Duration) Option {
	return func(c *sessionConfig) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: command timeout must be positive, got %v", ErrInvalidParameter, timeout)
		}
		c.commandTimeout = timeout
		return nil
	}
}

// WithVerifyTimeout sets the timeout of the pairing confirmation step.
func WithVerifyTimeout(timeout time.Duration) Option {
	return func(c *sessionConfig) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: verify timeout must be positive, got %v", ErrInvalidParameter, timeout)
		}
		c.verifyTimeout = timeout
		return nil
	}
}

// WithStopTimeout bounds how long Stop waits for the reader goroutine.
func WithStopTimeout(timeout time.Duration) Option {
	return func(c *sessionConfig) error {
		if timeout < 0 {
			return fmt.Errorf("%w: stop timeout must not be negative, got %v", ErrInvalidParameter, timeout)
		}
		c.stopTimeout = timeout
		return nil
	}
}

// WithCaptureLogger records every frame and state change to logger.
func WithCaptureLogger(logger capture.Logger) Option {
	return func(c *sessionConfig) error {
		if logger == nil {
			logger = capture.NoopLogger{}
		}
		c.capture = logger
		return nil
	}
}

// WithClock sets the clock used to answer hub time sync requests.
func WithClock(clock func() time.Time) Option {
	return func(c *sessionConfig) error {
		if clock == nil {
			return fmt.Errorf("%w: clock must not be nil", ErrInvalidParameter)
		}
		c.clock = clock
		return nil
	}
}

func applyOptions(opts []Option) (*sessionConfig, error) {
	config := &sessionConfig{
		transportFactory: DefaultTransportFactory,
		capture:          capture.NoopLogger{},
		clock:            time.Now,
		commandTimeout:   DefaultCommandTimeout,
		verifyTimeout:    DefaultVerifyTimeout,
		stopTimeout:      DefaultStopTimeout,
	}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("failed to apply session option: %w", err)
		}
	}

	return config, nil
}
