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
	"errors"
	"os"
)

// OpenWithRetry opens the hub like OpenContext, retrying while the device is
// missing or the handshake fails. A nil config uses DefaultOpenRetryConfig.
func OpenWithRetry(
	ctx context.Context,
	devicePath string,
	onEvent EventHandler,
	config *RetryConfig,
	opts ...Option,
) (*Session, error) {
	if config == nil {
		config = DefaultOpenRetryConfig()
	}

	var session *Session
	err := RetryWithConfig(ctx, config, func(ctx context.Context, attempt int) error {
		s, err := OpenContext(ctx, devicePath, onEvent, opts...)
		if err != nil {
			Debugf("open %s attempt %d: %v", devicePath, attempt, err)
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// isOpenRetryable extends IsRetryable with open failures that go away once
// the hub is plugged back in.
func isOpenRetryable(err error) bool {
	if IsRetryable(err) {
		return true
	}
	if errors.Is(err, ErrInvalidParameter) || errors.Is(err, os.ErrPermission) {
		return false
	}
	return errors.Is(err, ErrDeviceOpen)
}
