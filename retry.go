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
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// Retryable decides whether a failed attempt is retried. Nil uses IsRetryable.
	Retryable func(error) bool
	// OnRetry, when set, is called before sleeping after a failed attempt.
	OnRetry func(attempt int, err error, sleep time.Duration)
	// MaxAttempts is the maximum number of attempts (0 = no retry).
	MaxAttempts int
	// InitialBackoff is the first delay between attempts.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration
	// BackoffMultiplier grows the delay after each attempt.
	BackoffMultiplier float64
	// Jitter adds up to this fraction of the delay at random.
	Jitter float64
	// RetryTimeout bounds all attempts together. Zero means no bound.
	RetryTimeout time.Duration
}

// DefaultRetryConfig returns the retry policy for commands.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        1 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
		RetryTimeout:      10 * time.Second,
	}
}

// DefaultOpenRetryConfig returns the retry policy for OpenWithRetry: a steady
// one second between attempts while the hub is replugged or re-enumerates.
func DefaultOpenRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       OpenRetryAttempts,
		InitialBackoff:    OpenRetryBackoff,
		MaxBackoff:        OpenRetryBackoff,
		BackoffMultiplier: 1.0,
		Jitter:            OpenRetryJitter,
		Retryable:         isOpenRetryable,
	}
}

// RetryableFunc is one attempt. attempt counts from 1.
type RetryableFunc func(ctx context.Context, attempt int) error

// RetryWithConfig runs retryFunc until it succeeds, fails with an error the
// config does not retry, the attempts run out, or ctx ends. The last attempt's
// error is returned.
func RetryWithConfig(ctx context.Context, config *RetryConfig, retryFunc RetryableFunc) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	if config.MaxAttempts <= 0 {
		return retryFunc(ctx, 1)
	}

	retryCtx, cancel := setupRetryContext(ctx, config)
	defer cancel()
	return executeWithRetry(retryCtx, config, retryFunc)
}

func setupRetryContext(ctx context.Context, config *RetryConfig) (context.Context, context.CancelFunc) {
	if config.RetryTimeout > 0 {
		return context.WithTimeout(ctx, config.RetryTimeout)
	}
	return context.WithCancel(ctx)
}

func executeWithRetry(ctx context.Context, config *RetryConfig, retryFunc RetryableFunc) error {
	retryable := config.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := checkContextCancellation(ctx, lastErr); err != nil {
			return err
		}

		err := retryFunc(ctx, attempt)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err

		if attempt < config.MaxAttempts {
			sleep := calculateJitteredSleep(backoff, config.Jitter)
			if config.OnRetry != nil {
				config.OnRetry(attempt, err, sleep)
			}
			Debugf("attempt %d/%d failed, retrying in %v: %v", attempt, config.MaxAttempts, sleep, err)
			if err := sleepWithContext(ctx, sleep, lastErr); err != nil {
				return err
			}
			backoff = calculateNextBackoff(backoff, config)
		}
	}

	return lastErr
}

func checkContextCancellation(ctx context.Context, lastErr error) error {
	select {
	case <-ctx.Done():
		if lastErr != nil {
			return lastErr
		}
		return fmt.Errorf("retry context cancelled: %w", ctx.Err())
	default:
		return nil
	}
}

func sleepWithContext(ctx context.Context, sleep time.Duration, lastErr error) error {
	timer := time.NewTimer(sleep)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return lastErr
	case <-timer.C:
		return nil
	}
}

func calculateNextBackoff(backoff time.Duration, config *RetryConfig) time.Duration {
	next := time.Duration(float64(backoff) * config.BackoffMultiplier)
	if config.MaxBackoff > 0 && next > config.MaxBackoff {
		return config.MaxBackoff
	}
	return next
}

// calculateJitteredSleep adds up to jitterFactor of baseSleep at random.
func calculateJitteredSleep(baseSleep time.Duration, jitterFactor float64) time.Duration {
	sleep := baseSleep
	if jitterFactor > 0 {
		var randBytes [8]byte
		if _, err := rand.Read(randBytes[:]); err == nil {
			randUint := binary.LittleEndian.Uint64(randBytes[:])
			randFloat := float64(randUint) / float64(1<<64)
			sleep += time.Duration(randFloat * float64(sleep) * jitterFactor)
		}
	}
	return sleep
}
