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

package capture

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameEvent(session string, dir Direction, cmd uint16, data []byte) Event {
	return Event{
		Timestamp: time.Now(),
		SessionID: session,
		Device:    "/dev/hidraw0",
		Direction: dir,
		Category:  CategoryFrame,
		Command:   cmd,
		Data:      data,
	}
}

func TestEncodeDecodeEvent(t *testing.T) {
	t.Parallel()

	event := frameEvent("session-1", DirectionOut, 0x4327, []byte{0xAA, 0x55, 0x43, 0x03, 0x27, 0x01, 0x6C})
	event.Note = "Inquiry"

	data, err := EncodeEvent(event)
	require.NoError(t, err)

	decoded, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, event.SessionID, decoded.SessionID)
	assert.Equal(t, event.Command, decoded.Command)
	assert.Equal(t, event.Data, decoded.Data)
	assert.Equal(t, event.Note, decoded.Note)
	assert.True(t, event.Timestamp.Equal(decoded.Timestamp))

	_, err = DecodeEvent([]byte{0xFF, 0x00})
	require.Error(t, err)
}

func TestFileLogger_WritesAndAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "hub.wcap")

	first, err := NewFileLogger(path)
	require.NoError(t, err)
	first.Log(frameEvent("a", DirectionOut, 0x4327, []byte{1}))
	require.NoError(t, first.Close())
	require.NoError(t, first.Close())
	first.Log(frameEvent("a", DirectionOut, 0x4327, []byte{2}))

	second, err := NewFileLogger(path)
	require.NoError(t, err)
	second.Log(frameEvent("b", DirectionIn, 0x4328, []byte{3}))
	require.NoError(t, second.Close())

	reader, err := NewReader(path)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	var sessions []string
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sessions = append(sessions, event.SessionID)
	}
	assert.Equal(t, []string{"a", "b"}, sessions)
}

func TestFileLogger_Concurrent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "hub.wcap")
	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for range 25 {
				logger.Log(frameEvent("s", DirectionIn, uint16(i), bytes.Repeat([]byte{byte(i)}, 16)))
			}
		}(i)
	}
	wg.Wait()
	require.NoError(t, logger.Close())

	reader, err := NewReader(path)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	count := 0
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, bytes.Repeat([]byte{byte(event.Command)}, 16), event.Data)
		count++
	}
	assert.Equal(t, 200, count)
}

func TestFilteredReader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "hub.wcap")
	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	events := []Event{
		frameEvent("one", DirectionOut, 0x4327, nil),
		frameEvent("one", DirectionIn, 0x4328, nil),
		frameEvent("two", DirectionIn, 0x5319, nil),
		{SessionID: "two", Category: CategoryState, State: "ready"},
	}
	for i := range events {
		events[i].Timestamp = base.Add(time.Duration(i) * time.Second)
		logger.Log(events[i])
	}
	require.NoError(t, logger.Close())

	in := DirectionIn
	frames := CategoryFrame
	start := base.Add(500 * time.Millisecond)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{name: "all", filter: Filter{}, want: 4},
		{name: "session", filter: Filter{SessionID: "two"}, want: 2},
		{name: "direction", filter: Filter{Direction: &in, Category: &frames}, want: 2},
		{name: "command", filter: Filter{Command: 0x5319}, want: 1},
		{name: "time", filter: Filter{TimeStart: &start}, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reader, err := NewFilteredReader(path, tt.filter)
			require.NoError(t, err)
			defer func() { _ = reader.Close() }()

			got := 0
			for {
				_, err := reader.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				require.NoError(t, err)
				got++
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewReader_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewReader(filepath.Join(t.TempDir(), "missing.wcap"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

type recordingLogger struct {
	events []Event
	mu     sync.Mutex
}

func (r *recordingLogger) Log(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func TestMultiLogger(t *testing.T) {
	t.Parallel()

	first := &recordingLogger{}
	second := &recordingLogger{}
	multi := NewMultiLogger(first, nil, second, NoopLogger{})

	multi.Log(frameEvent("x", DirectionIn, 1, nil))
	multi.Log(frameEvent("x", DirectionIn, 2, nil))

	assert.Len(t, first.events, 2)
	assert.Len(t, second.events, 2)
}

func TestSlogAdapter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	adapter := NewSlogAdapter(logger)

	adapter.Log(frameEvent("abc", DirectionOut, 0x4327, []byte{0xAA, 0x55}))
	adapter.Log(Event{SessionID: "abc", Category: CategoryState, State: "ready"})
	adapter.Log(Event{SessionID: "abc", Category: CategoryError, Note: "checksum mismatch"})

	out := buf.String()
	assert.Contains(t, out, "session_id=abc")
	assert.Contains(t, out, "direction=OUT")
	assert.Contains(t, out, "data=aa55")
	assert.Contains(t, out, "state=ready")
	assert.Contains(t, out, "command=17191")
	assert.Contains(t, out, "\"checksum mismatch\"")
}

func TestEnumStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "IN", DirectionIn.String())
	assert.Equal(t, "OUT", DirectionOut.String())
	assert.Equal(t, "UNKNOWN", Direction(9).String())
	assert.Equal(t, "FRAME", CategoryFrame.String())
	assert.Equal(t, "STATE", CategoryState.String())
	assert.Equal(t, "SENSOR", CategorySensor.String())
	assert.Equal(t, "ERROR", CategoryError.String())
	assert.Equal(t, "UNKNOWN", Category(9).String())
}
