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
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useDebugBuffers points the session log and console at buffers for one test.
func useDebugBuffers(t *testing.T, console bool) (logBuf, consoleBuf *bytes.Buffer) {
	t.Helper()

	logBuf, consoleBuf = &bytes.Buffer{}, &bytes.Buffer{}
	origEnabled := DebugEnabled()
	origOut := SetDebugOutput(consoleBuf)

	debugMu.Lock()
	origWriter := sessionLogWriter
	sessionLogWriter = logBuf
	debugMu.Unlock()
	SetDebugEnabled(console)

	t.Cleanup(func() {
		SetDebugEnabled(origEnabled)
		SetDebugOutput(origOut)
		debugMu.Lock()
		sessionLogWriter = origWriter
		debugMu.Unlock()
	})
	return logBuf, consoleBuf
}

var timestampPattern = regexp.MustCompile(`\d{2}:\d{2}:\d{2}\.\d{3} DEBUG:`)

func TestDebugf_WritesToSessionLog(t *testing.T) {
	logBuf, consoleBuf := useDebugBuffers(t, false)

	Debugf("scan found %s", "AB12CD34")

	assert.Contains(t, logBuf.String(), "DEBUG: scan found AB12CD34\n")
	assert.Regexp(t, timestampPattern, logBuf.String())
	assert.Empty(t, consoleBuf.String(), "console must stay quiet when debug is off")
}

func TestDebugln_WritesToSessionLog(t *testing.T) {
	logBuf, _ := useDebugBuffers(t, false)

	Debugln("hub", "ready", 3)

	assert.Contains(t, logBuf.String(), "DEBUG: hub ready 3\n")
	assert.Regexp(t, timestampPattern, logBuf.String())
}

func TestDebugf_ConsoleWhenEnabled(t *testing.T) {
	logBuf, consoleBuf := useDebugBuffers(t, true)

	Debugf("value %d", 42)

	assert.Equal(t, "DEBUG: value 42\n", consoleBuf.String())
	assert.Contains(t, logBuf.String(), "DEBUG: value 42")
}

func TestDebugf_NilWriters(t *testing.T) {
	useDebugBuffers(t, true)
	SetDebugOutput(nil)
	debugMu.Lock()
	sessionLogWriter = nil
	debugMu.Unlock()

	assert.NotPanics(t, func() {
		Debugf("nothing to write %d", 1)
		Debugln("nothing", "to", "write")
	})
}

func TestSetDebugEnabled(t *testing.T) {
	useDebugBuffers(t, false)

	SetDebugEnabled(true)
	assert.True(t, DebugEnabled())
	SetDebugEnabled(false)
	assert.False(t, DebugEnabled())
}

func TestSetDebugOutput_ReturnsPrevious(t *testing.T) {
	_, consoleBuf := useDebugBuffers(t, true)

	other := &bytes.Buffer{}
	prev := SetDebugOutput(other)
	assert.Same(t, consoleBuf, prev.(*bytes.Buffer))

	Debugf("to other")
	assert.Contains(t, other.String(), "to other")
	assert.Empty(t, consoleBuf.String())
}

func TestInitSessionLog_CreatesFileWithHeader(t *testing.T) {
	useDebugBuffers(t, false)
	dir := t.TempDir()
	t.Cleanup(func() { _ = CloseSessionLog() })

	path, err := InitSessionLog(dir)
	require.NoError(t, err)
	assert.Equal(t, path, GetSessionLogPath())
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Regexp(t, `^wyzesense_\d{8}_\d{6}\.log$`, filepath.Base(path))

	Debugf("logged while open")
	require.NoError(t, CloseSessionLog())
	assert.Empty(t, GetSessionLogPath())

	content, err := os.ReadFile(path) //nolint:gosec // path is from InitSessionLog
	require.NoError(t, err)
	text := string(content)
	for _, want := range []string{
		"=== WyzeSense Debug Session Log ===",
		"Started:",
		"PID:",
		"OS:",
		"Go Version:",
		"Command Line:",
		"DEBUG: logged while open",
		"=== Session ended ===",
	} {
		assert.Contains(t, text, want)
	}
}

func TestInitSessionLog_ReplacesOpenLog(t *testing.T) {
	useDebugBuffers(t, false)
	t.Cleanup(func() { _ = CloseSessionLog() })

	first, err := InitSessionLog(t.TempDir())
	require.NoError(t, err)
	second, err := InitSessionLog(t.TempDir())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	content, err := os.ReadFile(first) //nolint:gosec // path is from InitSessionLog
	require.NoError(t, err)
	assert.Contains(t, string(content), "=== Session ended ===")
}

func TestInitSessionLog_BadDirectory(t *testing.T) {
	useDebugBuffers(t, false)

	_, err := InitSessionLog(filepath.Join(t.TempDir(), "missing", "dir"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create session log")
	assert.Empty(t, GetSessionLogPath())
}

func TestCloseSessionLog_NoFile(t *testing.T) {
	useDebugBuffers(t, false)
	require.NoError(t, CloseSessionLog())
	require.NoError(t, CloseSessionLog())
}

func TestWriteSessionHeader(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	writeSessionHeader(io.Writer(&buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("=== WyzeSense Debug Session Log ===\n")))
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n\n")))
}
