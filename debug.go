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
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-wyzesense/internal/syncutil"
)

// debugEnabled gates console output. WYZESENSE_DEBUG or DEBUG turns it on.
var debugEnabled atomic.Bool

// debugOut is where console debug lines go.
var (
	debugMu  syncutil.Mutex
	debugOut io.Writer = os.Stderr
)

func init() {
	if os.Getenv("WYZESENSE_DEBUG") != "" || os.Getenv("DEBUG") != "" {
		debugEnabled.Store(true)
	}
}

// Debugf logs a formatted debug line.
// The line always goes to the session log when one is open and to the
// console only when debug mode is enabled.
func Debugf(format string, args ...any) {
	writeDebug(fmt.Sprintf(format, args...))
}

// Debugln logs its operands separated by spaces.
func Debugln(args ...any) {
	msg := fmt.Sprintln(args...)
	writeDebug(msg[:len(msg)-1])
}

func writeDebug(message string) {
	debugMu.Lock()
	defer debugMu.Unlock()

	if sessionLogWriter != nil {
		timestamp := time.Now().Format("15:04:05.000")
		_, _ = fmt.Fprintf(sessionLogWriter, "%s DEBUG: %s\n", timestamp, message)
	}
	if debugEnabled.Load() && debugOut != nil {
		_, _ = fmt.Fprintf(debugOut, "DEBUG: %s\n", message)
	}
}

// SetDebugEnabled turns console debug output on or off.
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports whether console debug output is on.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// SetDebugOutput redirects console debug output and returns the previous
// writer. A nil writer silences the console.
func SetDebugOutput(w io.Writer) io.Writer {
	debugMu.Lock()
	defer debugMu.Unlock()
	prev := debugOut
	debugOut = w
	return prev
}
