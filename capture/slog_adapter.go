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
	"context"
	"encoding/hex"
	"log/slog"
)

// SlogAdapter writes capture events to a structured logger at debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log emits one record per event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("category", event.Category.String()),
	}
	if event.Device != "" {
		attrs = append(attrs, slog.String("device", event.Device))
	}

	switch event.Category {
	case CategoryFrame:
		attrs = append(attrs,
			slog.String("direction", event.Direction.String()),
			slog.String("data", hex.EncodeToString(event.Data)),
		)
	case CategoryState:
		attrs = append(attrs, slog.String("state", event.State))
	case CategorySensor:
		attrs = append(attrs, slog.String("payload", hex.EncodeToString(event.Data)))
	}
	if event.Command != 0 {
		attrs = append(attrs, slog.Uint64("command", uint64(event.Command)))
	}
	if event.Note != "" {
		attrs = append(attrs, slog.String("note", event.Note))
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "hub", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
