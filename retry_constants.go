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

import "time"

// Open retry constants control OpenWithRetry. A replugged hub takes a few
// seconds to re-enumerate, so the attempts are spread over about ten seconds.
const (
	// OpenRetryAttempts is the number of attempts to open and handshake.
	OpenRetryAttempts = 10
	// OpenRetryBackoff is the fixed delay between attempts.
	OpenRetryBackoff = 1 * time.Second
	// OpenRetryJitter is the random jitter factor (0.0-1.0).
	OpenRetryJitter = 0.1
)
