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

// Package detection finds WyzeSense hubs attached to the host.
//
// Transport-specific detectors register themselves on import, as
// detection/hidraw does:
//
//	import _ "github.com/ZaparooProject/go-wyzesense/detection/hidraw"
package detection

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Confidence represents how sure a detector is that a device is a hub.
type Confidence int

const (
	// Low confidence - device is a generic HID device on the hub's bus.
	Low Confidence = iota
	// Medium confidence - device name matches a WyzeSense hub.
	Medium
	// High confidence - device VID:PID matches a WyzeSense hub.
	High
)

// String returns the confidence name.
func (c Confidence) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// DeviceInfo represents a detected hub.
type DeviceInfo struct {
	// Metadata holds extra attributes such as "vidpid" and "hid_name".
	Metadata map[string]string
	// Transport type, e.g. "hidraw"
	Transport string
	// Path is the device node, e.g. "/dev/hidraw0"
	Path string
	// Name is a human-readable device name
	Name string
	// Confidence is the detection confidence level
	Confidence Confidence
}

// String returns a human-readable representation of the device.
func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s device at %s (confidence: %s)", d.Transport, d.Path, d.Confidence)
}

// Options configures the detection behavior.
type Options struct {
	// USB VID:PID pairs to skip (e.g., ["1234:5678"])
	Blocklist []string
	// Device paths to explicitly ignore (e.g., ["/dev/hidraw3"])
	IgnorePaths []string
	// Which transports to check (empty = all)
	Transports []string
	// SysfsRoot overrides "/sys" for detectors that read sysfs.
	SysfsRoot string
	// CacheTTL is how long results are reused.
	CacheTTL time.Duration
	// Timeout bounds the whole detection run.
	Timeout time.Duration
	// MinConfidence drops devices below this level.
	MinConfidence Confidence
	// EnableCache turns on result caching.
	EnableCache bool
}

// DefaultOptions returns sensible default detection options.
func DefaultOptions() Options {
	return Options{
		Timeout:       5 * time.Second,
		Blocklist:     DefaultBlocklist(),
		EnableCache:   true,
		CacheTTL:      30 * time.Second,
		MinConfidence: Medium,
	}
}

// Detector finds hubs on one transport.
type Detector interface {
	// Detect searches for devices using the given options
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
	// Transport returns the transport type this detector handles
	Transport() string
}

var (
	// ErrNoDevicesFound indicates no hubs were detected
	ErrNoDevicesFound = errors.New("no WyzeSense hubs found")
	// ErrDetectionTimeout indicates detection timed out
	ErrDetectionTimeout = errors.New("detection timeout")
	// ErrUnsupportedPlatform indicates the platform doesn't support this detection method
	ErrUnsupportedPlatform = errors.New("platform not supported")
	// ErrNoDetectors indicates no detector handles the requested transports
	ErrNoDetectors = errors.New("no detectors available for specified transports")
)

var registry []Detector

// RegisterDetector adds a detector to the registry.
func RegisterDetector(d Detector) {
	registry = append(registry, d)
}

func getDetectors(transports []string) []Detector {
	if len(transports) == 0 {
		return registry
	}

	var filtered []Detector
	for _, d := range registry {
		for _, t := range transports {
			if d.Transport() == t {
				filtered = append(filtered, d)
				break
			}
		}
	}
	return filtered
}

type detectionResult struct {
	err     error
	devices []DeviceInfo
}

// DetectAll runs every matching detector in parallel and merges the results.
// Devices are returned even when some detectors fail.
func DetectAll(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	detectors := getDetectors(opts.Transports)
	if len(detectors) == 0 {
		return nil, ErrNoDetectors
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	results := make(chan detectionResult, len(detectors))
	for _, detector := range detectors {
		go func(d Detector) {
			results <- runSingleDetector(ctx, d, opts)
		}(detector)
	}
	return collectDetectionResults(ctx, results, len(detectors))
}

// DetectFirst returns the highest confidence hub.
func DetectFirst(ctx context.Context, opts *Options) (DeviceInfo, error) {
	devices, err := DetectAll(ctx, opts)
	if err != nil {
		return DeviceInfo{}, err
	}
	best := devices[0]
	for _, d := range devices[1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}
	return best, nil
}

func runSingleDetector(ctx context.Context, detector Detector, opts *Options) detectionResult {
	if opts.EnableCache {
		if cached, found := getCached(detector.Transport(), opts.CacheTTL); found {
			// Cached results skipped Detect, so filter them again.
			return detectionResult{devices: filterDevices(cached, opts)}
		}
	}

	devices, err := detector.Detect(ctx, opts)
	if err != nil && !errors.Is(err, ErrNoDevicesFound) {
		return detectionResult{err: err}
	}

	if opts.EnableCache {
		if len(devices) > 0 {
			setCached(detector.Transport(), devices)
		} else {
			// An unplugged hub must not linger in the cache.
			clearCacheForTransport(detector.Transport())
		}
	}

	return detectionResult{devices: filterDevices(devices, opts)}
}

func collectDetectionResults(ctx context.Context, results chan detectionResult, numDetectors int) ([]DeviceInfo, error) {
	var allDevices []DeviceInfo
	var errs []error

	for range numDetectors {
		select {
		case res := <-results:
			if res.err != nil {
				errs = append(errs, res.err)
			} else {
				allDevices = append(allDevices, res.devices...)
			}
		case <-ctx.Done():
			return nil, ErrDetectionTimeout
		}
	}

	if len(allDevices) > 0 {
		return allDevices, nil
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, ErrNoDevicesFound
}

// filterDevices applies IgnorePaths, Blocklist and MinConfidence.
func filterDevices(devices []DeviceInfo, opts *Options) []DeviceInfo {
	var filtered []DeviceInfo
	for _, device := range devices {
		if device.Confidence < opts.MinConfidence {
			continue
		}
		if IsPathIgnored(device.Path, opts.IgnorePaths) {
			continue
		}
		if vidpid, ok := device.Metadata["vidpid"]; ok && IsBlocked(vidpid, opts.Blocklist) {
			continue
		}
		filtered = append(filtered, device)
	}
	return filtered
}

// ClearDetectionCache removes all cached detection results.
func ClearDetectionCache() {
	clearCache()
}

// ClearDetectionCacheForTransport removes cached results for one transport.
func ClearDetectionCacheForTransport(transport string) {
	clearCacheForTransport(transport)
}
