// go-wyzesense
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-wyzesense.
//
// go-wyzesense is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-wyzesense is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-wyzesense; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	wyzesense "github.com/ZaparooProject/go-wyzesense"
)

// config holds the resolved CLI settings. Values from the YAML file are
// overridden by flags given on the command line.
type config struct {
	Device         string        `yaml:"device"`
	Capture        string        `yaml:"capture"`
	LogDir         string        `yaml:"log_dir"`
	Retries        int           `yaml:"retries"`
	ScanTimeout    time.Duration `yaml:"scan_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	EventBuffer    int           `yaml:"event_buffer"`
	Debug          bool          `yaml:"debug"`
}

func defaultConfig() *config {
	return &config{
		Retries:        wyzesense.OpenRetryAttempts,
		ScanTimeout:    wyzesense.DefaultScanTimeout,
		CommandTimeout: wyzesense.DefaultCommandTimeout,
		EventBuffer:    64,
	}
}

// loadConfigFile overlays the YAML file at path onto cfg.
func loadConfigFile(cfg *config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the -config flag
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *config) validate() error {
	switch {
	case c.Retries < 1:
		return fmt.Errorf("%w: retries must be at least 1, got %d", wyzesense.ErrInvalidParameter, c.Retries)
	case c.ScanTimeout <= 0:
		return fmt.Errorf("%w: scan timeout must be positive, got %v", wyzesense.ErrInvalidParameter, c.ScanTimeout)
	case c.CommandTimeout <= 0:
		return fmt.Errorf("%w: command timeout must be positive, got %v", wyzesense.ErrInvalidParameter, c.CommandTimeout)
	case c.EventBuffer < 1:
		return fmt.Errorf("%w: event buffer must be at least 1, got %d", wyzesense.ErrInvalidParameter, c.EventBuffer)
	}
	return nil
}

// parseArgs builds the config from the optional -config file and the flags.
func parseArgs(args []string, stderr io.Writer) (*config, error) {
	fs := flag.NewFlagSet("wyzesense", flag.ContinueOnError)
	fs.SetOutput(stderr)

	flags := defaultConfig()
	configPath := fs.String("config", "", "YAML config file")
	fs.StringVar(&flags.Device, "device", "", "Hub device path (auto-detect if empty)")
	fs.StringVar(&flags.Capture, "capture", "", "Write a CBOR protocol capture to this file")
	fs.StringVar(&flags.LogDir, "log-dir", "", "Write a debug session log into this directory")
	fs.IntVar(&flags.Retries, "retries", flags.Retries, "Open attempts before giving up")
	fs.DurationVar(&flags.ScanTimeout, "scan-timeout", flags.ScanTimeout, "How long pair waits for a sensor")
	fs.DurationVar(&flags.CommandTimeout, "command-timeout", flags.CommandTimeout, "Reply timeout per hub command")
	fs.BoolVar(&flags.Debug, "debug", false, "Enable debug output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg := defaultConfig()
	if *configPath != "" {
		if err := loadConfigFile(cfg, *configPath); err != nil {
			return nil, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Device = flags.Device
		case "capture":
			cfg.Capture = flags.Capture
		case "log-dir":
			cfg.LogDir = flags.LogDir
		case "retries":
			cfg.Retries = flags.Retries
		case "scan-timeout":
			cfg.ScanTimeout = flags.ScanTimeout
		case "command-timeout":
			cfg.CommandTimeout = flags.CommandTimeout
		case "debug":
			cfg.Debug = flags.Debug
		}
	})

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
