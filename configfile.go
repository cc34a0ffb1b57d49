// configfile.go: optional hot-reload of runtime tunables from a config
// file
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pyre

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/agilira/argus"
)

// FileConfig is the subset of Facade behavior that can be changed live
// through a watched configuration file. Unrecognized keys are ignored;
// missing keys leave the current value untouched.
type FileConfig struct {
	Level      Level
	MaxSize    int64
	Retention  int
	MaxFileAge time.Duration
}

// WatchConfigFile uses argus's format-agnostic watcher to reload level,
// rotation size, retention count, and max file age whenever path changes
// on disk, without requiring a process restart. Supported formats and
// polling behavior are entirely argus's: JSON, YAML, TOML, HCL, INI, and
// Properties are all accepted with no format hint from the caller.
func (l *Facade) WatchConfigFile(path string) (io.Closer, error) {
	watcher, err := argus.UniversalConfigWatcher(path, func(cfg map[string]interface{}) {
		l.applyFileConfig(cfg)
	})
	if err != nil {
		return nil, fmt.Errorf("pyre: watch config file %q: %w", path, err)
	}
	return watcher, nil
}

func (l *Facade) applyFileConfig(cfg map[string]interface{}) {
	if raw, ok := cfg["level"].(string); ok {
		if lvl, ok := parseLevelName(raw); ok {
			l.SetLevel(lvl)
		}
	}
	if raw, ok := cfg["max_size"].(string); ok {
		if size, err := parseSize(raw); err == nil {
			l.store.mu.Lock()
			l.store.maxSize = size
			l.store.mu.Unlock()
		}
	}
	if raw, ok := cfg["retention"].(int); ok && raw > 0 {
		l.store.mu.Lock()
		l.store.retention = raw
		l.store.mu.Unlock()
	}
	if raw, ok := cfg["max_file_age"].(string); ok {
		if age, ok := parseMaxFileAge(raw); ok {
			l.store.mu.Lock()
			l.store.maxFileAge = age
			l.store.mu.Unlock()
		}
	}
}

// parseMaxFileAge accepts everything parseDuration does, plus "off"/"0" to
// mean no age-based rotation -- a hot-reloaded config file needs a way to
// turn max_file_age back off without restarting the process, and zero
// FileStore.maxFileAge already means exactly that to NeedsRotation.
func parseMaxFileAge(raw string) (time.Duration, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "off", "0":
		return 0, true
	}
	d, err := parseDuration(raw)
	if err != nil {
		return 0, false
	}
	return d, true
}

// parseSize converts size strings like "100MB", "1GB" to bytes, used above
// to translate a hot-reloaded max_size string into FileStore.maxSize.
// Supports case-insensitive input and single-letter units (K, M, G, T).
func parseSize(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	if val, err := strconv.ParseInt(s, 10, 64); err == nil {
		return val, nil
	}

	s = strings.ToUpper(s)

	var multiplier int64
	var numStr string

	switch {
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "TB"):
		multiplier = 1024 * 1024 * 1024 * 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "K"):
		multiplier = 1024
		numStr = s[:len(s)-1]
	case strings.HasSuffix(s, "M"):
		multiplier = 1024 * 1024
		numStr = s[:len(s)-1]
	case strings.HasSuffix(s, "G"):
		multiplier = 1024 * 1024 * 1024
		numStr = s[:len(s)-1]
	case strings.HasSuffix(s, "T"):
		multiplier = 1024 * 1024 * 1024 * 1024
		numStr = s[:len(s)-1]
	default:
		return 0, fmt.Errorf("unknown size suffix in %q (supported: KB/K, MB/M, GB/G, TB/T)", s)
	}

	val, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size number in %q: %v", s, err)
	}

	result := val * multiplier
	if result < 0 {
		return 0, fmt.Errorf("size %q too large", s)
	}

	return result, nil
}

// parseDuration converts duration strings like "7d", "24h" to
// time.Duration, used above to translate a hot-reloaded max_file_age string
// into FileStore.maxFileAge. Supports Go durations plus the day/week/year
// suffixes retention windows are usually expressed in.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	s = strings.ToLower(s)

	var multiplier time.Duration
	var numStr string

	switch {
	case strings.HasSuffix(s, "d"):
		multiplier = 24 * time.Hour
		numStr = s[:len(s)-1]
	case strings.HasSuffix(s, "w"):
		multiplier = 7 * 24 * time.Hour
		numStr = s[:len(s)-1]
	case strings.HasSuffix(s, "y"):
		multiplier = 365 * 24 * time.Hour
		numStr = s[:len(s)-1]
	default:
		return 0, fmt.Errorf("unknown duration suffix in %q", s)
	}

	val, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration number in %q: %v", s, err)
	}

	return time.Duration(val) * multiplier, nil
}

func parseLevelName(name string) (Level, bool) {
	switch name {
	case "debug", "DEBUG":
		return Debug, true
	case "info", "INFO":
		return Info, true
	case "warning", "WARNING", "warn", "WARN":
		return Warning, true
	case "error", "ERROR":
		return Error, true
	default:
		return 0, false
	}
}
