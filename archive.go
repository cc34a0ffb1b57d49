// archive.go: bundling rotated log files into a single zip
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pyre

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// No third-party zip writer appears anywhere in the retrieved dependency
// pack; archive/zip is used here as the justified standard-library
// exception, matching what a Go rewrite of the original libzip-based
// archiver would reach for.

// CreateArchive bundles every rotated log file sharing baseName's stem into
// a single zip at destination. It mirrors the original archiver's
// contract: reject an empty base name, skip zero-size candidates, and fail
// if nothing non-empty was found to add. Original files are never deleted.
func CreateArchive(baseName, destination string) error {
	if baseName == "" {
		return fmt.Errorf("archive: base name must not be empty")
	}
	if destination == "" {
		return fmt.Errorf("archive: destination must not be empty")
	}

	sanitized, err := sanitizeStorePath(baseName)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	candidates, err := collectArchiveCandidates(sanitized)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	if len(candidates) == 0 {
		return fmt.Errorf("archive: no log files found for base %q", baseName)
	}

	out, err := os.Create(destination) // #nosec G304 -- destination is caller-supplied by design
	if err != nil {
		return fmt.Errorf("archive: create %q: %w", destination, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	added := 0
	for _, path := range candidates {
		ok, err := addFileToArchive(zw, path)
		if err != nil {
			zw.Close()
			_ = os.Remove(destination)
			return fmt.Errorf("archive: add %q: %w", path, err)
		}
		if ok {
			added++
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("archive: finalize: %w", err)
	}

	if added == 0 {
		_ = out.Close()
		_ = os.Remove(destination)
		return fmt.Errorf("archive: no non-empty log files found for base %q", baseName)
	}
	return nil
}

// CreateProcessArchive builds an archive named "<base>_<pid>_<yyyymmddHHMMSS>.zip"
// next to baseName, mirroring the original archiver's create_archive(base_name,
// pid, timestamp) contract exactly, including its rejection of a zero
// timestamp.
func CreateProcessArchive(baseName string, pid int, timestamp time.Time) (string, error) {
	if timestamp.IsZero() {
		return "", fmt.Errorf("archive: timestamp must not be empty")
	}

	sanitized, err := sanitizeStorePath(baseName)
	if err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}

	destination := fmt.Sprintf("%s_%d_%s.zip", sanitized, pid, timestamp.Format("20060102150405"))
	if err := CreateArchive(baseName, destination); err != nil {
		return "", err
	}
	return destination, nil
}

// collectArchiveCandidates finds the current log file, any pid-suffixed
// secondary file, and every rotated historical for the given base.
func collectArchiveCandidates(base string) ([]string, error) {
	patterns := []string{base + ".log", base + "_*.log", base + ".*.log", base + ".*.log.gz"}

	seen := make(map[string]struct{})
	var out []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

func addFileToArchive(zw *zip.Writer, path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}

	src, err := os.Open(path) // #nosec G304 -- path comes from an internal glob of rotated files
	if err != nil {
		return false, err
	}
	defer src.Close()

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return false, err
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(w, src); err != nil {
		return false, err
	}
	return true, nil
}
