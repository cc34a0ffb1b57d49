//go:build windows

// lock_windows.go: Windows ownership primitive using a global named mutex
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pyre

import (
	"errors"
	"path/filepath"
	"strings"

	"golang.org/x/sys/windows"
)

// windowsLock implements OwnershipLock with CreateMutex under the Global\
// namespace, keyed by the sanitized base filename, matching the Windows
// family behaviour described in the design: "already exists" means another
// live process is primary.
type windowsLock struct {
	name   string
	handle windows.Handle
}

func newPlatformLock(baseName string) OwnershipLock {
	name := "Global\\PyreLogMutex_" + sanitizeMutexName(filepath.Base(baseName))
	return &windowsLock{name: name}
}

func sanitizeMutexName(s string) string {
	replacer := strings.NewReplacer("\\", "_", "/", "_")
	return replacer.Replace(s)
}

func (l *windowsLock) TryAcquire() (bool, error) {
	namePtr, err := windows.UTF16PtrFromString(l.name)
	if err != nil {
		return false, err
	}

	handle, err := windows.CreateMutex(nil, false, namePtr)
	if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		// CreateMutex still returns a valid, opened handle to the existing
		// mutex alongside this error; a live process is already primary, so
		// close it rather than leaking the handle.
		windows.CloseHandle(handle)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	l.handle = handle
	return true, nil
}

func (l *windowsLock) Release() error {
	if l.handle == 0 {
		return nil
	}
	windows.ReleaseMutex(l.handle)
	err := windows.CloseHandle(l.handle)
	l.handle = 0
	return err
}
