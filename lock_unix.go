//go:build unix

// lock_unix.go: POSIX ownership primitive using flock(2) on a sidecar file
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pyre

import (
	"os"

	"golang.org/x/sys/unix"
)

// unixLock implements OwnershipLock with an exclusive, non-blocking flock
// on a "<base>.lock" sidecar file. This is the POSIX-family "named kernel
// primitive" the design calls for: the lock is held until Release (when the
// owning FileStore closes) and the sidecar file is never explicitly
// unlinked, since a waiting secondary must still be able to observe its
// existence.
type unixLock struct {
	path string
	file *os.File
}

func newPlatformLock(baseName string) OwnershipLock {
	return &unixLock{path: baseName + ".lock"}
}

func (l *unixLock) TryAcquire() (bool, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644) // #nosec G304 -- path derived from validated base name
	if err != nil {
		return false, err
	}

	err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return false, nil
		}
		return false, err
	}

	l.file = f
	return true, nil
}

func (l *unixLock) Release() error {
	if l.file == nil {
		return nil
	}
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	return err
}
