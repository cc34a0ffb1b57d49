//go:build unix

// crash_unix.go: fatal signal set and re-raise for POSIX hosts
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pyre

import (
	"os"
	"syscall"
)

// fatalSignals returns the segfault-class, abort-class signals the original
// crash_handler.cpp installs a handler for (SIGSEGV, SIGABRT), plus the two
// other synchronous fault signals POSIX defines for the same class of
// unrecoverable error (SIGBUS, SIGILL). Ordinary shutdown signals like
// SIGINT/SIGTERM are deliberately not part of this set -- a plain Ctrl-C is
// not a crash and must not take the emergency-flush-and-reraise path.
func fatalSignals() []os.Signal {
	return []os.Signal{syscall.SIGSEGV, syscall.SIGABRT, syscall.SIGBUS, syscall.SIGILL}
}

// reraise restores the signal's default disposition semantics by sending
// it to this process again after the handler has already reset it, so the
// OS-observed exit status matches what would have happened without
// interception.
func reraise(sig os.Signal) {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return
	}
	_ = syscall.Kill(syscall.Getpid(), s)
}
