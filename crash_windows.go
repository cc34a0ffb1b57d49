//go:build windows

// crash_windows.go: fatal signal set and re-raise for Windows hosts
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pyre

import (
	"os"
	"syscall"
)

// fatalSignals mirrors the unix segfault/abort-class set with the closest
// Windows equivalents syscall defines (emulated values matching the C
// runtime's own signal numbering): SIGSEGV, SIGABRT, SIGBUS, SIGILL.
// Ordinary shutdown signals (os.Interrupt, SIGTERM) are deliberately not
// registered here -- a console close or Ctrl-C is not a crash and must not
// take the emergency-flush-and-reraise path.
func fatalSignals() []os.Signal {
	return []os.Signal{syscall.SIGSEGV, syscall.SIGABRT, syscall.SIGBUS, syscall.SIGILL}
}

// reraise has no exact Windows equivalent of re-delivering a signal to the
// current process, so the flushed process terminates directly.
func reraise(sig os.Signal) {
	os.Exit(1)
}
