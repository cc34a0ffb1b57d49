//go:build !unix && !windows

// crash_fallback.go: minimal fatal signal set for other hosts
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pyre

import "os"

func fatalSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

func reraise(sig os.Signal) {
	os.Exit(1)
}
