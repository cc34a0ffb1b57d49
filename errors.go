// errors.go: sentinel errors shared across the package
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pyre

import "errors"

var (
	errNoCurrentFile = errors.New("pyre: no current file open")
	errClosed        = errors.New("pyre: logger closed")
	errRecordDropped = errors.New("pyre: record dropped, primary and overflow both full")
)
