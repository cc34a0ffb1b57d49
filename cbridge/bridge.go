// Package cbridge exposes pyre through a small opaque-handle FFI surface,
// matching the shape of the original C bridge: create, log, set_level,
// destroy, all returning integer status codes rather than raising across
// the language boundary.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cbridge

/*
#include <stdint.h>
*/
import "C"

import (
	"sync"

	"github.com/agilira/pyre"
)

// Status codes returned across the boundary. Zero is success; negative
// values are specific failure categories, matching the original bridge's
// contract so callers written against it need no changes.
const (
	StatusOK              = 0
	StatusInvalidArgument = -1
	StatusNullPointer     = -2
	StatusAlreadyInit     = -3
	StatusNotInit         = -4
	StatusFileIO          = -5
	StatusMemory          = -6
	StatusThread          = -7
)

var (
	registryMu sync.Mutex
	registry   = make(map[C.uintptr_t]*pyre.Facade)
	nextHandle C.uintptr_t = 1
)

// speckit_logger_create allocates a Facade for baseName and returns an
// opaque handle, or 0 on failure.
//
//export speckit_logger_create
func speckit_logger_create(baseName *C.char) C.uintptr_t {
	if baseName == nil {
		return 0
	}
	name := C.GoString(baseName)
	if name == "" {
		return 0
	}

	logger, err := pyre.New(pyre.Config{Filename: name, MinLevel: pyre.Debug})
	if err != nil {
		return 0
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	handle := nextHandle
	nextHandle++
	registry[handle] = logger
	return handle
}

// speckit_logger_log writes a record through the Facade identified by
// handle. level must be in [0,3]; out-of-range values return
// StatusInvalidArgument.
//
//export speckit_logger_log
func speckit_logger_log(handle C.uintptr_t, level C.int, tag *C.char, message *C.char) C.int {
	logger, ok := lookup(handle)
	if !ok {
		return StatusNotInit
	}
	if tag == nil || message == nil {
		return StatusNullPointer
	}
	if level < 0 || level > 3 {
		return StatusInvalidArgument
	}

	logger.Log(pyre.Level(int8(level)), C.GoString(tag), C.GoString(message))
	return StatusOK
}

// speckit_logger_set_level changes the global minimum level for handle.
//
//export speckit_logger_set_level
func speckit_logger_set_level(handle C.uintptr_t, level C.int) C.int {
	logger, ok := lookup(handle)
	if !ok {
		return StatusNotInit
	}
	if level < 0 || level > 3 {
		return StatusInvalidArgument
	}
	logger.SetLevel(pyre.Level(int8(level)))
	return StatusOK
}

// speckit_logger_destroy flushes, closes, and releases handle. Destroying
// an unknown handle is StatusNotInit, matching the "not-init" status the
// original bridge returns for a stale or double-freed handle.
//
//export speckit_logger_destroy
func speckit_logger_destroy(handle C.uintptr_t) C.int {
	registryMu.Lock()
	logger, ok := registry[handle]
	if ok {
		delete(registry, handle)
	}
	registryMu.Unlock()

	if !ok {
		return StatusNotInit
	}
	if err := logger.Close(); err != nil {
		return StatusFileIO
	}
	return StatusOK
}

func lookup(handle C.uintptr_t) (*pyre.Facade, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	logger, ok := registry[handle]
	return logger, ok
}
