// workers.go: background worker pool for post-rotation compression and
// checksum generation
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pyre

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type taskKind int

const (
	taskCompress taskKind = iota
	taskChecksum
)

// backgroundTask is a unit of post-rotation work: compress a rotated file
// or generate its checksum sidecar. Both are read-mostly operations on
// files the writer goroutine no longer touches, so they run off the hot
// path in a small worker pool.
type backgroundTask struct {
	kind  taskKind
	path  string
	store *FileStore
}

// backgroundWorkers is a small fixed pool draining a buffered task queue,
// adapted from the same pattern the teacher uses for rotation follow-up
// work: a cancellable context, a bounded channel, and a stopOnce guard.
type backgroundWorkers struct {
	ctx       context.Context
	cancel    context.CancelFunc
	taskQueue chan backgroundTask
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

func newBackgroundWorkers(n int) *backgroundWorkers {
	ctx, cancel := context.WithCancel(context.Background())
	bg := &backgroundWorkers{
		ctx:       ctx,
		cancel:    cancel,
		taskQueue: make(chan backgroundTask, 100),
	}
	for i := 0; i < n; i++ {
		bg.wg.Add(1)
		go bg.run()
	}
	return bg
}

func (bg *backgroundWorkers) run() {
	defer bg.wg.Done()
	for {
		select {
		case <-bg.ctx.Done():
			return
		case task := <-bg.taskQueue:
			bg.process(task)
		}
	}
}

func (bg *backgroundWorkers) process(task backgroundTask) {
	switch task.kind {
	case taskCompress:
		compressFile(task.store, task.path)
	case taskChecksum:
		generateChecksum(task.store, task.path)
	}
}

func (bg *backgroundWorkers) submit(task backgroundTask) {
	select {
	case <-bg.ctx.Done():
		return
	default:
	}
	select {
	case bg.taskQueue <- task:
	case <-bg.ctx.Done():
	default:
		// queue full: drop rather than block the pool
	}
}

func (bg *backgroundWorkers) stop() {
	bg.stopOnce.Do(func() {
		bg.cancel()
		bg.wg.Wait()
	})
}

// compressFile gzips a rotated file via a temp-then-rename sequence so a
// crash mid-compression never leaves a truncated ".gz" in place of the
// original.
func compressFile(store *FileStore, filename string) {
	var source *os.File
	err := retryFileOperation(func() error {
		var err error
		source, err = os.Open(filename) // #nosec G304 -- filename is an internal rotated path
		return err
	}, 3, 10*time.Millisecond)
	if err != nil {
		store.reportError("compress_open", err)
		return
	}
	defer source.Close()

	compressedName := filename + ".gz"
	tempName := compressedName + ".tmp"

	target, err := os.Create(tempName) // #nosec G304 -- tempName is internally generated
	if err != nil {
		store.reportError("compress_create", err)
		return
	}

	gzWriter := gzip.NewWriter(target)
	if _, err := io.Copy(gzWriter, source); err != nil {
		gzWriter.Close()
		target.Close()
		_ = os.Remove(tempName)
		store.reportError("compress_copy", err)
		return
	}
	if err := gzWriter.Close(); err != nil {
		target.Close()
		_ = os.Remove(tempName)
		store.reportError("compress_finalize", err)
		return
	}
	if err := target.Close(); err != nil {
		_ = os.Remove(tempName)
		store.reportError("compress_close", err)
		return
	}
	if err := os.Rename(tempName, compressedName); err != nil {
		_ = os.Remove(tempName)
		store.reportError("compress_rename", err)
		return
	}
	if err := os.Remove(filename); err != nil {
		store.reportError("compress_cleanup", err)
	}
}

// generateChecksum writes a "<sha256>  <basename>" sidecar next to a
// rotated file, falling back to the ".gz" name if compression already ran
// first.
func generateChecksum(store *FileStore, filename string) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		gz := filename + ".gz"
		if _, err := os.Stat(gz); err != nil {
			store.reportError("checksum_missing", fmt.Errorf("file not found for checksum: %s", filename))
			return
		}
		filename = gz
	}

	file, err := os.Open(filename) // #nosec G304 -- filename is an internal rotated path
	if err != nil {
		store.reportError("checksum_open", err)
		return
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		store.reportError("checksum_read", err)
		return
	}

	content := fmt.Sprintf("%x  %s\n", hash.Sum(nil), filepath.Base(filename))
	if err := os.WriteFile(filename+".sha256", []byte(content), 0600); err != nil {
		store.reportError("checksum_write", err)
	}
}
