// filestore.go: per-process file naming, cross-process ownership
// arbitration, and size-based rotation with bounded retention
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pyre

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	timecache "github.com/agilira/go-timecache"
)

const (
	defaultMaxSize   int64       = 10 * 1024 * 1024
	defaultRetention             = 3
	fsyncBoundary    int64       = 1 * 1024 * 1024
	defaultFileMode  os.FileMode = 0644

	// longestDerivedSuffix is the widest of the two suffixes openFresh and
	// Rotate ever append to baseName: "_<pid>.log" for a secondary process
	// (up to 10 digits) or ".<n>.log.gz" for a compressed historical.
	// validatePathLength checks against baseName plus this margin, not
	// baseName alone, since it is the derived path that actually has to fit
	// on disk.
	longestDerivedSuffix = len("_4294967295.log")
)

var historicalPattern = regexp.MustCompile(`\.(\d+)\.log(?:\.gz)?$`)

// FileStoreConfig configures a FileStore. All fields are optional; zero
// values fall back to the documented defaults.
type FileStoreConfig struct {
	MaxSize       int64
	Retention     int
	MaxFileAge    time.Duration
	Compress      bool
	Checksum      bool
	FileMode      os.FileMode
	RetryCount    int
	RetryDelay    time.Duration
	ErrorCallback func(operation string, err error)
}

// FileStore owns exactly one open log file for a base name, arbitrating
// primary/secondary naming with other processes via an OwnershipLock, and
// rotating that file by size. Records are written only by the writer
// goroutine; Facade.Rotate and config-file reloads also change it, under
// mu. Producers never touch it after Facade construction.
type FileStore struct {
	baseName    string
	pid         int
	isPrimary   bool
	lock        OwnershipLock
	currentPath string
	file        *os.File

	currentSize atomic.Int64
	maxSize     int64
	retention   int
	maxFileAge  time.Duration
	compress    bool
	checksum    bool
	fileMode    os.FileMode
	retryCount  int
	retryDelay  time.Duration

	rotationSeq atomic.Uint64
	createdAt   atomic.Int64
	degraded    atomic.Bool

	timeCache     *timecache.TimeCache
	errorCallback func(operation string, err error)
	errLimiter    *rateLimiter

	workers *backgroundWorkers
	mu      sync.Mutex
}

// NewFileStore creates and opens the log file for baseName (an absolute
// path stem without extension), arbitrating ownership with any other live
// process using the same base name.
func NewFileStore(baseName string, pid int, cfg FileStoreConfig, tc *timecache.TimeCache) (*FileStore, error) {
	sanitized, err := sanitizeStorePath(baseName)
	if err != nil {
		return nil, fmt.Errorf("invalid base name: %w", err)
	}

	if dir := filepath.Dir(sanitized); dir != "." {
		if mkErr := retryFileOperation(func() error {
			return os.MkdirAll(dir, 0750)
		}, orDefaultRetries(cfg.RetryCount), orDefaultDelay(cfg.RetryDelay)); mkErr != nil {
			return nil, fmt.Errorf("create log directory: %w", mkErr)
		}
	}

	fs := &FileStore{
		baseName:      sanitized,
		pid:           pid,
		maxSize:       cfg.MaxSize,
		retention:     cfg.Retention,
		maxFileAge:    cfg.MaxFileAge,
		compress:      cfg.Compress,
		checksum:      cfg.Checksum,
		fileMode:      cfg.FileMode,
		retryCount:    orDefaultRetries(cfg.RetryCount),
		retryDelay:    orDefaultDelay(cfg.RetryDelay),
		timeCache:     tc,
		errorCallback: cfg.ErrorCallback,
		errLimiter:    newRateLimiter(10, time.Second),
	}
	if fs.maxSize <= 0 {
		fs.maxSize = defaultMaxSize
	}
	if fs.retention <= 0 {
		fs.retention = defaultRetention
	}
	if fs.fileMode == 0 {
		fs.fileMode = defaultFileMode
	}

	fs.lock = newOwnershipLock(sanitized)
	primary, err := fs.lock.TryAcquire()
	if err != nil {
		// Arbitration failure is not fatal: degrade to secondary naming so
		// logging can still proceed.
		primary = false
	}
	fs.isPrimary = primary

	if err := fs.openFresh(fs.generateName(primary)); err != nil {
		return nil, err
	}

	fs.workers = newBackgroundWorkers(2)
	return fs, nil
}

func orDefaultRetries(n int) int {
	if n <= 0 {
		return 3
	}
	return n
}

func orDefaultDelay(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Millisecond
	}
	return d
}

func sanitizeStorePath(baseName string) (string, error) {
	dir := filepath.Dir(baseName)
	base := sanitizeFilename(filepath.Base(baseName))
	abs, err := filepath.Abs(filepath.Join(dir, base))
	if err != nil {
		return "", err
	}
	if err := validatePathLength(abs); err != nil {
		return "", err
	}
	return abs, nil
}

// sanitizeFilename replaces characters a rotated or secondary-process name
// derived from baseName would otherwise carry unsafely into a filesystem
// path: the platform's reserved characters on Windows, and any embedded
// NUL on either platform (Go's os package rejects NUL outright, but the
// rest of the name should still survive rather than the whole open failing
// with an opaque error).
func sanitizeFilename(filename string) string {
	if runtime.GOOS == "windows" {
		invalidChars := []string{"<", ">", ":", "\"", "|", "?", "*"}
		result := filename
		for _, char := range invalidChars {
			result = strings.ReplaceAll(result, char, "_")
		}

		var sanitized strings.Builder
		for _, r := range result {
			if r >= 32 {
				sanitized.WriteRune(r)
			} else {
				sanitized.WriteRune('_')
			}
		}
		return sanitized.String()
	}

	return strings.ReplaceAll(filename, "\x00", "_")
}

// validatePathLength checks path plus the widest suffix generateName or
// Rotate can ever append against the OS path limit, so a base name that
// fits today doesn't start failing to open only once the process has
// rotated into a longer derived name.
func validatePathLength(path string) error {
	pathLen := len(path) + longestDerivedSuffix

	switch runtime.GOOS {
	case "windows":
		if pathLen > 260 {
			return fmt.Errorf("derived log path too long for Windows: %d characters (limit: 260)", pathLen)
		}
	default:
		if pathLen > 4096 {
			return fmt.Errorf("derived log path too long: %d characters (limit: 4096)", pathLen)
		}
	}

	return nil
}

// retryFileOperation retries operation a bounded number of times with a
// fixed delay, absorbing the transient locks antivirus scanners, network
// shares, and overlay filesystems can hold on a log file. Used for creating
// the log directory, opening, closing, and rotating the underlying file, and
// by the compression worker to open its source file.
func retryFileOperation(operation func() error, retryCount int, retryDelay time.Duration) error {
	if retryCount <= 0 {
		retryCount = 3
	}
	if retryDelay <= 0 {
		retryDelay = 10 * time.Millisecond
	}

	var lastErr error
	for i := 0; i < retryCount; i++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if i < retryCount-1 {
			time.Sleep(retryDelay)
		}
	}

	return fmt.Errorf("operation failed after %d retries: %v", retryCount, lastErr)
}

// generateName returns "<base>.log" for the primary process or
// "<base>_<pid>.log" for a secondary process.
func (f *FileStore) generateName(primary bool) string {
	if primary {
		return f.baseName + ".log"
	}
	return fmt.Sprintf("%s_%d.log", f.baseName, f.pid)
}

func (f *FileStore) openFresh(path string) error {
	var file *os.File
	err := retryFileOperation(func() error {
		var openErr error
		file, openErr = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, f.fileMode) // #nosec G304 -- path derived from validated base name
		return openErr
	}, f.retryCount, f.retryDelay)
	if err != nil {
		return fmt.Errorf("open log file %q: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat log file %q: %w", path, err)
	}

	f.file = file
	f.currentPath = path
	f.currentSize.Store(info.Size())
	f.createdAt.Store(f.now().Unix())
	f.degraded.Store(false)
	return nil
}

func (f *FileStore) now() time.Time {
	if f.timeCache != nil {
		return f.timeCache.CachedTime()
	}
	return time.Now()
}

// CurrentPath returns the path of the file currently being written.
func (f *FileStore) CurrentPath() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentPath
}

// IsPrimary reports whether this FileStore won ownership arbitration.
func (f *FileStore) IsPrimary() bool {
	return f.isPrimary
}

// Write appends data to the open file, fsyncing every 1 MiB boundary
// crossed. A write failure is reported through the error callback (rate
// limited) and marks the store degraded; it is never propagated to
// producer goroutines.
func (f *FileStore) Write(data []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return false
	}

	before := f.currentSize.Load()
	n, err := f.file.Write(data)
	if err != nil {
		f.reportError("write", err)
		f.degraded.Store(true)
		return false
	}

	after := f.currentSize.Add(int64(n))
	if crossedBoundary(before, after, fsyncBoundary) {
		_ = f.file.Sync()
	}
	return true
}

func crossedBoundary(before, after, boundary int64) bool {
	if boundary <= 0 {
		return false
	}
	return before/boundary != after/boundary
}

// NeedsRotation reports whether the current file has reached max size or
// (if configured) max age.
func (f *FileStore) NeedsRotation() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.currentSize.Load() >= f.maxSize {
		return true
	}
	if f.maxFileAge > 0 {
		created := f.createdAt.Load()
		if created > 0 && f.now().Sub(time.Unix(created, 0)) >= f.maxFileAge {
			return true
		}
	}
	return false
}

// Rotate closes the current file, renames it with the next strictly
// increasing sequence number, deletes historicals beyond retention, and
// opens a fresh primary-named file. Rotate does not take the ownership
// primitive, so rotations by two processes sharing a base name are not
// serialized against each other. Within one process it holds mu, so a call
// through Facade.Rotate is serialized with the writer's Write and Rotate
// calls.
func (f *FileStore) Rotate() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return fmt.Errorf("no current file to rotate")
	}

	if err := retryFileOperation(f.file.Close, f.retryCount, f.retryDelay); err != nil {
		f.reportError("rotate_close", err)
		f.degraded.Store(true)
		return err
	}
	f.file = nil

	historicals, err := f.historicalFiles()
	if err != nil {
		f.reportError("rotate_scan", err)
	}
	next := nextSequence(historicals)

	backupName := fmt.Sprintf("%s.%d.log", f.baseName, next)
	if err := retryFileOperation(func() error {
		return os.Rename(f.currentPath, backupName)
	}, f.retryCount, f.retryDelay); err != nil {
		f.reportError("rotate_rename", err)
		f.degraded.Store(true)
		return err
	}

	f.enforceRetention(append(historicals, backupName))

	if err := f.openFresh(f.generateName(true)); err != nil {
		f.reportError("rotate_reopen", err)
		f.degraded.Store(true)
		return err
	}

	f.rotationSeq.Add(1)
	f.scheduleBackgroundTasks(backupName)
	return nil
}

// historicalFiles returns paths matching "<base>.<digits>.log", including
// already-compressed "<base>.<digits>.log.gz" siblings, so a compressed
// historical still counts toward retention and sequence numbering after
// its ".log" source has been removed by the compression worker.
func (f *FileStore) historicalFiles() ([]string, error) {
	var out []string
	for _, pattern := range []string{f.baseName + ".*.log", f.baseName + ".*.log.gz"} {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if historicalPattern.MatchString(filepath.Base(m)) {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func sequenceOf(path string) (int, bool) {
	m := historicalPattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func nextSequence(historicals []string) int {
	max := 0
	for _, h := range historicals {
		if n, ok := sequenceOf(h); ok && n > max {
			max = n
		}
	}
	return max + 1
}

func (f *FileStore) enforceRetention(historicals []string) {
	type entry struct {
		path string
		seq  int
	}
	var entries []entry
	for _, h := range historicals {
		if n, ok := sequenceOf(h); ok {
			entries = append(entries, entry{h, n})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	for len(entries) > f.retention {
		oldest := entries[0]
		entries = entries[1:]
		if err := os.Remove(oldest.path); err != nil && !os.IsNotExist(err) {
			f.reportError("retention_delete", err)
		}
	}

	if f.maxFileAge > 0 {
		now := f.now()
		for _, e := range entries {
			info, err := os.Stat(e.path)
			if err != nil {
				continue
			}
			if now.Sub(info.ModTime()) > f.maxFileAge {
				_ = os.Remove(e.path)
			}
		}
	}
}

func (f *FileStore) scheduleBackgroundTasks(backupName string) {
	if f.checksum {
		f.workers.submit(backgroundTask{kind: taskChecksum, path: backupName, store: f})
	}
	if f.compress {
		f.workers.submit(backgroundTask{kind: taskCompress, path: backupName, store: f})
	}
}

// Flush forces the current file's buffered data to stable storage. Called
// on explicit Facade.Flush and from the emergency-flush path.
func (f *FileStore) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return errNoCurrentFile
	}
	return f.file.Sync()
}

// Degraded reports whether the last write or rotation failed. The writer
// surfaces this rather than throwing into producer goroutines.
func (f *FileStore) Degraded() bool {
	return f.degraded.Load()
}

// Close releases the file handle and the ownership primitive.
func (f *FileStore) Close() error {
	f.mu.Lock()
	var closeErr error
	if f.file != nil {
		closeErr = f.file.Close()
		f.file = nil
	}
	f.mu.Unlock()

	if f.workers != nil {
		f.workers.stop()
	}
	if f.lock != nil {
		_ = f.lock.Release()
	}
	return closeErr
}

func (f *FileStore) reportError(operation string, err error) {
	if f.errorCallback == nil {
		return
	}
	if f.errLimiter.Allow() {
		f.errorCallback(operation, err)
	}
}
