// pyre.go: the Facade -- a single entry point over level gating, both
// queues, the file store, the background writer, and crash recovery
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pyre

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	timecache "github.com/agilira/go-timecache"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultPrimaryQueueCapacity = 10000
)

// Config configures a Facade. Filename is required; everything else falls
// back to a documented default when left zero.
type Config struct {
	Filename string

	MaxSize    int64
	Retention  int
	MaxFileAge time.Duration
	Compress   bool
	Checksum   bool
	FileMode   os.FileMode
	RetryCount int
	RetryDelay time.Duration

	PrimaryQueueCapacity  int
	OverflowQueueCapacity int

	MinLevel Level

	// ErrorCallback receives diagnostic errors (write failures, rotation
	// failures, background task failures). It is rate limited to 10 calls
	// per second so a failing disk cannot flood the caller.
	ErrorCallback func(operation string, err error) `json:"-"`

	// Registerer, if non-nil, exposes Stats as Prometheus collectors.
	Registerer prometheus.Registerer `json:"-"`
}

// Facade is the single entry point applications hold: level gating,
// per-tag overrides, enqueue-with-overflow-fallback, and lifecycle
// control over the background writer and file store.
type Facade struct {
	id uuid.UUID

	level atomic.Int32
	tags  *TagFilter

	primary  *PrimaryQueue
	overflow *OverflowBuffer
	store    *FileStore
	w        *writer
	hook     *crashHook
	metrics  *Metrics

	timeCache     *timecache.TimeCache
	errorCallback func(operation string, err error)
	errLimiter    *rateLimiter

	enqueued     atomic.Uint64
	dropped      atomic.Uint64
	overflowUsed atomic.Uint64

	closeOnce sync.Once
	closed    atomic.Bool
}

// New builds a Facade from cfg. The returned Facade owns a background
// writer goroutine and, if it is the first Facade in the process to arm its
// crash hook, the process's fatal-signal handler; call Close to release
// both.
func New(cfg Config) (*Facade, error) {
	if cfg.Filename == "" {
		return nil, fmt.Errorf("pyre: Filename is required")
	}

	primaryCap := cfg.PrimaryQueueCapacity
	if primaryCap <= 0 {
		primaryCap = defaultPrimaryQueueCapacity
	}
	overflowCap := cfg.OverflowQueueCapacity
	if overflowCap <= 0 {
		overflowCap = primaryCap
	}

	tc := timecache.NewWithResolution(time.Millisecond)

	store, err := NewFileStore(cfg.Filename, os.Getpid(), FileStoreConfig{
		MaxSize:       cfg.MaxSize,
		Retention:     cfg.Retention,
		MaxFileAge:    cfg.MaxFileAge,
		Compress:      cfg.Compress,
		Checksum:      cfg.Checksum,
		FileMode:      cfg.FileMode,
		RetryCount:    cfg.RetryCount,
		RetryDelay:    cfg.RetryDelay,
		ErrorCallback: cfg.ErrorCallback,
	}, tc)
	if err != nil {
		return nil, err
	}

	primary := NewPrimaryQueue(primaryCap)
	overflow := NewOverflowBuffer(overflowCap)
	w := newWriter(primary, overflow, store)

	f := &Facade{
		id:            uuid.New(),
		tags:          NewTagFilter(),
		primary:       primary,
		overflow:      overflow,
		store:         store,
		w:             w,
		timeCache:     tc,
		errorCallback: cfg.ErrorCallback,
		errLimiter:    newRateLimiter(10, time.Second),
	}
	f.level.Store(int32(cfg.MinLevel))

	if cfg.Registerer != nil {
		f.metrics = NewMetrics(cfg.Registerer)
	}

	f.hook = newCrashHook(func() { f.emergencyFlush() })
	f.hook.arm()

	return f, nil
}

// NewWithDefaults opens filename with a 10MB rotation size and a
// three-file retention, matching the teacher's most common entry point.
func NewWithDefaults(filename string) (*Facade, error) {
	return New(Config{
		Filename:  filename,
		MaxSize:   defaultMaxSize,
		Retention: defaultRetention,
		MinLevel:  Info,
	})
}

// ID returns the correlation identifier for this Facade instance, useful
// for distinguishing log streams from multiple Facades in the same
// process's diagnostics.
func (l *Facade) ID() uuid.UUID {
	return l.id
}

// SetLevel changes the global minimum level gate. Per-tag overrides set
// through Tags() can only raise the bar for their tag; no tag passes a
// level below this global minimum.
func (l *Facade) SetLevel(level Level) {
	l.level.Store(int32(level))
}

// Level returns the current global minimum level.
func (l *Facade) Level() Level {
	return Level(l.level.Load())
}

// Tags returns the per-tag filter, letting callers enable/disable or
// override the level for individual tags.
func (l *Facade) Tags() *TagFilter {
	return l.tags
}

// Log enqueues a record if level clears the global and per-tag gates. It
// tries the primary lock-free queue first, falls back to the lossy
// overflow buffer if the primary is full, and drops the record (counted,
// never blocking) if both are full. Landing in the overflow buffer asks the
// writer for an early flush rather than a plain wake, since it means the
// primary queue is already saturated.
func (l *Facade) Log(level Level, tag, message string) {
	if l.closed.Load() {
		return
	}
	if !l.tags.Allow(tag, level, l.Level()) {
		return
	}

	record := newRecord(level, os.Getpid(), currentThreadID(), tag, message, l.now())

	if l.primary.TryPush(record) {
		l.enqueued.Add(1)
		l.w.signal()
		return
	}
	if l.overflow.TryPush(record) {
		l.enqueued.Add(1)
		l.overflowUsed.Add(1)
		l.w.requestEarlyFlush()
		return
	}
	l.dropped.Add(1)
	l.reportError("log", errRecordDropped)
}

// Debug, Info, Warning, and Error are convenience wrappers over Log.
func (l *Facade) Debug(tag, message string)   { l.Log(Debug, tag, message) }
func (l *Facade) Info(tag, message string)    { l.Log(Info, tag, message) }
func (l *Facade) Warning(tag, message string) { l.Log(Warning, tag, message) }
func (l *Facade) Error(tag, message string)   { l.Log(Error, tag, message) }

func (l *Facade) now() time.Time {
	if l.timeCache != nil {
		return l.timeCache.CachedTime()
	}
	return time.Now()
}

// Write implements io.Writer, treating each call as a single Info record
// under the "raw" tag with any trailing newline trimmed. This lets a
// Facade sit behind anything that wants an io.Writer, such as
// log.SetOutput.
func (l *Facade) Write(data []byte) (int, error) {
	msg := string(data)
	for len(msg) > 0 && (msg[len(msg)-1] == '\n' || msg[len(msg)-1] == '\r') {
		msg = msg[:len(msg)-1]
	}
	l.Log(Info, "raw", msg)
	return len(data), nil
}

// Flush blocks until both queues have been drained at least once more and
// the current file has been synced.
func (l *Facade) Flush() {
	l.w.flush()
	if l.metrics != nil {
		l.metrics.observe(l.Stats())
	}
}

// emergencyFlush is invoked from the crash monitor goroutine. It performs
// the same drain-and-sync as Flush but never touches the metrics registry,
// keeping the signal path as small as practical.
func (l *Facade) emergencyFlush() {
	l.w.flush()
}

// Rotate forces an immediate rotation regardless of current file size.
func (l *Facade) Rotate() error {
	return l.store.Rotate()
}

// Close performs a final flush, stops the background writer, disarms the
// crash hook, and releases the file store and ownership primitive. Safe to
// call more than once; a call after the first returns errClosed rather than
// repeating the shutdown sequence.
func (l *Facade) Close() error {
	if l.closed.Load() {
		return errClosed
	}
	var closeErr error
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		l.hook.disarm()
		l.w.shutdown()
		if l.timeCache != nil {
			l.timeCache.Stop()
		}
		closeErr = l.store.Close()
	})
	return closeErr
}

// Stats is a point-in-time snapshot of Facade throughput and health,
// safe to call frequently for monitoring.
type Stats struct {
	Enqueued      uint64
	Written       uint64
	Dropped       uint64
	OverflowUsed  uint64
	Rotations     uint64
	WriteFailures uint64
	PrimaryDepth  int
	OverflowDepth int
	IsPrimary     bool
	Degraded      bool
	CurrentPath   string
}

// Stats returns a snapshot of the Facade's counters.
func (l *Facade) Stats() Stats {
	return Stats{
		Enqueued:      l.enqueued.Load(),
		Written:       l.w.Written(),
		Dropped:       l.dropped.Load(),
		OverflowUsed:  l.overflowUsed.Load(),
		Rotations:     l.store.rotationSeq.Load(),
		WriteFailures: l.w.WriteFailures(),
		PrimaryDepth:  l.primary.Len(),
		OverflowDepth: l.overflow.Len(),
		IsPrimary:     l.store.IsPrimary(),
		Degraded:      l.store.Degraded(),
		CurrentPath:   l.store.CurrentPath(),
	}
}

func (l *Facade) reportError(operation string, err error) {
	if l.errorCallback == nil {
		return
	}
	if l.errLimiter.Allow() {
		l.errorCallback(operation, err)
	}
}
