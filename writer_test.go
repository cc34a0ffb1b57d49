package pyre

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriterDrainsPrimaryBeforeOverflow(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "app")

	store, err := NewFileStore(base, 1, FileStoreConfig{MaxSize: 1 << 30}, nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer store.Close()

	primary := NewPrimaryQueue(16)
	overflow := NewOverflowBuffer(16)

	primary.TryPush(newRecord(Info, 1, 1, "t", "from-primary", timeAt(0)))
	overflow.TryPush(newRecord(Info, 1, 1, "t", "from-overflow", timeAt(1)))

	w := newWriter(primary, overflow, store)
	defer w.shutdown()

	w.signal()
	waitUntil(t, func() bool { return w.Written() >= 2 })

	content, err := os.ReadFile(base + ".log")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !containsInOrder(string(content), "from-primary", "from-overflow") {
		t.Fatalf("expected primary record before overflow record, got: %s", content)
	}
}

func TestWriterFlushSyncsCurrentFile(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "app")

	store, err := NewFileStore(base, 1, FileStoreConfig{MaxSize: 1 << 30}, nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer store.Close()

	primary := NewPrimaryQueue(16)
	overflow := NewOverflowBuffer(16)
	w := newWriter(primary, overflow, store)
	defer w.shutdown()

	primary.TryPush(newRecord(Info, 1, 1, "t", "flushed", timeAt(0)))
	w.flush()

	content, err := os.ReadFile(base + ".log")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !containsInOrder(string(content), "flushed") {
		t.Fatalf("expected flushed record on disk, got: %s", content)
	}
}

func TestWriterRequestEarlyFlushDrainsWithoutWaitingOutBackoff(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "app")

	store, err := NewFileStore(base, 1, FileStoreConfig{MaxSize: 1 << 30}, nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer store.Close()

	primary := NewPrimaryQueue(16)
	overflow := NewOverflowBuffer(16)
	w := newWriter(primary, overflow, store)
	defer w.shutdown()

	// let the writer sit idle long enough for its backoff to have grown
	// well past the initial idle poll before the overflow record arrives,
	// so a plain wake would otherwise wait out that backoff.
	time.Sleep(writerMaxBackoff)

	overflow.TryPush(newRecord(Info, 1, 1, "t", "from-overflow", timeAt(0)))
	w.requestEarlyFlush()

	waitUntil(t, func() bool { return w.Written() >= 1 })

	content, err := os.ReadFile(base + ".log")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !containsInOrder(string(content), "from-overflow") {
		t.Fatalf("expected overflow record on disk, got: %s", content)
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func containsInOrder(haystack string, parts ...string) bool {
	pos := 0
	for _, p := range parts {
		idx := strings.Index(haystack[pos:], p)
		if idx < 0 {
			return false
		}
		pos += idx + len(p)
	}
	return true
}
