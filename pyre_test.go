package pyre

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFacadeLevelGateBlocksBelowMinimum(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{Filename: filepath.Join(dir, "app"), MinLevel: Warning})
	require.NoError(t, err)
	defer logger.Close()

	logger.Debug("t", "should not appear")
	logger.Info("t", "should not appear either")

	stats := logger.Stats()
	require.Zero(t, stats.Enqueued, "records below the minimum level must never reach a queue")
}

func TestFacadeMultiProducerFIFOPerProducer(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{
		Filename:              filepath.Join(dir, "app"),
		MinLevel:              Debug,
		PrimaryQueueCapacity:  4096,
		OverflowQueueCapacity: 4096,
	})
	require.NoError(t, err)
	defer logger.Close()

	const producers = 8
	const perProducer = 200

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				logger.Info(fmt.Sprintf("T%d", id), strconv.Itoa(i))
			}
		}(p)
	}
	wg.Wait()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if logger.Stats().Written >= producers*perProducer {
			break
		}
		time.Sleep(time.Millisecond)
	}

	stats := logger.Stats()
	require.Equal(t, uint64(producers*perProducer), stats.Enqueued+stats.Dropped,
		"every Log call must either enqueue or be counted as dropped")
	require.GreaterOrEqual(t, stats.Written, stats.Enqueued-stats.WriteFailures)

	logger.Flush()
	content, err := os.ReadFile(logger.Stats().CurrentPath)
	require.NoError(t, err)
	last := make(map[string]int)
	for _, line := range strings.Split(strings.TrimSuffix(string(content), "\n"), "\n") {
		tagStart := strings.LastIndex(line, "] [") + len("] [")
		tagEnd := tagStart + strings.Index(line[tagStart:], "]: ")
		tag, msg := line[tagStart:tagEnd], line[tagEnd+len("]: "):]
		n, err := strconv.Atoi(msg)
		require.NoError(t, err)
		prev, seen := last[tag]
		require.True(t, !seen || n > prev, "producer %s out of order: %d after %d", tag, n, prev)
		last[tag] = n
	}
}

func TestFacadeCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{Filename: filepath.Join(dir, "app")})
	require.NoError(t, err)

	require.NoError(t, logger.Close())
	require.ErrorIs(t, logger.Close(), errClosed,
		"a second Close must not repeat the shutdown sequence, and must report itself as already closed")
}

func TestFacadeReportsDroppedRecordsThroughErrorCallback(t *testing.T) {
	dir := t.TempDir()
	var reported []string
	var mu sync.Mutex

	logger, err := New(Config{
		Filename:              filepath.Join(dir, "app"),
		MinLevel:              Debug,
		PrimaryQueueCapacity:  1,
		OverflowQueueCapacity: 1,
		ErrorCallback: func(operation string, err error) {
			mu.Lock()
			defer mu.Unlock()
			reported = append(reported, operation)
		},
	})
	require.NoError(t, err)
	defer logger.Close()

	for i := 0; i < 32; i++ {
		logger.Info("t", "message")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, reported, "log", "a record dropped after both queues fill must reach the error callback")
}

func TestFacadeWriteImplementsIOWriter(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{Filename: filepath.Join(dir, "app"), MinLevel: Debug})
	require.NoError(t, err)
	defer logger.Close()

	n, err := logger.Write([]byte("hello from io.Writer\n"))
	require.NoError(t, err)
	require.Equal(t, len("hello from io.Writer\n"), n)

	logger.Flush()
	require.Equal(t, uint64(1), logger.Stats().Written)
}

func TestFacadeRotateForcesImmediateRotation(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{Filename: filepath.Join(dir, "app"), MinLevel: Debug, MaxSize: 1 << 30})
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("t", "one")
	logger.Flush()
	require.NoError(t, logger.Rotate())

	stats := logger.Stats()
	require.Equal(t, uint64(1), stats.Rotations)
}
