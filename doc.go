// Package pyre provides a crash-safe, asynchronous, rotating file logger.
//
// A Facade accepts records from any number of producer goroutines through a
// bounded lock-free queue, falling back to a lossy overflow ring when the
// primary queue saturates so producers are never blocked and never observe
// backpressure from disk I/O. A single background goroutine drains both
// queues, formats each record, and writes it through a FileStore that
// rotates by size, retains a bounded number of historical files, and
// optionally compresses and checksums them in the background.
//
// # Quick Start
//
//	logger, err := pyre.NewWithDefaults("app") // writes app.log
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer logger.Close()
//
//	logger.Info("startup", "listening on :8080")
//
// # Advanced Configuration
//
//	logger, err := pyre.New(pyre.Config{
//		Filename:   "app",
//		MaxSize:    100 * 1024 * 1024,
//		Retention:  20,
//		MaxFileAge: 30 * 24 * time.Hour,
//		Compress:   true,
//		Checksum:   true,
//		MinLevel:   pyre.Info,
//		ErrorCallback: func(operation string, err error) {
//			log.Printf("pyre error (%s): %v", operation, err)
//		},
//	})
//
// # Cross-Process Ownership
//
// When two processes share the same Filename, the first to start wins the
// "<base>.log" name and the rest fall back to "<base>_<pid>.log", arbitrated
// through a platform-specific ownership primitive: flock(2) on unix, a
// named mutex on Windows, and a filesystem-existence check elsewhere.
//
// # Crash Recovery
//
// The first Facade created in a process installs a signal handler for the
// process's fatal signals that flushes its queues to disk before the
// process actually terminates, bounding data loss to whatever was enqueued
// in the instant of the crash itself. Later Facades in the same process do
// not install a handler of their own.
//
// # Standard Library Compatibility
//
//	log.SetOutput(logger) // Facade implements io.Writer
//
// # Telemetry
//
//	logger, _ := pyre.New(pyre.Config{Filename: "app", Registerer: prometheus.DefaultRegisterer})
//	stats := logger.Stats()
package pyre
