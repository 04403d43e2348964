// Package logger provides a simple, thread-safe logging facility.
//
// The logger supports four levels: Debug, Info, Warn, and Error.
// Each log entry includes a timestamp, level, an optional tag naming the
// goroutine that logged it (the controller logs with an empty tag, workers
// with their name such as "T-3"), and the message.
//
// # Basic Usage
//
//	logger.Info("", "Pool started with %d workers", n)
//	logger.Debug("T-0", "Took task %d", task)
//
// Creating a custom logger:
//
//	l := logger.New(os.Stderr, logger.LevelDebug)
//	l.Debug("T-1", "Debug message")
//
// # File Output
//
// NewFileWriter returns a size-rotated writer suitable for SetOutput:
//
//	logger.Default.SetOutput(logger.NewFileWriter("/var/log/primepool.log", 10))
//
// # Thread Safety
//
// All logging operations are protected by a mutex and safe for concurrent use.
package logger
