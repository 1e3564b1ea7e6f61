// Package supervisor owns the process-lifecycle concerns spec.md §6 names:
// a PID file at a caller-supplied path and signal-driven graceful shutdown. Grounded
// on the teacher's main.go signal.Notify + context-cancellation shutdown
// sequencing, generalized from a single gRPC server to an ordered
// multi-component teardown.
package supervisor

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"
)

// DefaultPIDPath is the fixed PID file location spec.md §6 names.
const DefaultPIDPath = "/tmp/matching_engine.pid"

// WritePIDFile writes the current process id to path, truncating any
// existing file (spec.md §6: one running instance's PID is recorded for
// external process management).
func WritePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

// RemovePIDFile removes the PID file written by WritePIDFile. Missing-file
// is not an error — shutdown must not fail because the file was already
// cleaned up.
func RemovePIDFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pid file: %w", err)
	}
	return nil
}

// WaitForShutdownSignal blocks until SIGTERM, SIGINT, or SIGHUP is
// received, logs which one, and returns.
func WaitForShutdownSignal(logger *zap.Logger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	sig := <-ch
	signal.Stop(ch)
	if logger != nil {
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	}
}
