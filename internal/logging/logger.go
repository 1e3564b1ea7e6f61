// Package logging wraps zap in the same singleton shape the teacher's
// internal/util logger used (Init/once.Do, a package-level default logger,
// level/format taken from config) but backed by a real structured logger
// instead of the teacher's unfinished log.Logger wrapper.
package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	once sync.Once
	l    = zap.NewNop()
	mu   sync.RWMutex
)

// Init builds the process-wide logger from a level string (debug, info,
// warn, error) and a format ("json" or "console"). Safe to call once;
// subsequent calls are noops, matching the teacher's sync.Once guard.
func Init(level, format string) error {
	var err error
	once.Do(func() {
		var cfg zap.Config
		if strings.EqualFold(format, "json") {
			cfg = zap.NewProductionConfig()
		} else {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		var zl zapcore.Level
		if perr := zl.UnmarshalText([]byte(strings.ToLower(level))); perr == nil {
			cfg.Level = zap.NewAtomicLevelAt(zl)
		}
		built, buildErr := cfg.Build()
		if buildErr != nil {
			err = buildErr
			return
		}
		mu.Lock()
		l = built
		mu.Unlock()
	})
	return err
}

// L returns the process-wide logger. Before Init is called it is a no-op
// logger so packages can log unconditionally during early construction.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return l
}

// Sync flushes any buffered log entries; call during shutdown.
func Sync() error {
	return L().Sync()
}
