// Package logging provides categorized structured logging for cycled.
// Every subsystem logs through a named zap logger so log output can be
// filtered per category. Before Init is called all loggers are no-ops,
// which keeps library use (and tests) silent by default.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a logging subsystem.
type Category string

const (
	CategoryBoot         Category = "boot"
	CategoryTier         Category = "tier"
	CategoryOrchestrator Category = "orchestrator"
	CategoryAgent        Category = "agent"
	CategoryTools        Category = "tools"
	CategoryInference    Category = "inference"
	CategoryStore        Category = "store"
	CategoryConfig       Category = "config"
	CategoryEvents       Category = "events"
)

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	loggers = make(map[Category]*zap.SugaredLogger)
)

// Init installs the process-wide logger. verbose enables debug level.
// Safe to call more than once; later calls replace the logger.
func Init(verbose bool) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	base = logger
	loggers = make(map[Category]*zap.SugaredLogger)
	return nil
}

// SetLogger replaces the base logger directly. Used by tests and by callers
// that build their own zap configuration.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	base = l
	loggers = make(map[Category]*zap.SugaredLogger)
}

// L returns the sugared logger for a category.
func L(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if lg, ok := loggers[cat]; ok {
		mu.RUnlock()
		return lg
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if lg, ok := loggers[cat]; ok {
		return lg
	}
	lg := base.Named(string(cat)).Sugar()
	loggers[cat] = lg
	return lg
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}
