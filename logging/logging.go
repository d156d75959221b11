// Package logging wires zap as the process-wide structured logger.
package logging

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.Mutex
	logger *zap.SugaredLogger
)

// Init builds the global logger. Production environments get JSON output,
// everything else gets the human-readable development encoder. Safe to call
// more than once; the last call wins.
func Init(environment string) error {
	mu.Lock()
	defer mu.Unlock()

	var (
		base *zap.Logger
		err  error
	)
	if environment == "production" {
		cfg := zap.NewProductionConfig()
		cfg.DisableStacktrace = true
		base, err = cfg.Build()
	} else {
		base, err = zap.NewDevelopment()
	}
	if err != nil {
		return err
	}

	logger = base.Sugar()
	return nil
}

// L returns the global sugared logger, falling back to a no-op logger when
// Init has not run (keeps tests quiet).
func L() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return logger
}

// Named returns a child logger tagged with the given component name.
func Named(name string) *zap.SugaredLogger {
	return L().Named(name)
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if logger != nil {
		_ = logger.Sync()
	}
}
