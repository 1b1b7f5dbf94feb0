package logging

import "sync"

var (
	globalLogger Logger
	globalMu     sync.RWMutex
)

// Global returns the global logger. Until Init or SetGlobal is called it
// discards everything.
func Global() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger == nil {
		return NewNop()
	}
	return globalLogger
}

// SetGlobal replaces the global logger with the given logger.
func SetGlobal(logger Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// Init builds a logger from config and installs it as the global logger.
func Init(config Config, opts ...Option) Logger {
	l := NewLogger(config, opts...)
	SetGlobal(l)
	return l
}

// Sync flushes any buffered log entries from the global logger.
func Sync() error {
	return Global().Sync()
}
