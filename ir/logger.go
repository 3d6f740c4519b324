package ir

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

// Logger returns the logger used by parse and emit. It is a no-op logger
// until SetLogger is called.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// SetLogger replaces the package logger. Parses and emits already in
// progress keep the logger they started with.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}
