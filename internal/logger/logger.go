// Package logger provides structured logging using Zap.
package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	base *zap.Logger
	once sync.Once
)

// Init initializes the global logger for the given environment.
// "production" gets the JSON encoder, anything else the console encoder.
func Init(env string) {
	once.Do(func() {
		var err error
		if env == "production" {
			base, err = zap.NewProduction()
		} else {
			base, err = zap.NewDevelopment()
		}
		if err != nil {
			base = zap.NewNop()
		}
	})
}

// Get returns the global logger, initializing a development one if Init
// has not been called.
func Get() *zap.Logger {
	Init("development")
	return base
}

// Sugar returns the global logger with the printf-style API.
func Sugar() *zap.SugaredLogger {
	return Get().Sugar()
}

// Sync flushes any buffered log entries. Call this before application exit.
func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}
