// Package log wraps logrus behind a small interface so callers never
// import the logging backend directly.
package log

import "sync"

type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsDebugEnabled() bool
}

var (
	once   sync.Once
	logger Logger
)

// GetLogger returns the process logger. Init must run first; tests
// that skip Init get a plain stderr logger.
func GetLogger() Logger {
	if logger == nil {
		return newAdapter(Config{})
	}
	return logger
}

// Init configures the process logger once. Later calls are no-ops.
func Init(cfg Config) {
	once.Do(func() {
		logger = newAdapter(cfg)
	})
}
