// Package xlog is the decoder's ambient structured logger. It wraps a
// single zerolog.Logger that defaults to discarding output so embedding
// applications never see uninvited logs unless they opt in via SetLogger.
package xlog

import (
	"io"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(io.Discard)

// SetLogger replaces the package logger. Call once at startup; the decoder
// itself never mutates it.
func SetLogger(l zerolog.Logger) {
	logger = l
}

// Logger returns the current package logger.
func Logger() *zerolog.Logger {
	return &logger
}

// Debug starts a debug-level event, a no-op unless SetLogger installed a
// real sink.
func Debug() *zerolog.Event {
	return logger.Debug()
}

// Warn starts a warn-level event.
func Warn() *zerolog.Event {
	return logger.Warn()
}
