// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package log is a minimal leveled-logging shim matching the shape of
// saferwall/pe's own log.Logger/log.Helper abstraction (itself
// patterned after go-kratos/kratos's log package): a Logger interface
// callers can swap out, a level filter, and a Helper with
// printf-style convenience methods. The parser never depends on a
// concrete logging backend; it only calls through this interface.
package log

import (
	"fmt"
	"io"
	"time"
)

// Level is a log severity.
type Level int

// Recognized levels, ascending severity.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the sink every log line is written through.
type Logger interface {
	Log(level Level, msg string) error
}

// stdLogger writes "<time> <level> <msg>" lines to an io.Writer.
type stdLogger struct {
	w io.Writer
}

// NewStdLogger returns a Logger that writes to w.
func NewStdLogger(w io.Writer) Logger {
	return &stdLogger{w: w}
}

func (l *stdLogger) Log(level Level, msg string) error {
	_, err := fmt.Fprintf(l.w, "%s %s %s\n", time.Now().Format(time.RFC3339), level, msg)
	return err
}

// filter wraps a Logger, dropping records below a minimum level.
type filter struct {
	next Logger
	min  Level
}

// Option configures a filter.
type Option func(*filter)

// FilterLevel sets the minimum level a record must meet to pass through.
func FilterLevel(level Level) Option {
	return func(f *filter) { f.min = level }
}

// NewFilter returns a Logger that forwards to next only records at or
// above the configured minimum level.
func NewFilter(next Logger, opts ...Option) Logger {
	f := &filter{next: next, min: LevelDebug}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *filter) Log(level Level, msg string) error {
	if level < f.min {
		return nil
	}
	return f.next.Log(level, msg)
}

// Helper adds printf-style convenience methods over a Logger.
type Helper struct {
	logger Logger
}

// NewHelper wraps logger.
func NewHelper(logger Logger) *Helper {
	return &Helper{logger: logger}
}

// Debugf logs at LevelDebug.
func (h *Helper) Debugf(format string, args ...interface{}) {
	h.logger.Log(LevelDebug, fmt.Sprintf(format, args...))
}

// Debug logs a single value at LevelDebug.
func (h *Helper) Debug(args ...interface{}) {
	h.logger.Log(LevelDebug, fmt.Sprint(args...))
}

// Warnf logs at LevelWarn.
func (h *Helper) Warnf(format string, args ...interface{}) {
	h.logger.Log(LevelWarn, fmt.Sprintf(format, args...))
}

// Errorf logs at LevelError.
func (h *Helper) Errorf(format string, args ...interface{}) {
	h.logger.Log(LevelError, fmt.Sprintf(format, args...))
}
