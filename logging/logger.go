// Package logging provides the logging interface and default
// implementations for WickDB.
//
// Four-level interface (Error, Warn, Info, Debug). Users can wrap their own
// structured loggers (slog, zap) if needed.
//
// Log format: YYYY/MM/DD HH:MM:SS LEVEL [component] message
//
// Component namespace prefixes are used for filtering:
//   - [wal]   — log record writing and recovery
//   - [table] — table opens and the table cache
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Level represents the logging level.
type Level int

const (
	// LevelError logs only errors.
	LevelError Level = iota
	// LevelWarn logs warnings and errors.
	LevelWarn
	// LevelInfo logs info, warnings, and errors.
	LevelInfo
	// LevelDebug logs everything.
	LevelDebug
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// Logger is the interface for engine logging.
//
// Implementations MUST be safe for concurrent use.
type Logger interface {
	Errorf(format string, args ...any)
	Warnf(format string, args ...any)
	Infof(format string, args ...any)
	Debugf(format string, args ...any)
}

// DefaultLogger logs to an io.Writer at a configured level.
type DefaultLogger struct {
	level Level
	l     *log.Logger
}

// NewDefaultLogger returns a logger writing to w at the given level.
func NewDefaultLogger(w io.Writer, level Level) *DefaultLogger {
	return &DefaultLogger{
		level: level,
		l:     log.New(w, "", log.LstdFlags),
	}
}

// NewStderrLogger returns an info-level logger writing to stderr.
func NewStderrLogger() *DefaultLogger {
	return NewDefaultLogger(os.Stderr, LevelInfo)
}

func (d *DefaultLogger) output(level Level, format string, args ...any) {
	if level > d.level {
		return
	}
	d.l.Printf("%s %s", level, fmt.Sprintf(format, args...))
}

// Errorf logs at ERROR level.
func (d *DefaultLogger) Errorf(format string, args ...any) {
	d.output(LevelError, format, args...)
}

// Warnf logs at WARN level.
func (d *DefaultLogger) Warnf(format string, args ...any) {
	d.output(LevelWarn, format, args...)
}

// Infof logs at INFO level.
func (d *DefaultLogger) Infof(format string, args ...any) {
	d.output(LevelInfo, format, args...)
}

// Debugf logs at DEBUG level.
func (d *DefaultLogger) Debugf(format string, args ...any) {
	d.output(LevelDebug, format, args...)
}

// discard drops everything.
type discard struct{}

// Discard is a Logger that drops all output.
var Discard Logger = discard{}

func (discard) Errorf(format string, args ...any) {}
func (discard) Warnf(format string, args ...any)  {}
func (discard) Infof(format string, args ...any)  {}
func (discard) Debugf(format string, args ...any) {}
