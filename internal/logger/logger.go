// Package logger provides a simple logging interface for diagterm components.
// It allows packages to log debug, info, warn, and error messages without
// being coupled to a specific logging implementation.
//
// The default implementation is backed by zerolog. The dashboard owns the
// terminal while it runs, so the CLI points the default logger at a
// rotating file (see NewFileLogger) instead of stderr.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DebugEnv enables debug-level output when set to any non-empty value.
const DebugEnv = "DIAGTERM_DEBUG"

// Logger defines the interface for logging operations.
// All methods accept a format string and arguments, similar to fmt.Printf.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// zeroLogger implements Logger on top of a zerolog.Logger.
type zeroLogger struct {
	zl zerolog.Logger
}

// New creates a zerolog-backed logger writing JSON lines to w.
// The component is attached to every entry (e.g., "backend" or "poll").
func New(w io.Writer, level zerolog.Level, component string) Logger {
	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()
	if component != "" {
		zl = zl.With().Str("component", component).Logger()
	}
	return &zeroLogger{zl: zl}
}

// NewEnvLogger creates a console logger on stderr that respects DIAGTERM_DEBUG.
func NewEnvLogger(component string) Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true, TimeFormat: "15:04:05"}
	return New(w, EnvLevel(), component)
}

// FileOptions controls the rotating log file.
type FileOptions struct {
	Path       string
	Level      string
	MaxSizeMB  int
	MaxBackups int
}

// NewFileLogger creates a logger that writes to a lumberjack-rotated file.
func NewFileLogger(opts FileOptions, component string) (Logger, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("log file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 5
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 3
	}

	level := EnvLevel()
	if opts.Level != "" && os.Getenv(DebugEnv) == "" {
		level = ParseLevel(opts.Level)
	}

	w := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     30,
		LocalTime:  true,
	}
	return New(w, level, component), nil
}

// EnvLevel returns debug when DIAGTERM_DEBUG is set, info otherwise.
func EnvLevel() zerolog.Level {
	if os.Getenv(DebugEnv) != "" {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// ParseLevel converts a config level name to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func (l *zeroLogger) Debug(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

func (l *zeroLogger) Info(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

func (l *zeroLogger) Warn(format string, args ...interface{}) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *zeroLogger) Error(format string, args ...interface{}) {
	l.zl.Error().Msgf(format, args...)
}

// noopLogger implements Logger but discards all messages.
// Useful for testing or when logging is not desired.
type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(format string, args ...interface{}) {}
func (l *noopLogger) Info(format string, args ...interface{})  {}
func (l *noopLogger) Warn(format string, args ...interface{})  {}
func (l *noopLogger) Error(format string, args ...interface{}) {}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures log messages for testing.
// Safe for use from the poller's goroutines.
type BufferLogger struct {
	mu       sync.Mutex
	Messages []LogMessage
}

// NewBufferLogger creates a logger that captures messages for inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{
		Messages: make([]LogMessage, 0),
	}
}

func (l *BufferLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) { l.add("debug", format, args...) }
func (l *BufferLogger) Info(format string, args ...interface{})  { l.add("info", format, args...) }
func (l *BufferLogger) Warn(format string, args ...interface{})  { l.add("warn", format, args...) }
func (l *BufferLogger) Error(format string, args ...interface{}) { l.add("error", format, args...) }

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.Messages {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Contains returns true if any captured message contains substr.
func (l *BufferLogger) Contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.Messages {
		if strings.Contains(m.Message, substr) {
			return true
		}
	}
	return false
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = l.Messages[:0]
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = NewEnvLogger("")
)

// Default returns the default logger for the package.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the default logger for the package.
func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}
