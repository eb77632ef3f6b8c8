// Package logger provides a leveled, file-backed logger shared by all
// packages in the application. The terminal is owned by the TUI, so log
// output always goes to a file.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogLevel controls which messages are written.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarning
	LevelError
)

// String returns the level tag used in log lines.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

var (
	mu       sync.Mutex
	file     *os.File
	minLevel LogLevel = LevelWarning
)

// Init opens (or creates) the log file at path and sets the minimum level.
// An empty path disables logging entirely.
func Init(path string, level LogLevel) error {
	mu.Lock()
	defer mu.Unlock()

	minLevel = level
	if path == "" {
		file = nil
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	file = f
	return nil
}

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		_ = file.Close()
		file = nil
	}
}

func write(level LogLevel, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if file == nil || level < minLevel {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	message := fmt.Sprintf(format, args...)
	fmt.Fprintf(file, "%s [%s] %s\n", timestamp, level, message)
}

// Debug logs a debug-level message.
func Debug(format string, args ...interface{}) {
	write(LevelDebug, format, args...)
}

// Info logs an info-level message.
func Info(format string, args ...interface{}) {
	write(LevelInfo, format, args...)
}

// Warning logs a warning-level message.
func Warning(format string, args ...interface{}) {
	write(LevelWarning, format, args...)
}

// Error logs an error-level message.
func Error(format string, args ...interface{}) {
	write(LevelError, format, args...)
}

// ErrorWithErr logs an error-level message with the error appended.
func ErrorWithErr(err error, format string, args ...interface{}) {
	write(LevelError, format+" error=%v", append(args, err)...)
}
