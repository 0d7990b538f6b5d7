// Package debug provides the logger and render profiler shared by the
// synthesizer packages.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	// LogLevelDebug is for per-event detail such as clamped parameters.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is for general informational messages.
	LogLevelInfo
	// LogLevelWarn is for conditions the engine recovered from.
	LogLevelWarn
	// LogLevelError is for failures reported to the caller.
	LogLevelError
	// LogLevelOff disables all logging.
	LogLevelOff
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name, case-insensitively, to a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return LogLevelDebug, nil
	case "INFO", "":
		return LogLevelInfo, nil
	case "WARN", "WARNING":
		return LogLevelWarn, nil
	case "ERROR":
		return LogLevelError, nil
	case "OFF", "NONE":
		return LogLevelOff, nil
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q", name)
}

// Flags for logger output formatting.
const (
	FlagTime      = 1 << iota // Include timestamp
	FlagShortFile             // Include short file name and line number
	FlagLongFile              // Include full file path and line number
	FlagLevel                 // Include log level
	FlagPrefix                // Include prefix
)

// DefaultFlags are the default formatting flags.
const DefaultFlags = FlagTime | FlagLevel | FlagPrefix

// Logger is a leveled printf-style logger safe for concurrent use.
type Logger struct {
	mu     sync.Mutex
	output io.Writer
	level  LogLevel
	prefix string
	flags  int
}

var defaultLogger = New(os.Stderr, "softsynth", DefaultFlags)

// New creates a logger at LogLevelInfo.
func New(output io.Writer, prefix string, flags int) *Logger {
	return &Logger{
		output: output,
		prefix: prefix,
		flags:  flags,
		level:  LogLevelInfo,
	}
}

// NewFileLogger creates a logger appending to a file, creating its
// directory if needed.
func NewFileLogger(filename, prefix string, flags int) (*Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return New(file, prefix, flags), file, nil
}

// SetOutput sets the output destination for the logger.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Level returns the minimum log level.
func (l *Logger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetPrefix sets the logger prefix.
func (l *Logger) SetPrefix(prefix string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prefix = prefix
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level LogLevel) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level && l.level != LogLevelOff
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level || l.level == LogLevelOff {
		return
	}

	var sb strings.Builder
	if l.flags&FlagTime != 0 {
		sb.WriteString(time.Now().Format("2006-01-02 15:04:05.000 "))
	}
	if l.flags&FlagLevel != 0 {
		fmt.Fprintf(&sb, "[%s] ", level)
	}
	if l.flags&FlagPrefix != 0 && l.prefix != "" {
		fmt.Fprintf(&sb, "[%s] ", l.prefix)
	}
	if l.flags&(FlagShortFile|FlagLongFile) != 0 {
		// skip log() and the exported wrapper
		if _, file, line, ok := runtime.Caller(2); ok {
			if l.flags&FlagShortFile != 0 {
				file = filepath.Base(file)
			}
			fmt.Fprintf(&sb, "%s:%d: ", file, line)
		}
	}

	msg := fmt.Sprintf(format, args...)
	sb.WriteString(msg)
	if !strings.HasSuffix(msg, "\n") {
		sb.WriteByte('\n')
	}
	io.WriteString(l.output, sb.String())
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LogLevelDebug, format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LogLevelInfo, format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LogLevelWarn, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LogLevelError, format, args...)
}

// Global logger functions

// Default returns the default logger instance.
func Default() *Logger {
	return defaultLogger
}

// SetDefault replaces the default logger and returns the previous one.
func SetDefault(l *Logger) *Logger {
	prev := defaultLogger
	defaultLogger = l
	return prev
}

// SetOutput sets the output destination for the default logger.
func SetOutput(w io.Writer) {
	defaultLogger.SetOutput(w)
}

// SetLevel sets the minimum log level for the default logger.
func SetLevel(level LogLevel) {
	defaultLogger.SetLevel(level)
}

// Debug logs a debug message using the default logger.
func Debug(format string, args ...interface{}) {
	defaultLogger.log(LogLevelDebug, format, args...)
}

// Info logs an informational message using the default logger.
func Info(format string, args ...interface{}) {
	defaultLogger.log(LogLevelInfo, format, args...)
}

// Warn logs a warning message using the default logger.
func Warn(format string, args ...interface{}) {
	defaultLogger.log(LogLevelWarn, format, args...)
}

// Error logs an error message using the default logger.
func Error(format string, args ...interface{}) {
	defaultLogger.log(LogLevelError, format, args...)
}

// DebugIf logs a debug message if the condition is true.
func DebugIf(condition bool, format string, args ...interface{}) {
	if condition {
		defaultLogger.log(LogLevelDebug, format, args...)
	}
}
