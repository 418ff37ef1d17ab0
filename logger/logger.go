package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level orders log severities.
type Level int

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
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ParseLevel accepts debug, info, warn/warning and error; anything else is info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger handles pipeline logging. The zero value discards everything until
// Init or SetOutput is called.
type Logger struct {
	file  *os.File
	out   io.Writer
	level Level
	mu    sync.Mutex
}

// NewLogger creates a new Logger instance
func NewLogger() *Logger {
	return &Logger{level: LevelInfo}
}

// NewWriterLogger logs to w, typically os.Stderr or a test buffer.
func NewWriterLogger(w io.Writer, level Level) *Logger {
	return &Logger{out: w, level: level}
}

// Init initializes the logging to a file in the specified directory
func (l *Logger) Init(logDir string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		l.file.Close()
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log dir: %v", err)
	}

	dateStr := time.Now().Format("2006-01-02")
	pattern := filepath.Join(logDir, fmt.Sprintf("reportforge_%s_*.log", dateStr))
	matches, _ := filepath.Glob(pattern)
	runCount := len(matches) + 1
	filename := filepath.Join(logDir, fmt.Sprintf("reportforge_%s_%d.log", dateStr, runCount))

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %v", err)
	}

	l.file = f
	l.out = f
	l.logInternal(LevelInfo, "Logging started")
	return nil
}

// SetOutput redirects output. A nil writer silences the logger.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

// SetLevel drops messages below level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Log writes a message at info level
func (l *Logger) Log(message string) {
	l.write(LevelInfo, message)
}

// Logf writes a formatted message at info level
func (l *Logger) Logf(format string, args ...interface{}) {
	l.write(LevelInfo, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.write(LevelDebug, fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.write(LevelWarn, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.write(LevelError, fmt.Sprintf(format, args...))
}

// Func adapts the logger to the func(string) hook taken by lower packages.
func (l *Logger) Func() func(string) {
	if l == nil {
		return func(string) {}
	}
	return l.Log
}

func (l *Logger) write(level Level, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logInternal(level, message)
}

func (l *Logger) logInternal(level Level, message string) {
	if l.out == nil || level < l.level {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	if level == LevelInfo {
		fmt.Fprintf(l.out, "[%s] %s\n", timestamp, message)
		return
	}
	fmt.Fprintf(l.out, "[%s] %s %s\n", timestamp, level, message)
}

// Close closes the log file
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.logInternal(LevelInfo, "Logging stopped")
		l.file.Close()
		l.file = nil
		l.out = nil
	}
}
