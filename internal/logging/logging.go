// Package logging provides the structured logger used across the pipeline.
// Output is either JSON (one object per line) or a human-readable format.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

// Level represents the severity of a log message.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

var levelPriority = map[Level]int{
	DebugLevel: 0,
	InfoLevel:  1,
	WarnLevel:  2,
	ErrorLevel: 3,
}

// Format represents the output format for logs.
type Format string

const (
	JSONFormat  Format = "json"
	HumanFormat Format = "human"
)

// Fields carries structured key/value context for a log entry.
type Fields map[string]interface{}

// Config holds logger configuration.
type Config struct {
	Format Format
	Level  Level
	Output io.Writer // defaults to stderr
}

// Logger writes structured log entries.
type Logger struct {
	config Config
	writer io.Writer
}

// New creates a logger with the given configuration.
func New(config Config) *Logger {
	writer := config.Output
	if writer == nil {
		writer = os.Stderr
	}
	if config.Level == "" {
		config.Level = InfoLevel
	}
	return &Logger{config: config, writer: writer}
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() *Logger {
	return New(Config{Format: HumanFormat, Level: ErrorLevel, Output: io.Discard})
}

type entry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Fields    Fields `json:"fields,omitempty"`
}

func (l *Logger) shouldLog(level Level) bool {
	return levelPriority[level] >= levelPriority[l.config.Level]
}

func (l *Logger) log(level Level, message string, fields Fields) {
	if !l.shouldLog(level) {
		return
	}

	e := entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     string(level),
		Message:   message,
		Fields:    fields,
	}

	if l.config.Format == JSONFormat {
		data, err := json.Marshal(e)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to marshal log entry: %v\n", err)
			return
		}
		_, _ = fmt.Fprintln(l.writer, string(data))
		return
	}

	_, _ = fmt.Fprintf(l.writer, "%s [%s] %s", e.Timestamp, e.Level, e.Message)
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		_, _ = fmt.Fprint(l.writer, " |")
		for _, k := range keys {
			_, _ = fmt.Fprintf(l.writer, " %s=%v", k, e.Fields[k])
		}
	}
	_, _ = fmt.Fprintln(l.writer)
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields Fields) { l.log(DebugLevel, message, fields) }

// Info logs an info message.
func (l *Logger) Info(message string, fields Fields) { l.log(InfoLevel, message, fields) }

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields Fields) { l.log(WarnLevel, message, fields) }

// Error logs an error message.
func (l *Logger) Error(message string, fields Fields) { l.log(ErrorLevel, message, fields) }
