package core

import (
	"fmt"
	"log"
	"strings"
)

// Logger interface for structured logging.
// Adapters for zap and zerolog live under logging/.
type Logger interface {
	// Debug logs a debug message with optional fields
	Debug(msg string, fields ...Field)

	// Info logs an info message with optional fields
	Info(msg string, fields ...Field)

	// Warn logs a warning message with optional fields
	Warn(msg string, fields ...Field)

	// Error logs an error message with optional fields
	Error(msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value any
}

// F creates a new Field with the given key and value
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// DefaultLogger writes through the standard log package.
type DefaultLogger struct {
	logger *log.Logger
}

// NewDefaultLogger creates a DefaultLogger using log.Default().
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{logger: log.Default()}
}

// NewDefaultLoggerWith creates a DefaultLogger writing to l.
func NewDefaultLoggerWith(l *log.Logger) *DefaultLogger {
	return &DefaultLogger{logger: l}
}

// Debug logs a debug message
func (l *DefaultLogger) Debug(msg string, fields ...Field) {
	l.log("DEBUG", msg, fields...)
}

// Info logs an info message
func (l *DefaultLogger) Info(msg string, fields ...Field) {
	l.log("INFO", msg, fields...)
}

// Warn logs a warning message
func (l *DefaultLogger) Warn(msg string, fields ...Field) {
	l.log("WARN", msg, fields...)
}

// Error logs an error message
func (l *DefaultLogger) Error(msg string, fields ...Field) {
	l.log("ERROR", msg, fields...)
}

func (l *DefaultLogger) log(level, msg string, fields ...Field) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", level, msg)
	if len(fields) > 0 {
		b.WriteString(" {")
		for i, f := range fields {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %v", f.Key, f.Value)
		}
		b.WriteString("}")
	}
	l.logger.Println(b.String())
}

// NoOpLogger is a logger that discards all log messages.
// It is the queue default.
type NoOpLogger struct{}

// NewNoOpLogger creates a new NoOpLogger
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}
