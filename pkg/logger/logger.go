package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"time"
)

// LogLevel represents the severity level of a log entry
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     LogLevel               `json:"level"`
	Message   string                 `json:"message"`
	Component string                 `json:"component,omitempty"`
	Operation string                 `json:"operation,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Error     string                 `json:"error,omitempty"`
	File      string                 `json:"file,omitempty"`
	Line      int                    `json:"line,omitempty"`
}

// Logger provides structured logging without exposing auth tokens or
// signed URLs
type Logger struct {
	*log.Logger
	component string
	minLevel  LogLevel
}

// New creates a new logger instance
func New() *Logger {
	return &Logger{
		Logger:    log.New(os.Stdout, "", 0),
		component: "app",
		minLevel:  LevelInfo,
	}
}

// NewWithComponent creates a new logger instance with a specific component name
func NewWithComponent(component string) *Logger {
	return &Logger{
		Logger:    log.New(os.Stdout, "", 0),
		component: component,
		minLevel:  LevelInfo,
	}
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.minLevel = level
}

// shouldLog determines if a message should be logged based on level
func (l *Logger) shouldLog(level LogLevel) bool {
	levels := map[LogLevel]int{
		LevelDebug: 0,
		LevelInfo:  1,
		LevelWarn:  2,
		LevelError: 3,
	}
	return levels[level] >= levels[l.minLevel]
}

// log writes a structured log entry
func (l *Logger) log(level LogLevel, message string, fields map[string]interface{}, err error, operation string) {
	if !l.shouldLog(level) {
		return
	}

	// Get caller information
	_, file, line, ok := runtime.Caller(2)
	if ok {
		parts := strings.Split(file, "/")
		file = parts[len(parts)-1]
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level,
		Message:   message,
		Component: l.component,
		Operation: operation,
		Fields:    sanitizeFields(fields),
		File:      file,
		Line:      line,
	}

	if err != nil {
		entry.Error = sanitizeValue(err.Error())
	}

	jsonBytes, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		// Fallback to simple logging if JSON marshaling fails
		l.Logger.Printf("MARSHAL_ERROR: %v | ORIGINAL: %s %s", marshalErr, level, message)
		return
	}

	l.Logger.Println(string(jsonBytes))
}

// Debug logs a debug message
func (l *Logger) Debug(message string) {
	l.log(LevelDebug, message, nil, nil, "")
}

// Info logs an info message
func (l *Logger) Info(message string) {
	l.log(LevelInfo, message, nil, nil, "")
}

// InfoWithFields logs an info message with additional fields
func (l *Logger) InfoWithFields(message string, fields map[string]interface{}) {
	l.log(LevelInfo, message, fields, nil, "")
}

// Warn logs a warning message
func (l *Logger) Warn(message string) {
	l.log(LevelWarn, message, nil, nil, "")
}

// WarnWithError logs a warning message with an error
func (l *Logger) WarnWithError(message string, err error) {
	l.log(LevelWarn, message, nil, err, "")
}

// Error logs an error message
func (l *Logger) Error(message string) {
	l.log(LevelError, message, nil, nil, "")
}

// ErrorWithError logs an error message with an error
func (l *Logger) ErrorWithError(message string, err error) {
	l.log(LevelError, message, nil, err, "")
}

// ErrorWithFields logs an error message with additional fields
func (l *Logger) ErrorWithFields(message string, fields map[string]interface{}) {
	l.log(LevelError, message, fields, nil, "")
}

// LogOperation logs the start and completion of an operation
func (l *Logger) LogOperation(operation string, fn func() error) error {
	l.log(LevelInfo, "Operation started", nil, nil, operation)

	start := time.Now()
	err := fn()
	duration := time.Since(start)

	fields := map[string]interface{}{
		"duration_ms": duration.Milliseconds(),
	}

	if err != nil {
		l.log(LevelError, "Operation failed", fields, err, operation)
	} else {
		l.log(LevelInfo, "Operation completed successfully", fields, nil, operation)
	}

	return err
}

// sensitiveKeys are field names whose values must never reach the log
var sensitiveKeys = []string{
	"token",
	"authorization",
	"bearer",
	"password",
	"secret",
	"cookie",
	"session",
}

// sanitizeFields removes or masks sensitive information from log fields
func sanitizeFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	sanitized := make(map[string]interface{})
	for k, v := range fields {
		lowerKey := strings.ToLower(k)

		isSensitive := false
		for _, sensitive := range sensitiveKeys {
			if strings.Contains(lowerKey, sensitive) {
				isSensitive = true
				break
			}
		}

		if isSensitive {
			sanitized[k] = "[REDACTED]"
			continue
		}

		if str, ok := v.(string); ok {
			sanitized[k] = sanitizeValue(str)
		} else {
			sanitized[k] = v
		}
	}

	return sanitized
}

// sanitizeValue masks bearer tokens and signed-URL query strings inside
// free-form strings
func sanitizeValue(value string) string {
	if idx := strings.Index(strings.ToLower(value), "bearer "); idx >= 0 {
		value = value[:idx] + "Bearer [REDACTED]"
	}

	// URLs with query parameters may carry signatures or tokens
	if strings.Contains(value, "?") && (strings.Contains(value, "http://") || strings.Contains(value, "https://")) {
		parts := strings.SplitN(value, "?", 2)
		return parts[0] + "?[QUERY_REDACTED]"
	}

	return value
}

// Sanitize exposes value sanitization for messages composed by callers
func Sanitize(value string) string {
	return sanitizeValue(value)
}

// Sprintf is a convenience wrapper that sanitizes the formatted result
func Sprintf(format string, args ...interface{}) string {
	return sanitizeValue(fmt.Sprintf(format, args...))
}
