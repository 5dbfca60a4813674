// Package logger provides structured logging for the climbauth service.
// All log output is JSON, one entry per line, suitable for ingestion by
// log aggregation pipelines. Values under sensitive keys (tokens, secrets,
// key material) are masked before they are written.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
)

// ================================================================================
// Logger Interface Definition
// ================================================================================

// Logger defines the structured logging interface used throughout the service.
// Implementations must be safe for concurrent use.
type Logger interface {
	// Debug logs a debug level message with structured fields
	Debug(ctx context.Context, message string, fields ...Field)

	// Info logs an info level message with structured fields
	Info(ctx context.Context, message string, fields ...Field)

	// Warn logs a warning level message with structured fields
	Warn(ctx context.Context, message string, fields ...Field)

	// Error logs an error level message with error details
	Error(ctx context.Context, message string, err error, fields ...Field)

	// Fatal logs a fatal level message and terminates the process
	Fatal(ctx context.Context, message string, err error, fields ...Field)

	// WithFields returns a logger that includes the given fields in every entry
	WithFields(fields ...Field) Logger

	// WithComponent returns a logger scoped to a named component
	WithComponent(component string) Logger

	// SetLevel adjusts the minimum level that will be written
	SetLevel(level constants.LogLevel)

	// GetLevel returns the current minimum level
	GetLevel() constants.LogLevel
}

// Field represents a structured logging field
type Field struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// ================================================================================
// Field Constructors
// ================================================================================

// String creates a string field
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an integer field
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 creates an int64 field
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Float64 creates a float64 field
func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a boolean field
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// ErrorField creates an error field
func ErrorField(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Duration creates a duration field rendered in milliseconds
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.Milliseconds()}
}

// Time creates a time field in RFC3339 format
func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value.Format(time.RFC3339)}
}

// Any creates a field with an arbitrary value
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// ================================================================================
// Level Ordering
// ================================================================================

// levelRank maps log levels to a numeric severity so levels can be compared.
// Unknown levels rank as info.
func levelRank(level constants.LogLevel) int {
	switch level {
	case constants.LogLevelDebug:
		return 0
	case constants.LogLevelInfo:
		return 1
	case constants.LogLevelWarn:
		return 2
	case constants.LogLevelError:
		return 3
	case constants.LogLevelFatal:
		return 4
	default:
		return 1
	}
}

// ================================================================================
// JSON Logger Implementation
// ================================================================================

// jsonLogger writes structured JSON entries to an underlying writer
type jsonLogger struct {
	mu        sync.Mutex
	level     constants.LogLevel
	component string
	fields    []Field
	output    *os.File
}

// NewLogger creates a new JSON logger writing to stdout at the given level.
//
// Parameters:
//   - level: minimum level that will be written
//
// Returns:
//   - Logger: logger instance
func NewLogger(level constants.LogLevel) Logger {
	return &jsonLogger{
		level:  level,
		output: os.Stdout,
	}
}

// NewLoggerWithComponent creates a new JSON logger scoped to a component.
//
// Parameters:
//   - level: minimum level that will be written
//   - component: component name included in every entry
//
// Returns:
//   - Logger: logger instance
func NewLoggerWithComponent(level constants.LogLevel, component string) Logger {
	return &jsonLogger{
		level:     level,
		component: component,
		output:    os.Stdout,
	}
}

// LogEntry is the wire shape of a single log line
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Component string                 `json:"component,omitempty"`
	Message   string                 `json:"message"`
	TraceID   string                 `json:"trace_id,omitempty"`
	SpanID    string                 `json:"span_id,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	ClientIP  string                 `json:"client_ip,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Caller    string                 `json:"caller,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func (l *jsonLogger) Debug(ctx context.Context, message string, fields ...Field) {
	if levelRank(l.GetLevel()) > levelRank(constants.LogLevelDebug) {
		return
	}
	l.log(ctx, constants.LogLevelDebug, message, nil, fields...)
}

func (l *jsonLogger) Info(ctx context.Context, message string, fields ...Field) {
	if levelRank(l.GetLevel()) > levelRank(constants.LogLevelInfo) {
		return
	}
	l.log(ctx, constants.LogLevelInfo, message, nil, fields...)
}

func (l *jsonLogger) Warn(ctx context.Context, message string, fields ...Field) {
	if levelRank(l.GetLevel()) > levelRank(constants.LogLevelWarn) {
		return
	}
	l.log(ctx, constants.LogLevelWarn, message, nil, fields...)
}

func (l *jsonLogger) Error(ctx context.Context, message string, err error, fields ...Field) {
	if levelRank(l.GetLevel()) > levelRank(constants.LogLevelError) {
		return
	}
	l.log(ctx, constants.LogLevelError, message, err, fields...)
}

func (l *jsonLogger) Fatal(ctx context.Context, message string, err error, fields ...Field) {
	l.log(ctx, constants.LogLevelFatal, message, err, fields...)
	os.Exit(1)
}

func (l *jsonLogger) WithFields(fields ...Field) Logger {
	combined := make([]Field, 0, len(l.fields)+len(fields))
	combined = append(combined, l.fields...)
	combined = append(combined, fields...)
	return &jsonLogger{
		level:     l.GetLevel(),
		component: l.component,
		fields:    combined,
		output:    l.output,
	}
}

func (l *jsonLogger) WithComponent(component string) Logger {
	return &jsonLogger{
		level:     l.GetLevel(),
		component: component,
		fields:    l.fields,
		output:    l.output,
	}
}

func (l *jsonLogger) SetLevel(level constants.LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *jsonLogger) GetLevel() constants.LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// log assembles and writes a single entry
func (l *jsonLogger) log(ctx context.Context, level constants.LogLevel, message string, err error, fields ...Field) {
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     string(level),
		Component: l.component,
		Message:   message,
	}

	// Trace correlation from the active span, if any
	if ctx != nil {
		span := trace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			entry.TraceID = span.SpanContext().TraceID().String()
			entry.SpanID = span.SpanContext().SpanID().String()
		}

		if requestID, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok {
			entry.RequestID = requestID
		}
		if clientIP, ok := ctx.Value(constants.ContextKeyClientIP).(string); ok {
			entry.ClientIP = clientIP
		}
	}

	if err != nil {
		entry.Error = err.Error()
	}

	// Caller location for error and fatal entries
	if levelRank(level) >= levelRank(constants.LogLevelError) {
		if _, file, line, ok := runtime.Caller(2); ok {
			parts := strings.Split(file, "/")
			if len(parts) > 2 {
				file = strings.Join(parts[len(parts)-2:], "/")
			}
			entry.Caller = fmt.Sprintf("%s:%d", file, line)
		}
	}

	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)
	if len(all) > 0 {
		entry.Fields = make(map[string]interface{}, len(all))
		for _, f := range all {
			entry.Fields[f.Key] = SanitizeValue(f.Key, f.Value)
		}
	}

	data, jsonErr := json.Marshal(entry)
	if jsonErr != nil {
		data = []byte(fmt.Sprintf(`{"timestamp":%q,"level":%q,"message":"log entry marshal failed","error":%q}`,
			entry.Timestamp, entry.Level, jsonErr.Error()))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write(append(data, '\n'))
}

// ================================================================================
// Sensitive Value Masking
// ================================================================================

// sensitiveKeys lists field-name substrings whose values are masked in output.
// Token and key material must never appear in logs.
var sensitiveKeys = []string{
	"token",
	"password",
	"secret",
	"private_key",
	"master_key",
	"credential",
	"authorization",
}

// SanitizeValue masks values recorded under sensitive keys. Logger
// backends outside this package apply it before writing fields.
func SanitizeValue(key string, value interface{}) interface{} {
	lower := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lower, sensitive) {
			if s, ok := value.(string); ok {
				return maskString(s)
			}
			return "***"
		}
	}
	return value
}

// maskString keeps the first and last four characters of long values so
// entries remain correlatable without exposing the value itself
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "***" + s[len(s)-4:]
}

// ================================================================================
// Audit Logger
// ================================================================================

// AuditLogger emits audit events through a structured logger. It backs the
// log based audit sink used when no event broker is configured.
type AuditLogger struct {
	logger Logger
}

// NewAuditLogger creates an audit logger on top of the given logger
func NewAuditLogger(logger Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger.WithComponent("audit"),
	}
}

// LogEvent records a single audit event
func (a *AuditLogger) LogEvent(ctx context.Context, eventType constants.AuditEventType, result constants.AuditEventResult, subject string, fields ...Field) {
	all := make([]Field, 0, len(fields)+3)
	all = append(all,
		String("event_type", string(eventType)),
		String("event_result", string(result)),
		String("subject", subject),
	)
	all = append(all, fields...)
	a.logger.Info(ctx, "audit event", all...)
}

// LogAuthentication records the outcome of a login attempt
func (a *AuditLogger) LogAuthentication(ctx context.Context, subject string, success bool, fields ...Field) {
	result := constants.AuditResultSuccess
	if !success {
		result = constants.AuditResultFailure
	}
	a.LogEvent(ctx, constants.EventTypeLogin, result, subject, fields...)
}

// LogTokenRevocation records a token revocation
func (a *AuditLogger) LogTokenRevocation(ctx context.Context, subject, jti string, fields ...Field) {
	all := append([]Field{String("jti", jti)}, fields...)
	a.LogEvent(ctx, constants.EventTypeTokenRevoke, constants.AuditResultSuccess, subject, all...)
}

// LogKeyRotation records a key rotation outcome
func (a *AuditLogger) LogKeyRotation(ctx context.Context, keyID string, success bool, fields ...Field) {
	result := constants.AuditResultSuccess
	if !success {
		result = constants.AuditResultFailure
	}
	all := append([]Field{String("key_id", keyID)}, fields...)
	a.LogEvent(ctx, constants.EventTypeKeyRotation, result, "system", all...)
}

// LogRateLimitExceeded records a rejected login attempt over the limit
func (a *AuditLogger) LogRateLimitExceeded(ctx context.Context, subject string, fields ...Field) {
	a.LogEvent(ctx, constants.EventTypeRateLimitExceeded, constants.AuditResultFailure, subject, fields...)
}

// ================================================================================
// Performance Logger
// ================================================================================

// PerformanceLogger records the duration of named operations and warns when
// an operation exceeds its threshold.
type PerformanceLogger struct {
	logger    Logger
	threshold time.Duration
}

// NewPerformanceLogger creates a performance logger with the given slow
// operation threshold
func NewPerformanceLogger(logger Logger, threshold time.Duration) *PerformanceLogger {
	return &PerformanceLogger{
		logger:    logger.WithComponent("performance"),
		threshold: threshold,
	}
}

// TrackOperation runs fn and logs its duration. Operations slower than the
// threshold are logged at warn level.
func (p *PerformanceLogger) TrackOperation(ctx context.Context, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	fields := []Field{
		String("operation", operation),
		Duration("duration_ms", elapsed),
		Bool("success", err == nil),
	}

	if elapsed > p.threshold {
		p.logger.Warn(ctx, "slow operation", fields...)
	} else {
		p.logger.Debug(ctx, "operation completed", fields...)
	}
	return err
}
