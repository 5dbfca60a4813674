package fakes

import (
	"context"
	"sync"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// LogEntry is one captured log call.
type LogEntry struct {
	Level   string
	Message string
	Err     error
	Fields  map[string]interface{}
}

// RecordingLogger captures log entries in memory so tests can assert on
// what was logged. Loggers derived through WithFields and WithComponent
// write into the parent's entry list.
type RecordingLogger struct {
	sink      *entrySink
	bound     []logger.Field
	component string
	level     constants.LogLevel
}

type entrySink struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewRecordingLogger creates an empty recorder accepting every level.
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{sink: &entrySink{}, level: constants.LogLevelDebug}
}

func (l *RecordingLogger) record(level, message string, err error, fields []logger.Field) {
	entry := LogEntry{
		Level:   level,
		Message: message,
		Err:     err,
		Fields:  make(map[string]interface{}, len(l.bound)+len(fields)+1),
	}
	if l.component != "" {
		entry.Fields["component"] = l.component
	}
	for _, f := range l.bound {
		entry.Fields[f.Key] = f.Value
	}
	for _, f := range fields {
		entry.Fields[f.Key] = f.Value
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = append(l.sink.entries, entry)
}

func (l *RecordingLogger) Debug(ctx context.Context, message string, fields ...logger.Field) {
	l.record("debug", message, nil, fields)
}

func (l *RecordingLogger) Info(ctx context.Context, message string, fields ...logger.Field) {
	l.record("info", message, nil, fields)
}

func (l *RecordingLogger) Warn(ctx context.Context, message string, fields ...logger.Field) {
	l.record("warn", message, nil, fields)
}

func (l *RecordingLogger) Error(ctx context.Context, message string, err error, fields ...logger.Field) {
	l.record("error", message, err, fields)
}

// Fatal records the entry but does not terminate the process.
func (l *RecordingLogger) Fatal(ctx context.Context, message string, err error, fields ...logger.Field) {
	l.record("fatal", message, err, fields)
}

func (l *RecordingLogger) WithFields(fields ...logger.Field) logger.Logger {
	child := *l
	child.bound = append(append([]logger.Field{}, l.bound...), fields...)
	return &child
}

func (l *RecordingLogger) WithComponent(component string) logger.Logger {
	child := *l
	child.component = component
	return &child
}

func (l *RecordingLogger) SetLevel(level constants.LogLevel) { l.level = level }

func (l *RecordingLogger) GetLevel() constants.LogLevel { return l.level }

// Entries returns a snapshot of everything recorded so far.
func (l *RecordingLogger) Entries() []LogEntry {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	out := make([]LogEntry, len(l.sink.entries))
	copy(out, l.sink.entries)
	return out
}

// LastWithMessage returns the most recent entry carrying the message, or nil.
func (l *RecordingLogger) LastWithMessage(message string) *LogEntry {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	for i := len(l.sink.entries) - 1; i >= 0; i-- {
		if l.sink.entries[i].Message == message {
			entry := l.sink.entries[i]
			return &entry
		}
	}
	return nil
}

var _ logger.Logger = (*RecordingLogger)(nil)
