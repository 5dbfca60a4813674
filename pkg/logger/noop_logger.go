package logger

import (
	"context"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
)

type noopLogger struct{}

// NewNoopLogger creates a logger that discards all entries. Used in tests
// and as a default when no logger is injected.
func NewNoopLogger() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(ctx context.Context, message string, fields ...Field)            {}
func (l *noopLogger) Info(ctx context.Context, message string, fields ...Field)             {}
func (l *noopLogger) Warn(ctx context.Context, message string, fields ...Field)             {}
func (l *noopLogger) Error(ctx context.Context, message string, err error, fields ...Field) {}
func (l *noopLogger) Fatal(ctx context.Context, message string, err error, fields ...Field) {}

func (l *noopLogger) WithFields(fields ...Field) Logger        { return l }
func (l *noopLogger) WithComponent(component string) Logger    { return l }
func (l *noopLogger) SetLevel(level constants.LogLevel)        {}
func (l *noopLogger) GetLevel() constants.LogLevel             { return constants.LogLevelInfo }
