package monitoring

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// zapLogger is the production Logger backend. It renders entries through
// zap, enriches them with trace and request correlation from the context
// and masks sensitive field values before they are written.
type zapLogger struct {
	base      *zap.Logger
	level     zap.AtomicLevel
	component string
	bound     []logger.Field
}

// NewZapLogger builds the production logger from the log configuration.
//
// Parameters:
//   - cfg: log level, format (json or console) and output path
//
// Returns:
//   - logger.Logger: the zap-backed logger
//   - error: if the output path cannot be opened
func NewZapLogger(cfg config.LogConfig) (logger.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	sink := zapcore.AddSync(os.Stdout)
	if cfg.OutputPath != "" && cfg.OutputPath != "stdout" {
		f, err := os.OpenFile(cfg.OutputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log output %q: %w", cfg.OutputPath, err)
		}
		sink = zapcore.AddSync(f)
	}

	level := zap.NewAtomicLevelAt(toZapLevel(constants.LogLevel(cfg.Level)))
	core := zapcore.NewCore(encoder, sink, level)

	return &zapLogger{
		base:  zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel)),
		level: level,
	}, nil
}

func (l *zapLogger) Debug(ctx context.Context, message string, fields ...logger.Field) {
	l.base.Debug(message, l.convert(ctx, nil, fields)...)
}

func (l *zapLogger) Info(ctx context.Context, message string, fields ...logger.Field) {
	l.base.Info(message, l.convert(ctx, nil, fields)...)
}

func (l *zapLogger) Warn(ctx context.Context, message string, fields ...logger.Field) {
	l.base.Warn(message, l.convert(ctx, nil, fields)...)
}

func (l *zapLogger) Error(ctx context.Context, message string, err error, fields ...logger.Field) {
	l.base.Error(message, l.convert(ctx, err, fields)...)
}

func (l *zapLogger) Fatal(ctx context.Context, message string, err error, fields ...logger.Field) {
	l.base.Fatal(message, l.convert(ctx, err, fields)...)
}

func (l *zapLogger) WithFields(fields ...logger.Field) logger.Logger {
	child := *l
	child.bound = append(append([]logger.Field{}, l.bound...), fields...)
	return &child
}

func (l *zapLogger) WithComponent(component string) logger.Logger {
	child := *l
	child.component = component
	return &child
}

func (l *zapLogger) SetLevel(level constants.LogLevel) {
	l.level.SetLevel(toZapLevel(level))
}

func (l *zapLogger) GetLevel() constants.LogLevel {
	switch l.level.Level() {
	case zapcore.DebugLevel:
		return constants.LogLevelDebug
	case zapcore.WarnLevel:
		return constants.LogLevelWarn
	case zapcore.ErrorLevel:
		return constants.LogLevelError
	case zapcore.FatalLevel:
		return constants.LogLevelFatal
	default:
		return constants.LogLevelInfo
	}
}

// convert renders bound and call-site fields as zap fields, prefixed with
// component and context correlation data.
func (l *zapLogger) convert(ctx context.Context, err error, fields []logger.Field) []zap.Field {
	out := make([]zap.Field, 0, len(l.bound)+len(fields)+5)
	if l.component != "" {
		out = append(out, zap.String("component", l.component))
	}

	if ctx != nil {
		span := trace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			out = append(out,
				zap.String("trace_id", span.SpanContext().TraceID().String()),
				zap.String("span_id", span.SpanContext().SpanID().String()),
			)
		}
		if requestID, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok {
			out = append(out, zap.String("request_id", requestID))
		}
		if clientIP, ok := ctx.Value(constants.ContextKeyClientIP).(string); ok {
			out = append(out, zap.String("client_ip", clientIP))
		}
	}

	if err != nil {
		out = append(out, zap.Error(err))
	}

	for _, f := range l.bound {
		out = append(out, zap.Any(f.Key, logger.SanitizeValue(f.Key, f.Value)))
	}
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, logger.SanitizeValue(f.Key, f.Value)))
	}
	return out
}

// toZapLevel maps the service log level to zap's. Unknown levels log at info.
func toZapLevel(level constants.LogLevel) zapcore.Level {
	switch level {
	case constants.LogLevelDebug:
		return zapcore.DebugLevel
	case constants.LogLevelWarn:
		return zapcore.WarnLevel
	case constants.LogLevelError:
		return zapcore.ErrorLevel
	case constants.LogLevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
