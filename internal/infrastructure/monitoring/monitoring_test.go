package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

func newObservedLogger(level zapcore.Level) (*zapLogger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &zapLogger{
		base:  zap.New(core),
		level: zap.NewAtomicLevelAt(level),
	}, logs
}

func TestZapLogger_FieldsAndComponent(t *testing.T) {
	l, logs := newObservedLogger(zapcore.DebugLevel)

	scoped := l.WithComponent("kms")
	scoped.Info(context.Background(), "master key loaded",
		logger.String("provider", "vault"),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "master key loaded", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "kms", fields["component"])
	assert.Equal(t, "vault", fields["provider"])
}

func TestZapLogger_MasksSensitiveFields(t *testing.T) {
	l, logs := newObservedLogger(zapcore.DebugLevel)

	l.Info(context.Background(), "issued",
		logger.String("access_token", "supersecretvalue123"),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "supe***e123", entries[0].ContextMap()["access_token"])
}

func TestZapLogger_ContextCorrelation(t *testing.T) {
	l, logs := newObservedLogger(zapcore.DebugLevel)

	ctx := context.WithValue(context.Background(), constants.ContextKeyRequestID, "req-9")
	ctx = context.WithValue(ctx, constants.ContextKeyClientIP, "203.0.113.9")
	l.Warn(ctx, "rate limited")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "203.0.113.9", fields["client_ip"])
}

func TestZapLogger_ErrorField(t *testing.T) {
	l, logs := newObservedLogger(zapcore.DebugLevel)

	l.Error(context.Background(), "write failed", errors.New("connection refused"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "connection refused", entries[0].ContextMap()["error"])
}

func TestZapLogger_BoundFieldsPropagate(t *testing.T) {
	l, logs := newObservedLogger(zapcore.DebugLevel)

	child := l.WithFields(logger.String("backend", "redis"))
	child.Info(context.Background(), "connected")
	child.Info(context.Background(), "ping ok")

	for _, entry := range logs.All() {
		assert.Equal(t, "redis", entry.ContextMap()["backend"])
	}
	assert.Len(t, logs.All(), 2)
}

func TestZapLogger_LevelRoundTrip(t *testing.T) {
	l, _ := newObservedLogger(zapcore.InfoLevel)
	assert.Equal(t, constants.LogLevelInfo, l.GetLevel())

	l.SetLevel(constants.LogLevelError)
	assert.Equal(t, constants.LogLevelError, l.GetLevel())
}

func TestNewZapLogger(t *testing.T) {
	l, err := NewZapLogger(config.LogConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.Equal(t, constants.LogLevelDebug, l.GetLevel())

	l, err = NewZapLogger(config.LogConfig{Level: "nonsense"})
	require.NoError(t, err)
	assert.Equal(t, constants.LogLevelInfo, l.GetLevel())
}

func TestMetrics_RecordsValues(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordLogin(false, string(constants.ErrCodeCredentialsInvalid))
	m.RecordLogin(false, string(constants.ErrCodeCredentialsInvalid))
	m.RecordLogin(true, "")
	m.RecordRateLimitHit()
	m.RecordTokenRevoke("logout")
	m.RecordAuditDelivery("log", nil)
	m.RecordAuditDelivery("kafka", errors.New("broker down"))
	m.UpdateUsableKeys(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.loginAttempts.WithLabelValues("failure", string(constants.ErrCodeCredentialsInvalid))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loginAttempts.WithLabelValues("success", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimitHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tokenRevocations.WithLabelValues("logout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.auditDeliveries.WithLabelValues("log", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.auditDeliveries.WithLabelValues("kafka", "failure")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.usableKeys))
}

func TestMetrics_Histograms(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordTokenIssue("access", true, 5*time.Millisecond, "")
	m.RecordKeyRotation(true, 1200*time.Millisecond)
	m.RecordDBQuery("key.get", 3*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(m.tokenIssueLatency))
	assert.Equal(t, 1, testutil.CollectAndCount(m.keyRotationLatency))
	assert.Equal(t, 1, testutil.CollectAndCount(m.dbQueryLatency))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.keyRotations.WithLabelValues("success")))
}

func TestMetrics_HTTPLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.HTTPRequestStarted("/v1/auth/login", "POST")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpInFlight.WithLabelValues("/v1/auth/login", "POST")))

	m.HTTPRequestFinished("/v1/auth/login", "POST", 500, 12*time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpInFlight.WithLabelValues("/v1/auth/login", "POST")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpErrors.WithLabelValues("/v1/auth/login", "POST", "500")))
}

func TestTracingManager_Disabled(t *testing.T) {
	tm, err := NewTracingManager(config.TracingConfig{Enabled: false}, logger.NewNoopLogger())
	require.NoError(t, err)

	ctx, span := tm.StartSpan(context.Background(), "issue_tokens")
	span.End()
	assert.Empty(t, tm.GetTraceID(ctx))
	assert.NoError(t, tm.Shutdown(context.Background()))
}

func TestTracingManager_TraceOperationPropagatesError(t *testing.T) {
	tm, err := NewTracingManager(config.TracingConfig{Enabled: false}, logger.NewNoopLogger())
	require.NoError(t, err)

	boom := errors.New("boom")
	got := tm.TraceOperation(context.Background(), "rotate", func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, got, boom)

	assert.NoError(t, tm.TraceOperation(context.Background(), "rotate", func(context.Context) error {
		return nil
	}))
}
