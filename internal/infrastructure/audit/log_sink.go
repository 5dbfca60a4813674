package audit

import (
	"context"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/service"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// LogSink writes audit events through the structured logger. It is the
// default sink for deployments without an event pipeline.
type LogSink struct {
	audit   *logger.AuditLogger
	metrics service.Metrics
}

var _ service.AuditService = (*LogSink)(nil)

// NewLogSink creates a sink that records audit events as log entries.
func NewLogSink(log logger.Logger, metrics service.Metrics) *LogSink {
	return &LogSink{
		audit:   logger.NewAuditLogger(log),
		metrics: metrics,
	}
}

// Record emits the event as a structured log entry. It never fails.
func (s *LogSink) Record(ctx context.Context, event *models.AuditEvent) error {
	if event == nil {
		return nil
	}

	fields := make([]logger.Field, 0, 8)
	fields = append(fields, logger.String("event_id", event.EventID.String()))
	if event.ResultCode != "" {
		fields = append(fields, logger.String("result_code", string(event.ResultCode)))
	}
	if event.IPAddress != "" {
		fields = append(fields, logger.String("ip_address", event.IPAddress))
	}
	if event.RequestID != "" {
		fields = append(fields, logger.String("request_id", event.RequestID))
	}
	if event.TraceID != "" {
		fields = append(fields, logger.String("trace_id", event.TraceID))
	}
	if event.Message != "" {
		fields = append(fields, logger.String("message", event.Message))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, logger.Any("metadata", event.Metadata))
	}

	s.audit.LogEvent(ctx, event.EventType, event.Result, event.Subject, fields...)
	s.metrics.RecordAuditDelivery(sinkLog, nil)
	return nil
}
