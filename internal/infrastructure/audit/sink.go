// Package audit delivers domain audit events to their configured sink:
// a Kafka topic for deployments with a streaming pipeline, or the
// structured log otherwise. Either way, recording an event never blocks
// or fails the operation being audited.
package audit

import (
	"fmt"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/service"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// Sink names as they appear in configuration and delivery metrics.
const (
	sinkLog   = "log"
	sinkKafka = "kafka"
)

// New builds the audit sink selected by the configuration. Callers that
// need to flush on shutdown can type-assert the result against io.Closer.
func New(cfg config.AuditConfig, metrics service.Metrics, log logger.Logger) (service.AuditService, error) {
	switch cfg.Sink {
	case sinkKafka:
		return NewKafkaProducer(cfg, metrics, log)
	case sinkLog, "":
		return NewLogSink(log, metrics), nil
	default:
		return nil, fmt.Errorf("unsupported audit sink %q", cfg.Sink)
	}
}
