package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/service"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// KafkaProducer publishes audit events to a Kafka topic. Writes are
// asynchronous: Record hands the event to the writer's internal queue and
// returns, and delivery failures surface through the completion callback
// where they are logged and counted. An authentication never waits on the
// audit pipeline.
type KafkaProducer struct {
	writer  *kafka.Writer
	metrics service.Metrics
	secret  string
	logger  logger.Logger
}

var _ service.AuditService = (*KafkaProducer)(nil)

// NewKafkaProducer creates a producer for the configured audit topic.
//
// Parameters:
//   - cfg: audit configuration with brokers, topic and optional signing secret
//   - metrics: metrics collector for delivery outcomes
//   - log: logger instance
//
// Returns:
//   - *KafkaProducer: the producer
//   - error: if brokers or topic are missing
func NewKafkaProducer(cfg config.AuditConfig, metrics service.Metrics, log logger.Logger) (*KafkaProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka audit sink needs at least one broker")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka audit sink needs a topic")
	}

	p := &KafkaProducer{
		metrics: metrics,
		secret:  cfg.SigningSecret,
		logger:  log.WithComponent("audit_kafka"),
	}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 100 * time.Millisecond,
		Async:        true,
		Completion:   p.onDelivery,
	}
	return p, nil
}

// Record serializes the event and enqueues it for publication. It never
// returns an error: failures are logged and counted so the audited flow
// is unaffected.
func (p *KafkaProducer) Record(ctx context.Context, event *models.AuditEvent) error {
	if event == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error(ctx, "failed to marshal audit event", err,
			logger.String("event_type", string(event.EventType)))
		p.metrics.RecordAuditDelivery(sinkKafka, err)
		return nil
	}

	msg := kafka.Message{Value: payload}
	if p.secret != "" {
		msg.Headers = append(msg.Headers, kafka.Header{
			Key:   SignatureHeader,
			Value: []byte(SignPayload(payload, p.secret)),
		})
	}

	// In async mode a non-nil error means the message never reached the
	// queue, typically a closed writer or cancelled context. Broker
	// failures arrive through onDelivery instead.
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error(ctx, "failed to enqueue audit event", err,
			logger.String("event_type", string(event.EventType)))
		p.metrics.RecordAuditDelivery(sinkKafka, err)
	}
	return nil
}

// onDelivery is invoked by the writer once a queued batch has been written
// or given up on.
func (p *KafkaProducer) onDelivery(messages []kafka.Message, err error) {
	if err != nil {
		p.logger.Error(context.Background(), "audit event delivery failed", err,
			logger.Int("events", len(messages)))
	}
	for range messages {
		p.metrics.RecordAuditDelivery(sinkKafka, err)
	}
}

// Close flushes queued events and releases the writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
