// Package consumers contains Kafka consumers for background processing.
package consumers

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/repository"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/service"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// RevocationEvent is the message shape on the revocation topic. External
// collaborators such as account deletion or support tooling publish one
// event per token to force revocation out of band.
type RevocationEvent struct {
	JTI       string    `json:"jti"`
	RevokedAt time.Time `json:"revoked_at"`
	Reason    string    `json:"reason"`
}

// RevocationConsumer applies externally published revocation events to the
// local deny list. All service instances share a consumer group so each
// event is applied once.
type RevocationConsumer struct {
	reader  *kafka.Reader
	store   repository.RevocationStore
	metrics service.Metrics
	logger  logger.Logger
	stop    chan struct{}
}

// NewRevocationConsumer creates a consumer for the revocation topic.
func NewRevocationConsumer(cfg config.AuditConfig, store repository.RevocationStore, metrics service.Metrics, log logger.Logger) *RevocationConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.RevocationTopic,
		GroupID:        cfg.ConsumerGroup,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})

	return &RevocationConsumer{
		reader:  reader,
		store:   store,
		metrics: metrics,
		logger:  log.WithComponent("revocation_consumer"),
		stop:    make(chan struct{}),
	}
}

// Start begins the consumer loop. It blocks and should be run in a
// goroutine, typically under the server's errgroup.
func (c *RevocationConsumer) Start(ctx context.Context) {
	c.logger.Info(ctx, "starting revocation consumer")
	for {
		select {
		case <-c.stop:
			c.logger.Info(ctx, "stopping revocation consumer")
			return
		default:
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if err == io.EOF || ctx.Err() != nil {
					// Reader closed or context cancelled during shutdown.
					c.logger.Info(ctx, "stopping revocation consumer")
					return
				}
				c.logger.Error(ctx, "failed to fetch revocation event", err)
				continue
			}

			var event RevocationEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				c.logger.Error(ctx, "failed to unmarshal revocation event", err,
					logger.String("kafka_message", string(msg.Value)))
				// Acknowledge the message to avoid reprocessing a poison pill.
				c.reader.CommitMessages(ctx, msg)
				continue
			}

			if err := c.handleEvent(ctx, &event); err != nil {
				c.logger.Error(ctx, "failed to apply revocation event", err,
					logger.String("jti", event.JTI))
				// Do not commit, allow reprocessing once the store recovers.
			} else {
				c.reader.CommitMessages(ctx, msg)
			}
		}
	}
}

// Stop gracefully shuts down the consumer.
func (c *RevocationConsumer) Stop() {
	close(c.stop)
	if err := c.reader.Close(); err != nil {
		c.logger.Error(context.Background(), "failed to close kafka reader", err)
	}
}

// handleEvent writes one revocation to the deny list. Events that can
// never be applied are logged and dropped; only store failures return an
// error so the message is redelivered.
func (c *RevocationConsumer) handleEvent(ctx context.Context, event *RevocationEvent) error {
	if event.JTI == "" {
		c.logger.Warn(ctx, "revocation event missing jti, skipping",
			logger.String("reason", event.Reason))
		return nil
	}

	revokedAt := event.RevokedAt
	if revokedAt.IsZero() {
		revokedAt = time.Now().UTC()
	}

	// The event does not carry the token's expiry, so the entry is held
	// for the full retention window: no token outlives it.
	expiresAt := revokedAt.Add(constants.RevocationRetention)
	if !expiresAt.After(time.Now()) {
		c.logger.Warn(ctx, "revocation event past retention, skipping",
			logger.String("jti", event.JTI),
			logger.Time("revoked_at", revokedAt))
		return nil
	}

	reason := event.Reason
	if reason == "" {
		reason = "external"
	}

	record := &models.RevokedToken{
		JTI:       event.JTI,
		Reason:    reason,
		RevokedAt: revokedAt,
		ExpiresAt: expiresAt,
	}
	if err := c.store.Revoke(ctx, record); err != nil {
		return err
	}

	c.metrics.RecordTokenRevoke(reason)
	c.logger.Debug(ctx, "applied external revocation",
		logger.String("jti", event.JTI),
		logger.String("reason", reason))
	return nil
}
