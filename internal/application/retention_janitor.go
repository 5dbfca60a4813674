package application

import (
	"context"
	"time"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/repository"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/service"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// AttemptCounterCleaner is the slice of the in-process rate limiter the
// janitor needs: dropping counters whose window has passed. The Redis
// backend expires its counters itself and has nothing to clean.
type AttemptCounterCleaner interface {
	Cleanup() int
}

// RetentionJanitor periodically removes state that has aged out of its
// retention window: revocation records no live token can reference, key
// rows past expiry plus the retention margin, and stale in-process rate
// limit counters. Deletion is safe by construction; everything removed is
// unreferencable by then.
// RetentionJanitor 定期删除超出保留窗口的状态：不再被任何存活令牌引用的
// 撤销记录、超过过期时间加保留余量的密钥行、以及过期的进程内限流计数器。
// 删除在构造上是安全的；被删除的内容届时已不可能被引用。
type RetentionJanitor struct {
	revocations repository.RevocationStore
	keys        service.KeyManager
	counters    AttemptCounterCleaner
	audit       service.AuditService
	logger      logger.Logger
	interval    time.Duration
}

// NewRetentionJanitor creates the janitor.
//
// Parameters:
//   - revocations: deny-list store purged of expired records
//   - keys: key manager purged of keys past retention
//   - counters: in-process rate limit counters, nil when the Redis
//     backend is in use
//   - audit: audit sink for purge outcomes
//   - log: structured logger
//   - interval: purge cadence; zero or negative selects the default
//
// Returns:
//   - *RetentionJanitor: the assembled janitor
func NewRetentionJanitor(
	revocations repository.RevocationStore,
	keys service.KeyManager,
	counters AttemptCounterCleaner,
	audit service.AuditService,
	log logger.Logger,
	interval time.Duration,
) *RetentionJanitor {
	if interval <= 0 {
		interval = constants.JanitorDefaultInterval
	}
	return &RetentionJanitor{
		revocations: revocations,
		keys:        keys,
		counters:    counters,
		audit:       audit,
		logger:      log.WithComponent("retention_janitor"),
		interval:    interval,
	}
}

// Run blocks and purges on a fixed cadence until the context is cancelled,
// typically under the server's errgroup.
func (j *RetentionJanitor) Run(ctx context.Context) error {
	j.logger.Info(ctx, "Retention janitor started", logger.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			j.logger.Info(ctx, "Retention janitor stopped")
			return nil
		case <-ticker.C:
			j.PurgeOnce(ctx)
		}
	}
}

// PurgeOnce runs a single purge cycle across all retained state. Each store
// is purged independently; one failing does not stop the others.
func (j *RetentionJanitor) PurgeOnce(ctx context.Context) {
	var firstErr error

	revoked, err := j.revocations.PurgeExpiredBefore(ctx, time.Now().UTC())
	if err != nil {
		firstErr = err
		j.logger.Error(ctx, "Revocation purge failed", err)
	}

	keys, err := j.keys.PurgeExpired(ctx)
	if err != nil {
		if firstErr == nil {
			firstErr = err
		}
		j.logger.Error(ctx, "Key purge failed", err)
	}

	counters := 0
	if j.counters != nil {
		counters = j.counters.Cleanup()
	}

	event := models.NewAuditEvent(constants.EventTypeRetentionPurge, constants.AuditResultSuccess,
		"", "retention purge completed")
	if firstErr != nil {
		event.Result = constants.AuditResultFailure
		event.Message = "retention purge completed with errors"
		event.WithResultCode(errors.CodeOf(firstErr))
	}
	event.WithMetadata(map[string]interface{}{
		"revoked_tokens": revoked,
		"signing_keys":   keys,
		"rate_counters":  counters,
	})
	j.record(ctx, event)

	j.logger.Info(ctx, "Retention purge completed",
		logger.Int64("revoked_tokens", revoked),
		logger.Int64("signing_keys", keys),
		logger.Int("rate_counters", counters),
		logger.Bool("errors", firstErr != nil),
	)
}

func (j *RetentionJanitor) record(ctx context.Context, event *models.AuditEvent) {
	if err := j.audit.Record(ctx, event); err != nil {
		j.logger.Warn(ctx, "Audit record failed", logger.ErrorField(err))
	}
}
