// Package application provides the background services that run alongside
// request serving: the key rotation scheduler and the retention janitor.
package application

import (
	"context"
	"time"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/service"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// RotationScheduler is the only in-process trigger for key rotation. It
// periodically asks the key manager whether the current key has served its
// interval and rotates when due. A failed cycle is retried on the next tick
// and never interrupts live issuance.
// RotationScheduler 是进程内唯一的密钥轮换触发器。它定期询问密钥管理器
// 当前密钥是否已到期并在到期时轮换。失败的周期在下一次触发时重试，
// 绝不会中断正在进行的令牌颁发。
type RotationScheduler struct {
	keys     service.KeyManager
	audit    service.AuditService
	logger   logger.Logger
	interval time.Duration
}

// NewRotationScheduler creates the scheduler.
//
// Parameters:
//   - keys: key lifecycle manager asked on every tick
//   - audit: audit sink for rotation outcomes
//   - log: structured logger
//   - checkInterval: how often due-ness is checked; zero or negative
//     selects one hour
//
// Returns:
//   - *RotationScheduler: the assembled scheduler
func NewRotationScheduler(keys service.KeyManager, audit service.AuditService, log logger.Logger, checkInterval time.Duration) *RotationScheduler {
	if checkInterval <= 0 {
		checkInterval = time.Hour
	}
	return &RotationScheduler{
		keys:     keys,
		audit:    audit,
		logger:   log.WithComponent("rotation_scheduler"),
		interval: checkInterval,
	}
}

// Run blocks and checks rotation due-ness on a fixed cadence until the
// context is cancelled, typically under the server's errgroup. The first
// check runs immediately so a service that was down across a rotation
// deadline catches up on startup instead of waiting a full interval.
func (s *RotationScheduler) Run(ctx context.Context) error {
	s.logger.Info(ctx, "Rotation scheduler started", logger.Duration("check_interval", s.interval))

	s.checkOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Rotation scheduler stopped")
			return nil
		case <-ticker.C:
			s.checkOnce(ctx)
		}
	}
}

// checkOnce performs a single due-ness check and records the outcome
func (s *RotationScheduler) checkOnce(ctx context.Context) {
	key, rotated, err := s.keys.RotateIfDue(ctx)
	if err != nil {
		s.record(ctx, models.NewAuditEvent(constants.EventTypeKeyRotation, constants.AuditResultFailure,
			"", "scheduled rotation failed").
			WithResultCode(errors.CodeOf(err)))
		s.logger.Error(ctx, "Scheduled key rotation failed", err)
		return
	}
	if !rotated {
		return
	}

	s.record(ctx, models.NewAuditEvent(constants.EventTypeKeyRotation, constants.AuditResultSuccess,
		"", "signing key rotated").
		WithMetadata(map[string]interface{}{
			"kid":        key.KID,
			"expires_at": key.ExpiresAt.UTC(),
		}))
	s.logger.Info(ctx, "Signing key rotated",
		logger.String("kid", key.KID),
		logger.Time("expires_at", key.ExpiresAt),
	)
}

func (s *RotationScheduler) record(ctx context.Context, event *models.AuditEvent) {
	if err := s.audit.Record(ctx, event); err != nil {
		s.logger.Warn(ctx, "Audit record failed", logger.ErrorField(err))
	}
}
