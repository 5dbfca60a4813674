package service

import (
	"time"
)

// Metrics defines the interface for collecting business metrics.
// The abstraction keeps domain and application code independent of the
// monitoring implementation.
// Metrics 定义了收集业务指标的接口。
// 该抽象使领域和应用代码独立于具体的监控实现。
type Metrics interface {
	// RecordTokenIssue records a token issuance outcome.
	// RecordTokenIssue 记录令牌颁发结果。
	RecordTokenIssue(tokenType string, success bool, duration time.Duration, errorCode string)

	// RecordTokenVerify records a token verification outcome.
	// RecordTokenVerify 记录令牌验证结果。
	RecordTokenVerify(tokenType string, success bool, errorCode string)

	// RecordTokenRevoke records a revocation event.
	// RecordTokenRevoke 记录令牌吊销事件。
	RecordTokenRevoke(reason string)

	// RecordLogin records a login attempt outcome.
	RecordLogin(success bool, errorCode string)

	// RecordRateLimitHit records a rejected over-limit attempt.
	RecordRateLimitHit()

	// RecordKeyRotation records a rotation attempt and its duration.
	RecordKeyRotation(success bool, duration time.Duration)

	// UpdateUsableKeys updates the gauge of keys currently valid for
	// verification.
	UpdateUsableKeys(count int)

	// RecordCacheAccess records a hit or miss on a named cache.
	RecordCacheAccess(cacheType string, hit bool)

	// RecordDBQuery records the duration of a storage operation.
	RecordDBQuery(operation string, duration time.Duration)

	// RecordAuditDelivery records an audit event delivery attempt per sink.
	RecordAuditDelivery(sink string, err error)
}
