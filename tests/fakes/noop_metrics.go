package fakes

import (
	"time"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/service"
)

// NoopMetrics discards every measurement. Tests that do not assert on
// metrics pass it wherever a collector is required.
type NoopMetrics struct{}

// NewNoopMetrics creates a metrics collector that records nothing.
func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (m *NoopMetrics) RecordTokenIssue(tokenType string, success bool, duration time.Duration, errorCode string) {
}
func (m *NoopMetrics) RecordTokenVerify(tokenType string, success bool, errorCode string) {}
func (m *NoopMetrics) RecordTokenRevoke(reason string)                                    {}
func (m *NoopMetrics) RecordLogin(success bool, errorCode string)                         {}
func (m *NoopMetrics) RecordRateLimitHit()                                                {}
func (m *NoopMetrics) RecordKeyRotation(success bool, duration time.Duration)             {}
func (m *NoopMetrics) UpdateUsableKeys(count int)                                         {}
func (m *NoopMetrics) RecordCacheAccess(cacheType string, hit bool)                       {}
func (m *NoopMetrics) RecordDBQuery(operation string, duration time.Duration)             {}
func (m *NoopMetrics) RecordAuditDelivery(sink string, err error)                         {}

var _ service.Metrics = (*NoopMetrics)(nil)
