package fakes

import (
	"sync"
	"time"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/service"
)

// CountingMetrics tallies measurements in memory so tests can assert on
// what was recorded.
type CountingMetrics struct {
	mu              sync.Mutex
	tokenIssues     map[string]int
	tokenVerifies   map[string]int
	tokenRevokes    map[string]int
	loginSuccesses  int
	loginFailures   int
	rateLimitHits   int
	rotationOK      int
	rotationFailed  int
	usableKeys      int
	auditDelivered  map[string]int
	auditFailed     map[string]int
	dbQueries       map[string]int
	cacheHits       map[string]int
	cacheMisses     map[string]int
}

// NewCountingMetrics creates an empty tally.
func NewCountingMetrics() *CountingMetrics {
	return &CountingMetrics{
		tokenIssues:    make(map[string]int),
		tokenVerifies:  make(map[string]int),
		tokenRevokes:   make(map[string]int),
		auditDelivered: make(map[string]int),
		auditFailed:    make(map[string]int),
		dbQueries:      make(map[string]int),
		cacheHits:      make(map[string]int),
		cacheMisses:    make(map[string]int),
	}
}

func (m *CountingMetrics) RecordTokenIssue(tokenType string, success bool, duration time.Duration, errorCode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenIssues[tokenType]++
}

func (m *CountingMetrics) RecordTokenVerify(tokenType string, success bool, errorCode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenVerifies[tokenType]++
}

func (m *CountingMetrics) RecordTokenRevoke(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenRevokes[reason]++
}

func (m *CountingMetrics) RecordLogin(success bool, errorCode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.loginSuccesses++
	} else {
		m.loginFailures++
	}
}

func (m *CountingMetrics) RecordRateLimitHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimitHits++
}

func (m *CountingMetrics) RecordKeyRotation(success bool, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.rotationOK++
	} else {
		m.rotationFailed++
	}
}

func (m *CountingMetrics) UpdateUsableKeys(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usableKeys = count
}

func (m *CountingMetrics) RecordCacheAccess(cacheType string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.cacheHits[cacheType]++
	} else {
		m.cacheMisses[cacheType]++
	}
}

func (m *CountingMetrics) RecordDBQuery(operation string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dbQueries[operation]++
}

func (m *CountingMetrics) RecordAuditDelivery(sink string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.auditFailed[sink]++
	} else {
		m.auditDelivered[sink]++
	}
}

// TokenIssues returns how many issuances were recorded for a token type.
func (m *CountingMetrics) TokenIssues(tokenType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokenIssues[tokenType]
}

// TokenVerifies returns how many verifications were recorded for a token type.
func (m *CountingMetrics) TokenVerifies(tokenType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokenVerifies[tokenType]
}

// TokenRevokes returns how many revocations were recorded for a reason.
func (m *CountingMetrics) TokenRevokes(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokenRevokes[reason]
}

// Logins returns how many login attempts with the given outcome were recorded.
func (m *CountingMetrics) Logins(success bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		return m.loginSuccesses
	}
	return m.loginFailures
}

// RateLimitHits returns how many over-limit rejections were recorded.
func (m *CountingMetrics) RateLimitHits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rateLimitHits
}

// KeyRotations returns how many rotations with the given outcome were recorded.
func (m *CountingMetrics) KeyRotations(success bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		return m.rotationOK
	}
	return m.rotationFailed
}

// UsableKeys returns the last recorded usable-key gauge value.
func (m *CountingMetrics) UsableKeys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usableKeys
}

// AuditDeliveries returns how many successful deliveries a sink recorded.
func (m *CountingMetrics) AuditDeliveries(sink string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.auditDelivered[sink]
}

// AuditFailures returns how many failed deliveries a sink recorded.
func (m *CountingMetrics) AuditFailures(sink string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.auditFailed[sink]
}

var _ service.Metrics = (*CountingMetrics)(nil)
