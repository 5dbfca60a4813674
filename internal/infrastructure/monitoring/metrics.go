// Package monitoring provides the observability backends: the zap logger,
// the Prometheus metrics collector and the OpenTelemetry tracing manager.
package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/service"
)

// Metrics is the Prometheus-backed implementation of the domain metrics
// interface, plus the HTTP server metrics used by the middleware chain.
type Metrics struct {
	tokenIssues        *prometheus.CounterVec
	tokenIssueLatency  *prometheus.HistogramVec
	tokenVerifies      *prometheus.CounterVec
	tokenRevocations   *prometheus.CounterVec
	loginAttempts      *prometheus.CounterVec
	rateLimitHits      prometheus.Counter
	keyRotations       *prometheus.CounterVec
	keyRotationLatency prometheus.Histogram
	usableKeys         prometheus.Gauge
	cacheAccesses      *prometheus.CounterVec
	dbQueryLatency     *prometheus.HistogramVec
	auditDeliveries    *prometheus.CounterVec

	httpInFlight *prometheus.GaugeVec
	httpDuration *prometheus.HistogramVec
	httpErrors   *prometheus.CounterVec
}

var _ service.Metrics = (*Metrics)(nil)

// NewMetrics creates and registers the service metrics on the given
// registerer. Passing nil registers on the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		tokenIssues: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "climbauth_token_issues_total",
				Help: "Total number of token issuance attempts.",
			},
			[]string{"token_type", "result", "error_code"},
		),
		tokenIssueLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "climbauth_token_issue_duration_seconds",
				Help:    "Latency of token issuance.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"token_type"},
		),
		tokenVerifies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "climbauth_token_verifies_total",
				Help: "Total number of token verification attempts.",
			},
			[]string{"token_type", "result", "error_code"},
		),
		tokenRevocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "climbauth_token_revocations_total",
				Help: "Total number of token revocations.",
			},
			[]string{"reason"},
		),
		loginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "climbauth_login_attempts_total",
				Help: "Total number of login attempts.",
			},
			[]string{"result", "error_code"},
		),
		rateLimitHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "climbauth_rate_limit_rejections_total",
				Help: "Total number of attempts rejected by the rate limiter.",
			},
		),
		keyRotations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "climbauth_key_rotations_total",
				Help: "Total number of signing key rotation attempts.",
			},
			[]string{"result"},
		),
		keyRotationLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "climbauth_key_rotation_duration_seconds",
				Help:    "Latency of signing key rotation.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		usableKeys: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "climbauth_usable_signing_keys",
				Help: "Number of signing keys currently valid for verification.",
			},
		),
		cacheAccesses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "climbauth_cache_accesses_total",
				Help: "Cache lookups by cache name and outcome.",
			},
			[]string{"cache", "outcome"},
		),
		dbQueryLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "climbauth_db_query_duration_seconds",
				Help:    "Latency of storage operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		auditDeliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "climbauth_audit_deliveries_total",
				Help: "Audit event delivery attempts by sink and outcome.",
			},
			[]string{"sink", "result"},
		),
		httpInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "climbauth_http_requests_in_flight",
				Help: "HTTP requests currently being served.",
			},
			[]string{"path", "method"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "climbauth_http_request_duration_seconds",
				Help:    "HTTP request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method", "status"},
		),
		httpErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "climbauth_http_request_errors_total",
				Help: "HTTP responses with a server error status.",
			},
			[]string{"path", "method", "status"},
		),
	}
}

func (m *Metrics) RecordTokenIssue(tokenType string, success bool, duration time.Duration, errorCode string) {
	m.tokenIssues.WithLabelValues(tokenType, outcome(success), errorCode).Inc()
	m.tokenIssueLatency.WithLabelValues(tokenType).Observe(duration.Seconds())
}

func (m *Metrics) RecordTokenVerify(tokenType string, success bool, errorCode string) {
	m.tokenVerifies.WithLabelValues(tokenType, outcome(success), errorCode).Inc()
}

func (m *Metrics) RecordTokenRevoke(reason string) {
	m.tokenRevocations.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordLogin(success bool, errorCode string) {
	m.loginAttempts.WithLabelValues(outcome(success), errorCode).Inc()
}

func (m *Metrics) RecordRateLimitHit() {
	m.rateLimitHits.Inc()
}

func (m *Metrics) RecordKeyRotation(success bool, duration time.Duration) {
	m.keyRotations.WithLabelValues(outcome(success)).Inc()
	m.keyRotationLatency.Observe(duration.Seconds())
}

func (m *Metrics) UpdateUsableKeys(count int) {
	m.usableKeys.Set(float64(count))
}

func (m *Metrics) RecordCacheAccess(cacheType string, hit bool) {
	label := "miss"
	if hit {
		label = "hit"
	}
	m.cacheAccesses.WithLabelValues(cacheType, label).Inc()
}

func (m *Metrics) RecordDBQuery(operation string, duration time.Duration) {
	m.dbQueryLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordAuditDelivery(sink string, err error) {
	m.auditDeliveries.WithLabelValues(sink, outcome(err == nil)).Inc()
}

// HTTPRequestStarted marks a request in flight. The middleware pairs it
// with HTTPRequestFinished.
func (m *Metrics) HTTPRequestStarted(path, method string) {
	m.httpInFlight.WithLabelValues(path, method).Inc()
}

// HTTPRequestFinished records the outcome of a served request.
func (m *Metrics) HTTPRequestFinished(path, method string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	m.httpInFlight.WithLabelValues(path, method).Dec()
	m.httpDuration.WithLabelValues(path, method, code).Observe(duration.Seconds())
	if status >= 500 {
		m.httpErrors.WithLabelValues(path, method, code).Inc()
	}
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
