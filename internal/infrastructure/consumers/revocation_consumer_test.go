package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/tests/fakes"
)

func newTestConsumer(store *fakes.InMemoryRevocationStore, metrics *fakes.CountingMetrics) *RevocationConsumer {
	return &RevocationConsumer{
		store:   store,
		metrics: metrics,
		logger:  logger.NewNoopLogger(),
		stop:    make(chan struct{}),
	}
}

func TestRevocationEvent_WireFormat(t *testing.T) {
	raw := `{"jti":"jti-wire","revoked_at":"2026-08-26T10:00:00Z","reason":"support_hold"}`

	var event RevocationEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &event))

	assert.Equal(t, "jti-wire", event.JTI)
	assert.Equal(t, time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC), event.RevokedAt)
	assert.Equal(t, "support_hold", event.Reason)
}

func TestHandleEvent_AppliesRevocation(t *testing.T) {
	store := fakes.NewInMemoryRevocationStore()
	metrics := fakes.NewCountingMetrics()
	c := newTestConsumer(store, metrics)

	revokedAt := time.Now().UTC().Add(-time.Minute)
	event := &RevocationEvent{JTI: "jti-1", RevokedAt: revokedAt, Reason: "account_deleted"}

	require.NoError(t, c.handleEvent(context.Background(), event))

	record := store.Get("jti-1")
	require.NotNil(t, record)
	assert.Equal(t, "account_deleted", record.Reason)
	assert.Equal(t, revokedAt, record.RevokedAt)
	assert.WithinDuration(t, revokedAt.Add(constants.RevocationRetention), record.ExpiresAt, time.Second)
	assert.Equal(t, 1, metrics.TokenRevokes("account_deleted"))
}

func TestHandleEvent_MissingJTIIsDropped(t *testing.T) {
	store := fakes.NewInMemoryRevocationStore()
	c := newTestConsumer(store, fakes.NewCountingMetrics())

	err := c.handleEvent(context.Background(), &RevocationEvent{Reason: "account_deleted"})

	require.NoError(t, err)
	assert.Zero(t, store.Len())
}

func TestHandleEvent_ZeroTimestampUsesNow(t *testing.T) {
	store := fakes.NewInMemoryRevocationStore()
	c := newTestConsumer(store, fakes.NewCountingMetrics())

	require.NoError(t, c.handleEvent(context.Background(), &RevocationEvent{JTI: "jti-2"}))

	record := store.Get("jti-2")
	require.NotNil(t, record)
	assert.WithinDuration(t, time.Now(), record.RevokedAt, 2*time.Second)
	assert.Equal(t, "external", record.Reason)
}

func TestHandleEvent_PastRetentionIsDropped(t *testing.T) {
	store := fakes.NewInMemoryRevocationStore()
	c := newTestConsumer(store, fakes.NewCountingMetrics())

	event := &RevocationEvent{
		JTI:       "jti-stale",
		RevokedAt: time.Now().UTC().Add(-(constants.RevocationRetention + time.Hour)),
	}

	require.NoError(t, c.handleEvent(context.Background(), event))
	assert.Zero(t, store.Len())
}

func TestHandleEvent_StoreFailureIsRetriable(t *testing.T) {
	store := fakes.NewInMemoryRevocationStore()
	store.WriteErr = errors.New("connection refused")
	metrics := fakes.NewCountingMetrics()
	c := newTestConsumer(store, metrics)

	event := &RevocationEvent{JTI: "jti-3", RevokedAt: time.Now().UTC()}

	require.Error(t, c.handleEvent(context.Background(), event))
	assert.Zero(t, metrics.TokenRevokes("external"))

	// Once the store recovers the same event applies cleanly.
	store.WriteErr = nil
	require.NoError(t, c.handleEvent(context.Background(), event))
	assert.NotNil(t, store.Get("jti-3"))
}

func TestNewRevocationConsumer_Lifecycle(t *testing.T) {
	cfg := config.AuditConfig{
		Brokers:         []string{"localhost:9092"},
		RevocationTopic: "climbauth.revocations",
		ConsumerGroup:   "climbauth",
	}
	c := NewRevocationConsumer(cfg, fakes.NewInMemoryRevocationStore(), fakes.NewCountingMetrics(), logger.NewNoopLogger())
	require.NotNil(t, c)

	// Stop before Start: the stop channel and reader close cleanly.
	c.Stop()
}
