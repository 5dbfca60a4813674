package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/service"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
)

// RecordingAuditService captures audit events in memory so tests can
// assert on what was emitted.
type RecordingAuditService struct {
	mu     sync.Mutex
	events []*models.AuditEvent
}

// NewRecordingAuditService creates an empty recorder.
func NewRecordingAuditService() *RecordingAuditService {
	return &RecordingAuditService{}
}

// Record appends the event to the in-memory log.
func (r *RecordingAuditService) Record(ctx context.Context, event *models.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a snapshot of everything recorded so far.
func (r *RecordingAuditService) Events() []*models.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.AuditEvent, len(r.events))
	copy(out, r.events)
	return out
}

// LastOfType returns the most recent event of the given type, or nil.
func (r *RecordingAuditService) LastOfType(eventType constants.AuditEventType) *models.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].EventType == eventType {
			return r.events[i]
		}
	}
	return nil
}

var _ service.AuditService = (*RecordingAuditService)(nil)

// StubNotifier captures password reset deliveries instead of sending them.
type StubNotifier struct {
	mu         sync.Mutex
	deliveries []ResetDelivery

	// Err, when set, is returned by every send.
	Err error
}

// ResetDelivery is one captured password reset notification.
type ResetDelivery struct {
	Email     string
	Token     string
	ExpiresAt time.Time
}

// NewStubNotifier creates an empty notifier stub.
func NewStubNotifier() *StubNotifier {
	return &StubNotifier{}
}

// SendPasswordReset records the delivery.
func (n *StubNotifier) SendPasswordReset(ctx context.Context, email, resetToken string, expiresAt time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.deliveries = append(n.deliveries, ResetDelivery{Email: email, Token: resetToken, ExpiresAt: expiresAt})
	return nil
}

// Deliveries returns a snapshot of captured notifications.
func (n *StubNotifier) Deliveries() []ResetDelivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]ResetDelivery, len(n.deliveries))
	copy(out, n.deliveries)
	return out
}

var _ service.Notifier = (*StubNotifier)(nil)
