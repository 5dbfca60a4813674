package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
)

// AuditEvent represents a single audit trail entry.
type AuditEvent struct {
	EventID    uuid.UUID
	EventType  constants.AuditEventType
	Result     constants.AuditEventResult
	Subject    string // account ID or login identifier the event concerns
	ResultCode constants.ErrorCode
	IPAddress  string
	UserAgent  string
	RequestID  string
	TraceID    string
	Message    string
	Metadata   json.RawMessage // event-specific payload
	Timestamp  time.Time
}

// NewAuditEvent creates an audit event stamped with the current time.
func NewAuditEvent(eventType constants.AuditEventType, result constants.AuditEventResult, subject, message string) *AuditEvent {
	return &AuditEvent{
		EventID:   uuid.New(),
		EventType: eventType,
		Result:    result,
		Subject:   subject,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// WithContextInfo sets request-scoped correlation data.
func (a *AuditEvent) WithContextInfo(ip, userAgent, requestID, traceID string) *AuditEvent {
	a.IPAddress = ip
	a.UserAgent = userAgent
	a.RequestID = requestID
	a.TraceID = traceID
	return a
}

// WithMetadata attaches a JSON payload of event-specific data.
func (a *AuditEvent) WithMetadata(data interface{}) *AuditEvent {
	jsonData, err := json.Marshal(data)
	if err == nil {
		a.Metadata = jsonData
	}
	return a
}

// WithResultCode records the error code for failed events.
func (a *AuditEvent) WithResultCode(code constants.ErrorCode) *AuditEvent {
	a.ResultCode = code
	return a
}
