package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditKind string

const (
	AuditProviderRequest AuditKind = "provider_request"
	AuditWebhookReceived AuditKind = "webhook_received"
	AuditWebhookFailed   AuditKind = "webhook_failed"
)

// AuditLogEntry is append-only: one row per provider interaction and per
// webhook received or failed. Never updated or deleted.
type AuditLogEntry struct {
	ID            uuid.UUID       `json:"id"`
	Kind          AuditKind       `json:"kind"`
	Method        string          `json:"method,omitempty"`
	Endpoint      string          `json:"endpoint,omitempty"`
	EventType     string          `json:"event_type,omitempty"`
	Status        int             `json:"status,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Error         string          `json:"error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
