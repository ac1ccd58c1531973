package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meridianpay/custodyops/internal/models"
)

// InsertAuditEntry appends one audit row. The table is append-only; nothing
// in this backend updates or deletes audit rows.
func (s *Store) InsertAuditEntry(ctx context.Context, e models.AuditLogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO audit_log (id, kind, method, endpoint, event_type, status, correlation_id, payload, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())`,
		e.ID, e.Kind, e.Method, e.Endpoint, e.EventType, e.Status, e.CorrelationID, e.Payload, e.Error)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListFailedWebhookEntries returns webhook failures for manual replay,
// oldest first.
func (s *Store) ListFailedWebhookEntries(ctx context.Context, limit int) ([]models.AuditLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, kind, method, endpoint, event_type, status, correlation_id, payload, error, created_at
		FROM audit_log WHERE kind = 'webhook_failed' ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list failed webhooks: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditLogEntry
	for rows.Next() {
		var e models.AuditLogEntry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Method, &e.Endpoint, &e.EventType, &e.Status,
			&e.CorrelationID, &e.Payload, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
