package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meridianpay/custodyops/internal/apperr"
	"github.com/meridianpay/custodyops/internal/models"
)

func (s *Store) InsertNotification(ctx context.Context, n models.Notification) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, category, priority, title, body, read, action_url, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8, $9, now())`,
		n.ID, n.UserID, n.Type, n.Category, n.Priority, n.Title, n.Body, n.ActionURL, n.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *Store) ListNotificationsByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT id, user_id, type, category, priority, title, body, read, action_url, expires_at, created_at
		FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += " AND read = false"
	}
	query += " ORDER BY created_at DESC LIMIT $2"

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Category, &n.Priority, &n.Title, &n.Body,
			&n.Read, &n.ActionURL, &n.ExpiresAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// GetPreference returns the user's stored preference row, or the permissive
// default when none exists.
func (s *Store) GetPreference(ctx context.Context, userID uuid.UUID) (models.NotificationPreference, error) {
	var p models.NotificationPreference
	err := s.db.QueryRow(ctx, `
		SELECT user_id, account_enabled, transfer_enabled, card_enabled, deposit_enabled, security_enabled, min_priority, updated_at
		FROM notification_preferences WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.AccountEnabled, &p.TransferEnabled, &p.CardEnabled,
			&p.DepositEnabled, &p.SecurityEnabled, &p.MinPriority, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DefaultPreference(userID), nil
	}
	if err != nil {
		return models.NotificationPreference{}, fmt.Errorf("get preference: %w", err)
	}
	return p, nil
}

func (s *Store) UpsertPreference(ctx context.Context, p models.NotificationPreference) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notification_preferences (user_id, account_enabled, transfer_enabled, card_enabled,
			deposit_enabled, security_enabled, min_priority, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (user_id) DO UPDATE SET
			account_enabled  = EXCLUDED.account_enabled,
			transfer_enabled = EXCLUDED.transfer_enabled,
			card_enabled     = EXCLUDED.card_enabled,
			deposit_enabled  = EXCLUDED.deposit_enabled,
			security_enabled = EXCLUDED.security_enabled,
			min_priority     = EXCLUDED.min_priority,
			updated_at       = now()`,
		p.UserID, p.AccountEnabled, p.TransferEnabled, p.CardEnabled,
		p.DepositEnabled, p.SecurityEnabled, p.MinPriority)
	if err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}
