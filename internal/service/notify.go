package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meridianpay/custodyops/internal/models"
)

// Notifier writes user-facing notification records, honoring stored
// preferences at creation time: a disabled category or a priority below the
// user's threshold means the row is never created, not created-then-hidden.
type Notifier struct {
	mirror Mirror
	logger *zap.Logger
}

func NewNotifier(mirror Mirror, logger *zap.Logger) *Notifier {
	return &Notifier{mirror: mirror, logger: logger}
}

type NotificationInput struct {
	UserID    uuid.UUID
	Type      string
	Category  models.NotificationCategory
	Priority  models.NotificationPriority
	Title     string
	Body      string
	ActionURL *string
	ExpiresAt *time.Time
}

// Notify is best-effort: a persistence failure is logged, never propagated,
// so it cannot fail the business operation that triggered it.
func (n *Notifier) Notify(ctx context.Context, input NotificationInput) {
	pref, err := n.mirror.GetPreference(ctx, input.UserID)
	if err != nil {
		// Fail open on preference lookup so urgent notifications survive a
		// flaky preference read.
		n.logger.Warn("preference lookup failed", zap.String("user_id", input.UserID.String()), zap.Error(err))
		pref = models.DefaultPreference(input.UserID)
	}
	if !pref.Allows(input.Category, input.Priority) {
		return
	}

	err = n.mirror.InsertNotification(ctx, models.Notification{
		ID:        uuid.New(),
		UserID:    input.UserID,
		Type:      input.Type,
		Category:  input.Category,
		Priority:  input.Priority,
		Title:     input.Title,
		Body:      input.Body,
		ActionURL: input.ActionURL,
		ExpiresAt: input.ExpiresAt,
	})
	if err != nil {
		n.logger.Warn("notification write failed",
			zap.String("user_id", input.UserID.String()),
			zap.String("type", input.Type),
			zap.Error(err))
	}
}

func (n *Notifier) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error) {
	return n.mirror.ListNotificationsByUser(ctx, userID, unreadOnly, limit)
}

func (n *Notifier) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return n.mirror.MarkNotificationRead(ctx, id, userID)
}

func (n *Notifier) GetPreference(ctx context.Context, userID uuid.UUID) (models.NotificationPreference, error) {
	return n.mirror.GetPreference(ctx, userID)
}

func (n *Notifier) UpdatePreference(ctx context.Context, pref models.NotificationPreference) error {
	return n.mirror.UpsertPreference(ctx, pref)
}
