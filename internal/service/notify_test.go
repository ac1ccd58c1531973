package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meridianpay/custodyops/internal/models"
	"github.com/meridianpay/custodyops/internal/service"
	"github.com/meridianpay/custodyops/internal/testutil"
)

func TestNotifyHonorsPreferences(t *testing.T) {
	mirror := testutil.NewMirror()
	notifier := service.NewNotifier(mirror, zap.NewNop())
	userID := uuid.New()

	pref := models.DefaultPreference(userID)
	pref.CardEnabled = false
	pref.MinPriority = models.PriorityHigh
	require.NoError(t, mirror.UpsertPreference(context.Background(), pref))

	// Disabled category: dropped regardless of priority.
	notifier.Notify(context.Background(), service.NotificationInput{
		UserID: userID, Type: "card_transaction",
		Category: models.CategoryCard, Priority: models.PriorityUrgent,
	})
	// Below the priority floor: dropped.
	notifier.Notify(context.Background(), service.NotificationInput{
		UserID: userID, Type: "transfer_created",
		Category: models.CategoryTransfer, Priority: models.PriorityNormal,
	})
	// Enabled category at the floor: written.
	notifier.Notify(context.Background(), service.NotificationInput{
		UserID: userID, Type: "transfer_failed",
		Category: models.CategoryTransfer, Priority: models.PriorityHigh,
	})

	require.Len(t, mirror.Notifications, 1)
	assert.Equal(t, "transfer_failed", mirror.Notifications[0].Type)
}

func TestNotifyPersistenceFailureIsSwallowed(t *testing.T) {
	mirror := testutil.NewMirror()
	mirror.FailNotifications = true
	notifier := service.NewNotifier(mirror, zap.NewNop())

	// Must not panic or propagate; the triggering operation continues.
	notifier.Notify(context.Background(), service.NotificationInput{
		UserID: uuid.New(), Type: "kyc_approved",
		Category: models.CategoryAccount, Priority: models.PriorityHigh,
	})

	assert.Empty(t, mirror.Notifications)
}

func TestMarkReadUnknownNotification(t *testing.T) {
	mirror := testutil.NewMirror()
	notifier := service.NewNotifier(mirror, zap.NewNop())

	err := notifier.MarkRead(context.Background(), uuid.New(), uuid.New())
	assert.Error(t, err)
}
