package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPriorityRank(t *testing.T) {
	assert.Equal(t, 0, PriorityLow.Rank())
	assert.Equal(t, 1, PriorityNormal.Rank())
	assert.Equal(t, 2, PriorityHigh.Rank())
	assert.Equal(t, 3, PriorityUrgent.Rank())

	// Malformed values rank as normal so they are not silently dropped.
	assert.Equal(t, 1, NotificationPriority("garbage").Rank())
	assert.Equal(t, 1, NotificationPriority("").Rank())
}

func TestPreferenceAllows(t *testing.T) {
	pref := NotificationPreference{
		AccountEnabled:  true,
		TransferEnabled: false,
		CardEnabled:     true,
		DepositEnabled:  true,
		SecurityEnabled: true,
		MinPriority:     PriorityNormal,
	}

	assert.True(t, pref.Allows(CategoryAccount, PriorityNormal))
	assert.False(t, pref.Allows(CategoryTransfer, PriorityUrgent), "disabled category blocks regardless of priority")
	assert.False(t, pref.Allows(CategoryCard, PriorityLow), "below MinPriority is blocked")
	assert.True(t, pref.Allows(CategoryCard, PriorityHigh))

	// Unknown categories fail open.
	assert.True(t, pref.Allows(NotificationCategory("new_category"), PriorityNormal))
}

func TestDefaultPreferenceAllowsEverything(t *testing.T) {
	pref := DefaultPreference(uuid.New())

	for _, cat := range []NotificationCategory{CategoryAccount, CategoryTransfer, CategoryCard, CategoryDeposit, CategorySecurity} {
		assert.True(t, pref.Allows(cat, PriorityLow), "category %s", cat)
	}
}
