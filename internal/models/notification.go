package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

// Rank orders priorities for threshold comparison. Unknown values rank as
// normal so malformed preferences fail open rather than suppressing urgent
// notifications.
func (p NotificationPriority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityHigh:
		return 2
	case PriorityUrgent:
		return 3
	default:
		return 1
	}
}

type NotificationCategory string

const (
	CategoryAccount  NotificationCategory = "account"
	CategoryTransfer NotificationCategory = "transfer"
	CategoryCard     NotificationCategory = "card"
	CategoryDeposit  NotificationCategory = "deposit"
	CategorySecurity NotificationCategory = "security"
)

type Notification struct {
	ID        uuid.UUID            `json:"id"`
	UserID    uuid.UUID            `json:"user_id"`
	Type      string               `json:"type"`
	Category  NotificationCategory `json:"category"`
	Priority  NotificationPriority `json:"priority"`
	Title     string               `json:"title"`
	Body      string               `json:"body"`
	Read      bool                 `json:"read"`
	ActionURL *string              `json:"action_url,omitempty"`
	ExpiresAt *time.Time           `json:"expires_at,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// NotificationPreference gates notification creation per user. A disabled
// category or a priority below MinPriority means the notification is never
// written, not written-then-hidden.
type NotificationPreference struct {
	UserID          uuid.UUID            `json:"user_id"`
	AccountEnabled  bool                 `json:"account_enabled"`
	TransferEnabled bool                 `json:"transfer_enabled"`
	CardEnabled     bool                 `json:"card_enabled"`
	DepositEnabled  bool                 `json:"deposit_enabled"`
	SecurityEnabled bool                 `json:"security_enabled"`
	MinPriority     NotificationPriority `json:"min_priority"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// Allows reports whether a notification of the given category and priority
// passes this preference record.
func (p NotificationPreference) Allows(category NotificationCategory, priority NotificationPriority) bool {
	if priority.Rank() < p.MinPriority.Rank() {
		return false
	}
	switch category {
	case CategoryAccount:
		return p.AccountEnabled
	case CategoryTransfer:
		return p.TransferEnabled
	case CategoryCard:
		return p.CardEnabled
	case CategoryDeposit:
		return p.DepositEnabled
	case CategorySecurity:
		return p.SecurityEnabled
	default:
		return true
	}
}

// DefaultPreference is applied when a user has no stored preference row.
func DefaultPreference(userID uuid.UUID) NotificationPreference {
	return NotificationPreference{
		UserID:          userID,
		AccountEnabled:  true,
		TransferEnabled: true,
		CardEnabled:     true,
		DepositEnabled:  true,
		SecurityEnabled: true,
		MinPriority:     PriorityLow,
	}
}
