package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type VerificationStatus string

const (
	VerificationNotStarted  VerificationStatus = "not_started"
	VerificationPending     VerificationStatus = "pending"
	VerificationUnderReview VerificationStatus = "under_review"
	VerificationApproved    VerificationStatus = "approved"
	VerificationRejected    VerificationStatus = "rejected"
)

// Customer links a local user to the provider's customer record. Created on
// first KYC initiation, mutated only by sync, never deleted.
type Customer struct {
	UserID             uuid.UUID          `json:"user_id"`
	ProviderCustomerID string             `json:"provider_customer_id"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	Tier               int                `json:"tier"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

type WalletType string

const (
	WalletTypeUser     WalletType = "user"
	WalletTypeTreasury WalletType = "treasury"
)

type WalletStatus string

const (
	WalletStatusActive   WalletStatus = "active"
	WalletStatusInactive WalletStatus = "inactive"
	WalletStatusFrozen   WalletStatus = "frozen"
)

type Wallet struct {
	ID               uuid.UUID    `json:"id"`
	UserID           uuid.UUID    `json:"user_id"`
	ProviderWalletID string       `json:"provider_wallet_id"`
	Type             WalletType   `json:"type"`
	Status           WalletStatus `json:"status"`
	Chain            string       `json:"chain"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Balance is derived by replaying wallet history, never by incremental
// mutation. At most one row per (wallet, currency, chain).
type Balance struct {
	WalletID  uuid.UUID       `json:"wallet_id"`
	Currency  string          `json:"currency"`
	Chain     string          `json:"chain"`
	Amount    decimal.Decimal `json:"amount"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type TransferKind string

const (
	TransferKindInternal TransferKind = "internal"
	TransferKindExternal TransferKind = "external"
	TransferKindACH      TransferKind = "ach"
)

type TransferStatus string

const (
	TransferStatusPending    TransferStatus = "pending"
	TransferStatusProcessing TransferStatus = "processing"
	TransferStatusCompleted  TransferStatus = "completed"
	TransferStatusFailed     TransferStatus = "failed"
	TransferStatusCancelled  TransferStatus = "cancelled"
)

// Terminal reports whether s admits no further transitions.
func (s TransferStatus) Terminal() bool {
	switch s {
	case TransferStatusCompleted, TransferStatusFailed, TransferStatusCancelled:
		return true
	}
	return false
}

// TransferDestination is the kind-dependent routing descriptor. Exactly the
// fields for the transfer's kind are set.
type TransferDestination struct {
	WalletID         string `json:"wallet_id,omitempty"`
	Chain            string `json:"chain,omitempty"`
	Address          string `json:"address,omitempty"`
	AccountNumber    string `json:"account_number,omitempty"`
	RoutingNumber    string `json:"routing_number,omitempty"`
	AccountOwnerName string `json:"account_owner_name,omitempty"`
}

type Transfer struct {
	ID                 uuid.UUID           `json:"id"`
	UserID             uuid.UUID           `json:"user_id"`
	ProviderTransferID string              `json:"provider_transfer_id"`
	Kind               TransferKind        `json:"kind"`
	Amount             decimal.Decimal     `json:"amount"`
	Currency           string              `json:"currency"`
	Fee                decimal.Decimal     `json:"fee"`
	Total              decimal.Decimal     `json:"total"`
	Status             TransferStatus      `json:"status"`
	Destination        TransferDestination `json:"destination"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	CompletedAt        *time.Time          `json:"completed_at,omitempty"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty"`
}

type CardType string

const (
	CardTypeVirtual  CardType = "virtual"
	CardTypePhysical CardType = "physical"
)

type CardBrand string

const (
	CardBrandVisa       CardBrand = "visa"
	CardBrandMastercard CardBrand = "mastercard"
)

type CardStatus string

const (
	CardStatusPending   CardStatus = "pending"
	CardStatusActive    CardStatus = "active"
	CardStatusFrozen    CardStatus = "frozen"
	CardStatusCancelled CardStatus = "cancelled"
	CardStatusExpired   CardStatus = "expired"
)

type Card struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	ProviderCardID   string     `json:"provider_card_id"`
	Type             CardType   `json:"type"`
	Brand            CardBrand  `json:"brand"`
	Status           CardStatus `json:"status"`
	ActivationStatus string     `json:"activation_status"`
	LastFour         string     `json:"last_four"`

	DailyLimit          decimal.Decimal `json:"daily_limit"`
	MonthlyLimit        decimal.Decimal `json:"monthly_limit"`
	PerTransactionLimit decimal.Decimal `json:"per_transaction_limit"`
	CurrentDailySpend   decimal.Decimal `json:"current_daily_spend"`
	CurrentMonthlySpend decimal.Decimal `json:"current_monthly_spend"`
	LastDailyReset      time.Time       `json:"last_daily_reset"`
	LastMonthlyReset    time.Time       `json:"last_monthly_reset"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CardTransactionStatus string

const (
	CardTxPending  CardTransactionStatus = "pending"
	CardTxApproved CardTransactionStatus = "approved"
	CardTxDeclined CardTransactionStatus = "declined"
	CardTxSettled  CardTransactionStatus = "settled"
	CardTxReversed CardTransactionStatus = "reversed"
)

// CardTransaction rows are deduplicated on ProviderTransactionID; immutable
// once settled except for SettledAt.
type CardTransaction struct {
	ID                    uuid.UUID             `json:"id"`
	CardID                uuid.UUID             `json:"card_id"`
	UserID                uuid.UUID             `json:"user_id"`
	ProviderTransactionID string                `json:"provider_transaction_id"`
	Amount                decimal.Decimal       `json:"amount"`
	Currency              string                `json:"currency"`
	MerchantName          string                `json:"merchant_name"`
	MerchantCategory      string                `json:"merchant_category"`
	Status                CardTransactionStatus `json:"status"`
	CreatedAt             time.Time             `json:"created_at"`
	SettledAt             *time.Time            `json:"settled_at,omitempty"`
}

type VirtualAccount struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	ProviderAccountID string    `json:"provider_account_id"`
	Status            string    `json:"status"`
	Currency          string    `json:"currency"`
	BankName          string    `json:"bank_name"`
	RoutingNumber     string    `json:"routing_number"`
	AccountNumber     string    `json:"account_number"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// LiquidationAddress receives crypto on (Chain, Currency) and pays out on
// (DestinationRail, DestinationCurrency).
type LiquidationAddress struct {
	ID                  uuid.UUID `json:"id"`
	UserID              uuid.UUID `json:"user_id"`
	ProviderAddressID   string    `json:"provider_address_id"`
	Address             string    `json:"address"`
	Chain               string    `json:"chain"`
	Currency            string    `json:"currency"`
	DestinationRail     string    `json:"destination_rail"`
	DestinationCurrency string    `json:"destination_currency"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
