// Package service owns one external resource type per service: each calls
// the ledger provider through the injected client, translates provider
// payloads into the mirror schema, and triggers notifications.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridianpay/custodyops/internal/apperr"
	"github.com/meridianpay/custodyops/internal/cardgateway"
	"github.com/meridianpay/custodyops/internal/models"
	"github.com/meridianpay/custodyops/internal/provider"
	"github.com/meridianpay/custodyops/internal/store"
)

// ProviderAPI is the slice of the ledger-provider client the services
// consume. *provider.Client satisfies it; tests substitute doubles.
type ProviderAPI interface {
	CreateCustomer(ctx context.Context, req provider.CreateCustomerRequest, opts ...provider.CallOption) (*models.ProviderCustomer, error)
	GetCustomer(ctx context.Context, customerID string) (*models.ProviderCustomer, error)
	CreateKYCLink(ctx context.Context, req provider.CreateKYCLinkRequest, opts ...provider.CallOption) (*models.ProviderKYCLink, error)
	CreateWallet(ctx context.Context, customerID string, req provider.CreateWalletRequest, opts ...provider.CallOption) (*models.ProviderWallet, error)
	ListWallets(ctx context.Context, customerID string) ([]models.ProviderWallet, error)
	WalletHistory(ctx context.Context, customerID, walletID string) ([]models.ProviderWalletTransaction, error)
	CreateTransfer(ctx context.Context, req provider.CreateTransferRequest, opts ...provider.CallOption) (*models.ProviderTransfer, error)
	GetTransfer(ctx context.Context, transferID string) (*models.ProviderTransfer, error)
	CreateExternalAccount(ctx context.Context, customerID string, req provider.CreateExternalAccountRequest, opts ...provider.CallOption) (*provider.ProviderExternalAccount, error)
	CreateVirtualAccount(ctx context.Context, customerID string, req provider.CreateVirtualAccountRequest, opts ...provider.CallOption) (*models.ProviderVirtualAccount, error)
	CreateLiquidationAddress(ctx context.Context, customerID string, req provider.CreateLiquidationAddressRequest, opts ...provider.CallOption) (*models.ProviderLiquidationAddress, error)
	LiquidationAddressDrains(ctx context.Context, customerID, addressID string) ([]models.ProviderDrain, error)
}

// CardGatewayAPI is the card-gateway surface consumed by CardService.
type CardGatewayAPI interface {
	CreateCard(ctx context.Context, req cardgateway.CreateCardRequest) (*models.ProviderCard, error)
	GetCard(ctx context.Context, cardID string) (*models.ProviderCard, error)
	SetCardStatus(ctx context.Context, cardID, status string) (*models.ProviderCard, error)
}

// Mirror is the persisted-store surface consumed across services. The
// concrete *store.Store implements it; webhook and service tests use an
// in-memory fake.
type Mirror interface {
	UpsertCustomer(ctx context.Context, c models.Customer) error
	GetCustomerByUserID(ctx context.Context, userID uuid.UUID) (*models.Customer, error)
	GetCustomerByProviderID(ctx context.Context, providerCustomerID string) (*models.Customer, error)

	UpsertWallet(ctx context.Context, w models.Wallet) error
	GetWalletByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	GetWalletByProviderID(ctx context.Context, providerWalletID string) (*models.Wallet, error)
	ListWalletsByUser(ctx context.Context, userID uuid.UUID) ([]models.Wallet, error)
	ReplaceBalances(ctx context.Context, walletID uuid.UUID, totals map[models.BalanceKey]decimal.Decimal) error
	ListBalances(ctx context.Context, walletID uuid.UUID) ([]models.Balance, error)

	UpsertTransfer(ctx context.Context, t models.Transfer) error
	GetTransferByID(ctx context.Context, id uuid.UUID) (*models.Transfer, error)
	GetTransferByProviderID(ctx context.Context, providerTransferID string) (*models.Transfer, error)
	ListTransfersByUser(ctx context.Context, userID uuid.UUID, filter store.TransferFilter) ([]models.Transfer, error)
	UpdateTransferStatus(ctx context.Context, providerTransferID string, status models.TransferStatus) error
	CancelTransfer(ctx context.Context, id, userID uuid.UUID) (*models.Transfer, error)

	UpsertCard(ctx context.Context, c models.Card) error
	GetCardByID(ctx context.Context, id uuid.UUID) (*models.Card, error)
	GetCardByProviderID(ctx context.Context, providerCardID string) (*models.Card, error)
	ListCardsByUser(ctx context.Context, userID uuid.UUID) ([]models.Card, error)
	UpdateCardStatus(ctx context.Context, providerCardID string, status models.CardStatus) error
	UpdateCardLimits(ctx context.Context, id uuid.UUID, daily, monthly, perTx decimal.Decimal) error
	UpdateCardSpend(ctx context.Context, id uuid.UUID, dailySpend, monthlySpend decimal.Decimal, dailyReset, monthlyReset time.Time) error
	UpsertCardTransaction(ctx context.Context, t models.CardTransaction) (bool, error)
	ListCardTransactions(ctx context.Context, cardID uuid.UUID, limit int) ([]models.CardTransaction, error)

	UpsertVirtualAccount(ctx context.Context, v models.VirtualAccount) error
	GetVirtualAccountByProviderID(ctx context.Context, providerAccountID string) (*models.VirtualAccount, error)
	ListVirtualAccountsByUser(ctx context.Context, userID uuid.UUID) ([]models.VirtualAccount, error)

	UpsertLiquidationAddress(ctx context.Context, l models.LiquidationAddress) error
	GetLiquidationAddressByProviderID(ctx context.Context, providerAddressID string) (*models.LiquidationAddress, error)
	ListLiquidationAddressesByUser(ctx context.Context, userID uuid.UUID) ([]models.LiquidationAddress, error)

	InsertNotification(ctx context.Context, n models.Notification) error
	ListNotificationsByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error
	GetPreference(ctx context.Context, userID uuid.UUID) (models.NotificationPreference, error)
	UpsertPreference(ctx context.Context, p models.NotificationPreference) error

	InsertAuditEntry(ctx context.Context, e models.AuditLogEntry) error
}

var _ Mirror = (*store.Store)(nil)

// requireCustomer resolves the calling user's provider-customer linkage.
// KYC customer creation belongs to CustomerService alone, so an absent
// linkage is a precondition failure, never an implicit create.
func requireCustomer(ctx context.Context, mirror Mirror, userID uuid.UUID) (*models.Customer, error) {
	customer, err := mirror.GetCustomerByUserID(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Precondition("must complete KYC first")
	}
	if err != nil {
		return nil, err
	}
	return customer, nil
}
