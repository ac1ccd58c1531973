package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meridianpay/custodyops/internal/apperr"
	"github.com/meridianpay/custodyops/internal/models"
	"github.com/meridianpay/custodyops/internal/provider"
)

// VirtualAccountService manages fiat receiving endpoints.
type VirtualAccountService struct {
	mirror Mirror
	client ProviderAPI
	logger *zap.Logger
}

func NewVirtualAccountService(mirror Mirror, client ProviderAPI, logger *zap.Logger) *VirtualAccountService {
	return &VirtualAccountService{mirror: mirror, client: client, logger: logger}
}

func (s *VirtualAccountService) Create(ctx context.Context, userID uuid.UUID, currency, destinationWalletID string) (*models.VirtualAccount, error) {
	if currency == "" {
		return nil, apperr.Input("currency", "currency is required")
	}
	customer, err := requireCustomer(ctx, s.mirror, userID)
	if err != nil {
		return nil, err
	}

	pv, err := s.client.CreateVirtualAccount(ctx, customer.ProviderCustomerID, provider.CreateVirtualAccountRequest{
		SourceCurrency:      currency,
		DestinationCurrency: "usdc",
		DestinationWalletID: destinationWalletID,
	}, provider.WithIdempotencyKey(fmt.Sprintf("virtual-account-%s-%s", userID, currency)))
	if err != nil {
		return nil, err
	}
	return s.SyncToMirror(ctx, *pv, userID)
}

func (s *VirtualAccountService) SyncToMirror(ctx context.Context, pv models.ProviderVirtualAccount, userID uuid.UUID) (*models.VirtualAccount, error) {
	v := models.VirtualAccount{
		ID:                uuid.New(),
		UserID:            userID,
		ProviderAccountID: pv.ID,
		Status:            pv.Status,
		Currency:          pv.Currency,
		BankName:          pv.BankName,
		RoutingNumber:     pv.RoutingNumber,
		AccountNumber:     pv.AccountNumber,
	}
	if err := s.mirror.UpsertVirtualAccount(ctx, v); err != nil {
		return nil, fmt.Errorf("mirror virtual account: %w", err)
	}
	return s.mirror.GetVirtualAccountByProviderID(ctx, pv.ID)
}

func (s *VirtualAccountService) List(ctx context.Context, userID uuid.UUID) ([]models.VirtualAccount, error) {
	return s.mirror.ListVirtualAccountsByUser(ctx, userID)
}

func (s *VirtualAccountService) ResolveByProviderID(ctx context.Context, providerAccountID string) (*models.VirtualAccount, error) {
	return s.mirror.GetVirtualAccountByProviderID(ctx, providerAccountID)
}

// LiquidationAddressService manages crypto receiving endpoints that
// auto-convert incoming funds to fiat.
type LiquidationAddressService struct {
	mirror Mirror
	client ProviderAPI
	logger *zap.Logger
}

func NewLiquidationAddressService(mirror Mirror, client ProviderAPI, logger *zap.Logger) *LiquidationAddressService {
	return &LiquidationAddressService{mirror: mirror, client: client, logger: logger}
}

type CreateLiquidationAddressInput struct {
	Chain               string
	Currency            string
	DestinationRail     string
	DestinationCurrency string
	ExternalAccountID   string
}

func (s *LiquidationAddressService) Create(ctx context.Context, userID uuid.UUID, in CreateLiquidationAddressInput) (*models.LiquidationAddress, error) {
	if in.Chain == "" || in.Currency == "" {
		return nil, apperr.Input("source", "chain and currency are required")
	}
	if in.DestinationRail == "" || in.DestinationCurrency == "" {
		return nil, apperr.Input("destination", "destination rail and currency are required")
	}
	customer, err := requireCustomer(ctx, s.mirror, userID)
	if err != nil {
		return nil, err
	}

	pl, err := s.client.CreateLiquidationAddress(ctx, customer.ProviderCustomerID, provider.CreateLiquidationAddressRequest{
		Chain:               in.Chain,
		Currency:            in.Currency,
		DestinationRail:     in.DestinationRail,
		DestinationCurrency: in.DestinationCurrency,
		ExternalAccountID:   in.ExternalAccountID,
	}, provider.WithIdempotencyKey(fmt.Sprintf("liquidation-%s-%s-%s", userID, in.Chain, in.Currency)))
	if err != nil {
		return nil, err
	}
	return s.SyncToMirror(ctx, *pl, userID)
}

func (s *LiquidationAddressService) SyncToMirror(ctx context.Context, pl models.ProviderLiquidationAddress, userID uuid.UUID) (*models.LiquidationAddress, error) {
	l := models.LiquidationAddress{
		ID:                  uuid.New(),
		UserID:              userID,
		ProviderAddressID:   pl.ID,
		Address:             pl.Address,
		Chain:               pl.Chain,
		Currency:            pl.Currency,
		DestinationRail:     pl.DestinationRail,
		DestinationCurrency: pl.DestinationCurrency,
		Status:              pl.State,
	}
	if err := s.mirror.UpsertLiquidationAddress(ctx, l); err != nil {
		return nil, fmt.Errorf("mirror liquidation address: %w", err)
	}
	return s.mirror.GetLiquidationAddressByProviderID(ctx, pl.ID)
}

func (s *LiquidationAddressService) List(ctx context.Context, userID uuid.UUID) ([]models.LiquidationAddress, error) {
	return s.mirror.ListLiquidationAddressesByUser(ctx, userID)
}

// Drains lists payout events for one of the user's liquidation addresses.
// Drains are read straight from the provider and never mirrored; they are a
// point-in-time view of conversions already settled upstream.
func (s *LiquidationAddressService) Drains(ctx context.Context, userID, addressID uuid.UUID) ([]models.ProviderDrain, error) {
	customer, err := requireCustomer(ctx, s.mirror, userID)
	if err != nil {
		return nil, err
	}
	addresses, err := s.mirror.ListLiquidationAddressesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, a := range addresses {
		if a.ID == addressID {
			return s.client.LiquidationAddressDrains(ctx, customer.ProviderCustomerID, a.ProviderAddressID)
		}
	}
	return nil, apperr.ErrNotFound
}
