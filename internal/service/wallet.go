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

type WalletService struct {
	mirror Mirror
	client ProviderAPI
	logger *zap.Logger
}

func NewWalletService(mirror Mirror, client ProviderAPI, logger *zap.Logger) *WalletService {
	return &WalletService{mirror: mirror, client: client, logger: logger}
}

func (s *WalletService) Create(ctx context.Context, userID uuid.UUID, chain string) (*models.Wallet, error) {
	if chain == "" {
		return nil, apperr.Input("chain", "chain is required")
	}
	customer, err := requireCustomer(ctx, s.mirror, userID)
	if err != nil {
		return nil, err
	}

	pw, err := s.client.CreateWallet(ctx, customer.ProviderCustomerID, provider.CreateWalletRequest{Chain: chain},
		provider.WithIdempotencyKey(fmt.Sprintf("wallet-create-%s-%s", userID, chain)))
	if err != nil {
		return nil, err
	}
	return s.SyncToMirror(ctx, *pw, userID)
}

// SyncToMirror upserts a provider wallet, keyed by its provider ID.
func (s *WalletService) SyncToMirror(ctx context.Context, pw models.ProviderWallet, userID uuid.UUID) (*models.Wallet, error) {
	w := models.Wallet{
		ID:               uuid.New(),
		UserID:           userID,
		ProviderWalletID: pw.ID,
		Type:             models.WalletTypeUser,
		Status:           mapWalletStatus(pw.Status),
		Chain:            pw.Chain,
	}
	if err := s.mirror.UpsertWallet(ctx, w); err != nil {
		return nil, fmt.Errorf("mirror wallet: %w", err)
	}
	// Re-read: on a conflict the existing row id and created_at win.
	return s.mirror.GetWalletByProviderID(ctx, pw.ID)
}

func mapWalletStatus(status string) models.WalletStatus {
	switch status {
	case "active", "":
		return models.WalletStatusActive
	case "frozen":
		return models.WalletStatusFrozen
	default:
		return models.WalletStatusInactive
	}
}

func (s *WalletService) Get(ctx context.Context, userID, walletID uuid.UUID) (*models.Wallet, error) {
	w, err := s.mirror.GetWalletByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if w.UserID != userID {
		return nil, apperr.ErrNotFound
	}
	return w, nil
}

func (s *WalletService) List(ctx context.Context, userID uuid.UUID) ([]models.Wallet, error) {
	return s.mirror.ListWalletsByUser(ctx, userID)
}

func (s *WalletService) Balances(ctx context.Context, userID, walletID uuid.UUID) ([]models.Balance, error) {
	if _, err := s.Get(ctx, userID, walletID); err != nil {
		return nil, err
	}
	return s.mirror.ListBalances(ctx, walletID)
}

// RefreshBalances rebuilds the wallet's balance rows from the provider's
// transaction history. Full recomputation, so concurrent or repeated
// refreshes converge on the same totals.
func (s *WalletService) RefreshBalances(ctx context.Context, walletID uuid.UUID) error {
	w, err := s.mirror.GetWalletByID(ctx, walletID)
	if err != nil {
		return err
	}
	customer, err := s.mirror.GetCustomerByUserID(ctx, w.UserID)
	if err != nil {
		return err
	}

	history, err := s.client.WalletHistory(ctx, customer.ProviderCustomerID, w.ProviderWalletID)
	if err != nil {
		return err
	}

	totals := models.RecomputeBalances(history, w.ProviderWalletID)
	if err := s.mirror.ReplaceBalances(ctx, walletID, totals); err != nil {
		return err
	}
	s.logger.Debug("balances refreshed",
		zap.String("wallet_id", walletID.String()),
		zap.Int("buckets", len(totals)))
	return nil
}

// ResolveByProviderID finds the mirror wallet for a provider wallet ID; used
// by the webhook pipeline.
func (s *WalletService) ResolveByProviderID(ctx context.Context, providerWalletID string) (*models.Wallet, error) {
	return s.mirror.GetWalletByProviderID(ctx, providerWalletID)
}
