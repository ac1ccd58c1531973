package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/meridianpay/custodyops/internal/apperr"
	"github.com/meridianpay/custodyops/internal/models"
)

func (s *Store) UpsertWallet(ctx context.Context, w models.Wallet) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO wallets (id, user_id, provider_wallet_id, type, status, chain, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (provider_wallet_id) DO UPDATE SET
			status     = EXCLUDED.status,
			chain      = EXCLUDED.chain,
			updated_at = now()`,
		w.ID, w.UserID, w.ProviderWalletID, w.Type, w.Status, w.Chain)
	if err != nil {
		return fmt.Errorf("upsert wallet: %w", err)
	}
	return nil
}

const walletColumns = "id, user_id, provider_wallet_id, type, status, chain, created_at, updated_at"

func scanWallet(row pgx.Row) (*models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.ProviderWalletID, &w.Type, &w.Status, &w.Chain, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return &w, nil
}

func (s *Store) GetWalletByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	return scanWallet(s.db.QueryRow(ctx,
		"SELECT "+walletColumns+" FROM wallets WHERE id = $1", id))
}

func (s *Store) GetWalletByProviderID(ctx context.Context, providerWalletID string) (*models.Wallet, error) {
	return scanWallet(s.db.QueryRow(ctx,
		"SELECT "+walletColumns+" FROM wallets WHERE provider_wallet_id = $1", providerWalletID))
}

func (s *Store) ListWalletsByUser(ctx context.Context, userID uuid.UUID) ([]models.Wallet, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+walletColumns+" FROM wallets WHERE user_id = $1 ORDER BY created_at", userID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []models.Wallet
	for rows.Next() {
		var w models.Wallet
		if err := rows.Scan(&w.ID, &w.UserID, &w.ProviderWalletID, &w.Type, &w.Status, &w.Chain, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet row: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// ReplaceBalances swaps a wallet's balance rows for a freshly recomputed set
// in one transaction, preserving the unique (wallet_id, currency, chain)
// constraint. Safe to re-run: the end state depends only on totals.
func (s *Store) ReplaceBalances(ctx context.Context, walletID uuid.UUID, totals map[models.BalanceKey]decimal.Decimal) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM balances WHERE wallet_id = $1", walletID); err != nil {
		return fmt.Errorf("clear balances: %w", err)
	}
	for key, amount := range totals {
		if amount.IsNegative() {
			// The provider is authoritative; a negative replay total means the
			// fetched history window was incomplete. Clamp rather than store
			// an impossible balance.
			amount = decimal.Zero
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO balances (wallet_id, currency, chain, amount, updated_at)
			VALUES ($1, $2, $3, $4::numeric, now())`,
			walletID, key.Currency, key.Chain, amount.String())
		if err != nil {
			return fmt.Errorf("insert balance: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

func (s *Store) ListBalances(ctx context.Context, walletID uuid.UUID) ([]models.Balance, error) {
	rows, err := s.db.Query(ctx, `
		SELECT wallet_id, currency, chain, amount::text, updated_at
		FROM balances WHERE wallet_id = $1 ORDER BY currency, chain`, walletID)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	var balances []models.Balance
	for rows.Next() {
		var b models.Balance
		var amount string
		if err := rows.Scan(&b.WalletID, &b.Currency, &b.Chain, &amount, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan balance row: %w", err)
		}
		b.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse balance amount: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}
