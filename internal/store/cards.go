package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/meridianpay/custodyops/internal/apperr"
	"github.com/meridianpay/custodyops/internal/models"
)

func (s *Store) UpsertCard(ctx context.Context, c models.Card) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO cards (id, user_id, provider_card_id, type, brand, status, activation_status, last_four,
			daily_limit, monthly_limit, per_transaction_limit,
			current_daily_spend, current_monthly_spend, last_daily_reset, last_monthly_reset,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10::numeric, $11::numeric,
			$12::numeric, $13::numeric, $14, $15, now(), now())
		ON CONFLICT (provider_card_id) DO UPDATE SET
			status            = EXCLUDED.status,
			activation_status = EXCLUDED.activation_status,
			last_four         = EXCLUDED.last_four,
			updated_at        = now()`,
		c.ID, c.UserID, c.ProviderCardID, c.Type, c.Brand, c.Status, c.ActivationStatus, c.LastFour,
		c.DailyLimit.String(), c.MonthlyLimit.String(), c.PerTransactionLimit.String(),
		c.CurrentDailySpend.String(), c.CurrentMonthlySpend.String(), c.LastDailyReset, c.LastMonthlyReset)
	if err != nil {
		return fmt.Errorf("upsert card: %w", err)
	}
	return nil
}

const cardColumns = `id, user_id, provider_card_id, type, brand, status, activation_status, last_four,
	daily_limit::text, monthly_limit::text, per_transaction_limit::text,
	current_daily_spend::text, current_monthly_spend::text, last_daily_reset, last_monthly_reset,
	created_at, updated_at`

func scanCard(row pgx.Row) (*models.Card, error) {
	var c models.Card
	var daily, monthly, perTx, dailySpend, monthlySpend string
	err := row.Scan(&c.ID, &c.UserID, &c.ProviderCardID, &c.Type, &c.Brand, &c.Status,
		&c.ActivationStatus, &c.LastFour, &daily, &monthly, &perTx, &dailySpend, &monthlySpend,
		&c.LastDailyReset, &c.LastMonthlyReset, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan card: %w", err)
	}
	for _, pair := range []struct {
		src string
		dst *decimal.Decimal
	}{
		{daily, &c.DailyLimit}, {monthly, &c.MonthlyLimit}, {perTx, &c.PerTransactionLimit},
		{dailySpend, &c.CurrentDailySpend}, {monthlySpend, &c.CurrentMonthlySpend},
	} {
		if *pair.dst, err = decimal.NewFromString(pair.src); err != nil {
			return nil, fmt.Errorf("parse card amount: %w", err)
		}
	}
	return &c, nil
}

func (s *Store) GetCardByID(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	return scanCard(s.db.QueryRow(ctx, "SELECT "+cardColumns+" FROM cards WHERE id = $1", id))
}

func (s *Store) GetCardByProviderID(ctx context.Context, providerCardID string) (*models.Card, error) {
	return scanCard(s.db.QueryRow(ctx, "SELECT "+cardColumns+" FROM cards WHERE provider_card_id = $1", providerCardID))
}

func (s *Store) ListCardsByUser(ctx context.Context, userID uuid.UUID) ([]models.Card, error) {
	rows, err := s.db.Query(ctx, "SELECT "+cardColumns+" FROM cards WHERE user_id = $1 ORDER BY created_at", userID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *c)
	}
	return cards, rows.Err()
}

func (s *Store) UpdateCardStatus(ctx context.Context, providerCardID string, status models.CardStatus) error {
	_, err := s.db.Exec(ctx,
		"UPDATE cards SET status = $2, updated_at = now() WHERE provider_card_id = $1",
		providerCardID, status)
	if err != nil {
		return fmt.Errorf("update card status: %w", err)
	}
	return nil
}

func (s *Store) UpdateCardLimits(ctx context.Context, id uuid.UUID, daily, monthly, perTx decimal.Decimal) error {
	_, err := s.db.Exec(ctx, `
		UPDATE cards SET daily_limit = $2::numeric, monthly_limit = $3::numeric,
			per_transaction_limit = $4::numeric, updated_at = now()
		WHERE id = $1`,
		id, daily.String(), monthly.String(), perTx.String())
	if err != nil {
		return fmt.Errorf("update card limits: %w", err)
	}
	return nil
}

// UpdateCardSpend persists recomputed running counters and their reset stamps.
func (s *Store) UpdateCardSpend(ctx context.Context, id uuid.UUID, dailySpend, monthlySpend decimal.Decimal, dailyReset, monthlyReset time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE cards SET current_daily_spend = $2::numeric, current_monthly_spend = $3::numeric,
			last_daily_reset = $4, last_monthly_reset = $5, updated_at = now()
		WHERE id = $1`,
		id, dailySpend.String(), monthlySpend.String(), dailyReset, monthlyReset)
	if err != nil {
		return fmt.Errorf("update card spend: %w", err)
	}
	return nil
}

// UpsertCardTransaction inserts a card transaction deduplicated on the
// provider transaction ID. The returned flag reports whether a new row was
// created, letting webhook handlers skip side effects on redelivery.
func (s *Store) UpsertCardTransaction(ctx context.Context, t models.CardTransaction) (bool, error) {
	var inserted bool
	err := s.db.QueryRow(ctx, `
		INSERT INTO card_transactions (id, card_id, user_id, provider_transaction_id, amount, currency,
			merchant_name, merchant_category, status, created_at, settled_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, now(), $10)
		ON CONFLICT (provider_transaction_id) DO UPDATE SET
			status     = CASE WHEN card_transactions.status = 'settled' THEN card_transactions.status ELSE EXCLUDED.status END,
			settled_at = COALESCE(card_transactions.settled_at, EXCLUDED.settled_at)
		RETURNING (xmax = 0)`,
		t.ID, t.CardID, t.UserID, t.ProviderTransactionID, t.Amount.String(), t.Currency,
		t.MerchantName, t.MerchantCategory, t.Status, t.SettledAt).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert card transaction: %w", err)
	}
	return inserted, nil
}

func (s *Store) ListCardTransactions(ctx context.Context, cardID uuid.UUID, limit int) ([]models.CardTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, card_id, user_id, provider_transaction_id, amount::text, currency,
			merchant_name, merchant_category, status, created_at, settled_at
		FROM card_transactions WHERE card_id = $1 ORDER BY created_at DESC LIMIT $2`, cardID, limit)
	if err != nil {
		return nil, fmt.Errorf("list card transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.CardTransaction
	for rows.Next() {
		var t models.CardTransaction
		var amount string
		if err := rows.Scan(&t.ID, &t.CardID, &t.UserID, &t.ProviderTransactionID, &amount, &t.Currency,
			&t.MerchantName, &t.MerchantCategory, &t.Status, &t.CreatedAt, &t.SettledAt); err != nil {
			return nil, fmt.Errorf("scan card transaction: %w", err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse card transaction amount: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
