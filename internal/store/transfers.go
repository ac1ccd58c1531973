package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/meridianpay/custodyops/internal/apperr"
	"github.com/meridianpay/custodyops/internal/models"
)

var ErrTransferNotCancellable = errors.New("only pending transfers may be cancelled")

// UpsertTransfer writes a transfer keyed by provider_transfer_id. Kind and
// created_at never change after the first write; completed_at is stamped
// only when the row first reaches completed.
func (s *Store) UpsertTransfer(ctx context.Context, t models.Transfer) error {
	dest, err := json.Marshal(t.Destination)
	if err != nil {
		return fmt.Errorf("marshal destination: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO transfers (id, user_id, provider_transfer_id, kind, amount, currency, fee, total,
			status, destination, created_at, updated_at, completed_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7::numeric, $8::numeric, $9, $10, now(), now(), $11, $12)
		ON CONFLICT (provider_transfer_id) DO UPDATE SET
			status       = EXCLUDED.status,
			fee          = EXCLUDED.fee,
			total        = EXCLUDED.total,
			updated_at   = now(),
			completed_at = COALESCE(transfers.completed_at, EXCLUDED.completed_at),
			cancelled_at = COALESCE(transfers.cancelled_at, EXCLUDED.cancelled_at)`,
		t.ID, t.UserID, t.ProviderTransferID, t.Kind,
		t.Amount.String(), t.Currency, t.Fee.String(), t.Total.String(),
		t.Status, dest, t.CompletedAt, t.CancelledAt)
	if err != nil {
		return fmt.Errorf("upsert transfer: %w", err)
	}
	return nil
}

const transferColumns = `id, user_id, provider_transfer_id, kind, amount::text, currency,
	fee::text, total::text, status, destination, created_at, updated_at, completed_at, cancelled_at`

func scanTransfer(row pgx.Row) (*models.Transfer, error) {
	var t models.Transfer
	var amount, fee, total string
	var dest []byte
	err := row.Scan(&t.ID, &t.UserID, &t.ProviderTransferID, &t.Kind, &amount, &t.Currency,
		&fee, &total, &t.Status, &dest, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt, &t.CancelledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan transfer: %w", err)
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse transfer amount: %w", err)
	}
	if t.Fee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("parse transfer fee: %w", err)
	}
	if t.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse transfer total: %w", err)
	}
	if len(dest) > 0 {
		if err := json.Unmarshal(dest, &t.Destination); err != nil {
			return nil, fmt.Errorf("decode transfer destination: %w", err)
		}
	}
	return &t, nil
}

func (s *Store) GetTransferByID(ctx context.Context, id uuid.UUID) (*models.Transfer, error) {
	return scanTransfer(s.db.QueryRow(ctx,
		"SELECT "+transferColumns+" FROM transfers WHERE id = $1", id))
}

func (s *Store) GetTransferByProviderID(ctx context.Context, providerTransferID string) (*models.Transfer, error) {
	return scanTransfer(s.db.QueryRow(ctx,
		"SELECT "+transferColumns+" FROM transfers WHERE provider_transfer_id = $1", providerTransferID))
}

// TransferFilter narrows ListTransfersByUser. Zero values mean "no filter".
type TransferFilter struct {
	Kind   models.TransferKind
	Status models.TransferStatus
	Limit  int
	Offset int
}

func (s *Store) ListTransfersByUser(ctx context.Context, userID uuid.UUID, filter TransferFilter) ([]models.Transfer, error) {
	query := "SELECT " + transferColumns + " FROM transfers WHERE user_id = $1"
	args := []any{userID}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []models.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, *t)
	}
	return transfers, rows.Err()
}

// UpdateTransferStatus applies a webhook-mapped status. completed_at is set
// exactly once, on the transition into completed.
func (s *Store) UpdateTransferStatus(ctx context.Context, providerTransferID string, status models.TransferStatus) error {
	_, err := s.db.Exec(ctx, `
		UPDATE transfers SET
			status       = $2,
			updated_at   = now(),
			completed_at = CASE WHEN $2 = 'completed' AND completed_at IS NULL THEN now() ELSE completed_at END
		WHERE provider_transfer_id = $1`,
		providerTransferID, status)
	if err != nil {
		return fmt.Errorf("update transfer status: %w", err)
	}
	return nil
}

// CancelTransfer marks a transfer cancelled if and only if it is still
// pending; the WHERE clause enforces the transition rule atomically.
func (s *Store) CancelTransfer(ctx context.Context, id, userID uuid.UUID) (*models.Transfer, error) {
	var cancelledAt time.Time
	err := s.db.QueryRow(ctx, `
		UPDATE transfers SET status = 'cancelled', cancelled_at = now(), updated_at = now()
		WHERE id = $1 AND user_id = $2 AND status = 'pending'
		RETURNING cancelled_at`, id, userID).Scan(&cancelledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the row is missing or it left pending; distinguish for the caller.
		if _, lookupErr := s.GetTransferByID(ctx, id); lookupErr != nil {
			return nil, lookupErr
		}
		return nil, ErrTransferNotCancellable
	}
	if err != nil {
		return nil, fmt.Errorf("cancel transfer: %w", err)
	}
	return s.GetTransferByID(ctx, id)
}
