package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meridianpay/custodyops/internal/apperr"
	"github.com/meridianpay/custodyops/internal/models"
)

// UpsertCustomer writes the provider-customer linkage, keyed by user_id
// (1:1). Re-applying the same payload only moves updated_at.
func (s *Store) UpsertCustomer(ctx context.Context, c models.Customer) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO customers (user_id, provider_customer_id, verification_status, tier, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (user_id) DO UPDATE SET
			provider_customer_id = EXCLUDED.provider_customer_id,
			verification_status  = EXCLUDED.verification_status,
			tier                 = EXCLUDED.tier,
			updated_at           = now()`,
		c.UserID, c.ProviderCustomerID, c.VerificationStatus, c.Tier)
	if err != nil {
		return fmt.Errorf("upsert customer: %w", err)
	}
	return nil
}

func (s *Store) GetCustomerByUserID(ctx context.Context, userID uuid.UUID) (*models.Customer, error) {
	var c models.Customer
	err := s.db.QueryRow(ctx, `
		SELECT user_id, provider_customer_id, verification_status, tier, created_at, updated_at
		FROM customers WHERE user_id = $1`, userID).
		Scan(&c.UserID, &c.ProviderCustomerID, &c.VerificationStatus, &c.Tier, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

func (s *Store) GetCustomerByProviderID(ctx context.Context, providerCustomerID string) (*models.Customer, error) {
	var c models.Customer
	err := s.db.QueryRow(ctx, `
		SELECT user_id, provider_customer_id, verification_status, tier, created_at, updated_at
		FROM customers WHERE provider_customer_id = $1`, providerCustomerID).
		Scan(&c.UserID, &c.ProviderCustomerID, &c.VerificationStatus, &c.Tier, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer by provider id: %w", err)
	}
	return &c, nil
}
