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

func (s *Store) UpsertVirtualAccount(ctx context.Context, v models.VirtualAccount) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO virtual_accounts (id, user_id, provider_account_id, status, currency,
			bank_name, routing_number, account_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (provider_account_id) DO UPDATE SET
			status     = EXCLUDED.status,
			bank_name  = EXCLUDED.bank_name,
			updated_at = now()`,
		v.ID, v.UserID, v.ProviderAccountID, v.Status, v.Currency,
		v.BankName, v.RoutingNumber, v.AccountNumber)
	if err != nil {
		return fmt.Errorf("upsert virtual account: %w", err)
	}
	return nil
}

func (s *Store) GetVirtualAccountByProviderID(ctx context.Context, providerAccountID string) (*models.VirtualAccount, error) {
	var v models.VirtualAccount
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, provider_account_id, status, currency, bank_name, routing_number, account_number, created_at, updated_at
		FROM virtual_accounts WHERE provider_account_id = $1`, providerAccountID).
		Scan(&v.ID, &v.UserID, &v.ProviderAccountID, &v.Status, &v.Currency,
			&v.BankName, &v.RoutingNumber, &v.AccountNumber, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get virtual account: %w", err)
	}
	return &v, nil
}

func (s *Store) ListVirtualAccountsByUser(ctx context.Context, userID uuid.UUID) ([]models.VirtualAccount, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, provider_account_id, status, currency, bank_name, routing_number, account_number, created_at, updated_at
		FROM virtual_accounts WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list virtual accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.VirtualAccount
	for rows.Next() {
		var v models.VirtualAccount
		if err := rows.Scan(&v.ID, &v.UserID, &v.ProviderAccountID, &v.Status, &v.Currency,
			&v.BankName, &v.RoutingNumber, &v.AccountNumber, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan virtual account: %w", err)
		}
		accounts = append(accounts, v)
	}
	return accounts, rows.Err()
}

func (s *Store) UpsertLiquidationAddress(ctx context.Context, l models.LiquidationAddress) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO liquidation_addresses (id, user_id, provider_address_id, address, chain, currency,
			destination_rail, destination_currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (provider_address_id) DO UPDATE SET
			status     = EXCLUDED.status,
			updated_at = now()`,
		l.ID, l.UserID, l.ProviderAddressID, l.Address, l.Chain, l.Currency,
		l.DestinationRail, l.DestinationCurrency, l.Status)
	if err != nil {
		return fmt.Errorf("upsert liquidation address: %w", err)
	}
	return nil
}

func (s *Store) GetLiquidationAddressByProviderID(ctx context.Context, providerAddressID string) (*models.LiquidationAddress, error) {
	var l models.LiquidationAddress
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, provider_address_id, address, chain, currency, destination_rail, destination_currency, status, created_at, updated_at
		FROM liquidation_addresses WHERE provider_address_id = $1`, providerAddressID).
		Scan(&l.ID, &l.UserID, &l.ProviderAddressID, &l.Address, &l.Chain, &l.Currency,
			&l.DestinationRail, &l.DestinationCurrency, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get liquidation address: %w", err)
	}
	return &l, nil
}

func (s *Store) ListLiquidationAddressesByUser(ctx context.Context, userID uuid.UUID) ([]models.LiquidationAddress, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, provider_address_id, address, chain, currency, destination_rail, destination_currency, status, created_at, updated_at
		FROM liquidation_addresses WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list liquidation addresses: %w", err)
	}
	defer rows.Close()

	var addresses []models.LiquidationAddress
	for rows.Next() {
		var l models.LiquidationAddress
		if err := rows.Scan(&l.ID, &l.UserID, &l.ProviderAddressID, &l.Address, &l.Chain, &l.Currency,
			&l.DestinationRail, &l.DestinationCurrency, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan liquidation address: %w", err)
		}
		addresses = append(addresses, l)
	}
	return addresses, rows.Err()
}
