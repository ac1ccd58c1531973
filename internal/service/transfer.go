package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/meridianpay/custodyops/internal/apperr"
	"github.com/meridianpay/custodyops/internal/models"
	"github.com/meridianpay/custodyops/internal/provider"
	"github.com/meridianpay/custodyops/internal/store"
)

type TransferService struct {
	mirror   Mirror
	client   ProviderAPI
	notifier *Notifier
	logger   *zap.Logger
}

func NewTransferService(mirror Mirror, client ProviderAPI, notifier *Notifier, logger *zap.Logger) *TransferService {
	return &TransferService{mirror: mirror, client: client, notifier: notifier, logger: logger}
}

type CreateTransferInput struct {
	Kind           models.TransferKind
	Amount         decimal.Decimal
	Currency       string
	SourceWalletID uuid.UUID
	Destination    models.TransferDestination
	IdempotencyKey string
}

// validate enforces the kind-dependent destination shape. Violations are
// caller errors, surfaced before the provider is contacted.
func (in CreateTransferInput) validate() error {
	if !in.Amount.IsPositive() {
		return apperr.Input("amount", "amount must be positive")
	}
	if in.Currency == "" {
		return apperr.Input("currency", "currency is required")
	}
	switch in.Kind {
	case models.TransferKindInternal:
		if in.Destination.WalletID == "" {
			return apperr.Input("destination.wallet_id", "internal transfers require a destination wallet")
		}
	case models.TransferKindExternal:
		if in.Destination.Chain == "" || in.Destination.Address == "" {
			return apperr.Input("destination", "external transfers require a destination chain and address")
		}
	case models.TransferKindACH:
		if in.Destination.AccountNumber == "" || in.Destination.RoutingNumber == "" || in.Destination.AccountOwnerName == "" {
			return apperr.Input("destination", "ach transfers require account number, routing number, and account owner name")
		}
	default:
		return apperr.Input("kind", "kind must be internal, external, or ach")
	}
	return nil
}

func (s *TransferService) Create(ctx context.Context, userID uuid.UUID, in CreateTransferInput) (*models.Transfer, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	customer, err := requireCustomer(ctx, s.mirror, userID)
	if err != nil {
		return nil, err
	}

	sourceWallet, err := s.mirror.GetWalletByID(ctx, in.SourceWalletID)
	if err != nil {
		return nil, err
	}
	if sourceWallet.UserID != userID {
		return nil, apperr.ErrNotFound
	}

	req := provider.CreateTransferRequest{
		Amount:     in.Amount,
		OnBehalfOf: customer.ProviderCustomerID,
		Source: provider.TransferEndpoint{
			WalletID: sourceWallet.ProviderWalletID,
			Currency: in.Currency,
		},
	}
	switch in.Kind {
	case models.TransferKindInternal:
		req.Destination = provider.TransferEndpoint{
			WalletID: in.Destination.WalletID,
			Currency: in.Currency,
		}
	case models.TransferKindExternal:
		req.Destination = provider.TransferEndpoint{
			PaymentRail: in.Destination.Chain,
			Currency:    in.Currency,
			ToAddress:   in.Destination.Address,
		}
	case models.TransferKindACH:
		// ACH destinations are registered as external accounts, then
		// referenced by ID on the transfer itself.
		account, err := s.client.CreateExternalAccount(ctx, customer.ProviderCustomerID, provider.CreateExternalAccountRequest{
			Currency:         in.Currency,
			AccountOwnerName: in.Destination.AccountOwnerName,
			AccountNumber:    in.Destination.AccountNumber,
			RoutingNumber:    in.Destination.RoutingNumber,
		})
		if err != nil {
			return nil, err
		}
		req.Destination = provider.TransferEndpoint{
			PaymentRail:       "ach",
			Currency:          in.Currency,
			ExternalAccountID: account.ID,
		}
	}

	var opts []provider.CallOption
	if in.IdempotencyKey != "" {
		opts = append(opts, provider.WithIdempotencyKey(in.IdempotencyKey))
	}
	pt, err := s.client.CreateTransfer(ctx, req, opts...)
	if err != nil {
		return nil, err
	}

	transfer := models.Transfer{
		ID:                 uuid.New(),
		UserID:             userID,
		ProviderTransferID: pt.ID,
		Kind:               in.Kind,
		Amount:             pt.Amount,
		Currency:           in.Currency,
		Fee:                pt.DeveloperFee,
		Total:              pt.Amount.Add(pt.DeveloperFee),
		Status:             models.MapTransferStatus(pt.State),
		Destination:        in.Destination,
	}
	if err := s.mirror.UpsertTransfer(ctx, transfer); err != nil {
		return nil, fmt.Errorf("mirror transfer: %w", err)
	}

	s.notifier.Notify(ctx, NotificationInput{
		UserID:   userID,
		Type:     "transfer_created",
		Category: models.CategoryTransfer,
		Priority: models.PriorityNormal,
		Title:    "Transfer initiated",
		Body:     fmt.Sprintf("Your %s transfer of %s %s is on its way.", transfer.Kind, transfer.Amount, transfer.Currency),
	})
	return s.mirror.GetTransferByProviderID(ctx, pt.ID)
}

func (s *TransferService) Get(ctx context.Context, userID, transferID uuid.UUID) (*models.Transfer, error) {
	t, err := s.mirror.GetTransferByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, apperr.ErrNotFound
	}
	return t, nil
}

// FindByProviderID looks a transfer up by the provider's unique ID,
// regardless of owner. Used by the webhook pipeline for redelivery checks.
func (s *TransferService) FindByProviderID(ctx context.Context, providerTransferID string) (*models.Transfer, error) {
	return s.mirror.GetTransferByProviderID(ctx, providerTransferID)
}

func (s *TransferService) List(ctx context.Context, userID uuid.UUID, filter store.TransferFilter) ([]models.Transfer, error) {
	return s.mirror.ListTransfersByUser(ctx, userID, filter)
}

// Cancel marks a pending transfer cancelled locally. This does not guarantee
// the provider will also cancel it; funds already in flight stay in flight.
func (s *TransferService) Cancel(ctx context.Context, userID, transferID uuid.UUID) (*models.Transfer, error) {
	t, err := s.mirror.CancelTransfer(ctx, transferID, userID)
	if errors.Is(err, store.ErrTransferNotCancellable) {
		return nil, apperr.Precondition("only pending transfers can be cancelled")
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// SyncStatus applies a provider transfer state to the mirror row, stamping
// completed_at only on the transition into completed. Emits at most one
// notification per actual status change.
func (s *TransferService) SyncStatus(ctx context.Context, providerTransferID, providerState string) (*models.Transfer, error) {
	local, err := s.mirror.GetTransferByProviderID(ctx, providerTransferID)
	if err != nil {
		return nil, err
	}

	status := models.MapTransferStatus(providerState)
	if status == local.Status {
		return local, nil
	}
	if local.Status.Terminal() {
		// The mirror already reached a terminal state; a late or out-of-order
		// delivery must not resurrect the transfer.
		s.logger.Warn("ignoring status regression",
			zap.String("provider_transfer_id", providerTransferID),
			zap.String("current", string(local.Status)),
			zap.String("incoming", string(status)))
		return local, nil
	}

	if err := s.mirror.UpdateTransferStatus(ctx, providerTransferID, status); err != nil {
		return nil, err
	}

	switch status {
	case models.TransferStatusCompleted:
		s.notifier.Notify(ctx, NotificationInput{
			UserID:   local.UserID,
			Type:     "transfer_completed",
			Category: models.CategoryTransfer,
			Priority: models.PriorityNormal,
			Title:    "Transfer completed",
			Body:     fmt.Sprintf("Your transfer of %s %s has completed.", local.Amount, local.Currency),
		})
	case models.TransferStatusFailed:
		s.notifier.Notify(ctx, NotificationInput{
			UserID:   local.UserID,
			Type:     "transfer_failed",
			Category: models.CategoryTransfer,
			Priority: models.PriorityHigh,
			Title:    "Transfer failed",
			Body:     fmt.Sprintf("Your transfer of %s %s could not be completed.", local.Amount, local.Currency),
		})
	}
	return s.mirror.GetTransferByProviderID(ctx, providerTransferID)
}

// RecordDeposit inserts an ach deposit arriving through a virtual account as
// a transfer row, keyed by the provider deposit ID for replay safety.
func (s *TransferService) RecordDeposit(ctx context.Context, userID uuid.UUID, dep models.ProviderDeposit) (*models.Transfer, error) {
	transfer := models.Transfer{
		ID:                 uuid.New(),
		UserID:             userID,
		ProviderTransferID: dep.ID,
		Kind:               models.TransferKindACH,
		Amount:             dep.Amount,
		Currency:           dep.Currency,
		Fee:                decimal.Zero,
		Total:              dep.Amount,
		Status:             models.MapDepositStatus(dep.Status),
	}
	if err := s.mirror.UpsertTransfer(ctx, transfer); err != nil {
		return nil, fmt.Errorf("mirror deposit: %w", err)
	}
	return s.mirror.GetTransferByProviderID(ctx, dep.ID)
}
