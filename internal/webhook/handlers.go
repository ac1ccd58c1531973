package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/meridianpay/custodyops/internal/apperr"
	"github.com/meridianpay/custodyops/internal/models"
	"github.com/meridianpay/custodyops/internal/service"
)

// largeDepositThreshold bumps completed-deposit notifications to high
// priority.
var largeDepositThreshold = decimal.NewFromInt(10000)

// Each handler is idempotent against redelivery: lookups go by the
// provider's unique object ID and re-processing the same event converges on
// the same end state. A referenced object missing from the mirror is a
// warning and a skip — the mirror may lag the provider — never a failure.

func (p *Pipeline) handleCustomerUpdated(ctx context.Context, env Envelope) error {
	var pc models.ProviderCustomer
	if err := json.Unmarshal(env.Data, &pc); err != nil {
		return fmt.Errorf("decode customer payload: %w", err)
	}
	if pc.ID == "" {
		return fmt.Errorf("customer payload missing id")
	}

	if _, err := p.customers.SyncFromProvider(ctx, pc); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			p.logger.Warn("customer not in mirror, skipping",
				zap.String("provider_customer_id", pc.ID))
			return nil
		}
		return err
	}
	return nil
}

func (p *Pipeline) handleTransferUpdated(ctx context.Context, env Envelope) error {
	var pt models.ProviderTransfer
	if err := json.Unmarshal(env.Data, &pt); err != nil {
		return fmt.Errorf("decode transfer payload: %w", err)
	}
	if pt.ID == "" {
		return fmt.Errorf("transfer payload missing id")
	}

	if _, err := p.transfers.SyncStatus(ctx, pt.ID, pt.State); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			// A webhook alone never creates a transfer record.
			p.logger.Warn("transfer not in mirror, skipping",
				zap.String("provider_transfer_id", pt.ID))
			return nil
		}
		return err
	}
	return nil
}

func (p *Pipeline) handleCardTransactionCreated(ctx context.Context, env Envelope) error {
	var pt models.ProviderCardTransaction
	if err := json.Unmarshal(env.Data, &pt); err != nil {
		return fmt.Errorf("decode card transaction payload: %w", err)
	}
	if pt.ID == "" || pt.CardID == "" {
		return fmt.Errorf("card transaction payload missing ids")
	}

	if _, _, err := p.cards.RecordTransaction(ctx, pt); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			p.logger.Warn("card not in mirror, skipping",
				zap.String("provider_card_id", pt.CardID))
			return nil
		}
		return err
	}
	return nil
}

func (p *Pipeline) handleDepositCreated(ctx context.Context, env Envelope) error {
	var dep models.ProviderDeposit
	if err := json.Unmarshal(env.Data, &dep); err != nil {
		return fmt.Errorf("decode deposit payload: %w", err)
	}
	if dep.ID == "" || dep.VirtualAccountID == "" {
		return fmt.Errorf("deposit payload missing ids")
	}

	account, err := p.virtualAccounts.ResolveByProviderID(ctx, dep.VirtualAccountID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			p.logger.Warn("virtual account not in mirror, skipping",
				zap.String("provider_account_id", dep.VirtualAccountID))
			return nil
		}
		return err
	}

	// Redelivery check before the upsert so the notification fires at most
	// once per deposit.
	existing, err := p.transfers.FindByProviderID(ctx, dep.ID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	transfer, err := p.transfers.RecordDeposit(ctx, account.UserID, dep)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	priority := models.PriorityNormal
	title := "Deposit received"
	switch {
	case transfer.Status == models.TransferStatusFailed:
		priority = models.PriorityUrgent
		title = "Deposit failed"
	case transfer.Status == models.TransferStatusCompleted && transfer.Amount.GreaterThanOrEqual(largeDepositThreshold):
		priority = models.PriorityHigh
	}
	p.notifier.Notify(ctx, service.NotificationInput{
		UserID:   account.UserID,
		Type:     "virtual_account_deposit",
		Category: models.CategoryDeposit,
		Priority: priority,
		Title:    title,
		Body:     fmt.Sprintf("%s %s via %s", transfer.Amount, transfer.Currency, account.BankName),
	})
	return nil
}

func (p *Pipeline) handleWalletTransaction(ctx context.Context, env Envelope, confirmed bool) error {
	var tx models.ProviderWalletTransaction
	if err := json.Unmarshal(env.Data, &tx); err != nil {
		return fmt.Errorf("decode wallet transaction payload: %w", err)
	}

	wallet, direction, err := p.resolveWallet(ctx, tx)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			p.logger.Warn("wallet not in mirror, skipping",
				zap.String("source_wallet_id", tx.Source.WalletID),
				zap.String("destination_wallet_id", tx.Destination.WalletID))
			return nil
		}
		return err
	}

	if confirmed {
		// Best-effort refresh before notifying; a failed recomputation is
		// corrected by the next confirmed transaction.
		if err := p.wallets.RefreshBalances(ctx, wallet.ID); err != nil {
			p.logger.Warn("balance refresh failed",
				zap.String("wallet_id", wallet.ID.String()),
				zap.Error(err))
		}
	}

	title := "Funds incoming"
	body := fmt.Sprintf("Incoming %s %s on %s", tx.Amount, tx.Currency, tx.Chain)
	if direction == models.DirectionOutgoing {
		title = "Funds sent"
		body = fmt.Sprintf("Outgoing %s %s on %s", tx.Amount, tx.Currency, tx.Chain)
	}
	eventType := "wallet_transaction"
	if confirmed {
		eventType = "wallet_transaction_confirmed"
		title += " (confirmed)"
	}
	p.notifier.Notify(ctx, service.NotificationInput{
		UserID:   wallet.UserID,
		Type:     eventType,
		Category: models.CategoryTransfer,
		Priority: models.PriorityNormal,
		Title:    title,
		Body:     body,
	})
	return nil
}

// resolveWallet finds the mirror wallet on either side of the transaction
// and reports the transfer direction relative to it.
func (p *Pipeline) resolveWallet(ctx context.Context, tx models.ProviderWalletTransaction) (*models.Wallet, models.Direction, error) {
	if tx.Source.WalletID != "" {
		if wallet, err := p.wallets.ResolveByProviderID(ctx, tx.Source.WalletID); err == nil {
			return wallet, models.DetectDirection(tx, wallet.ProviderWalletID), nil
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return nil, models.DirectionNone, err
		}
	}
	if tx.Destination.WalletID != "" {
		wallet, err := p.wallets.ResolveByProviderID(ctx, tx.Destination.WalletID)
		if err != nil {
			return nil, models.DirectionNone, err
		}
		return wallet, models.DetectDirection(tx, wallet.ProviderWalletID), nil
	}
	return nil, models.DirectionNone, apperr.ErrNotFound
}
