package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pure mapping functions from provider vocabulary to local domain state.
// No I/O here: everything below is unit-testable without network or storage.

// DeriveTier returns 2 when the endorsement list carries an approved "ach" or
// "base" endorsement, otherwise 1. Evaluated fresh on every sync, so tier
// drops when an endorsement is revoked.
func DeriveTier(endorsements []ProviderEndorsement) int {
	for _, e := range endorsements {
		if (e.Name == "ach" || e.Name == "base") && e.Status == "approved" {
			return 2
		}
	}
	return 1
}

// MapCustomerStatus maps the provider's customer status plus endorsements to
// the local verification status and tier.
func MapCustomerStatus(status string, endorsements []ProviderEndorsement) (VerificationStatus, int) {
	var local VerificationStatus
	switch status {
	case "active":
		local = VerificationApproved
	case "rejected", "offboarded":
		local = VerificationRejected
	case "under_review", "in_review":
		local = VerificationUnderReview
	case "incomplete", "awaiting_ubo", "awaiting_questionnaire", "paused":
		local = VerificationPending
	case "not_started", "":
		local = VerificationNotStarted
	default:
		local = VerificationPending
	}

	tier := DeriveTier(endorsements)
	if local != VerificationApproved {
		tier = 1
	}
	return local, tier
}

// MapTransferStatus maps the provider transfer state to the local lifecycle
// status. Unrecognized states map to processing rather than failing, since
// the provider adds states without notice.
//
// The provider calls the terminal success state "payment_processed"; locally
// that is "completed".
func MapTransferStatus(state string) TransferStatus {
	switch state {
	case "pending", "awaiting_funds":
		return TransferStatusPending
	case "processing", "in_review", "funds_received":
		return TransferStatusProcessing
	case "payment_processed":
		return TransferStatusCompleted
	case "failed", "error", "returned":
		return TransferStatusFailed
	case "cancelled", "canceled":
		return TransferStatusCancelled
	default:
		return TransferStatusProcessing
	}
}

// MapDepositStatus passes through the terminal deposit states and defaults
// everything else to pending.
func MapDepositStatus(status string) TransferStatus {
	switch status {
	case "completed":
		return TransferStatusCompleted
	case "failed":
		return TransferStatusFailed
	default:
		return TransferStatusPending
	}
}

// MapCardTransactionStatus maps the gateway's transaction status string.
func MapCardTransactionStatus(status string) CardTransactionStatus {
	switch status {
	case "approved", "success":
		return CardTxApproved
	case "declined", "denied":
		return CardTxDeclined
	case "settled":
		return CardTxSettled
	case "reversed", "refunded":
		return CardTxReversed
	default:
		return CardTxPending
	}
}

// Direction of a wallet transaction relative to a resolved wallet.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
	DirectionNone     Direction = ""
)

// DetectDirection reports whether the wallet identified by providerWalletID
// is the destination (incoming) or source (outgoing) of tx. A wallet that is
// both sides counts as outgoing (a self-transfer spends first). DirectionNone
// means the wallet appears on neither side.
func DetectDirection(tx ProviderWalletTransaction, providerWalletID string) Direction {
	if providerWalletID == "" {
		return DirectionNone
	}
	if tx.Source.WalletID == providerWalletID {
		return DirectionOutgoing
	}
	if tx.Destination.WalletID == providerWalletID {
		return DirectionIncoming
	}
	return DirectionNone
}

// NextSpend applies one approved purchase to a running spend counter with a
// lazy reset: when the window has elapsed since lastReset the counter starts
// over at amount with a fresh stamp, otherwise the amount is added and the
// stamp is kept. Counters are never decremented except by this reset.
func NextSpend(counter decimal.Decimal, lastReset time.Time, window time.Duration, amount decimal.Decimal, now time.Time) (decimal.Decimal, time.Time) {
	if now.Sub(lastReset) >= window {
		return amount, now
	}
	return counter.Add(amount), lastReset
}

// BalanceKey identifies one balance bucket inside a wallet.
type BalanceKey struct {
	Currency string
	Chain    string
}

// RecomputeBalances rebuilds per-(currency, chain) totals by replaying the
// wallet's full transaction history: a transaction credits its destination
// bucket when the wallet is the destination and debits its source bucket when
// the wallet is the source. Full reconstruction, so replays and reordering
// cannot corrupt the result.
func RecomputeBalances(history []ProviderWalletTransaction, providerWalletID string) map[BalanceKey]decimal.Decimal {
	totals := make(map[BalanceKey]decimal.Decimal)
	for _, tx := range history {
		if tx.Destination.WalletID == providerWalletID {
			key := BalanceKey{Currency: sideCurrency(tx.Destination, tx), Chain: sideChain(tx.Destination, tx)}
			totals[key] = totals[key].Add(tx.Amount)
		}
		if tx.Source.WalletID == providerWalletID {
			key := BalanceKey{Currency: sideCurrency(tx.Source, tx), Chain: sideChain(tx.Source, tx)}
			totals[key] = totals[key].Sub(tx.Amount)
		}
	}
	return totals
}

func sideCurrency(side ProviderWalletSide, tx ProviderWalletTransaction) string {
	if side.Currency != "" {
		return side.Currency
	}
	return tx.Currency
}

func sideChain(side ProviderWalletSide, tx ProviderWalletTransaction) string {
	if side.Chain != "" {
		return side.Chain
	}
	return tx.Chain
}
