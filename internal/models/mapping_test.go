package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMapCustomerStatus(t *testing.T) {
	achApproved := []ProviderEndorsement{{Name: "ach", Status: "approved"}}

	tests := []struct {
		name         string
		status       string
		endorsements []ProviderEndorsement
		wantStatus   VerificationStatus
		wantTier     int
	}{
		{"active with ach approved", "active", achApproved, VerificationApproved, 2},
		{"active with base approved", "active", []ProviderEndorsement{{Name: "base", Status: "approved"}}, VerificationApproved, 2},
		{"active with ach incomplete", "active", []ProviderEndorsement{{Name: "ach", Status: "incomplete"}}, VerificationApproved, 1},
		{"active without endorsements", "active", nil, VerificationApproved, 1},
		{"rejected", "rejected", achApproved, VerificationRejected, 1},
		{"offboarded maps to rejected", "offboarded", achApproved, VerificationRejected, 1},
		{"under_review", "under_review", nil, VerificationUnderReview, 1},
		{"in_review", "in_review", nil, VerificationUnderReview, 1},
		{"incomplete", "incomplete", nil, VerificationPending, 1},
		{"awaiting_ubo", "awaiting_ubo", nil, VerificationPending, 1},
		{"paused", "paused", nil, VerificationPending, 1},
		{"empty string", "", nil, VerificationNotStarted, 1},
		{"not_started", "not_started", nil, VerificationNotStarted, 1},
		{"unknown status defaults to pending", "some_future_state", achApproved, VerificationPending, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, tier := MapCustomerStatus(tc.status, tc.endorsements)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantTier, tier)
		})
	}
}

func TestMapCustomerStatusTierDropsOnRevocation(t *testing.T) {
	// Approved customer loses the ach endorsement: tier must fall back to 1
	// on the next evaluation, not stick at 2.
	_, tier := MapCustomerStatus("active", []ProviderEndorsement{{Name: "ach", Status: "approved"}})
	assert.Equal(t, 2, tier)

	_, tier = MapCustomerStatus("active", []ProviderEndorsement{{Name: "ach", Status: "revoked"}})
	assert.Equal(t, 1, tier)
}

func TestMapTransferStatus(t *testing.T) {
	tests := []struct {
		state string
		want  TransferStatus
	}{
		{"pending", TransferStatusPending},
		{"awaiting_funds", TransferStatusPending},
		{"processing", TransferStatusProcessing},
		{"in_review", TransferStatusProcessing},
		{"funds_received", TransferStatusProcessing},
		{"payment_processed", TransferStatusCompleted},
		{"failed", TransferStatusFailed},
		{"error", TransferStatusFailed},
		{"returned", TransferStatusFailed},
		{"cancelled", TransferStatusCancelled},
		{"canceled", TransferStatusCancelled},
		{"brand_new_provider_state", TransferStatusProcessing},
		{"", TransferStatusProcessing},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, MapTransferStatus(tc.state), "state %q", tc.state)
	}
}

func TestMapDepositStatus(t *testing.T) {
	assert.Equal(t, TransferStatusCompleted, MapDepositStatus("completed"))
	assert.Equal(t, TransferStatusFailed, MapDepositStatus("failed"))
	assert.Equal(t, TransferStatusPending, MapDepositStatus("in_progress"))
	assert.Equal(t, TransferStatusPending, MapDepositStatus(""))
}

func TestMapCardTransactionStatus(t *testing.T) {
	assert.Equal(t, CardTxApproved, MapCardTransactionStatus("approved"))
	assert.Equal(t, CardTxApproved, MapCardTransactionStatus("success"))
	assert.Equal(t, CardTxDeclined, MapCardTransactionStatus("denied"))
	assert.Equal(t, CardTxSettled, MapCardTransactionStatus("settled"))
	assert.Equal(t, CardTxReversed, MapCardTransactionStatus("refunded"))
	assert.Equal(t, CardTxPending, MapCardTransactionStatus("whatever"))
}

func TestTransferStatusTerminal(t *testing.T) {
	assert.True(t, TransferStatusCompleted.Terminal())
	assert.True(t, TransferStatusFailed.Terminal())
	assert.True(t, TransferStatusCancelled.Terminal())
	assert.False(t, TransferStatusPending.Terminal())
	assert.False(t, TransferStatusProcessing.Terminal())
}

func TestDetectDirection(t *testing.T) {
	tx := ProviderWalletTransaction{
		Source:      ProviderWalletSide{WalletID: "w-src"},
		Destination: ProviderWalletSide{WalletID: "w-dst"},
	}

	assert.Equal(t, DirectionOutgoing, DetectDirection(tx, "w-src"))
	assert.Equal(t, DirectionIncoming, DetectDirection(tx, "w-dst"))
	assert.Equal(t, DirectionNone, DetectDirection(tx, "w-other"))
	assert.Equal(t, DirectionNone, DetectDirection(tx, ""))

	// Self-transfer: the wallet is both sides, and spending wins.
	self := ProviderWalletTransaction{
		Source:      ProviderWalletSide{WalletID: "w-1"},
		Destination: ProviderWalletSide{WalletID: "w-1"},
	}
	assert.Equal(t, DirectionOutgoing, DetectDirection(self, "w-1"))
}

func TestNextSpendAccumulatesInsideWindow(t *testing.T) {
	reset := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	now := reset.Add(23 * time.Hour)

	spend, stamp := NextSpend(decimal.NewFromInt(40), reset, 24*time.Hour, decimal.NewFromInt(10), now)

	assert.True(t, spend.Equal(decimal.NewFromInt(50)), "got %s", spend)
	assert.Equal(t, reset, stamp, "reset stamp must be preserved inside the window")
}

func TestNextSpendResetsAfterWindow(t *testing.T) {
	reset := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	now := reset.Add(25 * time.Hour)

	spend, stamp := NextSpend(decimal.NewFromInt(40), reset, 24*time.Hour, decimal.NewFromInt(10), now)

	assert.True(t, spend.Equal(decimal.NewFromInt(10)), "counter must restart at the purchase amount, got %s", spend)
	assert.Equal(t, now, stamp)
}

func TestNextSpendExactBoundaryResets(t *testing.T) {
	reset := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	now := reset.Add(24 * time.Hour)

	spend, stamp := NextSpend(decimal.NewFromInt(40), reset, 24*time.Hour, decimal.NewFromInt(10), now)

	assert.True(t, spend.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, now, stamp)
}

func historyFixture() []ProviderWalletTransaction {
	return []ProviderWalletTransaction{
		{
			ID: "tx-1", Amount: decimal.NewFromInt(100), Currency: "usdc", Chain: "base",
			Source:      ProviderWalletSide{Address: "0xext"},
			Destination: ProviderWalletSide{WalletID: "w-1", Currency: "usdc", Chain: "base"},
		},
		{
			ID: "tx-2", Amount: decimal.NewFromInt(30), Currency: "usdc", Chain: "base",
			Source:      ProviderWalletSide{WalletID: "w-1", Currency: "usdc", Chain: "base"},
			Destination: ProviderWalletSide{Address: "0xext"},
		},
		{
			ID: "tx-3", Amount: decimal.NewFromInt(5), Currency: "eth", Chain: "ethereum",
			Source:      ProviderWalletSide{Address: "0xext"},
			Destination: ProviderWalletSide{WalletID: "w-1", Currency: "eth", Chain: "ethereum"},
		},
	}
}

func TestRecomputeBalances(t *testing.T) {
	totals := RecomputeBalances(historyFixture(), "w-1")

	assert.Len(t, totals, 2)
	assert.True(t, totals[BalanceKey{Currency: "usdc", Chain: "base"}].Equal(decimal.NewFromInt(70)))
	assert.True(t, totals[BalanceKey{Currency: "eth", Chain: "ethereum"}].Equal(decimal.NewFromInt(5)))
}

func TestRecomputeBalancesOrderIndependent(t *testing.T) {
	history := historyFixture()
	reversed := []ProviderWalletTransaction{history[2], history[1], history[0]}

	assert.Equal(t, RecomputeBalances(history, "w-1"), RecomputeBalances(reversed, "w-1"))
}

func TestRecomputeBalancesSelfTransferNetsToZero(t *testing.T) {
	history := []ProviderWalletTransaction{
		{
			ID: "tx-1", Amount: decimal.NewFromInt(50), Currency: "usdc", Chain: "base",
			Source:      ProviderWalletSide{WalletID: "w-1", Currency: "usdc", Chain: "base"},
			Destination: ProviderWalletSide{WalletID: "w-1", Currency: "usdc", Chain: "base"},
		},
	}

	totals := RecomputeBalances(history, "w-1")
	assert.True(t, totals[BalanceKey{Currency: "usdc", Chain: "base"}].IsZero())
}

func TestRecomputeBalancesFallsBackToTransactionCurrency(t *testing.T) {
	history := []ProviderWalletTransaction{
		{
			ID: "tx-1", Amount: decimal.NewFromInt(10), Currency: "usdb", Chain: "solana",
			Source:      ProviderWalletSide{Address: "ext"},
			Destination: ProviderWalletSide{WalletID: "w-1"},
		},
	}

	totals := RecomputeBalances(history, "w-1")
	assert.True(t, totals[BalanceKey{Currency: "usdb", Chain: "solana"}].Equal(decimal.NewFromInt(10)))
}
