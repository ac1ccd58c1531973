package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meridianpay/custodyops/internal/apperr"
	"github.com/meridianpay/custodyops/internal/models"
	"github.com/meridianpay/custodyops/internal/provider"
	"github.com/meridianpay/custodyops/internal/service"
	"github.com/meridianpay/custodyops/internal/testutil"
)

func newTransferService(mirror *testutil.Mirror, api *testutil.StubProvider) *service.TransferService {
	logger := zap.NewNop()
	return service.NewTransferService(mirror, api, service.NewNotifier(mirror, logger), logger)
}

func seedApprovedCustomer(t *testing.T, mirror *testutil.Mirror) uuid.UUID {
	t.Helper()
	userID := uuid.New()
	require.NoError(t, mirror.UpsertCustomer(context.Background(), models.Customer{
		UserID:             userID,
		ProviderCustomerID: "cust-1",
		VerificationStatus: models.VerificationApproved,
		Tier:               2,
	}))
	return userID
}

func TestCreateTransferValidation(t *testing.T) {
	svc := newTransferService(testutil.NewMirror(), &testutil.StubProvider{})

	tests := []struct {
		name  string
		input service.CreateTransferInput
	}{
		{"zero amount", service.CreateTransferInput{
			Kind: models.TransferKindInternal, Currency: "usdc",
			Destination: models.TransferDestination{WalletID: "w-2"},
		}},
		{"negative amount", service.CreateTransferInput{
			Kind: models.TransferKindInternal, Amount: decimal.NewFromInt(-5), Currency: "usdc",
			Destination: models.TransferDestination{WalletID: "w-2"},
		}},
		{"missing currency", service.CreateTransferInput{
			Kind: models.TransferKindInternal, Amount: decimal.NewFromInt(5),
			Destination: models.TransferDestination{WalletID: "w-2"},
		}},
		{"internal without destination wallet", service.CreateTransferInput{
			Kind: models.TransferKindInternal, Amount: decimal.NewFromInt(5), Currency: "usdc",
		}},
		{"external without address", service.CreateTransferInput{
			Kind: models.TransferKindExternal, Amount: decimal.NewFromInt(5), Currency: "usdc",
			Destination: models.TransferDestination{Chain: "base"},
		}},
		{"ach without routing number", service.CreateTransferInput{
			Kind: models.TransferKindACH, Amount: decimal.NewFromInt(5), Currency: "usd",
			Destination: models.TransferDestination{AccountNumber: "123", AccountOwnerName: "Jane Doe"},
		}},
		{"unknown kind", service.CreateTransferInput{
			Kind: models.TransferKind("wire"), Amount: decimal.NewFromInt(5), Currency: "usd",
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), uuid.New(), tc.input)
			var inputErr *apperr.InputError
			assert.ErrorAs(t, err, &inputErr)
		})
	}
}

func TestCreateTransferRequiresKYC(t *testing.T) {
	svc := newTransferService(testutil.NewMirror(), &testutil.StubProvider{})

	_, err := svc.Create(context.Background(), uuid.New(), service.CreateTransferInput{
		Kind:        models.TransferKindInternal,
		Amount:      decimal.NewFromInt(10),
		Currency:    "usdc",
		Destination: models.TransferDestination{WalletID: "w-2"},
	})

	var precondition *apperr.PreconditionError
	assert.ErrorAs(t, err, &precondition)
}

func TestCreateACHTransferRegistersExternalAccount(t *testing.T) {
	mirror := testutil.NewMirror()
	userID := seedApprovedCustomer(t, mirror)

	wallet := models.Wallet{
		ID: uuid.New(), UserID: userID, ProviderWalletID: "w-1",
		Type: models.WalletTypeUser, Status: models.WalletStatusActive, Chain: "base",
	}
	require.NoError(t, mirror.UpsertWallet(context.Background(), wallet))

	var capturedTransfer provider.CreateTransferRequest
	api := &testutil.StubProvider{
		CreateExternalAccountFunc: func(req provider.CreateExternalAccountRequest) (*provider.ProviderExternalAccount, error) {
			assert.Equal(t, "Jane Doe", req.AccountOwnerName)
			return &provider.ProviderExternalAccount{ID: "ext-1"}, nil
		},
		CreateTransferFunc: func(req provider.CreateTransferRequest) (*models.ProviderTransfer, error) {
			capturedTransfer = req
			return &models.ProviderTransfer{
				ID:           "tr-1",
				State:        "awaiting_funds",
				Amount:       decimal.NewFromInt(100),
				Currency:     "usd",
				DeveloperFee: decimal.NewFromInt(2),
			}, nil
		},
	}
	svc := newTransferService(mirror, api)

	transfer, err := svc.Create(context.Background(), userID, service.CreateTransferInput{
		Kind:           models.TransferKindACH,
		Amount:         decimal.NewFromInt(100),
		Currency:       "usd",
		SourceWalletID: wallet.ID,
		Destination: models.TransferDestination{
			AccountNumber:    "123456",
			RoutingNumber:    "021000021",
			AccountOwnerName: "Jane Doe",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "ach", capturedTransfer.Destination.PaymentRail)
	assert.Equal(t, "ext-1", capturedTransfer.Destination.ExternalAccountID)
	assert.Equal(t, "w-1", capturedTransfer.Source.WalletID)

	assert.Equal(t, models.TransferStatusPending, transfer.Status)
	assert.True(t, transfer.Fee.Equal(decimal.NewFromInt(2)))
	assert.True(t, transfer.Total.Equal(decimal.NewFromInt(102)), "total is amount plus fee, got %s", transfer.Total)
	assert.Equal(t, 1, mirror.NotificationCount("transfer_created"))
}

func TestCreateTransferRejectsForeignWallet(t *testing.T) {
	mirror := testutil.NewMirror()
	userID := seedApprovedCustomer(t, mirror)

	otherWallet := models.Wallet{
		ID: uuid.New(), UserID: uuid.New(), ProviderWalletID: "w-other",
		Type: models.WalletTypeUser, Status: models.WalletStatusActive, Chain: "base",
	}
	require.NoError(t, mirror.UpsertWallet(context.Background(), otherWallet))

	svc := newTransferService(mirror, &testutil.StubProvider{})
	_, err := svc.Create(context.Background(), userID, service.CreateTransferInput{
		Kind:           models.TransferKindInternal,
		Amount:         decimal.NewFromInt(10),
		Currency:       "usdc",
		SourceWalletID: otherWallet.ID,
		Destination:    models.TransferDestination{WalletID: "w-2"},
	})

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCancelTransferOnlyWhenPending(t *testing.T) {
	mirror := testutil.NewMirror()
	userID := uuid.New()
	svc := newTransferService(mirror, &testutil.StubProvider{})

	pending := models.Transfer{
		ID: uuid.New(), UserID: userID, ProviderTransferID: "tr-pending",
		Kind: models.TransferKindExternal, Amount: decimal.NewFromInt(10),
		Currency: "usdc", Status: models.TransferStatusPending,
	}
	processing := models.Transfer{
		ID: uuid.New(), UserID: userID, ProviderTransferID: "tr-processing",
		Kind: models.TransferKindExternal, Amount: decimal.NewFromInt(10),
		Currency: "usdc", Status: models.TransferStatusProcessing,
	}
	require.NoError(t, mirror.UpsertTransfer(context.Background(), pending))
	require.NoError(t, mirror.UpsertTransfer(context.Background(), processing))

	cancelled, err := svc.Cancel(context.Background(), userID, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	_, err = svc.Cancel(context.Background(), userID, processing.ID)
	var precondition *apperr.PreconditionError
	assert.ErrorAs(t, err, &precondition)

	_, err = svc.Cancel(context.Background(), uuid.New(), pending.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "another user's transfer looks like it does not exist")
}
