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

func newLiquidationService(mirror *testutil.Mirror, api *testutil.StubProvider) *service.LiquidationAddressService {
	return service.NewLiquidationAddressService(mirror, api, zap.NewNop())
}

func TestCreateLiquidationAddressValidation(t *testing.T) {
	svc := newLiquidationService(testutil.NewMirror(), &testutil.StubProvider{})

	_, err := svc.Create(context.Background(), uuid.New(), service.CreateLiquidationAddressInput{
		Currency: "usdc", DestinationRail: "ach", DestinationCurrency: "usd",
	})
	var input *apperr.InputError
	require.ErrorAs(t, err, &input, "missing chain")

	_, err = svc.Create(context.Background(), uuid.New(), service.CreateLiquidationAddressInput{
		Chain: "base", Currency: "usdc", DestinationCurrency: "usd",
	})
	require.ErrorAs(t, err, &input, "missing destination rail")
}

func TestCreateLiquidationAddressMirrorsProviderState(t *testing.T) {
	mirror := testutil.NewMirror()
	userID := seedApprovedCustomer(t, mirror)

	stub := &testutil.StubProvider{
		CreateLiquidationAddressFunc: func(customerID string, req provider.CreateLiquidationAddressRequest) (*models.ProviderLiquidationAddress, error) {
			assert.Equal(t, "cust-1", customerID)
			return &models.ProviderLiquidationAddress{
				ID:                  "liq-1",
				Address:             "0xabc",
				Chain:               req.Chain,
				Currency:            req.Currency,
				DestinationRail:     req.DestinationRail,
				DestinationCurrency: req.DestinationCurrency,
				State:               "active",
			}, nil
		},
	}
	svc := newLiquidationService(mirror, stub)

	address, err := svc.Create(context.Background(), userID, service.CreateLiquidationAddressInput{
		Chain: "base", Currency: "usdc", DestinationRail: "ach", DestinationCurrency: "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, "liq-1", address.ProviderAddressID)
	assert.Equal(t, "active", address.Status)
	assert.Equal(t, userID, address.UserID)
}

func TestDrainsReadThroughToProvider(t *testing.T) {
	mirror := testutil.NewMirror()
	userID := seedApprovedCustomer(t, mirror)
	addressID := uuid.New()
	require.NoError(t, mirror.UpsertLiquidationAddress(context.Background(), models.LiquidationAddress{
		ID:                addressID,
		UserID:            userID,
		ProviderAddressID: "liq-1",
		Chain:             "base",
		Currency:          "usdc",
	}))

	stub := &testutil.StubProvider{
		LiquidationAddressDrainsFunc: func(customerID, providerAddressID string) ([]models.ProviderDrain, error) {
			assert.Equal(t, "cust-1", customerID)
			assert.Equal(t, "liq-1", providerAddressID)
			return []models.ProviderDrain{
				{ID: "drain-1", Amount: decimal.NewFromInt(25), Currency: "usd", State: "payment_processed", DestinationRail: "ach"},
			}, nil
		},
	}
	svc := newLiquidationService(mirror, stub)

	drains, err := svc.Drains(context.Background(), userID, addressID)
	require.NoError(t, err)
	require.Len(t, drains, 1)
	assert.Equal(t, "drain-1", drains[0].ID)
}

func TestDrainsUnknownAddressIsNotFound(t *testing.T) {
	mirror := testutil.NewMirror()
	userID := seedApprovedCustomer(t, mirror)
	svc := newLiquidationService(mirror, &testutil.StubProvider{})

	_, err := svc.Drains(context.Background(), userID, uuid.New())
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDrainsEnforcesOwnership(t *testing.T) {
	mirror := testutil.NewMirror()
	ownerID := seedApprovedCustomer(t, mirror)
	addressID := uuid.New()
	require.NoError(t, mirror.UpsertLiquidationAddress(context.Background(), models.LiquidationAddress{
		ID:                addressID,
		UserID:            ownerID,
		ProviderAddressID: "liq-1",
	}))

	otherID := uuid.New()
	require.NoError(t, mirror.UpsertCustomer(context.Background(), models.Customer{
		UserID:             otherID,
		ProviderCustomerID: "cust-2",
		VerificationStatus: models.VerificationApproved,
	}))

	svc := newLiquidationService(mirror, &testutil.StubProvider{})
	_, err := svc.Drains(context.Background(), otherID, addressID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
