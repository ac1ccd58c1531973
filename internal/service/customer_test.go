package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meridianpay/custodyops/internal/apperr"
	"github.com/meridianpay/custodyops/internal/models"
	"github.com/meridianpay/custodyops/internal/provider"
	"github.com/meridianpay/custodyops/internal/service"
	"github.com/meridianpay/custodyops/internal/testutil"
)

func newCustomerService(mirror *testutil.Mirror, api *testutil.StubProvider) *service.CustomerService {
	logger := zap.NewNop()
	return service.NewCustomerService(mirror, api, service.NewNotifier(mirror, logger), logger)
}

func TestStartKYCValidation(t *testing.T) {
	svc := newCustomerService(testutil.NewMirror(), &testutil.StubProvider{})

	_, err := svc.StartKYC(context.Background(), uuid.New(), service.StartKYCRequest{Email: "a@b.com"})
	var inputErr *apperr.InputError
	assert.ErrorAs(t, err, &inputErr)

	_, err = svc.StartKYC(context.Background(), uuid.New(), service.StartKYCRequest{FirstName: "Jane", LastName: "Doe"})
	assert.ErrorAs(t, err, &inputErr)
}

func TestStartKYCCreatesCustomerOnlyOnce(t *testing.T) {
	mirror := testutil.NewMirror()
	var creates int
	api := &testutil.StubProvider{
		CreateCustomerFunc: func(req provider.CreateCustomerRequest) (*models.ProviderCustomer, error) {
			creates++
			assert.Equal(t, "individual", req.Type)
			return &models.ProviderCustomer{ID: "cust-1", Status: "incomplete"}, nil
		},
		CreateKYCLinkFunc: func(provider.CreateKYCLinkRequest) (*models.ProviderKYCLink, error) {
			return &models.ProviderKYCLink{KYCLink: "https://kyc.example/1", TOSLink: "https://tos.example/1"}, nil
		},
	}
	svc := newCustomerService(mirror, api)
	userID := uuid.New()
	req := service.StartKYCRequest{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"}

	first, err := svc.StartKYC(context.Background(), userID, req)
	require.NoError(t, err)
	assert.Equal(t, "cust-1", first.Customer.ProviderCustomerID)
	assert.Equal(t, models.VerificationPending, first.Customer.VerificationStatus)
	assert.Equal(t, "https://kyc.example/1", first.KYCLink)

	// Second initiation reuses the linkage and only opens a fresh link.
	second, err := svc.StartKYC(context.Background(), userID, req)
	require.NoError(t, err)
	assert.Equal(t, "cust-1", second.Customer.ProviderCustomerID)
	assert.Equal(t, 1, creates)
}

func TestSyncFromProviderRequiresExistingLinkage(t *testing.T) {
	svc := newCustomerService(testutil.NewMirror(), &testutil.StubProvider{})

	_, err := svc.SyncFromProvider(context.Background(), models.ProviderCustomer{ID: "cust-ghost", Status: "active"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestManualSyncPullsProviderState(t *testing.T) {
	mirror := testutil.NewMirror()
	userID := uuid.New()
	require.NoError(t, mirror.UpsertCustomer(context.Background(), models.Customer{
		UserID:             userID,
		ProviderCustomerID: "cust-1",
		VerificationStatus: models.VerificationUnderReview,
		Tier:               1,
	}))

	api := &testutil.StubProvider{
		GetCustomerFunc: func(customerID string) (*models.ProviderCustomer, error) {
			assert.Equal(t, "cust-1", customerID)
			return &models.ProviderCustomer{
				ID:           "cust-1",
				Status:       "active",
				Endorsements: []models.ProviderEndorsement{{Name: "base", Status: "approved"}},
			}, nil
		},
	}
	svc := newCustomerService(mirror, api)

	customer, err := svc.ManualSync(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationApproved, customer.VerificationStatus)
	assert.Equal(t, 2, customer.Tier)
	assert.Equal(t, 1, mirror.NotificationCount("kyc_approved"))
}

func TestManualSyncWithoutLinkageIsPrecondition(t *testing.T) {
	svc := newCustomerService(testutil.NewMirror(), &testutil.StubProvider{})

	_, err := svc.ManualSync(context.Background(), uuid.New())
	var precondition *apperr.PreconditionError
	assert.ErrorAs(t, err, &precondition)
}
