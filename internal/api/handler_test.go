package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meridianpay/custodyops/internal/api"
	"github.com/meridianpay/custodyops/internal/apperr"
	"github.com/meridianpay/custodyops/internal/models"
	"github.com/meridianpay/custodyops/internal/provider"
	"github.com/meridianpay/custodyops/internal/service"
	"github.com/meridianpay/custodyops/internal/testutil"
	"github.com/meridianpay/custodyops/internal/webhook"
)

type apiFixture struct {
	mirror   *testutil.Mirror
	provider *testutil.StubProvider
	router   http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	mirror := testutil.NewMirror()
	stub := &testutil.StubProvider{}
	gateway := &testutil.StubGateway{}
	logger := zap.NewNop()

	notifier := service.NewNotifier(mirror, logger)
	auditor := service.NewAuditRecorder(mirror, logger)
	customers := service.NewCustomerService(mirror, stub, notifier, logger)
	wallets := service.NewWalletService(mirror, stub, logger)
	transfers := service.NewTransferService(mirror, stub, notifier, logger)
	cards := service.NewCardService(mirror, gateway, notifier, logger)
	virtualAccounts := service.NewVirtualAccountService(mirror, stub, logger)
	liquidation := service.NewLiquidationAddressService(mirror, stub, logger)

	pipeline := webhook.NewPipeline(customers, wallets, transfers, cards, virtualAccounts, notifier, auditor, logger)
	handler := api.NewHandler(customers, wallets, transfers, cards, virtualAccounts, liquidation, notifier, pipeline, logger)
	return &apiFixture{mirror: mirror, provider: stub, router: handler.Router()}
}

func (f *apiFixture) request(t *testing.T, method, path string, userID uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	if userID != uuid.Nil {
		req.Header.Set("X-User-ID", userID.String())
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodGet, "/health", uuid.Nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMissingUserIdentityIsUnauthorized(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodGet, "/api/v1/wallets", uuid.Nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets", nil)
	req.Header.Set("X-User-ID", "not-a-uuid")
	rec2 := httptest.NewRecorder()
	f.router.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
}

func TestGetKYCStatusNotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodGet, "/api/v1/kyc", uuid.New(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartKYCValidationMapsTo422(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/kyc", uuid.New(), map[string]string{
		"first_name": "Jane",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateTransferWithoutKYCMapsTo412(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/transfers", uuid.New(), map[string]any{
		"kind":             "internal",
		"amount":           "10",
		"currency":         "usdc",
		"source_wallet_id": uuid.NewString(),
		"destination":      map[string]string{"wallet_id": "w-2"},
	})

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestCancelNonPendingTransferMapsTo412(t *testing.T) {
	f := newAPIFixture(t)
	userID := uuid.New()
	transfer := models.Transfer{
		ID: uuid.New(), UserID: userID, ProviderTransferID: "tr-1",
		Kind: models.TransferKindExternal, Amount: decimal.NewFromInt(10),
		Currency: "usdc", Status: models.TransferStatusProcessing,
	}
	require.NoError(t, f.mirror.UpsertTransfer(context.Background(), transfer))

	rec := f.request(t, http.MethodPost, "/api/v1/transfers/"+transfer.ID.String()+"/cancel", userID, nil)

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestTransientProviderFailureMapsTo503(t *testing.T) {
	f := newAPIFixture(t)
	userID := uuid.New()
	require.NoError(t, f.mirror.UpsertCustomer(context.Background(), models.Customer{
		UserID: userID, ProviderCustomerID: "cust-1",
		VerificationStatus: models.VerificationApproved, Tier: 1,
	}))
	f.provider.CreateWalletFunc = func(string, provider.CreateWalletRequest) (*models.ProviderWallet, error) {
		return nil, &apperr.ProviderError{Message: "upstream timeout", Transient: true, CorrelationID: "corr-1"}
	}

	rec := f.request(t, http.MethodPost, "/api/v1/wallets", userID, map[string]string{"chain": "base"})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "upstream timeout", "transient detail is not leaked to the caller")
}

func TestTerminalProviderFailureMapsTo502(t *testing.T) {
	f := newAPIFixture(t)
	userID := uuid.New()
	require.NoError(t, f.mirror.UpsertCustomer(context.Background(), models.Customer{
		UserID: userID, ProviderCustomerID: "cust-1",
		VerificationStatus: models.VerificationApproved, Tier: 1,
	}))
	f.provider.CreateWalletFunc = func(string, provider.CreateWalletRequest) (*models.ProviderWallet, error) {
		return nil, &apperr.ProviderError{Message: "chain not supported", Status: 422, CorrelationID: "corr-2"}
	}

	rec := f.request(t, http.MethodPost, "/api/v1/wallets", userID, map[string]string{"chain": "dogechain"})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "chain not supported")
}

func TestWalletOwnershipEnforced(t *testing.T) {
	f := newAPIFixture(t)
	owner := uuid.New()
	wallet := models.Wallet{
		ID: uuid.New(), UserID: owner, ProviderWalletID: "w-1",
		Type: models.WalletTypeUser, Status: models.WalletStatusActive, Chain: "base",
	}
	require.NoError(t, f.mirror.UpsertWallet(context.Background(), wallet))

	rec := f.request(t, http.MethodGet, "/api/v1/wallets/"+wallet.ID.String(), owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(t, http.MethodGet, "/api/v1/wallets/"+wallet.ID.String(), uuid.New(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "another user's wallet reads as missing")
}

func TestNotificationLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	userID := uuid.New()
	n := models.Notification{
		ID: uuid.New(), UserID: userID, Type: "kyc_approved",
		Category: models.CategoryAccount, Priority: models.PriorityHigh,
		Title: "Verification approved",
	}
	require.NoError(t, f.mirror.InsertNotification(context.Background(), n))

	rec := f.request(t, http.MethodGet, "/api/v1/notifications?unread=true", userID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kyc_approved")

	rec = f.request(t, http.MethodPost, "/api/v1/notifications/"+n.ID.String()+"/read", userID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(t, http.MethodGet, "/api/v1/notifications?unread=true", userID, nil)
	assert.NotContains(t, rec.Body.String(), "kyc_approved")
}

func TestUpdatePreferencesPinsUserID(t *testing.T) {
	f := newAPIFixture(t)
	userID := uuid.New()

	rec := f.request(t, http.MethodPut, "/api/v1/notifications/preferences", userID, map[string]any{
		"user_id":          uuid.NewString(), // ignored: identity comes from the session
		"account_enabled":  true,
		"transfer_enabled": false,
		"card_enabled":     true,
		"deposit_enabled":  true,
		"security_enabled": true,
		"min_priority":     "high",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	pref, err := f.mirror.GetPreference(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, pref.UserID)
	assert.False(t, pref.TransferEnabled)
	assert.Equal(t, models.PriorityHigh, pref.MinPriority)
}
