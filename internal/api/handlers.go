package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/meridianpay/custodyops/internal/models"
	"github.com/meridianpay/custodyops/internal/service"
	"github.com/meridianpay/custodyops/internal/store"
)

// ---- KYC ----

func (h *Handler) StartKYCHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/kyc"))
	defer timer.ObserveDuration()

	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondOK(w, r, "/kyc", http.StatusBadRequest, map[string]string{"error": "Malformed JSON body"})
		return
	}

	result, err := h.customers.StartKYC(r.Context(), userID(r), service.StartKYCRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		h.respondServiceError(w, r, "/kyc", err)
		return
	}
	h.respondOK(w, r, "/kyc", http.StatusCreated, result)
}

func (h *Handler) GetKYCStatusHandler(w http.ResponseWriter, r *http.Request) {
	customer, err := h.customers.Get(r.Context(), userID(r))
	if err != nil {
		h.respondServiceError(w, r, "/kyc", err)
		return
	}
	h.respondOK(w, r, "/kyc", http.StatusOK, customer)
}

func (h *Handler) SyncKYCHandler(w http.ResponseWriter, r *http.Request) {
	customer, err := h.customers.ManualSync(r.Context(), userID(r))
	if err != nil {
		h.respondServiceError(w, r, "/kyc/sync", err)
		return
	}
	h.respondOK(w, r, "/kyc/sync", http.StatusOK, customer)
}

// ---- Wallets ----

func (h *Handler) CreateWalletHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Chain string `json:"chain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondOK(w, r, "/wallets", http.StatusBadRequest, map[string]string{"error": "Malformed JSON body"})
		return
	}

	wallet, err := h.wallets.Create(r.Context(), userID(r), req.Chain)
	if err != nil {
		h.respondServiceError(w, r, "/wallets", err)
		return
	}
	h.respondOK(w, r, "/wallets", http.StatusCreated, wallet)
}

func (h *Handler) ListWalletsHandler(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.wallets.List(r.Context(), userID(r))
	if err != nil {
		h.respondServiceError(w, r, "/wallets", err)
		return
	}
	h.respondOK(w, r, "/wallets", http.StatusOK, map[string]any{"wallets": wallets})
}

func (h *Handler) GetWalletHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.respondServiceError(w, r, "/wallets/{id}", err)
		return
	}
	wallet, err := h.wallets.Get(r.Context(), userID(r), id)
	if err != nil {
		h.respondServiceError(w, r, "/wallets/{id}", err)
		return
	}
	h.respondOK(w, r, "/wallets/{id}", http.StatusOK, wallet)
}

func (h *Handler) GetBalancesHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.respondServiceError(w, r, "/wallets/{id}/balances", err)
		return
	}
	balances, err := h.wallets.Balances(r.Context(), userID(r), id)
	if err != nil {
		h.respondServiceError(w, r, "/wallets/{id}/balances", err)
		return
	}
	h.respondOK(w, r, "/wallets/{id}/balances", http.StatusOK, map[string]any{"balances": balances})
}

func (h *Handler) RefreshBalancesHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.respondServiceError(w, r, "/wallets/{id}/balances/refresh", err)
		return
	}
	if _, err := h.wallets.Get(r.Context(), userID(r), id); err != nil {
		h.respondServiceError(w, r, "/wallets/{id}/balances/refresh", err)
		return
	}
	if err := h.wallets.RefreshBalances(r.Context(), id); err != nil {
		h.respondServiceError(w, r, "/wallets/{id}/balances/refresh", err)
		return
	}
	balances, err := h.wallets.Balances(r.Context(), userID(r), id)
	if err != nil {
		h.respondServiceError(w, r, "/wallets/{id}/balances/refresh", err)
		return
	}
	h.respondOK(w, r, "/wallets/{id}/balances/refresh", http.StatusOK, map[string]any{"balances": balances})
}

// ---- Transfers ----

func (h *Handler) CreateTransferHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/transfers"))
	defer timer.ObserveDuration()

	var req struct {
		Kind           string                     `json:"kind"`
		Amount         decimal.Decimal            `json:"amount"`
		Currency       string                     `json:"currency"`
		SourceWalletID string                     `json:"source_wallet_id"`
		Destination    models.TransferDestination `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondOK(w, r, "/transfers", http.StatusBadRequest, map[string]string{"error": "Malformed JSON body"})
		return
	}

	sourceID, err := bodyUUID(req.SourceWalletID, "source_wallet_id")
	if err != nil {
		h.respondServiceError(w, r, "/transfers", err)
		return
	}

	transfer, err := h.transfers.Create(r.Context(), userID(r), service.CreateTransferInput{
		Kind:           models.TransferKind(req.Kind),
		Amount:         req.Amount,
		Currency:       req.Currency,
		SourceWalletID: sourceID,
		Destination:    req.Destination,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.respondServiceError(w, r, "/transfers", err)
		return
	}
	h.respondOK(w, r, "/transfers", http.StatusCreated, transfer)
}

func (h *Handler) ListTransfersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	transfers, err := h.transfers.List(r.Context(), userID(r), store.TransferFilter{
		Kind:   models.TransferKind(q.Get("kind")),
		Status: models.TransferStatus(q.Get("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.respondServiceError(w, r, "/transfers", err)
		return
	}
	h.respondOK(w, r, "/transfers", http.StatusOK, map[string]any{"transfers": transfers})
}

func (h *Handler) GetTransferHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.respondServiceError(w, r, "/transfers/{id}", err)
		return
	}
	transfer, err := h.transfers.Get(r.Context(), userID(r), id)
	if err != nil {
		h.respondServiceError(w, r, "/transfers/{id}", err)
		return
	}
	h.respondOK(w, r, "/transfers/{id}", http.StatusOK, transfer)
}

func (h *Handler) CancelTransferHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.respondServiceError(w, r, "/transfers/{id}/cancel", err)
		return
	}
	transfer, err := h.transfers.Cancel(r.Context(), userID(r), id)
	if err != nil {
		h.respondServiceError(w, r, "/transfers/{id}/cancel", err)
		return
	}
	h.respondOK(w, r, "/transfers/{id}/cancel", http.StatusOK, transfer)
}

// ---- Cards ----

func (h *Handler) CreateCardHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type  string `json:"type"`
		Brand string `json:"brand"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondOK(w, r, "/cards", http.StatusBadRequest, map[string]string{"error": "Malformed JSON body"})
		return
	}

	card, err := h.cards.Create(r.Context(), userID(r), models.CardType(req.Type), models.CardBrand(req.Brand))
	if err != nil {
		h.respondServiceError(w, r, "/cards", err)
		return
	}
	h.respondOK(w, r, "/cards", http.StatusCreated, card)
}

func (h *Handler) ListCardsHandler(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cards.List(r.Context(), userID(r))
	if err != nil {
		h.respondServiceError(w, r, "/cards", err)
		return
	}
	h.respondOK(w, r, "/cards", http.StatusOK, map[string]any{"cards": cards})
}

func (h *Handler) GetCardHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.respondServiceError(w, r, "/cards/{id}", err)
		return
	}
	card, err := h.cards.Get(r.Context(), userID(r), id)
	if err != nil {
		h.respondServiceError(w, r, "/cards/{id}", err)
		return
	}
	h.respondOK(w, r, "/cards/{id}", http.StatusOK, card)
}

func (h *Handler) FreezeCardHandler(w http.ResponseWriter, r *http.Request) {
	h.setCardStatus(w, r, "/cards/{id}/freeze", h.cards.Freeze)
}

func (h *Handler) UnfreezeCardHandler(w http.ResponseWriter, r *http.Request) {
	h.setCardStatus(w, r, "/cards/{id}/unfreeze", h.cards.Unfreeze)
}

func (h *Handler) setCardStatus(w http.ResponseWriter, r *http.Request, endpoint string, op func(ctx context.Context, userID, cardID uuid.UUID) (*models.Card, error)) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.respondServiceError(w, r, endpoint, err)
		return
	}
	card, err := op(r.Context(), userID(r), id)
	if err != nil {
		h.respondServiceError(w, r, endpoint, err)
		return
	}
	h.respondOK(w, r, endpoint, http.StatusOK, card)
}

func (h *Handler) UpdateCardLimitsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.respondServiceError(w, r, "/cards/{id}/limits", err)
		return
	}
	var req struct {
		DailyLimit          decimal.Decimal `json:"daily_limit"`
		MonthlyLimit        decimal.Decimal `json:"monthly_limit"`
		PerTransactionLimit decimal.Decimal `json:"per_transaction_limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondOK(w, r, "/cards/{id}/limits", http.StatusBadRequest, map[string]string{"error": "Malformed JSON body"})
		return
	}
	card, err := h.cards.UpdateLimits(r.Context(), userID(r), id, req.DailyLimit, req.MonthlyLimit, req.PerTransactionLimit)
	if err != nil {
		h.respondServiceError(w, r, "/cards/{id}/limits", err)
		return
	}
	h.respondOK(w, r, "/cards/{id}/limits", http.StatusOK, card)
}

func (h *Handler) ListCardTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.respondServiceError(w, r, "/cards/{id}/transactions", err)
		return
	}
	if _, err := h.cards.Get(r.Context(), userID(r), id); err != nil {
		h.respondServiceError(w, r, "/cards/{id}/transactions", err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	txs, err := h.cards.Transactions(r.Context(), id, limit)
	if err != nil {
		h.respondServiceError(w, r, "/cards/{id}/transactions", err)
		return
	}
	h.respondOK(w, r, "/cards/{id}/transactions", http.StatusOK, map[string]any{"transactions": txs})
}

// ---- Virtual accounts & liquidation addresses ----

func (h *Handler) CreateVirtualAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Currency            string `json:"currency"`
		DestinationWalletID string `json:"destination_wallet_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondOK(w, r, "/virtual-accounts", http.StatusBadRequest, map[string]string{"error": "Malformed JSON body"})
		return
	}
	account, err := h.virtualAccounts.Create(r.Context(), userID(r), req.Currency, req.DestinationWalletID)
	if err != nil {
		h.respondServiceError(w, r, "/virtual-accounts", err)
		return
	}
	h.respondOK(w, r, "/virtual-accounts", http.StatusCreated, account)
}

func (h *Handler) ListVirtualAccountsHandler(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.virtualAccounts.List(r.Context(), userID(r))
	if err != nil {
		h.respondServiceError(w, r, "/virtual-accounts", err)
		return
	}
	h.respondOK(w, r, "/virtual-accounts", http.StatusOK, map[string]any{"virtual_accounts": accounts})
}

func (h *Handler) CreateLiquidationAddressHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Chain               string `json:"chain"`
		Currency            string `json:"currency"`
		DestinationRail     string `json:"destination_rail"`
		DestinationCurrency string `json:"destination_currency"`
		ExternalAccountID   string `json:"external_account_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondOK(w, r, "/liquidation-addresses", http.StatusBadRequest, map[string]string{"error": "Malformed JSON body"})
		return
	}
	address, err := h.liquidation.Create(r.Context(), userID(r), service.CreateLiquidationAddressInput{
		Chain:               req.Chain,
		Currency:            req.Currency,
		DestinationRail:     req.DestinationRail,
		DestinationCurrency: req.DestinationCurrency,
		ExternalAccountID:   req.ExternalAccountID,
	})
	if err != nil {
		h.respondServiceError(w, r, "/liquidation-addresses", err)
		return
	}
	h.respondOK(w, r, "/liquidation-addresses", http.StatusCreated, address)
}

func (h *Handler) ListLiquidationAddressesHandler(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.liquidation.List(r.Context(), userID(r))
	if err != nil {
		h.respondServiceError(w, r, "/liquidation-addresses", err)
		return
	}
	h.respondOK(w, r, "/liquidation-addresses", http.StatusOK, map[string]any{"liquidation_addresses": addresses})
}

func (h *Handler) ListLiquidationDrainsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.respondServiceError(w, r, "/liquidation-addresses/{id}/drains", err)
		return
	}
	drains, err := h.liquidation.Drains(r.Context(), userID(r), id)
	if err != nil {
		h.respondServiceError(w, r, "/liquidation-addresses/{id}/drains", err)
		return
	}
	h.respondOK(w, r, "/liquidation-addresses/{id}/drains", http.StatusOK, map[string]any{"drains": drains})
}

// ---- Notifications ----

func (h *Handler) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	unreadOnly := q.Get("unread") == "true"
	notifications, err := h.notifier.List(r.Context(), userID(r), unreadOnly, limit)
	if err != nil {
		h.respondServiceError(w, r, "/notifications", err)
		return
	}
	h.respondOK(w, r, "/notifications", http.StatusOK, map[string]any{"notifications": notifications})
}

func (h *Handler) MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.respondServiceError(w, r, "/notifications/{id}/read", err)
		return
	}
	if err := h.notifier.MarkRead(r.Context(), id, userID(r)); err != nil {
		h.respondServiceError(w, r, "/notifications/{id}/read", err)
		return
	}
	h.respondOK(w, r, "/notifications/{id}/read", http.StatusOK, map[string]bool{"read": true})
}

func (h *Handler) GetPreferencesHandler(w http.ResponseWriter, r *http.Request) {
	pref, err := h.notifier.GetPreference(r.Context(), userID(r))
	if err != nil {
		h.respondServiceError(w, r, "/notifications/preferences", err)
		return
	}
	h.respondOK(w, r, "/notifications/preferences", http.StatusOK, pref)
}

func (h *Handler) UpdatePreferencesHandler(w http.ResponseWriter, r *http.Request) {
	var pref models.NotificationPreference
	if err := json.NewDecoder(r.Body).Decode(&pref); err != nil {
		h.respondOK(w, r, "/notifications/preferences", http.StatusBadRequest, map[string]string{"error": "Malformed JSON body"})
		return
	}
	pref.UserID = userID(r)
	if err := h.notifier.UpdatePreference(r.Context(), pref); err != nil {
		h.respondServiceError(w, r, "/notifications/preferences", err)
		return
	}
	h.respondOK(w, r, "/notifications/preferences", http.StatusOK, pref)
}
