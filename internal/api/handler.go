package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/meridianpay/custodyops/internal/apperr"
	"github.com/meridianpay/custodyops/internal/service"
	"github.com/meridianpay/custodyops/internal/webhook"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "custody_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "endpoint"})
)

type Handler struct {
	customers       *service.CustomerService
	wallets         *service.WalletService
	transfers       *service.TransferService
	cards           *service.CardService
	virtualAccounts *service.VirtualAccountService
	liquidation     *service.LiquidationAddressService
	notifier        *service.Notifier
	pipeline        *webhook.Pipeline
	logger          *zap.Logger
}

func NewHandler(
	customers *service.CustomerService,
	wallets *service.WalletService,
	transfers *service.TransferService,
	cards *service.CardService,
	virtualAccounts *service.VirtualAccountService,
	liquidation *service.LiquidationAddressService,
	notifier *service.Notifier,
	pipeline *webhook.Pipeline,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		customers:       customers,
		wallets:         wallets,
		transfers:       transfers,
		cards:           cards,
		virtualAccounts: virtualAccounts,
		liquidation:     liquidation,
		notifier:        notifier,
		pipeline:        pipeline,
		logger:          logger,
	}
}

// Router wires all routes. Authentication is delegated to the upstream
// identity provider; by the time a request reaches this service the gateway
// has verified the session and stamped X-User-ID.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.HandleFunc("/webhooks/provider", h.pipeline.Handle).Methods("POST")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(h.requireUser)

	api.HandleFunc("/kyc", h.StartKYCHandler).Methods("POST")
	api.HandleFunc("/kyc", h.GetKYCStatusHandler).Methods("GET")
	api.HandleFunc("/kyc/sync", h.SyncKYCHandler).Methods("POST")

	api.HandleFunc("/wallets", h.CreateWalletHandler).Methods("POST")
	api.HandleFunc("/wallets", h.ListWalletsHandler).Methods("GET")
	api.HandleFunc("/wallets/{id}", h.GetWalletHandler).Methods("GET")
	api.HandleFunc("/wallets/{id}/balances", h.GetBalancesHandler).Methods("GET")
	api.HandleFunc("/wallets/{id}/balances/refresh", h.RefreshBalancesHandler).Methods("POST")

	api.HandleFunc("/transfers", h.CreateTransferHandler).Methods("POST")
	api.HandleFunc("/transfers", h.ListTransfersHandler).Methods("GET")
	api.HandleFunc("/transfers/{id}", h.GetTransferHandler).Methods("GET")
	api.HandleFunc("/transfers/{id}/cancel", h.CancelTransferHandler).Methods("POST")

	api.HandleFunc("/cards", h.CreateCardHandler).Methods("POST")
	api.HandleFunc("/cards", h.ListCardsHandler).Methods("GET")
	api.HandleFunc("/cards/{id}", h.GetCardHandler).Methods("GET")
	api.HandleFunc("/cards/{id}/freeze", h.FreezeCardHandler).Methods("POST")
	api.HandleFunc("/cards/{id}/unfreeze", h.UnfreezeCardHandler).Methods("POST")
	api.HandleFunc("/cards/{id}/limits", h.UpdateCardLimitsHandler).Methods("PUT")
	api.HandleFunc("/cards/{id}/transactions", h.ListCardTransactionsHandler).Methods("GET")

	api.HandleFunc("/virtual-accounts", h.CreateVirtualAccountHandler).Methods("POST")
	api.HandleFunc("/virtual-accounts", h.ListVirtualAccountsHandler).Methods("GET")

	api.HandleFunc("/liquidation-addresses", h.CreateLiquidationAddressHandler).Methods("POST")
	api.HandleFunc("/liquidation-addresses", h.ListLiquidationAddressesHandler).Methods("GET")
	api.HandleFunc("/liquidation-addresses/{id}/drains", h.ListLiquidationDrainsHandler).Methods("GET")

	api.HandleFunc("/notifications", h.ListNotificationsHandler).Methods("GET")
	api.HandleFunc("/notifications/{id}/read", h.MarkNotificationReadHandler).Methods("POST")
	api.HandleFunc("/notifications/preferences", h.GetPreferencesHandler).Methods("GET")
	api.HandleFunc("/notifications/preferences", h.UpdatePreferencesHandler).Methods("PUT")

	return r
}

type contextKey string

const userIDKey contextKey = "user_id"

func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-User-ID")
		userID, err := uuid.Parse(raw)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Missing or invalid user identity")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userID(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(userIDKey).(uuid.UUID)
	return id
}

// respondServiceError maps the error taxonomy onto HTTP codes. Transient
// provider failures surface as a generic retry hint; terminal provider
// rejections carry the provider's detail through.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	var inputErr *apperr.InputError
	var precondErr *apperr.PreconditionError
	var providerErr *apperr.ProviderError

	status := http.StatusInternalServerError
	message := "Internal Server Error"

	switch {
	case errors.As(err, &inputErr):
		status = http.StatusUnprocessableEntity
		message = inputErr.Error()
	case errors.As(err, &precondErr):
		status = http.StatusPreconditionFailed
		message = precondErr.Error()
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
		message = "Not found"
	case errors.As(err, &providerErr):
		if providerErr.Transient {
			status = http.StatusServiceUnavailable
			message = "Service temporarily unavailable, please try again"
		} else {
			status = http.StatusBadGateway
			message = providerErr.Message
		}
		h.logger.Error("provider call failed",
			zap.String("endpoint", endpoint),
			zap.String("correlation_id", providerErr.CorrelationID),
			zap.Int("provider_status", providerErr.Status),
			zap.Error(err))
	default:
		h.logger.Error("request failed", zap.String("endpoint", endpoint), zap.Error(err))
	}

	httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
	respondWithError(w, status, message)
}

func (h *Handler) respondOK(w http.ResponseWriter, r *http.Request, endpoint string, status int, payload any) {
	httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
	respondWithJSON(w, status, payload)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := mux.Vars(r)[name]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Input(name, "must be a valid UUID")
	}
	return id, nil
}

func bodyUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Input(field, "must be a valid UUID")
	}
	return id, nil
}
