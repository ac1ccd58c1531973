// Package webhook ingests asynchronous events from the ledger provider. The
// endpoint always acknowledges with 200 — a handler failure is logged and
// audited for manual replay, never bounced back to the provider, which would
// only trigger a redelivery storm.
package webhook

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/meridianpay/custodyops/internal/models"
	"github.com/meridianpay/custodyops/internal/service"
)

var (
	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_webhook_events_total",
		Help: "Webhook events received, labeled by type and outcome",
	}, []string{"type", "outcome"})
)

type Pipeline struct {
	customers       *service.CustomerService
	wallets         *service.WalletService
	transfers       *service.TransferService
	cards           *service.CardService
	virtualAccounts *service.VirtualAccountService
	notifier        *service.Notifier
	auditor         *service.AuditRecorder
	logger          *zap.Logger
}

func NewPipeline(
	customers *service.CustomerService,
	wallets *service.WalletService,
	transfers *service.TransferService,
	cards *service.CardService,
	virtualAccounts *service.VirtualAccountService,
	notifier *service.Notifier,
	auditor *service.AuditRecorder,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		customers:       customers,
		wallets:         wallets,
		transfers:       transfers,
		cards:           cards,
		virtualAccounts: virtualAccounts,
		notifier:        notifier,
		auditor:         auditor,
		logger:          logger,
	}
}

// Handle is the single inbound webhook endpoint. Regardless of handler
// outcome the provider sees 200 {"received": true}; internal failures add an
// error field and an audit row carrying the raw event for replay.
func (p *Pipeline) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		p.acknowledge(w, "read failure")
		return
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		p.logger.Warn("webhook body not parseable", zap.Error(err))
		webhookEventsTotal.WithLabelValues("unparseable", "ignored").Inc()
		p.acknowledge(w, "malformed body")
		return
	}

	kind := ParseEventKind(env.Type)
	p.auditor.RecordAsync(models.AuditLogEntry{
		Kind:      models.AuditWebhookReceived,
		EventType: env.Type,
		Payload:   body,
	})

	if kind == EventUnknown {
		// Not an error: the provider ships event types we do not consume.
		p.logger.Info("ignoring unknown webhook type", zap.String("type", env.Type))
		webhookEventsTotal.WithLabelValues(env.Type, "ignored").Inc()
		p.acknowledge(w, "")
		return
	}

	if err := p.dispatch(r, kind, env); err != nil {
		p.logger.Error("webhook handler failed",
			zap.String("type", env.Type),
			zap.String("event_id", env.ID),
			zap.Error(err))
		p.auditor.RecordAsync(models.AuditLogEntry{
			Kind:      models.AuditWebhookFailed,
			EventType: env.Type,
			Payload:   body,
			Error:     err.Error(),
		})
		webhookEventsTotal.WithLabelValues(env.Type, "failed").Inc()
		p.acknowledge(w, "handler failure")
		return
	}

	webhookEventsTotal.WithLabelValues(env.Type, "handled").Inc()
	p.acknowledge(w, "")
}

// dispatch routes one parsed event to its handler, converting a handler
// panic into an error so one poisoned event cannot take down the endpoint.
func (p *Pipeline) dispatch(r *http.Request, kind EventKind, env Envelope) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &panicError{value: rec}
		}
	}()

	ctx := r.Context()
	switch kind {
	case EventCustomerUpdated:
		return p.handleCustomerUpdated(ctx, env)
	case EventTransferUpdated:
		return p.handleTransferUpdated(ctx, env)
	case EventCardTransactionCreated:
		return p.handleCardTransactionCreated(ctx, env)
	case EventVirtualAccountDepositCreated:
		return p.handleDepositCreated(ctx, env)
	case EventWalletTransactionCreated:
		return p.handleWalletTransaction(ctx, env, false)
	case EventWalletTransactionConfirmed:
		return p.handleWalletTransaction(ctx, env, true)
	default:
		return nil
	}
}

func (p *Pipeline) acknowledge(w http.ResponseWriter, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	resp := map[string]any{"received": true}
	if errMsg != "" {
		resp["error"] = errMsg
	}
	json.NewEncoder(w).Encode(resp)
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.value)
}
