package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/meridianpay/custodyops/internal/apperr"
	"github.com/meridianpay/custodyops/internal/config"
	"github.com/meridianpay/custodyops/internal/models"
)

var (
	providerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_provider_requests_total",
		Help: "Outbound ledger-provider attempts, labeled by method and final status class",
	}, []string{"method", "outcome"})

	providerRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "custody_provider_retries_total",
		Help: "Attempts beyond the first, across all outbound calls",
	})

	providerRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "custody_provider_request_duration_seconds",
		Help:    "Latency distribution of outbound provider calls, all attempts included",
		Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
)

// Auditor records provider interactions without ever blocking or failing the
// call that produced them.
type Auditor interface {
	RecordAsync(entry models.AuditLogEntry)
}

// RetryPolicy is consulted by the dispatch loop; it carries no mutable state.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Delay returns the backoff before the given attempt retries: base * 2^(n-1).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(1<<(attempt-1))
}

// Client is the single point of outbound communication with the ledger
// provider. One instance is shared by every service; it holds no per-request
// state.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	policy  RetryPolicy
	logger  *zap.Logger
	auditor Auditor
}

func NewClient(cfg *config.Config, logger *zap.Logger, auditor Auditor) *Client {
	return &Client{
		baseURL: cfg.ProviderBaseURL,
		apiKey:  cfg.ProviderAPIKey,
		httpc:   &http.Client{Timeout: cfg.ProviderTimeout},
		policy:  RetryPolicy{MaxAttempts: cfg.RetryMaxAttempts, BaseDelay: cfg.RetryBaseDelay},
		logger:  logger,
		auditor: auditor,
	}
}

type callOptions struct {
	idempotencyKey string
}

type CallOption func(*callOptions)

// WithIdempotencyKey pins the Idempotency-Key for a logical call. Callers
// that retry the same logical operation across process restarts must supply
// their own key; otherwise a fresh key is generated once per call and reused
// across that call's HTTP attempts.
func WithIdempotencyKey(key string) CallOption {
	return func(o *callOptions) { o.idempotencyKey = key }
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// do dispatches one logical call: marshal once, then attempt up to
// policy.MaxAttempts times with exponential backoff. The correlation ID and
// idempotency key are fixed before the first attempt and reused verbatim on
// every retry, so provider-side dedup sees one logical operation.
func (c *Client) do(ctx context.Context, method, path string, body, out any, opts ...CallOption) error {
	var options callOptions
	for _, opt := range opts {
		opt(&options)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	correlationID := uuid.NewString()
	idempotencyKey := options.idempotencyKey
	if idempotencyKey == "" && mutating(method) {
		idempotencyKey = uuid.NewString()
	}

	timer := prometheus.NewTimer(providerRequestDuration)
	defer timer.ObserveDuration()

	var lastErr *apperr.ProviderError
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			providerRetriesTotal.Inc()
			if err := sleep(ctx, c.policy.Delay(attempt-1)); err != nil {
				return err
			}
		}

		status, respBody, err := c.attempt(ctx, method, path, payload, correlationID, idempotencyKey)
		c.audit(method, path, status, correlationID, respBody, err)

		if err != nil {
			// No response received: network failure or timeout, always retryable.
			c.logger.Warn("provider request failed",
				zap.String("method", method),
				zap.String("path", path),
				zap.String("correlation_id", correlationID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			lastErr = &apperr.ProviderError{
				Message:       err.Error(),
				CorrelationID: correlationID,
				Transient:     true,
			}
			continue
		}

		if status >= 200 && status < 300 {
			providerRequestsTotal.WithLabelValues(method, "success").Inc()
			if out != nil && len(respBody) > 0 {
				if err := json.Unmarshal(respBody, out); err != nil {
					return fmt.Errorf("decode provider response: %w", err)
				}
			}
			return nil
		}

		perr := &apperr.ProviderError{
			Message:       http.StatusText(status),
			Status:        status,
			Body:          string(respBody),
			CorrelationID: correlationID,
			Transient:     retryableStatus(status),
		}
		if !perr.Transient {
			providerRequestsTotal.WithLabelValues(method, "terminal").Inc()
			return perr
		}
		c.logger.Warn("provider returned retryable status",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("correlation_id", correlationID),
			zap.Int("status", status),
			zap.Int("attempt", attempt))
		lastErr = perr
	}

	providerRequestsTotal.WithLabelValues(method, "exhausted").Inc()
	return lastErr
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, correlationID, idempotencyKey string) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}

	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("X-Correlation-ID", correlationID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func (c *Client) audit(method, path string, status int, correlationID string, body []byte, attemptErr error) {
	if c.auditor == nil {
		return
	}
	entry := models.AuditLogEntry{
		Kind:          models.AuditProviderRequest,
		Method:        method,
		Endpoint:      path,
		Status:        status,
		CorrelationID: correlationID,
		Payload:       json.RawMessage(body),
	}
	if attemptErr != nil {
		entry.Error = attemptErr.Error()
	}
	c.auditor.RecordAsync(entry)
}

// sleep waits for d without holding any lock, returning early on context
// cancellation.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
