package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/meridianpay/custodyops/internal/models"
)

// AuditRecorder appends audit rows off the caller's critical path. A failed
// write is logged and dropped; it must never fail or delay the operation
// that produced it.
type AuditRecorder struct {
	mirror  Mirror
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAuditRecorder(mirror Mirror, logger *zap.Logger) *AuditRecorder {
	return &AuditRecorder{mirror: mirror, logger: logger, timeout: 5 * time.Second}
}

// RecordAsync writes the entry on a detached goroutine. The background
// context decouples the write from the caller's (possibly cancelled) request.
func (r *AuditRecorder) RecordAsync(entry models.AuditLogEntry) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("audit write panicked", zap.Any("panic", p))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.mirror.InsertAuditEntry(ctx, entry); err != nil {
			r.logger.Warn("audit write failed",
				zap.String("kind", string(entry.Kind)),
				zap.String("event_type", entry.EventType),
				zap.Error(err))
		}
	}()
}

// Flush blocks until all in-flight audit writes finish. Used on shutdown and
// in tests.
func (r *AuditRecorder) Flush() {
	r.wg.Wait()
}
