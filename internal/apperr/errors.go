package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found in mirror")
	ErrPersistence     = errors.New("persistence failure")
	ErrRequestTooLarge = errors.New("request body too large")
)

// InputError reports missing or invalid caller-supplied fields. Never retried.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func Input(field, reason string) *InputError {
	return &InputError{Field: field, Reason: reason}
}

// PreconditionError reports an unmet precondition such as incomplete KYC.
// Surfaced immediately, never retried.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string { return e.Reason }

func Precondition(reason string) *PreconditionError {
	return &PreconditionError{Reason: reason}
}

// ProviderError is the normalized terminal failure from the ledger provider
// client: message, HTTP status if a response was received, the provider's raw
// error body, and the correlation ID attached to the failed call.
type ProviderError struct {
	Message       string
	Status        int
	Body          string
	CorrelationID string
	Transient     bool
}

func (e *ProviderError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("provider request failed: %s (correlation_id=%s)", e.Message, e.CorrelationID)
	}
	return fmt.Sprintf("provider request failed: %s (status=%d correlation_id=%s)", e.Message, e.Status, e.CorrelationID)
}

// IsTransient reports whether err is a provider failure that exhausted its
// retries (network loss or a retryable status), as opposed to a terminal
// rejection by the provider.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}
