// internal/services/verifier.go
package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go-leasegate/internal/apperr"
	"go-leasegate/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const DefaultVerifyTimeout = 30 * time.Second

const (
	ProviderFlutterwave       = "flutterwave"
	ProviderPaystack          = "paystack"
	ProviderPaystackTransfers = "paystack-transfer"
)

// Outcome is the processor-independent result of a verification.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomePending   Outcome = "pending"
	OutcomeCanceled  Outcome = "canceled"
)

// Status returns the ledger status an outcome settles into. Pending has none.
func (o Outcome) Status() (models.TransactionStatus, bool) {
	switch o {
	case OutcomeCompleted:
		return models.StatusCompleted, true
	case OutcomeFailed:
		return models.StatusFailed, true
	case OutcomeCanceled:
		return models.StatusCanceled, true
	default:
		return "", false
	}
}

// Verification is the processor's ground truth for one payment.
type Verification struct {
	Outcome         Outcome
	ProcessorStatus string
	Reference       string
	Amount          decimal.Decimal
	Currency        string
}

// Verifier asks a processor for the final state of a payment. Errors never
// mean the payment failed. They wrap apperr.ErrProcessorUnavailable when a
// retry may succeed, and apperr.ErrNotFound or apperr.ErrValidation when the
// processor rejected the id itself.
type Verifier interface {
	Verify(ctx context.Context, processorTxID string) (*Verification, error)
}

func newClient(baseURL, secretKey string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(secretKey).
		SetHeader("Accept", "application/json").
		SetTimeout(effectiveTimeout(timeout))
}

func effectiveTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultVerifyTimeout
	}
	return d
}

func unavailable(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), apperr.ErrProcessorUnavailable)
}

func classify(vocabulary map[string]Outcome, status string) (Outcome, bool) {
	o, ok := vocabulary[strings.ToLower(strings.TrimSpace(status))]
	return o, ok
}

// responseError classifies a non-2xx processor answer. Timeouts, throttling,
// credential errors and 5xx stay retryable; other 4xx are final for this id.
func responseError(code int, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	switch {
	case code == http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, apperr.ErrNotFound)
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests,
		code == http.StatusUnauthorized, code == http.StatusForbidden:
		return unavailable("%s", msg)
	case code >= 400 && code < 500:
		return fmt.Errorf("%s: %w", msg, apperr.ErrValidation)
	default:
		return unavailable("%s", msg)
	}
}
