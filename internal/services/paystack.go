// internal/services/paystack.go
package services

import (
	"context"
	"log"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const paystackAPIBaseURL = "https://api.paystack.co"

var paystackChargeStatuses = map[string]Outcome{
	"success":    OutcomeCompleted,
	"failed":     OutcomeFailed,
	"reversed":   OutcomeFailed,
	"abandoned":  OutcomeCanceled,
	"pending":    OutcomePending,
	"ongoing":    OutcomePending,
	"processing": OutcomePending,
	"queued":     OutcomePending,
}

var paystackTransferStatuses = map[string]Outcome{
	"success":    OutcomeCompleted,
	"failed":     OutcomeFailed,
	"reversed":   OutcomeFailed,
	"rejected":   OutcomeCanceled,
	"blocked":    OutcomeCanceled,
	"abandoned":  OutcomeCanceled,
	"pending":    OutcomePending,
	"otp":        OutcomePending,
	"processing": OutcomePending,
	"received":   OutcomePending,
}

// paystackVerifyResponse is shared by the charge and transfer verify endpoints.
// Amounts are in the currency's minor unit.
type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    *struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Status    string `json:"status"`
	} `json:"data"`
}

type paystackAPIError struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// Paystack verifies payments by merchant reference. The same adapter serves
// incoming charges and outgoing transfers, which use different endpoints and
// status vocabularies.
type Paystack struct {
	client     *resty.Client
	timeout    time.Duration
	path       string
	vocabulary map[string]Outcome
}

func NewPaystackCharges(baseURL, secretKey string, timeout time.Duration) *Paystack {
	return newPaystack(baseURL, secretKey, timeout, "/transaction/verify/", paystackChargeStatuses)
}

func NewPaystackTransfers(baseURL, secretKey string, timeout time.Duration) *Paystack {
	return newPaystack(baseURL, secretKey, timeout, "/transfer/verify/", paystackTransferStatuses)
}

func newPaystack(baseURL, secretKey string, timeout time.Duration, path string, vocabulary map[string]Outcome) *Paystack {
	if baseURL == "" {
		baseURL = paystackAPIBaseURL
	}
	return &Paystack{
		client:     newClient(baseURL, secretKey, timeout),
		timeout:    effectiveTimeout(timeout),
		path:       path,
		vocabulary: vocabulary,
	}
}

// Verify calls Paystack to fetch the final status of a reference.
func (p *Paystack) Verify(ctx context.Context, reference string) (*Verification, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var successResp paystackVerifyResponse
	var errorResp paystackAPIError

	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&successResp).
		SetError(&errorResp).
		Get(p.path + url.PathEscape(reference))
	if err != nil {
		log.Printf("ERROR: Failed to execute Paystack verification for reference '%s': %v", reference, err)
		return nil, unavailable("paystack verify %s", reference)
	}
	if resp.IsError() {
		log.Printf("ERROR: Paystack verification returned an error for reference '%s' - Status: %s, Message: '%s'",
			reference, resp.Status(), errorResp.Message)
		return nil, responseError(resp.StatusCode(), "paystack verify %s returned %s", reference, resp.Status())
	}
	if !successResp.Status || successResp.Data == nil {
		return nil, unavailable("paystack verify %s: malformed response %q", reference, successResp.Message)
	}

	outcome, ok := classify(p.vocabulary, successResp.Data.Status)
	if !ok {
		return nil, unavailable("paystack verify %s: unknown status %q", reference, successResp.Data.Status)
	}
	log.Printf("INFO: Paystack verification for reference '%s' returned status: '%s'", reference, successResp.Data.Status)

	return &Verification{
		Outcome:         outcome,
		ProcessorStatus: successResp.Data.Status,
		Reference:       successResp.Data.Reference,
		Amount:          decimal.New(successResp.Data.Amount, -2),
		Currency:        successResp.Data.Currency,
	}, nil
}
