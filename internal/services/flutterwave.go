// internal/services/flutterwave.go
package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const flutterwaveAPIBaseURL = "https://api.flutterwave.com"

var flutterwaveStatuses = map[string]Outcome{
	"successful": OutcomeCompleted,
	"success":    OutcomeCompleted,
	"failed":     OutcomeFailed,
	"pending":    OutcomePending,
	"cancelled":  OutcomeCanceled,
	"canceled":   OutcomeCanceled,
}

// FlutterwaveInitRequest defines the structure for initializing a card payment.
type FlutterwaveInitRequest struct {
	TxRef          string          `json:"tx_ref"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	RedirectURL    string          `json:"redirect_url"`
	Customer       Customer        `json:"customer"`
	Customizations Customizations  `json:"customizations"`
}

type Customer struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phonenumber"`
}

type Customizations struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type flutterwaveInitResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

// flutterwaveVerifyResponse is the body of GET /v3/transactions/{id}/verify.
type flutterwaveVerifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    *struct {
		ID       int64           `json:"id"`
		TxRef    string          `json:"tx_ref"`
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
		Status   string          `json:"status"`
	} `json:"data"`
}

type flutterwaveAPIError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Flutterwave verifies card payments synchronously by processor transaction id.
type Flutterwave struct {
	client  *resty.Client
	timeout time.Duration
}

func NewFlutterwave(baseURL, secretKey string, timeout time.Duration) *Flutterwave {
	if baseURL == "" {
		baseURL = flutterwaveAPIBaseURL
	}
	return &Flutterwave{client: newClient(baseURL, secretKey, timeout), timeout: effectiveTimeout(timeout)}
}

// InitializePayment calls Flutterwave to create a payment and returns the checkout link.
func (f *Flutterwave) InitializePayment(ctx context.Context, req FlutterwaveInitRequest) (string, error) {
	var successResp flutterwaveInitResponse
	var errorResp flutterwaveAPIError

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&successResp).
		SetError(&errorResp).
		Post("/v3/payments")
	if err != nil {
		log.Printf("ERROR: Flutterwave initialize request failed for Tx_Ref '%s': %v", req.TxRef, err)
		return "", unavailable("could not connect to payment provider")
	}
	if resp.IsError() {
		log.Printf("ERROR: Flutterwave initialize error for Tx_Ref '%s' - Status: %s, Message: '%s'",
			req.TxRef, resp.Status(), errorResp.Message)
		return "", unavailable("flutterwave initialize returned %s", resp.Status())
	}
	if successResp.Status != "success" || successResp.Data.Link == "" {
		log.Printf("WARN: Flutterwave initialization was not successful for Tx_Ref '%s': Status '%s', Message: '%s'",
			req.TxRef, successResp.Status, successResp.Message)
		return "", fmt.Errorf("payment initialization failed: %s", successResp.Message)
	}
	return successResp.Data.Link, nil
}

// Verify calls Flutterwave to fetch the final status of a transaction id.
func (f *Flutterwave) Verify(ctx context.Context, processorTxID string) (*Verification, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var successResp flutterwaveVerifyResponse
	var errorResp flutterwaveAPIError

	resp, err := f.client.R().
		SetContext(ctx).
		SetResult(&successResp).
		SetError(&errorResp).
		Get("/v3/transactions/" + url.PathEscape(processorTxID) + "/verify")
	if err != nil {
		log.Printf("ERROR: Failed to execute Flutterwave verification for id '%s': %v", processorTxID, err)
		return nil, unavailable("flutterwave verify %s", processorTxID)
	}
	if resp.IsError() {
		log.Printf("ERROR: Flutterwave verification returned an error for id '%s' - Status: %s, Message: '%s'",
			processorTxID, resp.Status(), errorResp.Message)
		return nil, responseError(resp.StatusCode(), "flutterwave verify %s returned %s", processorTxID, resp.Status())
	}
	if successResp.Status != "success" || successResp.Data == nil {
		return nil, unavailable("flutterwave verify %s: malformed response %q", processorTxID, successResp.Message)
	}

	outcome, ok := classify(flutterwaveStatuses, successResp.Data.Status)
	if !ok {
		return nil, unavailable("flutterwave verify %s: unknown status %q", processorTxID, successResp.Data.Status)
	}
	log.Printf("INFO: Flutterwave verification for id '%s' (Tx_Ref '%s') returned status: '%s'",
		processorTxID, successResp.Data.TxRef, successResp.Data.Status)

	return &Verification{
		Outcome:         outcome,
		ProcessorStatus: successResp.Data.Status,
		Reference:       successResp.Data.TxRef,
		Amount:          successResp.Data.Amount,
		Currency:        successResp.Data.Currency,
	}, nil
}
