// File: internal/handlers/settlement_handler.go
package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"go-leasegate/internal/services"
	"go-leasegate/internal/settlement"

	"github.com/gin-gonic/gin"
)

type paystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// flutterwaveEvent is the body of a Flutterwave webhook. data.id is the
// processor transaction id that verification needs.
type flutterwaveEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID    json.Number `json:"id"`
		TxRef string      `json:"tx_ref"`
	} `json:"data"`
}

// HandleVerifyPayment settles a card payment after the customer is
// redirected back from checkout.
func (h *Handler) HandleVerifyPayment(c *gin.Context) {
	txRef := c.Query("tx_ref")
	transactionID := c.Query("transaction_id")
	if txRef == "" || transactionID == "" {
		log.Printf("WARN: Verify called without tx_ref or transaction_id (tx_ref=%q)", txRef)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
		return
	}

	res, err := h.settlement.Settle(c.Request.Context(), settlement.Request{
		TxRef:       txRef,
		ProcessorID: transactionID,
		Provider:    services.ProviderFlutterwave,
	})
	if err != nil {
		returnError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlementResponse(res))
}

// HandleWebhook settles the payment a signed processor notification refers
// to. The signature has already been checked by middleware.
func (h *Handler) HandleWebhook(c *gin.Context) {
	var ev paystackEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		log.Printf("WARN: Webhook body is not a valid event: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook payload"})
		return
	}

	provider, ok := settlement.ProviderForEvent(ev.Event)
	if !ok {
		log.Printf("INFO: Webhook event %q ignored", ev.Event)
		c.JSON(http.StatusOK, gin.H{"message": "Event ignored"})
		return
	}
	if ev.Data.Reference == "" {
		log.Printf("WARN: Webhook event %q received without a reference", ev.Event)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Transaction reference is required"})
		return
	}

	log.Printf("INFO: Webhook %s received for Tx_Ref: %s", ev.Event, ev.Data.Reference)
	res, err := h.settlement.Settle(c.Request.Context(), settlement.Request{
		TxRef:       ev.Data.Reference,
		ProcessorID: ev.Data.Reference,
		Provider:    provider,
	})
	if err != nil {
		returnError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlementResponse(res))
}

// HandleFlutterwaveWebhook settles a card payment from Flutterwave's
// charge.completed notification, so settlement does not depend on the
// customer's browser reaching the redirect. The shared hash has already
// been checked by middleware.
func (h *Handler) HandleFlutterwaveWebhook(c *gin.Context) {
	var ev flutterwaveEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		log.Printf("WARN: Flutterwave webhook body is not a valid event: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook payload"})
		return
	}
	if ev.Event != "charge.completed" {
		log.Printf("INFO: Flutterwave webhook event %q ignored", ev.Event)
		c.JSON(http.StatusOK, gin.H{"message": "Event ignored"})
		return
	}
	if ev.Data.TxRef == "" || ev.Data.ID.String() == "" {
		log.Printf("WARN: Flutterwave %s received without tx_ref or id (tx_ref=%q)", ev.Event, ev.Data.TxRef)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Transaction reference and id are required"})
		return
	}

	log.Printf("INFO: Flutterwave %s received for Tx_Ref: %s (id %s)", ev.Event, ev.Data.TxRef, ev.Data.ID)
	res, err := h.settlement.Settle(c.Request.Context(), settlement.Request{
		TxRef:       ev.Data.TxRef,
		ProcessorID: ev.Data.ID.String(),
		Provider:    services.ProviderFlutterwave,
	})
	if err != nil {
		returnError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlementResponse(res))
}

func settlementResponse(res *settlement.Result) gin.H {
	body := gin.H{
		"transaction_ref": res.Transaction.TransactionRef,
		"status":          res.Transaction.Status,
	}
	switch {
	case res.AlreadyVerified:
		body["message"] = "Payment already verified"
	case res.Outcome == services.OutcomeCompleted:
		body["message"] = "Payment verified successfully"
	default:
		body["message"] = "Payment status updated to " + string(res.Outcome)
	}
	if res.Grant != nil {
		body["expires_at"] = res.Grant.ExpiresAt
		body["units"] = res.Grant.Units
	}
	return body
}
