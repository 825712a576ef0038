package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"go-leasegate/internal/apperr"
	"go-leasegate/internal/models"
	"go-leasegate/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

var maxPaymentAmount = decimal.RequireFromString("9999999999.99")

type InitiatePaymentRequest struct {
	Email       string          `json:"email" binding:"required,email"`
	Name        string          `json:"name" binding:"required"`
	PhoneNumber string          `json:"phonenumber"`
	Amount      decimal.Decimal `json:"amount"`
	RedirectURL string          `json:"redirect_url" binding:"required"`
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description" binding:"required"`
	AssetID     string          `json:"asset_id" binding:"required"`
	SubAssetID  string          `json:"sub_asset_id"`
	Currency    string          `json:"currency"`
	IsOutgoing  bool            `json:"is_outgoing"`
}

func (r *InitiatePaymentRequest) validateAmount() error {
	switch {
	case !r.Amount.IsPositive():
		return fmt.Errorf("amount must be greater than zero: %w", apperr.ErrValidation)
	case r.Amount.GreaterThan(maxPaymentAmount):
		return fmt.Errorf("amount exceeds %s: %w", maxPaymentAmount, apperr.ErrValidation)
	case !r.Amount.Round(2).Equal(r.Amount):
		return fmt.Errorf("amount has more than two decimal places: %w", apperr.ErrValidation)
	}
	return nil
}

// HandleInitiatePayment creates a checkout link and the pending ledger row
// that the later verification settles.
func (h *Handler) HandleInitiatePayment(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	if err := req.validateAmount(); err != nil {
		returnError(c, err)
		return
	}
	if req.Currency == "" {
		req.Currency = "NGN"
	}
	req.Currency = strings.ToUpper(req.Currency)

	ctx := c.Request.Context()
	asset, err := h.store.FindAsset(ctx, req.AssetID)
	if err != nil {
		returnError(c, fmt.Errorf("invalid asset_id: %w", apperr.ErrValidation))
		return
	}
	var subAssetID *string
	if req.SubAssetID != "" {
		ref, err := asset.ResourceRef(req.SubAssetID)
		if err != nil {
			returnError(c, err)
			return
		}
		if _, err := h.store.FindResource(ctx, ref); err != nil {
			returnError(c, fmt.Errorf("invalid sub_asset_id: %w", apperr.ErrValidation))
			return
		}
		subAssetID = &req.SubAssetID
	}

	txRef := generateShortTxRef()
	log.Printf("INFO: Initiating payment %s of %s %s for asset %s", txRef, req.Amount.StringFixed(2), req.Currency, asset.AssetNumber)

	link, err := h.payments.InitializePayment(ctx, services.FlutterwaveInitRequest{
		TxRef:       txRef,
		Amount:      req.Amount,
		Currency:    req.Currency,
		RedirectURL: req.RedirectURL,
		Customer: services.Customer{
			Email:       req.Email,
			Name:        req.Name,
			PhoneNumber: req.PhoneNumber,
		},
		Customizations: services.Customizations{
			Title:       req.Title,
			Description: req.Description,
		},
	})
	if err != nil {
		log.Printf("ERROR: Payment initialization failed for tx_ref %s: %v", txRef, err)
		returnError(c, err)
		return
	}

	assetID := asset.ID
	tx := &models.Transaction{
		TransactionRef: txRef,
		Provider:       services.ProviderFlutterwave,
		PaymentType:    "card",
		Amount:         req.Amount,
		Currency:       req.Currency,
		Status:         models.StatusPending,
		IsOutgoing:     req.IsOutgoing,
		AssetID:        &assetID,
		SubAssetID:     subAssetID,
		Name:           req.Name,
		Email:          req.Email,
		Description:    req.Description,
	}
	if err := h.store.CreateTransaction(ctx, tx); err != nil {
		log.Printf("ERROR: Checkout link issued for %s but transaction not stored: %v", txRef, err)
		returnError(c, err)
		return
	}

	log.Printf("SUCCESS: Checkout link generated for Tx_Ref: %s", txRef)
	c.JSON(http.StatusOK, gin.H{
		"payment_link":    link,
		"transaction_ref": txRef,
		"transaction_id":  tx.ID,
	})
}
