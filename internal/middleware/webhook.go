// File: internal/middleware/webhook.go
package middleware

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"

	"go-leasegate/internal/apperr"
	"go-leasegate/internal/webhook"

	"github.com/gin-gonic/gin"
)

// SignatureHeader is where Paystack sends the HMAC-SHA512 of the body.
const SignatureHeader = "x-paystack-signature"

// SecretHashHeader is where Flutterwave echoes the shared webhook hash.
const SecretHashHeader = "verif-hash"

// RejectionCounter is told about every webhook refused at the gate.
type RejectionCounter interface {
	WebhookRejected(reason string)
}

// VerifyWebhook aborts with 400 unless the raw body carries a valid
// signature. The body is restored so the handler can bind it afterwards.
func VerifyWebhook(gate *webhook.Gate, rejected RejectionCounter) gin.HandlerFunc {
	if rejected == nil {
		rejected = noRejectionCounter{}
	}
	return func(c *gin.Context) {
		signature := c.GetHeader(SignatureHeader)
		if signature == "" {
			log.Printf("SECURITY: Webhook rejected from %s. Missing %s header.", c.ClientIP(), SignatureHeader)
			reject(c, rejected, "missing_signature", "Signature header is required")
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			log.Printf("ERROR: Failed to read webhook body: %v", err)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Cannot read request body"})
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		if !gate.Accept(body, signature) {
			log.Printf("SECURITY: Webhook rejected from %s. Invalid signature.", c.ClientIP())
			reject(c, rejected, "invalid_signature", "Invalid signature")
			return
		}

		c.Next()
	}
}

// VerifySecretHash aborts with 400 unless the request carries the shared
// webhook hash.
func VerifySecretHash(hash *webhook.SecretHash, rejected RejectionCounter) gin.HandlerFunc {
	if rejected == nil {
		rejected = noRejectionCounter{}
	}
	return func(c *gin.Context) {
		header := c.GetHeader(SecretHashHeader)
		if header == "" {
			log.Printf("SECURITY: Webhook rejected from %s. Missing %s header.", c.ClientIP(), SecretHashHeader)
			reject(c, rejected, "missing_signature", "Signature header is required")
			return
		}
		if !hash.Accept(header) {
			log.Printf("SECURITY: Webhook rejected from %s. Invalid %s.", c.ClientIP(), SecretHashHeader)
			reject(c, rejected, "invalid_signature", "Invalid signature")
			return
		}
		c.Next()
	}
}

func reject(c *gin.Context, rejected RejectionCounter, reason, message string) {
	rejected.WebhookRejected(reason)
	err := fmt.Errorf("%s: %w", reason, apperr.ErrSignature)
	_ = c.Error(err)
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"message": message})
}

type noRejectionCounter struct{}

func (noRejectionCounter) WebhookRejected(string) {}
