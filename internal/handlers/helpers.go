// internal/handlers/helpers.go

package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"go-leasegate/internal/apperr"

	"github.com/gin-gonic/gin"
)

// returnError writes err in the single error shape every endpoint uses.
// Unexpected failures are logged and reported without detail.
func returnError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	message := err.Error()
	switch status {
	case http.StatusInternalServerError:
		log.Printf("ERROR: %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		message = "Internal server error."
	case http.StatusServiceUnavailable:
		message = "Payment processor unavailable, try again later."
	}
	c.JSON(status, gin.H{"error": message})
}

func generateShortTxRef() string {
	bytes := make([]byte, 12)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("fallback-tx-%d", time.Now().UnixNano())
	}
	return "tx-" + hex.EncodeToString(bytes)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
