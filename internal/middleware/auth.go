package middleware

import (
	"log"
	"net/http"
	"strings"

	"go-leasegate/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireServiceToken guards internal endpoints with a scoped bearer token
// minted by auth.Issuer.
func RequireServiceToken(issuer *auth.Issuer, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authorization header is required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token format, must be a Bearer token"})
			return
		}

		claims, err := issuer.Verify(tokenString, scope)
		if err != nil {
			log.Printf("WARN: Rejected service call to %s: %v", c.FullPath(), err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}

		c.Set("serviceSubject", claims.Subject)
		c.Next()
	}
}
