package routes

import (
	"fmt"
	"log"
	"net/http"

	"go-leasegate/internal/auth"
	"go-leasegate/internal/handlers"
	"go-leasegate/internal/metrics"
	"go-leasegate/internal/middleware"
	"go-leasegate/internal/webhook"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(frontendURL string, h *handlers.Handler, gate *webhook.Gate, flwHash *webhook.SecretHash, issuer *auth.Issuer, m *metrics.Metrics) *gin.Engine {
	router := gin.Default()

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}
	if frontendURL == "" {
		log.Println("WARN: FRONTEND_URL not set. CORS will accept any origin.")
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsConfig.AllowOrigins = []string{frontendURL}
		log.Printf("INFO: CORS configured to allow origin: %s", frontendURL)
	}
	router.Use(cors.New(corsConfig))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	payment := router.Group("/payment")
	{
		payment.POST("/init", h.HandleInitiatePayment)
		payment.GET("/verify", h.HandleVerifyPayment)
	}

	router.POST("/webhook", middleware.VerifyWebhook(gate, m), h.HandleWebhook)
	router.POST("/webhook/flutterwave", middleware.VerifySecretHash(flwHash, m), h.HandleFlutterwaveWebhook)

	router.POST("/assets/:asset_number/control/:sub_asset_number",
		middleware.RequireServiceToken(issuer, auth.ScopeControl), h.HandleControl)

	log.Println("✅ Registered API Routes:")
	for _, route := range router.Routes() {
		log.Println(fmt.Sprintf("    - %-6s %s", route.Method, route.Path))
	}

	return router
}
