package routes

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	rt "lumera_back_end/internal/handlers/returns"
	"lumera_back_end/internal/middleware"
)

func RegisterRoutes(r *gin.Engine, h *rt.Handler) {
	r.Use(cors.New(corsConfig()))

	api := r.Group("/api")
	api.Use(middleware.APIRateLimit())

	// Éligibilité et historique (client authentifié ou invité à token).
	api.GET("/orders/:orderId/return-eligibility", h.GetOrderEligibility)
	api.GET("/orders/:orderId/returns", h.ListReturnsForOrder)
	api.GET("/returns", h.ListMyReturns)
	api.GET("/returns/:id", h.GetReturn)
	api.GET("/returns/:id/appeal", h.GetAppealForReturn)

	// Cycle de vie côté demandeur.
	api.POST("/returns", middleware.SubmitReturnRateLimit(), h.SubmitReturn)
	api.PUT("/returns/:id/items", h.UpdateReturnItems)
	api.POST("/returns/:id/cancel", h.CancelReturn)
	api.POST("/returns/:id/appeal", middleware.SubmitAppealRateLimit(), h.SubmitAppeal)

	// Callback du processeur de paiement (secret partagé, pas de JWT).
	api.POST("/returns/:id/refund-callback", h.RefundCallback)

	// Back-office opérateur.
	admin := api.Group("/admin", middleware.AuthRequired(), middleware.RequireOperator)
	admin.GET("/returns", h.ListPendingReturns)
	admin.POST("/returns/:id/decision", h.DecideReturn)
	admin.POST("/returns/:id/processing", h.StartProcessing)
	admin.POST("/appeals/:id/decision", h.DecideAppeal)
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowOrigins = strings.Split(origins, ",")
	} else {
		cfg.AllowOrigins = []string{"http://localhost:3000"}
	}
	cfg.AllowHeaders = append(cfg.AllowHeaders,
		"Authorization", "X-Pickup-Token", "X-Tracking-Token")
	cfg.AllowCredentials = true
	cfg.MaxAge = 12 * time.Hour
	return cfg
}
