package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/modular-banking-backend/internal/api/handler"
	"github.com/modular-banking-backend/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	transferHandler *handler.TransferHandler,
	transactionHandler *handler.TransactionHandler,
	accountHandler *handler.AccountHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints, all behind the upstream-auth identity headers
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Identity())
	{
		v1.POST("/transfers", transferHandler.Create)
		v1.GET("/transactions", transactionHandler.List)

		accounts := v1.Group("/accounts")
		{
			accounts.POST("", accountHandler.Create)
			accounts.GET("", accountHandler.List)
			accounts.GET("/:number/balance", accountHandler.GetBalance)
			accounts.POST("/:number/deactivate", accountHandler.Deactivate)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
