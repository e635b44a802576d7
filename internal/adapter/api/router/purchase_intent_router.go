package router

import (
	"github.com/labstack/echo/v4"

	"b2bmarket/internal/adapter/api/handler"
	"b2bmarket/internal/adapter/api/middleware"
	"b2bmarket/internal/infrastructure/ratelimit"
)

func SetupPurchaseIntentRouter(e *echo.Echo, h *handler.PurchaseIntentHandler, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	group := e.Group("/v1/purchase-intents")
	group.Use(authMiddleware.Authenticate)

	group.POST("", h.CreatePurchaseIntent, middleware.RateLimit(limiter, ratelimit.ActionCreateIntent))
	group.GET("", h.ListPurchaseIntents)
	group.GET("/by-number/:number", h.GetPurchaseIntentByNumber)
	group.GET("/:id", h.GetPurchaseIntent)
	group.GET("/:id/history", h.GetHistory)

	group.POST("/:id/submit", h.SubmitPurchaseIntent)
	group.POST("/:id/accept", h.AcceptPurchaseIntent)
	group.POST("/:id/cancel", h.CancelPurchaseIntent)
}
