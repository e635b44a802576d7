package router

import (
	"github.com/labstack/echo/v4"

	"b2bmarket/internal/adapter/api/handler"
	"b2bmarket/internal/adapter/api/middleware"
	"b2bmarket/internal/infrastructure/ratelimit"
)

func SetupNegotiationRouter(e *echo.Echo, h *handler.NegotiationHandler, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	group := e.Group("/v1/negotiations")
	group.Use(authMiddleware.Authenticate)

	group.POST("", h.CreateNegotiation, middleware.RateLimit(limiter, ratelimit.ActionCreateNegotiation))
	group.GET("", h.ListNegotiations)
	group.GET("/:id", h.GetNegotiation)
	group.PATCH("/:id/status", h.UpdateStatus)
	group.POST("/:id/read", h.MarkAsRead)

	group.POST("/:id/messages", h.SendMessage, middleware.RateLimit(limiter, ratelimit.ActionSendMessage))
	group.GET("/:id/messages", h.GetMessages)
}
