package router

import (
	"github.com/labstack/echo/v4"

	"b2bmarket/internal/adapter/api/handler"
	"b2bmarket/internal/adapter/api/middleware"
	"b2bmarket/internal/infrastructure/ratelimit"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Negotiation    *handler.NegotiationHandler
	PurchaseIntent *handler.PurchaseIntentHandler
	Health         *handler.HealthHandler
	WebSocket      *handler.WebSocketHandler
}

func Setup(e *echo.Echo, h Handlers, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	SetupHealthRouter(e, h.Health)
	SetupNegotiationRouter(e, h.Negotiation, authMiddleware, limiter)
	SetupPurchaseIntentRouter(e, h.PurchaseIntent, authMiddleware, limiter)
	if h.WebSocket != nil {
		SetupWebSocketRouter(e, h.WebSocket)
	}
}
