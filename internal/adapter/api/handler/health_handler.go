package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger checks one backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	storage Pinger
	name    string
}

func NewHealthHandler(name string, storage Pinger) *HealthHandler {
	return &HealthHandler{
		storage: storage,
		name:    name,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.storage.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "degraded",
			"storage": h.name,
			"error":   err.Error(),
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"storage": h.name,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
