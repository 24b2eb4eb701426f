package handler

import (
	"context"
	"net/http"
	"time"

	"stockroom/internal/obs"

	"github.com/labstack/echo/v4"
)

// *sql.DB がそのまま満たす
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthResponse struct {
	OK bool `json:"ok"`
}

type HealthHandler struct {
	db      Pinger
	timeout time.Duration
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db, timeout: 2 * time.Second}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.health)
}

func (h *HealthHandler) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		obs.Logger.Warn("health check failed", "request_id", requestID(c), "err", err)
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{OK: false})
	}
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}
