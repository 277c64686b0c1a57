package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"homesync/internal/models"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// @Summary      Health check
// @Description  Pings the database
// @Tags         Health
// @Produce      json
// @Success      200  {object}  models.AuthResponse
// @Failure      500  {object}  models.AuthResponse
// @Router       /healthz [get]
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		h.logger.ErrorContext(ctx, "health check: db ping failed", "err", err)
		c.JSON(http.StatusInternalServerError, models.AuthResponse{Message: "Database connection failed."})
		return
	}
	c.JSON(http.StatusOK, models.AuthResponse{Success: true, Message: "DB connected!"})
}
