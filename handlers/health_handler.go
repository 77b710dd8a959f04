package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"

	"github.com/voicepoll/voice-survey-service/pkg/redis"
)

// HealthHandler reports component connectivity.
type HealthHandler struct {
	db           *sqlx.DB
	sessions     *redis.Client
	checkTimeout time.Duration
}

func NewHealthHandler(db *sqlx.DB, sessions *redis.Client) *HealthHandler {
	return &HealthHandler{
		db:           db,
		sessions:     sessions,
		checkTimeout: 2 * time.Second,
	}
}

// Health returns overall status with DB and session-store connectivity.
// @Summary Health check
// @Description Returns overall status with database and session store connectivity results
// @Tags health
// @Produce json
// @Success 200 {object} map[string]any
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.checkTimeout)
	defer cancel()

	overallStatus := "ok"

	dbStatus := "up"
	if h.db == nil {
		dbStatus = "down"
		overallStatus = "down"
	} else if err := h.db.PingContext(ctx); err != nil {
		dbStatus = "down"
		overallStatus = "down"
	}

	sessionStatus := "disabled"
	if h.sessions != nil {
		if err := h.sessions.Ping(ctx); err != nil {
			sessionStatus = "down"
			overallStatus = "degraded"
		} else {
			sessionStatus = "up"
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().Format(time.RFC3339),
		"components": map[string]any{
			"database": map[string]any{
				"status": dbStatus,
			},
			"sessions": map[string]any{
				"status": sessionStatus,
			},
		},
	})
}
