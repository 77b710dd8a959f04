package handlers

import (
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"

	"github.com/voicepoll/voice-survey-service/environments"
	"github.com/voicepoll/voice-survey-service/pkg/response"
)

// DiagHandler serves the operational probes the dashboard polls.
type DiagHandler struct {
	db     *sqlx.DB
	config *environments.Config
}

func NewDiagHandler(db *sqlx.DB, cfg *environments.Config) *DiagHandler {
	return &DiagHandler{db: db, config: cfg}
}

// DBTest godoc
// @Summary Database connectivity probe
// @Description Pings the database and reports per-table row counts
// @Tags diagnostics
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 500 {object} response.ErrorResponse
// @Router /api/db-test [get]
func (h *DiagHandler) DBTest(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.db.PingContext(ctx); err != nil {
		return response.InternalError(c, "Database unreachable", err)
	}

	counts := map[string]int64{}
	for _, table := range []string{"contacts", "questions", "surveys", "responses", "call_queue", "users"} {
		var n int64
		if err := h.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table); err != nil {
			return response.InternalError(c, "Failed to count rows in "+table, err)
		}
		counts[table] = n
	}

	return response.Ok(c, map[string]any{
		"connected": true,
		"rowCounts": counts,
	})
}

// CheckMock godoc
// @Summary Telephony backend mode
// @Description Reports whether outbound calls use the mock telephony flag
// @Tags diagnostics
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/check-mock [get]
func (h *DiagHandler) CheckMock(c echo.Context) error {
	return response.Ok(c, map[string]any{
		"mockTelephony": h.config.Backend.MockTelephony,
	})
}

// RealDB godoc
// @Summary Storage backend mode
// @Description Reports that the service runs against the real database backend
// @Tags diagnostics
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/real-db [get]
func (h *DiagHandler) RealDB(c echo.Context) error {
	return response.Ok(c, map[string]any{
		"forceRealDb": h.config.Backend.ForceRealDB,
		"backend":     "mysql",
	})
}
