package handlers

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/voicepoll/voice-survey-service/environments"
	"github.com/voicepoll/voice-survey-service/internal/scheduler"
	"github.com/voicepoll/voice-survey-service/pkg/response"
	"github.com/voicepoll/voice-survey-service/pkg/validator"
)

type DialerHandler struct {
	dialer *scheduler.Dialer
	ctx    context.Context
	config *environments.Config
}

type StartDialerRequest struct {
	Interval *int `json:"interval,omitempty" validate:"omitempty,min=1"`
}

func NewDialerHandler(dialer *scheduler.Dialer, ctx context.Context, cfg *environments.Config) *DialerHandler {
	return &DialerHandler{
		dialer: dialer,
		ctx:    ctx,
		config: cfg,
	}
}

// StartDialer godoc
// @Summary Start the outbound dialer
// @Description Starts the background loop that places queued survey calls
// @Tags dialer
// @Accept json
// @Produce json
// @Param x-vp-admin-key header string true "Admin API key"
// @Param request body StartDialerRequest false "Dialer parameters (optional)"
// @Success 200 {object} scheduler.DialerStatus
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/dialer/start [post]
func (h *DialerHandler) StartDialer(c echo.Context) error {
	if h.dialer.IsRunning() {
		return response.Ok(c, map[string]any{
			"message": "Dialer is already running",
			"status":  h.dialer.GetStatus(),
		})
	}

	var req StartDialerRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	intervalMinutes := int(h.config.Dialer.DialInterval.Minutes())
	if req.Interval != nil {
		intervalMinutes = *req.Interval
	}

	if err := h.dialer.StartWithParams(
		h.ctx,
		intervalMinutes,
		h.config.Alert.WebhookURL,
		h.config.Alert.IterationCount,
	); err != nil {
		return response.InternalError(c, "Failed to start dialer", err)
	}

	return response.Ok(c, map[string]any{
		"message": "Dialer started",
		"status":  h.dialer.GetStatus(),
	})
}

// StopDialer godoc
// @Summary Stop the outbound dialer
// @Description Stops the background dial loop; queued calls stay pending
// @Tags dialer
// @Produce json
// @Param x-vp-admin-key header string true "Admin API key"
// @Success 200 {object} scheduler.DialerStatus
// @Failure 500 {object} response.ErrorResponse
// @Router /api/dialer/stop [post]
func (h *DialerHandler) StopDialer(c echo.Context) error {
	if !h.dialer.IsRunning() {
		return response.Ok(c, map[string]any{
			"message": "Dialer is already stopped",
			"status":  h.dialer.GetStatus(),
		})
	}

	if err := h.dialer.Stop(); err != nil {
		return response.InternalError(c, "Failed to stop dialer", err)
	}

	return response.Ok(c, map[string]any{
		"message": "Dialer stopped",
		"status":  h.dialer.GetStatus(),
	})
}

// GetDialerStatus godoc
// @Summary Dialer status
// @Description Returns run counters and timing for the dial loop
// @Tags dialer
// @Produce json
// @Param x-vp-admin-key header string true "Admin API key"
// @Success 200 {object} scheduler.DialerStatus
// @Router /api/dialer/status [get]
func (h *DialerHandler) GetDialerStatus(c echo.Context) error {
	return response.Ok(c, h.dialer.GetStatus())
}
