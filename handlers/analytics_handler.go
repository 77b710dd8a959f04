package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/voicepoll/voice-survey-service/internal/service"
	"github.com/voicepoll/voice-survey-service/pkg/response"
)

type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// GetAnalytics godoc
// @Summary Survey response analytics
// @Description Per-question response counts, numeric averages, answer distributions, top insights, and daily volume for one survey
// @Tags analytics
// @Produce json
// @Param surveyId query int true "Survey ID"
// @Success 200 {object} service.SurveyAnalytics
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/analytics [get]
func (h *AnalyticsHandler) GetAnalytics(c echo.Context) error {
	surveyID, err := parseID(c, "surveyId")
	if err != nil || surveyID <= 0 {
		return response.BadRequest(c, "surveyId query parameter is required and must be a positive integer")
	}

	report, err := h.analytics.SurveyReport(c.Request().Context(), surveyID)
	if err != nil {
		return response.InternalError(c, "Failed to build analytics", err)
	}

	return response.Ok(c, report)
}
