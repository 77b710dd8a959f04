package handlers

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/voicepoll/voice-survey-service/internal/domain"
	"github.com/voicepoll/voice-survey-service/internal/service"
	"github.com/voicepoll/voice-survey-service/pkg/response"
	"github.com/voicepoll/voice-survey-service/pkg/validator"
)

type SurveyHandler struct {
	surveys *service.SurveyService
}

func NewSurveyHandler(surveys *service.SurveyService) *SurveyHandler {
	return &SurveyHandler{surveys: surveys}
}

// GetSurveys godoc
// @Summary List surveys with question counts
// @Description Returns all surveys; each carries how many questions are attached
// @Tags surveys
// @Produce json
// @Success 200 {array} domain.SurveyWithCount
// @Failure 500 {object} response.ErrorResponse
// @Router /api/surveys [get]
func (h *SurveyHandler) GetSurveys(c echo.Context) error {
	surveys, err := h.surveys.ListWithCounts(c.Request().Context())
	if err != nil {
		return response.InternalError(c, "Failed to load surveys", err)
	}

	if surveys == nil {
		surveys = []domain.SurveyWithCount{}
	}

	return response.Ok(c, map[string]any{"surveys": surveys})
}

type SurveyRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
}

type AttachQuestionRequest struct {
	SurveyID   int64 `json:"surveyId" validate:"required"`
	QuestionID int64 `json:"questionId" validate:"required"`
	Position   int   `json:"position" validate:"required,min=1"`
}

// GetSurvey godoc
// @Summary Fetch one survey
// @Description Returns a single survey by id
// @Tags surveys
// @Produce json
// @Param id path int true "Survey ID"
// @Success 200 {object} domain.Survey
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/surveys/{id} [get]
func (h *SurveyHandler) GetSurvey(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return response.BadRequest(c, "id must be a positive integer")
	}

	survey, err := h.surveys.GetSurvey(c.Request().Context(), id)
	if err != nil {
		return response.InternalError(c, "Failed to load survey", err)
	}
	if survey == nil {
		return response.NotFound(c, "Survey not found")
	}

	return response.Ok(c, map[string]any{"survey": survey})
}

// CreateSurvey godoc
// @Summary Create a survey
// @Description Creates an empty survey; questions are attached separately
// @Tags surveys
// @Accept json
// @Produce json
// @Param survey body SurveyRequest true "Survey to create"
// @Success 201 {object} domain.Survey
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/surveys [post]
func (h *SurveyHandler) CreateSurvey(c echo.Context) error {
	var req SurveyRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	survey, err := h.surveys.CreateSurvey(c.Request().Context(), req.Name, req.Description)
	if err != nil {
		return response.InternalError(c, "Failed to create survey", err)
	}

	return response.Created(c, map[string]any{"survey": survey})
}

// AttachQuestion godoc
// @Summary Attach a question to a survey
// @Description Places an existing question at a position in the survey's playback order
// @Tags surveys
// @Accept json
// @Produce json
// @Param attachment body AttachQuestionRequest true "Question placement"
// @Success 200 {object} map[string]any
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/surveys/attach [post]
func (h *SurveyHandler) AttachQuestion(c echo.Context) error {
	var req AttachQuestionRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	survey, err := h.surveys.GetSurvey(c.Request().Context(), req.SurveyID)
	if err != nil {
		return response.InternalError(c, "Failed to load survey", err)
	}
	if survey == nil {
		return response.NotFound(c, "Survey not found")
	}

	if err := h.surveys.AttachQuestion(c.Request().Context(), req.SurveyID, req.QuestionID, req.Position); err != nil {
		return response.InternalError(c, "Failed to attach question", err)
	}

	return response.Ok(c, map[string]any{"attached": true})
}
