package handlers

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/voicepoll/voice-survey-service/internal/domain"
	"github.com/voicepoll/voice-survey-service/internal/service"
	"github.com/voicepoll/voice-survey-service/pkg/response"
	"github.com/voicepoll/voice-survey-service/pkg/validator"
)

type QuestionHandler struct {
	questions *service.QuestionService
}

func NewQuestionHandler(questions *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questions: questions}
}

type QuestionRequest struct {
	ID                int64    `json:"id,omitempty"`
	Text              string   `json:"text" validate:"required"`
	ResponseType      *string  `json:"responseType,omitempty" validate:"omitempty,oneof=Multiple-Choice Yes-No Numeric Open-Ended"`
	Options           []string `json:"options,omitempty"`
	FollowUpCondition *string  `json:"followUpCondition,omitempty"`
	FollowUpText      *string  `json:"followUpText,omitempty"`
}

// GetQuestions godoc
// @Summary List survey questions
// @Description Returns every stored question including follow-up drafts
// @Tags questions
// @Produce json
// @Success 200 {array} domain.Question
// @Failure 500 {object} response.ErrorResponse
// @Router /api/questions [get]
func (h *QuestionHandler) GetQuestions(c echo.Context) error {
	questions, err := h.questions.GetQuestions(c.Request().Context())
	if err != nil {
		return response.InternalError(c, "Failed to load questions", err)
	}

	if questions == nil {
		questions = []domain.Question{}
	}

	return response.Ok(c, map[string]any{"questions": questions})
}

// CreateQuestion godoc
// @Summary Create a survey question
// @Description Validates the text for spoken delivery, reformats it, and stores it
// @Tags questions
// @Accept json
// @Produce json
// @Param question body QuestionRequest true "Question to create"
// @Success 201 {object} domain.Question
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/questions [post]
func (h *QuestionHandler) CreateQuestion(c echo.Context) error {
	var req QuestionRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	created, suggestions, err := h.questions.CreateQuestion(c.Request().Context(), toQuestion(req))
	if err != nil {
		if errors.Is(err, service.ErrQuestionRejected) {
			return response.BadRequest(c, rejectionMessage(err))
		}
		return response.InternalError(c, "Failed to create question", err)
	}

	return response.Created(c, map[string]any{
		"question":    created,
		"suggestions": suggestions,
	})
}

// UpdateQuestion godoc
// @Summary Update a survey question
// @Description Re-validates and reformats the text, then updates the stored row
// @Tags questions
// @Accept json
// @Produce json
// @Param question body QuestionRequest true "Question to update (id required)"
// @Success 200 {object} domain.Question
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/questions [put]
func (h *QuestionHandler) UpdateQuestion(c echo.Context) error {
	var req QuestionRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	if req.ID <= 0 {
		return response.BadRequest(c, "id is required")
	}

	updated, suggestions, err := h.questions.UpdateQuestion(c.Request().Context(), req.ID, toQuestion(req))
	if err != nil {
		if errors.Is(err, service.ErrQuestionRejected) {
			return response.BadRequest(c, rejectionMessage(err))
		}
		return response.InternalError(c, "Failed to update question", err)
	}

	return response.Ok(c, map[string]any{
		"question":    updated,
		"suggestions": suggestions,
	})
}

func toQuestion(req QuestionRequest) domain.Question {
	return domain.Question{
		Text:              req.Text,
		ResponseType:      req.ResponseType,
		Options:           domain.StringList(req.Options),
		FollowUpCondition: req.FollowUpCondition,
		FollowUpText:      req.FollowUpText,
	}
}

// rejectionMessage strips the wrapping sentinel so clients see just the
// human-readable reason.
func rejectionMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}
