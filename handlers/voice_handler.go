package handlers

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/voicepoll/voice-survey-service/internal/service"
	"github.com/voicepoll/voice-survey-service/pkg/logger"
	"github.com/voicepoll/voice-survey-service/pkg/response"
	"github.com/voicepoll/voice-survey-service/pkg/validator"
)

// VoiceHandler serves the Twilio webhooks. Twilio treats any non-2xx (or
// non-TwiML) reply as a dead call, so every route here answers 200 with
// valid markup no matter what went wrong underneath.
type VoiceHandler struct {
	flow  *service.CallFlowService
	calls *service.CallService
}

func NewVoiceHandler(flow *service.CallFlowService, calls *service.CallService) *VoiceHandler {
	return &VoiceHandler{flow: flow, calls: calls}
}

// Greeting godoc
// @Summary Twilio greeting webhook
// @Description Speaks a personalized greeting and redirects into the question sequence
// @Tags twilio
// @Accept x-www-form-urlencoded
// @Produce xml
// @Success 200 {string} string "TwiML document"
// @Router /api/twilio/greeting [post]
func (h *VoiceHandler) Greeting(c echo.Context) error {
	markup := h.safely(func() string {
		return h.flow.Greeting(c.Request().Context(), service.GreetingInput{
			CallSID:      c.FormValue("CallSid"),
			SpeechResult: c.FormValue("SpeechResult"),
			DefaultName:  c.QueryParam("name"),
		})
	})
	return response.TwiML(c, markup)
}

// ContinueSurvey godoc
// @Summary Twilio question webhook
// @Description Speaks the question at the requested index or closes the call past the end
// @Tags twilio
// @Accept x-www-form-urlencoded
// @Produce xml
// @Param callSid query string true "Call SID"
// @Param start query int false "Question index to speak"
// @Success 200 {string} string "TwiML document"
// @Router /api/twilio/continue-survey [post]
func (h *VoiceHandler) ContinueSurvey(c echo.Context) error {
	markup := h.safely(func() string {
		callSID := c.QueryParam("callSid")
		if callSID == "" {
			callSID = c.FormValue("CallSid")
		}
		start, _ := strconv.Atoi(c.QueryParam("start"))
		return h.flow.ContinueSurvey(c.Request().Context(), callSID, start)
	})
	return response.TwiML(c, markup)
}

// Response godoc
// @Summary Twilio answer webhook
// @Description Captures one spoken answer, analyzes and stores it, then advances the call
// @Tags twilio
// @Accept x-www-form-urlencoded
// @Produce xml
// @Param callSid query string true "Call SID"
// @Param idx query int true "Question index just answered"
// @Param total query int true "Total questions in the sequence"
// @Param questionId query int false "Stored question id"
// @Param contactId query int false "Contact id"
// @Param followup query int false "1 when this answer is to a follow-up"
// @Success 200 {string} string "TwiML document"
// @Router /api/twilio/response [post]
func (h *VoiceHandler) Response(c echo.Context) error {
	markup := h.safely(func() string {
		idx, _ := strconv.Atoi(c.QueryParam("idx"))
		total, _ := strconv.Atoi(c.QueryParam("total"))
		questionID, _ := strconv.ParseInt(c.QueryParam("questionId"), 10, 64)
		contactID, _ := strconv.ParseInt(c.QueryParam("contactId"), 10, 64)

		callSID := c.QueryParam("callSid")
		if callSID == "" {
			callSID = c.FormValue("CallSid")
		}

		// Transcription callbacks sometimes carry only the SID; fetch the
		// text from the vendor in that case.
		transcriptionText := c.FormValue("TranscriptionText")
		if transcriptionText == "" && h.calls != nil {
			if sid := c.FormValue("TranscriptionSid"); sid != "" {
				fetched, err := h.calls.FetchTranscription(c.Request().Context(), sid)
				if err != nil {
					logger.Warnf("Failed to fetch transcription %s: %v", sid, err)
				} else {
					transcriptionText = fetched
				}
			}
		}

		return h.flow.HandleResponse(c.Request().Context(), service.ResponseInput{
			CallSID:             callSID,
			QuestionIndex:       idx,
			TotalQuestions:      total,
			QuestionID:          questionID,
			ContactID:           contactID,
			IsFollowUp:          c.QueryParam("followup") == "1",
			SpeechResult:        c.FormValue("SpeechResult"),
			Digits:              c.FormValue("Digits"),
			TranscriptionText:   transcriptionText,
			TranscriptionStatus: c.FormValue("TranscriptionStatus"),
		})
	})
	return response.TwiML(c, markup)
}

// TestInterrupt godoc
// @Summary Voice loop test endpoint
// @Description Emits a short fixed TwiML document for checking the voice path end to end
// @Tags twilio
// @Produce xml
// @Success 200 {string} string "TwiML document"
// @Router /api/twilio/test-interrupt [get]
func (h *VoiceHandler) TestInterrupt(c echo.Context) error {
	return response.TwiML(c, h.flow.TestInterrupt())
}

type RetryCallRequest struct {
	CallID int64 `json:"callId" validate:"required"`
}

// RetryCall godoc
// @Summary Retry a queued call
// @Description Resets a failed or abandoned queue entry and places the call again immediately
// @Tags twilio
// @Accept json
// @Produce json
// @Param retry body RetryCallRequest true "Queue entry to retry"
// @Success 200 {object} domain.DialResult
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/twilio/retry-call [post]
func (h *VoiceHandler) RetryCall(c echo.Context) error {
	var req RetryCallRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	result, err := h.calls.RetryCall(c.Request().Context(), req.CallID)
	if err != nil {
		return response.InternalError(c, "Failed to retry call", err)
	}

	return response.Ok(c, map[string]any{"result": result})
}

// safely runs a TwiML producer and converts panics into the generic
// apology markup so the caller never hears silence.
func (h *VoiceHandler) safely(produce func() string) (markup string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("voice webhook panic: %v", r)
			markup = h.flow.ErrorMarkup()
		}
	}()
	return produce()
}
