package handlers

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/voicepoll/voice-survey-service/internal/domain"
	"github.com/voicepoll/voice-survey-service/internal/service"
	"github.com/voicepoll/voice-survey-service/pkg/response"
	"github.com/voicepoll/voice-survey-service/pkg/validator"
)

type ContactHandler struct {
	contacts *service.ContactService
	calls    *service.CallService
}

func NewContactHandler(contacts *service.ContactService, calls *service.CallService) *ContactHandler {
	return &ContactHandler{contacts: contacts, calls: calls}
}

type ContactRequest struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name" validate:"required,max=255"`
	Phone string `json:"phone" validate:"required"`
}

type BatchContactRequest struct {
	Contacts []ContactRequest `json:"contacts" validate:"required,min=1,dive"`
}

type EnqueueCallRequest struct {
	ContactID int64   `json:"contactId" validate:"required"`
	SurveyID  *int64  `json:"surveyId,omitempty"`
	Voice     *string `json:"voice,omitempty"`
	Language  *string `json:"language,omitempty"`
}

// GetContacts godoc
// @Summary List phone contacts
// @Description Returns all phone contacts, newest first
// @Tags phone
// @Produce json
// @Success 200 {array} domain.Contact
// @Failure 500 {object} response.ErrorResponse
// @Router /api/phone [get]
func (h *ContactHandler) GetContacts(c echo.Context) error {
	contacts, err := h.contacts.GetContacts(c.Request().Context())
	if err != nil {
		return response.InternalError(c, "Failed to load contacts", err)
	}

	if contacts == nil {
		contacts = []domain.Contact{}
	}

	return response.Ok(c, map[string]any{"contacts": contacts})
}

// CreateContact godoc
// @Summary Create a phone contact
// @Description Creates one contact with an E.164 phone number
// @Tags phone
// @Accept json
// @Produce json
// @Param contact body ContactRequest true "Contact to create"
// @Success 201 {object} domain.Contact
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/phone [post]
func (h *ContactHandler) CreateContact(c echo.Context) error {
	var req ContactRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	if !service.IsE164(req.Phone) {
		return response.BadRequest(c, "phone must be in E.164 format (+ followed by up to 14 digits)")
	}

	contact, err := h.contacts.CreateContact(c.Request().Context(), req.Name, req.Phone)
	if err != nil {
		if errors.Is(err, service.ErrDuplicatePhone) {
			return response.BadRequest(c, err.Error())
		}
		return response.InternalError(c, "Failed to create contact", err)
	}

	return response.Created(c, map[string]any{"contact": contact})
}

// UpdateContact godoc
// @Summary Update a phone contact
// @Description Updates a contact's name and phone number
// @Tags phone
// @Accept json
// @Produce json
// @Param contact body ContactRequest true "Contact to update (id required)"
// @Success 200 {object} domain.Contact
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/phone [put]
func (h *ContactHandler) UpdateContact(c echo.Context) error {
	var req ContactRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	if req.ID <= 0 {
		return response.BadRequest(c, "id is required")
	}

	if !service.IsE164(req.Phone) {
		return response.BadRequest(c, "phone must be in E.164 format (+ followed by up to 14 digits)")
	}

	existing, err := h.contacts.GetContact(c.Request().Context(), req.ID)
	if err != nil {
		return response.InternalError(c, "Failed to load contact", err)
	}
	if existing == nil {
		return response.NotFound(c, "Contact not found")
	}

	contact, err := h.contacts.UpdateContact(c.Request().Context(), req.ID, req.Name, req.Phone)
	if err != nil {
		return response.InternalError(c, "Failed to update contact", err)
	}

	return response.Ok(c, map[string]any{"contact": contact})
}

// CreateBatch godoc
// @Summary Create phone contacts in bulk
// @Description Persists only the entries with valid E.164 numbers; a batch with no valid numbers is rejected
// @Tags phone
// @Accept json
// @Produce json
// @Param batch body BatchContactRequest true "Contacts to create"
// @Success 201 {object} service.BatchResult
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/phone/batch [post]
func (h *ContactHandler) CreateBatch(c echo.Context) error {
	var req BatchContactRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	contacts := make([]domain.Contact, len(req.Contacts))
	for i, entry := range req.Contacts {
		contacts[i] = domain.Contact{Name: entry.Name, Phone: entry.Phone}
	}

	result, err := h.contacts.CreateBatch(c.Request().Context(), contacts)
	if err != nil {
		// An all-invalid batch is a client error; anything else is upstream.
		if errors.Is(err, service.ErrNoValidNumbers) {
			return response.BadRequest(c, err.Error())
		}
		return response.InternalError(c, "Failed to create contacts", err)
	}

	return response.Created(c, result)
}

// EnqueueCall godoc
// @Summary Queue an outbound survey call
// @Description Adds a pending call for a contact; the dialer places it on its next pass
// @Tags phone
// @Accept json
// @Produce json
// @Param call body EnqueueCallRequest true "Call to queue"
// @Success 201 {object} domain.CallQueueEntry
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/phone/call [post]
func (h *ContactHandler) EnqueueCall(c echo.Context) error {
	var req EnqueueCallRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	entry, err := h.calls.EnqueueCall(c.Request().Context(), req.ContactID, req.SurveyID, req.Voice, req.Language)
	if err != nil {
		return response.InternalError(c, "Failed to queue call", err)
	}

	return response.Created(c, map[string]any{"call": entry})
}

func parseID(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.QueryParam(name), 10, 64)
}
