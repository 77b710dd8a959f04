package handlers

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/voicepoll/voice-survey-service/internal/middlewares"
	"github.com/voicepoll/voice-survey-service/internal/service"
	"github.com/voicepoll/voice-survey-service/pkg/response"
	"github.com/voicepoll/voice-survey-service/pkg/validator"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=255"`
	Password string `json:"password" validate:"required,min=8"`
}

type ProfileRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// Login godoc
// @Summary Authenticate a user
// @Description Verifies credentials and returns a bearer token with the user profile
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Email and password"
// @Success 200 {object} service.LoginResult
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	result, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return response.Unauthorized(c, "Invalid email or password")
		}
		return response.InternalError(c, "Failed to log in", err)
	}

	return response.Ok(c, result)
}

// SignUp godoc
// @Summary Register a new user
// @Description Creates an account and returns a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param account body SignUpRequest true "New account details"
// @Success 201 {object} service.LoginResult
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/auth/signup [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req SignUpRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	result, err := h.auth.SignUp(c.Request().Context(), req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			return response.BadRequest(c, "An account with that email already exists")
		}
		return response.InternalError(c, "Failed to sign up", err)
	}

	return response.Created(c, result)
}

// Logout godoc
// @Summary Sign out
// @Description Invalidates the current session token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 401 {object} response.ErrorResponse
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	session := middlewares.SessionFrom(c)
	if session == nil {
		return response.Unauthorized(c, "Not signed in")
	}

	if err := h.auth.Logout(c.Request().Context(), session.TokenID); err != nil {
		return response.InternalError(c, "Failed to log out", err)
	}

	return response.Ok(c, map[string]string{"message": "Signed out"})
}

// Me godoc
// @Summary Current user
// @Description Returns the profile of the authenticated user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.User
// @Failure 401 {object} response.ErrorResponse
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	session := middlewares.SessionFrom(c)
	if session == nil {
		return response.Unauthorized(c, "Not signed in")
	}

	user, err := h.auth.GetUser(c.Request().Context(), session.UserID)
	if err != nil {
		return response.InternalError(c, "Failed to load user", err)
	}
	if user == nil {
		return response.NotFound(c, "User not found")
	}

	return response.Ok(c, map[string]any{"user": user})
}

// UpdateProfile godoc
// @Summary Update the current user's profile
// @Description Changes the display name and refreshes the cached session
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body ProfileRequest true "New profile values"
// @Success 200 {object} domain.User
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /api/auth/profile [put]
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	session := middlewares.SessionFrom(c)
	if session == nil {
		return response.Unauthorized(c, "Not signed in")
	}

	var req ProfileRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	user, err := h.auth.UpdateProfile(c.Request().Context(), session, req.Name)
	if err != nil {
		return response.InternalError(c, "Failed to update profile", err)
	}

	return response.Ok(c, map[string]any{"user": user})
}
