package middlewares

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/voicepoll/voice-survey-service/internal/domain"
	"github.com/voicepoll/voice-survey-service/pkg/response"
)

// sessionContextKey is the echo context key the resolved session lives
// under for the duration of one request.
const sessionContextKey = "session"

type sessionResolver interface {
	Resolve(ctx context.Context, tokenString string) (*domain.Session, error)
}

// SessionAuth resolves the bearer token into a request-scoped session.
// The session travels on the echo context, never in package state, so
// concurrent requests cannot leak identities into each other.
func SessionAuth(resolver sessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if auth == "" || !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
				return response.Unauthorized(c, "Missing bearer token")
			}

			token := strings.TrimSpace(auth[len("bearer "):])

			session, err := resolver.Resolve(c.Request().Context(), token)
			if err != nil {
				return response.Unauthorized(c, "Invalid or expired session")
			}

			c.Set(sessionContextKey, session)

			return next(c)
		}
	}
}

// SessionFrom returns the session a SessionAuth middleware attached, or
// nil on unauthenticated routes.
func SessionFrom(c echo.Context) *domain.Session {
	session, _ := c.Get(sessionContextKey).(*domain.Session)
	return session
}
