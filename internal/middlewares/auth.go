package middlewares

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"

	"github.com/voicepoll/voice-survey-service/pkg/response"
)

const (
	APIKeyHeader = "x-vp-admin-key"
)

// secureCompare compares two strings in a way that is safer against timing attacks.
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// APIKeyAuth guards operational endpoints (dialer control, diagnostics)
// with a static admin key.
func APIKeyAuth(apiKey string) echo.MiddlewareFunc {
	// If the API key is not configured, treat this as a server-side misconfiguration.
	if apiKey == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return response.InternalError(c, "API key is not configured for this endpoint group", nil)
			}
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get(APIKeyHeader)
			if token == "" || !secureCompare(token, apiKey) {
				return response.Unauthorized(c, "Invalid or missing API key")
			}

			return next(c)
		}
	}
}
