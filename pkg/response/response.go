package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is the uniform error envelope: a message plus optional
// upstream detail.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func Ok(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func Created(c echo.Context, payload any) error {
	return c.JSON(http.StatusCreated, payload)
}

func BadRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

func Unauthorized(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: message})
}

func NotFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, ErrorResponse{Error: message})
}

// InternalError surfaces an upstream failure as a 500 with the upstream
// error attached as detail.
func InternalError(c echo.Context, message string, err error) error {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	return c.JSON(http.StatusInternalServerError, resp)
}

// TwiML writes an XML instruction document. Voice webhooks always answer
// 200 so the vendor's call session keeps receiving parseable instructions.
func TwiML(c echo.Context, markup string) error {
	return c.Blob(http.StatusOK, "text/xml", []byte(markup))
}
