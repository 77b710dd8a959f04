package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestContext(method string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, "/test", nil)
	return e.NewContext(req, rec), rec
}

func TestInternalError_AttachesUpstreamDetail(t *testing.T) {
	c, rec := newTestContext(http.MethodGet)

	if err := InternalError(c, "Failed to load contacts", errors.New("connection refused")); err != nil {
		t.Fatalf("InternalError returned error: %v", err)
	}

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body.Error != "Failed to load contacts" {
		t.Errorf("expected the message, got %q", body.Error)
	}
	if body.Details != "connection refused" {
		t.Errorf("expected the upstream error as detail, got %q", body.Details)
	}
}

func TestInternalError_NilErrorOmitsDetail(t *testing.T) {
	c, rec := newTestContext(http.MethodGet)

	if err := InternalError(c, "Something broke", nil); err != nil {
		t.Fatalf("InternalError returned error: %v", err)
	}

	if strings.Contains(rec.Body.String(), "details") {
		t.Errorf("expected no details field, got %s", rec.Body.String())
	}
}

func TestBadRequest_StatusAndMessage(t *testing.T) {
	c, rec := newTestContext(http.MethodPost)

	if err := BadRequest(c, "id is required"); err != nil {
		t.Fatalf("BadRequest returned error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body.Error != "id is required" {
		t.Errorf("expected the message, got %q", body.Error)
	}
}

func TestTwiML_AnswersOKWithXMLContentType(t *testing.T) {
	c, rec := newTestContext(http.MethodPost)

	markup := `<?xml version="1.0" encoding="UTF-8"?><Response><Hangup></Hangup></Response>`
	if err := TwiML(c, markup); err != nil {
		t.Fatalf("TwiML returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.Contains(ct, "text/xml") {
		t.Errorf("expected a text/xml content type, got %q", ct)
	}
	if rec.Body.String() != markup {
		t.Errorf("expected the markup verbatim, got %s", rec.Body.String())
	}
}
