package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/voicepoll/voice-survey-service/internal/domain"
	"github.com/voicepoll/voice-survey-service/internal/service"
	"github.com/voicepoll/voice-survey-service/pkg/response"
	validatorpkg "github.com/voicepoll/voice-survey-service/pkg/validator"
)

// memQuestionStore stores questions in memory for handler tests.
type memQuestionStore struct {
	questions []domain.Question
	nextID    int64
}

func (m *memQuestionStore) GetAll(ctx context.Context) ([]domain.Question, error) {
	return m.questions, nil
}

func (m *memQuestionStore) GetByID(ctx context.Context, id int64) (*domain.Question, error) {
	for i := range m.questions {
		if m.questions[i].ID == id {
			return &m.questions[i], nil
		}
	}
	return nil, nil
}

func (m *memQuestionStore) Create(ctx context.Context, q *domain.Question) (*domain.Question, error) {
	m.nextID++
	stored := *q
	stored.ID = m.nextID
	m.questions = append(m.questions, stored)
	return &stored, nil
}

func (m *memQuestionStore) Update(ctx context.Context, id int64, q *domain.Question) (*domain.Question, error) {
	for i := range m.questions {
		if m.questions[i].ID == id {
			updated := *q
			updated.ID = id
			m.questions[i] = updated
			return &updated, nil
		}
	}
	return nil, nil
}

func TestCreateQuestion_FormatsForSpeech(t *testing.T) {
	store := &memQuestionStore{}
	handler := NewQuestionHandler(service.NewQuestionService(store))

	body := `{"text": "How satisfied are you with our service?", "responseType": "Yes-No"}`
	c, rec := newContactTestContext(t, http.MethodPost, "/api/questions", body)

	if err := handler.CreateQuestion(c); err != nil {
		t.Fatalf("CreateQuestion returned error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var payload struct {
		Question    domain.Question `json:"question"`
		Suggestions []string        `json:"suggestions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if !strings.Contains(payload.Question.Text, "service?") {
		t.Errorf("expected a question mark appended to the text, got %q", payload.Question.Text)
	}
	if !strings.Contains(payload.Question.Text, `Please say "Yes" or "No".`) {
		t.Errorf("expected a yes/no prompt appended, got %q", payload.Question.Text)
	}
}

func TestCreateQuestion_RejectsShortText(t *testing.T) {
	handler := NewQuestionHandler(service.NewQuestionService(&memQuestionStore{}))

	c, rec := newContactTestContext(t, http.MethodPost, "/api/questions", `{"text": "Short"}`)

	if err := handler.CreateQuestion(c); err != nil {
		t.Fatalf("CreateQuestion returned error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d: %s", http.StatusBadRequest, rec.Code, rec.Body.String())
	}

	var resp response.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if strings.Contains(resp.Error, "question rejected") {
		t.Errorf("expected the sentinel prefix to be stripped, got %q", resp.Error)
	}
	if !strings.Contains(resp.Error, "too short") {
		t.Errorf("expected a too-short message, got %q", resp.Error)
	}
}

func TestCreateQuestion_RejectsMissingPunctuation(t *testing.T) {
	handler := NewQuestionHandler(service.NewQuestionService(&memQuestionStore{}))

	body := `{"text": "How satisfied are you with our service", "responseType": "Yes-No"}`
	c, rec := newContactTestContext(t, http.MethodPost, "/api/questions", body)

	if err := handler.CreateQuestion(c); err != nil {
		t.Fatalf("CreateQuestion returned error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d: %s", http.StatusBadRequest, rec.Code, rec.Body.String())
	}

	var resp response.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if !strings.Contains(resp.Error, "question mark") {
		t.Errorf("expected a punctuation message, got %q", resp.Error)
	}
}

func TestCreateQuestion_ValidationFailure(t *testing.T) {
	handler := NewQuestionHandler(service.NewQuestionService(&memQuestionStore{}))

	c, rec := newContactTestContext(t, http.MethodPost, "/api/questions", `{"responseType": "Yes-No"}`)

	if err := handler.CreateQuestion(c); err != nil {
		t.Fatalf("CreateQuestion returned error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	var resp validatorpkg.ValidationErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if _, ok := resp.Details["text"]; !ok {
		t.Errorf("expected a validation detail for the text field, got %v", resp.Details)
	}
}

func TestUpdateQuestion_RequiresID(t *testing.T) {
	handler := NewQuestionHandler(service.NewQuestionService(&memQuestionStore{}))

	body := `{"text": "How satisfied are you with our service?"}`
	c, rec := newContactTestContext(t, http.MethodPut, "/api/questions", body)

	if err := handler.UpdateQuestion(c); err != nil {
		t.Fatalf("UpdateQuestion returned error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}
