package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/voicepoll/voice-survey-service/internal/domain"
	"github.com/voicepoll/voice-survey-service/internal/voicetext"
)

type questionStore interface {
	GetAll(ctx context.Context) ([]domain.Question, error)
	GetByID(ctx context.Context, id int64) (*domain.Question, error)
	Create(ctx context.Context, q *domain.Question) (*domain.Question, error)
	Update(ctx context.Context, id int64, q *domain.Question) (*domain.Question, error)
}

// ErrQuestionRejected marks validation failures so handlers can map them
// to client errors instead of server errors.
var ErrQuestionRejected = errors.New("question rejected")

type QuestionService struct {
	questions questionStore
}

func NewQuestionService(questions questionStore) *QuestionService {
	return &QuestionService{questions: questions}
}

func (s *QuestionService) GetQuestions(ctx context.Context) ([]domain.Question, error) {
	return s.questions.GetAll(ctx)
}

// CreateQuestion rewrites the text for speech, rejects questions that cannot
// be asked over a call, and returns voice-delivery suggestions alongside the
// stored row.
func (s *QuestionService) CreateQuestion(ctx context.Context, q domain.Question) (*domain.Question, []string, error) {
	meta := questionMetadata(&q)

	if msg := voicetext.ValidateVoiceQuestion(q.Text, meta); msg != "" {
		return nil, nil, fmt.Errorf("%w: %s", ErrQuestionRejected, msg)
	}

	q.Text = voicetext.FormatVoiceQuestion(q.Text, meta)

	created, err := s.questions.Create(ctx, &q)
	if err != nil {
		return nil, nil, err
	}

	return created, voicetext.SuggestVoiceImprovements(created.Text, meta), nil
}

func (s *QuestionService) UpdateQuestion(ctx context.Context, id int64, q domain.Question) (*domain.Question, []string, error) {
	meta := questionMetadata(&q)

	if msg := voicetext.ValidateVoiceQuestion(q.Text, meta); msg != "" {
		return nil, nil, fmt.Errorf("%w: %s", ErrQuestionRejected, msg)
	}

	q.Text = voicetext.FormatVoiceQuestion(q.Text, meta)

	updated, err := s.questions.Update(ctx, id, &q)
	if err != nil {
		return nil, nil, err
	}

	return updated, voicetext.SuggestVoiceImprovements(updated.Text, meta), nil
}
