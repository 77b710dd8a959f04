package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/voicepoll/voice-survey-service/internal/domain"
)

type surveyRepository interface {
	GetAll(ctx context.Context) ([]domain.Survey, error)
	GetByID(ctx context.Context, id int64) (*domain.Survey, error)
	Create(ctx context.Context, name, description string) (*domain.Survey, error)
	CountQuestions(ctx context.Context, surveyID int64) (int64, error)
	AttachQuestion(ctx context.Context, surveyID, questionID int64, position int) error
}

type SurveyService struct {
	repo surveyRepository
}

func NewSurveyService(repo surveyRepository) *SurveyService {
	return &SurveyService{repo: repo}
}

// ListWithCounts returns all surveys with their question counts. The
// per-survey count queries run concurrently; one failure fails the listing.
func (s *SurveyService) ListWithCounts(ctx context.Context) ([]domain.SurveyWithCount, error) {
	surveys, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]domain.SurveyWithCount, len(surveys))

	g, gctx := errgroup.WithContext(ctx)
	for i, survey := range surveys {
		result[i].Survey = survey

		g.Go(func() error {
			count, err := s.repo.CountQuestions(gctx, survey.ID)
			if err != nil {
				return err
			}
			result[i].QuestionCount = count
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *SurveyService) GetSurvey(ctx context.Context, id int64) (*domain.Survey, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *SurveyService) CreateSurvey(ctx context.Context, name, description string) (*domain.Survey, error) {
	return s.repo.Create(ctx, name, description)
}

func (s *SurveyService) AttachQuestion(ctx context.Context, surveyID, questionID int64, position int) error {
	return s.repo.AttachQuestion(ctx, surveyID, questionID, position)
}
