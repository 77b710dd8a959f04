package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/voicepoll/voice-survey-service/internal/domain"
)

// SurveyRepository handles database operations for surveys and their
// question ordering.
type SurveyRepository struct {
	db *sqlx.DB
}

func NewSurveyRepository(db *sqlx.DB) *SurveyRepository {
	return &SurveyRepository{db: db}
}

func (r *SurveyRepository) GetAll(ctx context.Context) ([]domain.Survey, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM surveys
		ORDER BY created_at DESC
	`

	var surveys []domain.Survey
	if err := r.db.SelectContext(ctx, &surveys, query); err != nil {
		return nil, fmt.Errorf("failed to get surveys: %w", err)
	}

	return surveys, nil
}

func (r *SurveyRepository) GetByID(ctx context.Context, id int64) (*domain.Survey, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM surveys
		WHERE id = ?
	`

	var survey domain.Survey
	if err := r.db.GetContext(ctx, &survey, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get survey: %w", err)
	}

	return &survey, nil
}

func (r *SurveyRepository) Create(ctx context.Context, name, description string) (*domain.Survey, error) {
	query := `
		INSERT INTO surveys (name, description, created_at, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`

	result, err := r.db.ExecContext(ctx, query, name, description)
	if err != nil {
		return nil, fmt.Errorf("failed to create survey: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.GetByID(ctx, id)
}

// CountQuestions returns how many questions a survey carries.
func (r *SurveyRepository) CountQuestions(ctx context.Context, surveyID int64) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM survey_questions WHERE survey_id = ?`
	if err := r.db.GetContext(ctx, &count, query, surveyID); err != nil {
		return 0, fmt.Errorf("failed to count survey questions: %w", err)
	}

	return count, nil
}

// AttachQuestion appends a question at the given position. Position
// uniqueness within a survey is the caller's responsibility.
func (r *SurveyRepository) AttachQuestion(ctx context.Context, surveyID, questionID int64, position int) error {
	query := `
		INSERT INTO survey_questions (survey_id, question_id, position)
		VALUES (?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query, surveyID, questionID, position); err != nil {
		return fmt.Errorf("failed to attach question %d to survey %d: %w", questionID, surveyID, err)
	}

	return nil
}
