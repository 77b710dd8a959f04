package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/voicepoll/voice-survey-service/internal/domain"
)

const questionColumns = `id, text, is_follow_up, parent_question_id, response_type,
	options, follow_up_condition, follow_up_text, created_at, updated_at`

// QuestionRepository handles database operations for questions.
type QuestionRepository struct {
	db *sqlx.DB
}

func NewQuestionRepository(db *sqlx.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

func (r *QuestionRepository) GetAll(ctx context.Context) ([]domain.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions ORDER BY created_at DESC`

	var questions []domain.Question
	if err := r.db.SelectContext(ctx, &questions, query); err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}

	return questions, nil
}

func (r *QuestionRepository) GetByID(ctx context.Context, id int64) (*domain.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE id = ?`

	var question domain.Question
	if err := r.db.GetContext(ctx, &question, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	return &question, nil
}

func (r *QuestionRepository) Create(ctx context.Context, q *domain.Question) (*domain.Question, error) {
	query := `
		INSERT INTO questions
			(text, is_follow_up, parent_question_id, response_type, options,
			 follow_up_condition, follow_up_text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`

	result, err := r.db.ExecContext(ctx, query,
		q.Text, q.IsFollowUp, q.ParentQuestionID, q.ResponseType, q.Options,
		q.FollowUpCondition, q.FollowUpText)
	if err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *QuestionRepository) Update(ctx context.Context, id int64, q *domain.Question) (*domain.Question, error) {
	query := `
		UPDATE questions
		SET text = ?, response_type = ?, options = ?,
		    follow_up_condition = ?, follow_up_text = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		q.Text, q.ResponseType, q.Options, q.FollowUpCondition, q.FollowUpText, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	if _, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}

	updated, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("no question found with id %d", id)
	}

	return updated, nil
}

// GetForSurvey returns a survey's questions in playback order via the
// survey_questions join.
func (r *QuestionRepository) GetForSurvey(ctx context.Context, surveyID int64) ([]domain.Question, error) {
	query := `
		SELECT q.id, q.text, q.is_follow_up, q.parent_question_id, q.response_type,
		       q.options, q.follow_up_condition, q.follow_up_text, q.created_at, q.updated_at
		FROM survey_questions sq
		JOIN questions q ON q.id = sq.question_id
		WHERE sq.survey_id = ?
		ORDER BY sq.position ASC
	`

	var questions []domain.Question
	if err := r.db.SelectContext(ctx, &questions, query, surveyID); err != nil {
		return nil, fmt.Errorf("failed to get survey questions: %w", err)
	}

	return questions, nil
}

// CreateFollowUpDraft stores a model-drafted follow-up question linked to
// its parent. Drafts are not played on live calls until attached to a
// survey.
func (r *QuestionRepository) CreateFollowUpDraft(ctx context.Context, parentID int64, text string) (*domain.Question, error) {
	draft := &domain.Question{
		Text:             text,
		IsFollowUp:       true,
		ParentQuestionID: &parentID,
	}
	return r.Create(ctx, draft)
}
