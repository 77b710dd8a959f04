package repository

import (
	"context"
	"fmt"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"

	"github.com/voicepoll/voice-survey-service/internal/domain"
)

// ResponseRepository handles recorded answers and the aggregate queries
// behind analytics. The aggregate selects are composed with sqlbuilder
// because their shape varies with the schema capabilities.
type ResponseRepository struct {
	db   *sqlx.DB
	caps domain.SchemaCapabilities
}

func NewResponseRepository(db *sqlx.DB, caps domain.SchemaCapabilities) *ResponseRepository {
	return &ResponseRepository{db: db, caps: caps}
}

func (r *ResponseRepository) Capabilities() domain.SchemaCapabilities {
	return r.caps
}

// Create persists one answer. The optional analysis columns are only
// written when the connected schema has them.
func (r *ResponseRepository) Create(ctx context.Context, resp *domain.Response) (int64, error) {
	ib := sqlbuilder.MySQL.NewInsertBuilder()
	ib.InsertInto("responses")

	cols := []string{"contact_id", "question_id", "answer", "recorded_at"}
	vals := []any{resp.ContactID, resp.QuestionID, resp.Answer, sqlbuilder.Raw("CURRENT_TIMESTAMP")}

	if r.caps.HasNumericValue {
		cols = append(cols, "numeric_value")
		vals = append(vals, resp.NumericValue)
	}
	if r.caps.HasKeyInsights {
		cols = append(cols, "key_insight")
		vals = append(vals, resp.KeyInsight)
	}

	ib.Cols(cols...)
	ib.Values(vals...)

	query, args := ib.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to create response: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return id, nil
}

// QuestionCount is one question's text and answer tally within a survey.
type QuestionCount struct {
	QuestionID int64  `db:"question_id" json:"questionId"`
	Text       string `db:"text" json:"text"`
	Count      int64  `db:"cnt" json:"count"`
}

func (r *ResponseRepository) CountByQuestion(ctx context.Context, surveyID int64) ([]QuestionCount, error) {
	sb := sqlbuilder.MySQL.NewSelectBuilder()
	sb.Select("q.id AS question_id", "q.text", "COUNT(resp.id) AS cnt").
		From("survey_questions sq").
		Join("questions q", "q.id = sq.question_id").
		JoinWithOption(sqlbuilder.LeftJoin, "responses resp", "resp.question_id = q.id").
		Where(sb.Equal("sq.survey_id", surveyID)).
		GroupBy("q.id", "q.text", "sq.position").
		OrderBy("sq.position")

	query, args := sb.Build()

	var counts []QuestionCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to count responses by question: %w", err)
	}

	return counts, nil
}

// NumericValue is one non-null numeric answer within a survey.
type NumericValue struct {
	QuestionID int64   `db:"question_id" json:"questionId"`
	Value      float64 `db:"numeric_value" json:"value"`
}

// NumericValues returns all non-null numeric answers for a survey's
// questions. Callers must not invoke this when the column is absent.
func (r *ResponseRepository) NumericValues(ctx context.Context, surveyID int64) ([]NumericValue, error) {
	sb := sqlbuilder.MySQL.NewSelectBuilder()
	sb.Select("resp.question_id", "resp.numeric_value").
		From("responses resp").
		Join("survey_questions sq", "sq.question_id = resp.question_id").
		Where(
			sb.Equal("sq.survey_id", surveyID),
			sb.IsNotNull("resp.numeric_value"),
		)

	query, args := sb.Build()

	var values []NumericValue
	if err := r.db.SelectContext(ctx, &values, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get numeric values: %w", err)
	}

	return values, nil
}

// TopKeyInsights returns the most recent non-empty key insights, newest
// first, up to limit.
func (r *ResponseRepository) TopKeyInsights(ctx context.Context, surveyID int64, limit int) ([]string, error) {
	sb := sqlbuilder.MySQL.NewSelectBuilder()
	sb.Select("resp.key_insight").
		From("responses resp").
		Join("survey_questions sq", "sq.question_id = resp.question_id").
		Where(
			sb.Equal("sq.survey_id", surveyID),
			sb.IsNotNull("resp.key_insight"),
			sb.NotEqual("resp.key_insight", ""),
		).
		OrderBy("resp.recorded_at").Desc().
		Limit(limit)

	query, args := sb.Build()

	var insights []string
	if err := r.db.SelectContext(ctx, &insights, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get key insights: %w", err)
	}

	return insights, nil
}

// DailyCount is the answer tally for one calendar day.
type DailyCount struct {
	Day   string `db:"day" json:"day"`
	Count int64  `db:"cnt" json:"count"`
}

func (r *ResponseRepository) DailyCounts(ctx context.Context, surveyID int64) ([]DailyCount, error) {
	sb := sqlbuilder.MySQL.NewSelectBuilder()
	sb.Select("DATE(resp.recorded_at) AS day", "COUNT(*) AS cnt").
		From("responses resp").
		Join("survey_questions sq", "sq.question_id = resp.question_id").
		Where(sb.Equal("sq.survey_id", surveyID)).
		GroupBy("DATE(resp.recorded_at)").
		OrderBy("day")

	query, args := sb.Build()

	var counts []DailyCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get daily counts: %w", err)
	}

	return counts, nil
}
