package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Spoken response types a question can expect.
const (
	ResponseTypeMultipleChoice = "Multiple-Choice"
	ResponseTypeYesNo          = "Yes-No"
	ResponseTypeNumeric        = "Numeric"
	ResponseTypeOpenEnded      = "Open-Ended"
)

// FollowUpAlways is the wildcard follow-up condition: ask the follow-up
// regardless of the primary answer. Any other condition is an expression
// evaluated against the spoken answer.
const FollowUpAlways = "*"

// StringList is a JSON-encoded list of strings stored in a TEXT column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal string list: %w", err)
	}
	return string(data), nil
}

func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}

	if len(data) == 0 {
		*l = nil
		return nil
	}

	return json.Unmarshal(data, l)
}

type Question struct {
	ID               int64      `db:"id" json:"id"`
	Text             string     `db:"text" json:"text"`
	IsFollowUp       bool       `db:"is_follow_up" json:"isFollowUp"`
	ParentQuestionID *int64     `db:"parent_question_id" json:"parentQuestionId,omitempty"`
	ResponseType     *string    `db:"response_type" json:"responseType,omitempty"`
	Options          StringList `db:"options" json:"options,omitempty"`
	// FollowUpCondition is either FollowUpAlways or an expression over the
	// spoken answer, e.g. `answer == "Yes"`.
	FollowUpCondition *string   `db:"follow_up_condition" json:"followUpCondition,omitempty"`
	FollowUpText      *string   `db:"follow_up_text" json:"followUpText,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}

type Survey struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// SurveyQuestion orders a question within a survey. Position is expected to
// be unique per survey for deterministic playback.
type SurveyQuestion struct {
	ID         int64 `db:"id" json:"id"`
	SurveyID   int64 `db:"survey_id" json:"surveyId"`
	QuestionID int64 `db:"question_id" json:"questionId"`
	Position   int   `db:"position" json:"position"`
}

// SurveyWithCount is a survey joined with its question count for listings.
type SurveyWithCount struct {
	Survey
	QuestionCount int64 `json:"questionCount"`
}

type Response struct {
	ID           int64     `db:"id" json:"id"`
	ContactID    int64     `db:"contact_id" json:"contactId"`
	QuestionID   int64     `db:"question_id" json:"questionId"`
	Answer       string    `db:"answer" json:"answer"`
	NumericValue *float64  `db:"numeric_value" json:"numericValue,omitempty"`
	KeyInsight   *string   `db:"key_insight" json:"keyInsight,omitempty"`
	RecordedAt   time.Time `db:"recorded_at" json:"recordedAt"`
}
