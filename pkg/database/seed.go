package database

import (
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/voicepoll/voice-survey-service/internal/script"
	"github.com/voicepoll/voice-survey-service/pkg/logger"
)

// SeedDefaultSurvey loads the built-in survey script into the database so
// live calls can be driven from rows instead of the static script. It is a
// no-op when any survey already exists.
func SeedDefaultSurvey(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM surveys"); err != nil {
		return err
	}
	if count > 0 {
		logger.Infof("Database already has %d surveys, skipping seed", count)
		return nil
	}

	result, err := db.Exec(
		"INSERT INTO surveys (name, description) VALUES (?, ?)",
		"Customer Experience Survey",
		"Built-in phone survey about the customer's recent experience",
	)
	if err != nil {
		return fmt.Errorf("failed to create default survey: %w", err)
	}
	surveyID, err := result.LastInsertId()
	if err != nil {
		return err
	}

	position := 0
	for _, sq := range script.Default {
		// The closing line is spoken by the call flow itself, not asked.
		if sq.Type == script.TypeOutro {
			continue
		}

		questionID, err := insertScriptQuestion(db, sq)
		if err != nil {
			return err
		}

		position++
		if _, err := db.Exec(
			"INSERT INTO survey_questions (survey_id, question_id, position) VALUES (?, ?, ?)",
			surveyID, questionID, position,
		); err != nil {
			return fmt.Errorf("failed to attach question %q: %w", sq.ID, err)
		}
	}

	logger.Infof("Seeded default survey %d with %d questions", surveyID, position)
	return nil
}

func insertScriptQuestion(db *sqlx.DB, sq script.ScriptQuestion) (int64, error) {
	var responseType string
	switch sq.Type {
	case script.TypeChoice:
		responseType = "Multiple-Choice"
	case script.TypeIntro:
		responseType = "Yes-No"
	default:
		responseType = "Open-Ended"
	}

	var options any
	if len(sq.Options) > 0 {
		encoded, err := json.Marshal(sq.Options)
		if err != nil {
			return 0, err
		}
		options = string(encoded)
	}

	var followUpCondition, followUpText any
	if sq.FollowUp != nil {
		followUpCondition = sq.FollowUp.Condition
		followUpText = sq.FollowUp.Question
	}

	result, err := db.Exec(`
		INSERT INTO questions (text, response_type, options, follow_up_condition, follow_up_text)
		VALUES (?, ?, ?, ?, ?)`,
		sq.Prompt, responseType, options, followUpCondition, followUpText,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert question %q: %w", sq.ID, err)
	}

	return result.LastInsertId()
}
