package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/voicepoll/voice-survey-service/environments"
	"github.com/voicepoll/voice-survey-service/internal/domain"
	"github.com/voicepoll/voice-survey-service/pkg/logger"
)

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

func RunMigrations(db *sqlx.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS contacts (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			phone VARCHAR(20) NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_contacts_phone (phone)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS questions (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			text TEXT NOT NULL,
			is_follow_up TINYINT(1) NOT NULL DEFAULT 0,
			parent_question_id BIGINT,
			response_type VARCHAR(30),
			options TEXT,
			follow_up_condition VARCHAR(255),
			follow_up_text TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_questions_parent (parent_question_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS surveys (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS survey_questions (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			survey_id BIGINT NOT NULL,
			question_id BIGINT NOT NULL,
			position INT NOT NULL,
			UNIQUE KEY uq_survey_question (survey_id, question_id),
			INDEX idx_survey_questions_survey (survey_id, position)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS responses (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			contact_id BIGINT NOT NULL,
			question_id BIGINT NOT NULL,
			answer TEXT NOT NULL,
			numeric_value DOUBLE,
			key_insight TEXT,
			recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_responses_question (question_id),
			INDEX idx_responses_recorded_at (recorded_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS call_queue (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			contact_id BIGINT NOT NULL,
			survey_id BIGINT,
			call_sid VARCHAR(100),
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			state VARCHAR(20) NOT NULL DEFAULT 'greeting',
			current_index INT NOT NULL DEFAULT 0,
			attempt_count INT NOT NULL DEFAULT 0,
			last_attempt_at DATETIME,
			next_attempt_at DATETIME,
			voice VARCHAR(100),
			language VARCHAR(20),
			notes TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_call_queue_status (status, next_attempt_at),
			INDEX idx_call_queue_call_sid (call_sid)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'user',
			password_hash VARCHAR(100) NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
	}

	for _, schema := range schemas {
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	logger.Infof("Database migrations completed")

	return nil
}

// ProbeCapabilities checks which optional response columns exist. Probing
// information_schema once at startup replaces per-request trial queries;
// handlers read the returned descriptor instead of interpreting "column
// does not exist" errors.
func ProbeCapabilities(db *sqlx.DB, dbName string) (domain.SchemaCapabilities, error) {
	caps := domain.SchemaCapabilities{}

	query := `
		SELECT COLUMN_NAME
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = 'responses'
		  AND COLUMN_NAME IN ('numeric_value', 'key_insight')
	`

	var columns []string
	if err := db.Select(&columns, query, dbName); err != nil {
		return caps, fmt.Errorf("failed to probe schema capabilities: %w", err)
	}

	for _, col := range columns {
		switch col {
		case "numeric_value":
			caps.HasNumericValue = true
		case "key_insight":
			caps.HasKeyInsights = true
		}
	}

	logger.Infof("Schema capabilities: numeric_value=%t key_insight=%t",
		caps.HasNumericValue, caps.HasKeyInsights)

	return caps, nil
}
