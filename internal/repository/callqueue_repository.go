package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/voicepoll/voice-survey-service/internal/domain"
)

const callQueueColumns = `id, contact_id, survey_id, call_sid, status, state, current_index,
	attempt_count, last_attempt_at, next_attempt_at, voice, language, notes, created_at, updated_at`

// CallQueueRepository handles the outbound call queue, including the
// persisted call-flow state the voice webhooks resume from.
type CallQueueRepository struct {
	db *sqlx.DB
}

func NewCallQueueRepository(db *sqlx.DB) *CallQueueRepository {
	return &CallQueueRepository{db: db}
}

func (r *CallQueueRepository) GetByID(ctx context.Context, id int64) (*domain.CallQueueEntry, error) {
	query := `SELECT ` + callQueueColumns + ` FROM call_queue WHERE id = ?`

	var entry domain.CallQueueEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get call queue entry: %w", err)
	}

	return &entry, nil
}

func (r *CallQueueRepository) GetByCallSID(ctx context.Context, callSID string) (*domain.CallQueueEntry, error) {
	query := `SELECT ` + callQueueColumns + ` FROM call_queue WHERE call_sid = ? ORDER BY created_at DESC LIMIT 1`

	var entry domain.CallQueueEntry
	if err := r.db.GetContext(ctx, &entry, query, callSID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get call queue entry by call sid: %w", err)
	}

	return &entry, nil
}

// Enqueue adds a pending call for a contact, optionally bound to a survey
// and carrying voice/language overrides.
func (r *CallQueueRepository) Enqueue(ctx context.Context, contactID int64, surveyID *int64, voice, language *string) (*domain.CallQueueEntry, error) {
	query := `
		INSERT INTO call_queue
			(contact_id, survey_id, status, state, current_index, attempt_count,
			 next_attempt_at, voice, language, created_at, updated_at)
		VALUES (?, ?, 'pending', 'greeting', 0, 0, CURRENT_TIMESTAMP, ?, ?,
		        CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`

	result, err := r.db.ExecContext(ctx, query, contactID, surveyID, voice, language)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue call: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.GetByID(ctx, id)
}

// GetDue returns pending entries whose next attempt time has passed,
// oldest first.
func (r *CallQueueRepository) GetDue(ctx context.Context, limit int) ([]domain.CallQueueEntry, error) {
	query := `SELECT ` + callQueueColumns + `
		FROM call_queue
		WHERE status = 'pending' AND (next_attempt_at IS NULL OR next_attempt_at <= CURRENT_TIMESTAMP)
		ORDER BY created_at ASC
		LIMIT ?`

	var entries []domain.CallQueueEntry
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get due call queue entries: %w", err)
	}

	return entries, nil
}

// MarkDialed transitions an entry to in_progress with the vendor call SID
// and bumps attempt_count. The count only moves up, never back.
func (r *CallQueueRepository) MarkDialed(ctx context.Context, id int64, callSID string) error {
	query := `
		UPDATE call_queue
		SET status = 'in_progress', call_sid = ?, state = 'greeting', current_index = 0,
		    attempt_count = attempt_count + 1, last_attempt_at = CURRENT_TIMESTAMP,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, callSID, id)
	if err != nil {
		return fmt.Errorf("failed to mark call as dialed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("no call queue entry found with id %d", id)
	}

	return nil
}

// MarkFailed records a failed attempt. Entries under the attempt cap are
// rescheduled for retry; the rest are abandoned.
func (r *CallQueueRepository) MarkFailed(ctx context.Context, id int64, maxAttempts int, backoff time.Duration) error {
	query := `
		UPDATE call_queue
		SET status = CASE WHEN attempt_count >= ? THEN 'abandoned' ELSE 'pending' END,
		    next_attempt_at = CASE WHEN attempt_count >= ? THEN NULL ELSE ? END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	retryAt := time.Now().Add(backoff)
	if _, err := r.db.ExecContext(ctx, query, maxAttempts, maxAttempts, retryAt, id); err != nil {
		return fmt.Errorf("failed to mark call as failed: %w", err)
	}

	return nil
}

// UpdateState advances the persisted call-flow state.
func (r *CallQueueRepository) UpdateState(ctx context.Context, id int64, state domain.CallState, currentIndex int) error {
	query := `
		UPDATE call_queue
		SET state = ?, current_index = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, state, currentIndex, id); err != nil {
		return fmt.Errorf("failed to update call state: %w", err)
	}

	return nil
}

// MarkCompleted finishes a call both in lifecycle status and flow state.
func (r *CallQueueRepository) MarkCompleted(ctx context.Context, id int64) error {
	query := `
		UPDATE call_queue
		SET status = 'completed', state = 'done', updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark call as completed: %w", err)
	}

	return nil
}

// AppendNote adds a line to the entry's free-text notes.
func (r *CallQueueRepository) AppendNote(ctx context.Context, id int64, note string) error {
	query := `
		UPDATE call_queue
		SET notes = CONCAT(COALESCE(notes, ''), ?), updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, note+"\n", id); err != nil {
		return fmt.Errorf("failed to append call note: %w", err)
	}

	return nil
}

// ResetForRetry re-arms a failed or abandoned entry for immediate manual
// retry.
func (r *CallQueueRepository) ResetForRetry(ctx context.Context, id int64) error {
	query := `
		UPDATE call_queue
		SET status = 'pending', state = 'greeting', current_index = 0,
		    next_attempt_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status IN ('failed', 'abandoned', 'pending')
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to reset call for retry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("no retryable call queue entry found with id %d", id)
	}

	return nil
}
