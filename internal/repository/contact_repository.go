package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/voicepoll/voice-survey-service/internal/domain"
)

// ContactRepository handles database operations for phone contacts.
type ContactRepository struct {
	db *sqlx.DB
}

func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) GetAll(ctx context.Context) ([]domain.Contact, error) {
	query := `
		SELECT id, name, phone, created_at, updated_at
		FROM contacts
		ORDER BY created_at DESC
	`

	var contacts []domain.Contact
	if err := r.db.SelectContext(ctx, &contacts, query); err != nil {
		return nil, fmt.Errorf("failed to get contacts: %w", err)
	}

	return contacts, nil
}

func (r *ContactRepository) GetByID(ctx context.Context, id int64) (*domain.Contact, error) {
	query := `
		SELECT id, name, phone, created_at, updated_at
		FROM contacts
		WHERE id = ?
	`

	var contact domain.Contact
	if err := r.db.GetContext(ctx, &contact, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	return &contact, nil
}

func (r *ContactRepository) Create(ctx context.Context, name, phone string) (*domain.Contact, error) {
	query := `
		INSERT INTO contacts (name, phone, created_at, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`

	result, err := r.db.ExecContext(ctx, query, name, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.GetByID(ctx, id)
}

// CreateBatch inserts contacts in one transaction and returns the created
// rows.
func (r *ContactRepository) CreateBatch(ctx context.Context, contacts []domain.Contact) ([]domain.Contact, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO contacts (name, phone, created_at, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`

	ids := make([]int64, 0, len(contacts))
	for _, contact := range contacts {
		result, err := tx.ExecContext(ctx, query, contact.Name, contact.Phone)
		if err != nil {
			return nil, fmt.Errorf("failed to insert contact %s: %w", contact.Phone, err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get last insert id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch insert: %w", err)
	}

	created := make([]domain.Contact, 0, len(ids))
	for _, id := range ids {
		contact, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if contact != nil {
			created = append(created, *contact)
		}
	}

	return created, nil
}

func (r *ContactRepository) Update(ctx context.Context, id int64, name, phone string) (*domain.Contact, error) {
	query := `
		UPDATE contacts
		SET name = ?, phone = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, name, phone, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		// The row may exist with identical values; distinguish via a read.
		existing, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("no contact found with id %d", id)
		}
	}

	return r.GetByID(ctx, id)
}

// FindByPhone returns the most recent contact with the given number, or nil.
func (r *ContactRepository) FindByPhone(ctx context.Context, phone string) (*domain.Contact, error) {
	query := `
		SELECT id, name, phone, created_at, updated_at
		FROM contacts
		WHERE phone = ?
		ORDER BY created_at DESC
		LIMIT 1
	`

	var contact domain.Contact
	if err := r.db.GetContext(ctx, &contact, query, phone); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find contact by phone: %w", err)
	}

	return &contact, nil
}
