package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/voicepoll/voice-survey-service/internal/domain"
)

// E.164: a plus sign followed by 1-14 digits, first digit 1-9.
var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{0,13}$`)

var (
	// ErrNoValidNumbers marks a batch whose every number failed the E.164
	// gate, so handlers can answer with a client error.
	ErrNoValidNumbers = errors.New("no valid E.164 phone numbers in batch")

	ErrDuplicatePhone = errors.New("phone number already registered")
)

func IsE164(phone string) bool {
	return e164Pattern.MatchString(phone)
}

type contactRepository interface {
	GetAll(ctx context.Context) ([]domain.Contact, error)
	GetByID(ctx context.Context, id int64) (*domain.Contact, error)
	Create(ctx context.Context, name, phone string) (*domain.Contact, error)
	FindByPhone(ctx context.Context, phone string) (*domain.Contact, error)
	CreateBatch(ctx context.Context, contacts []domain.Contact) ([]domain.Contact, error)
	Update(ctx context.Context, id int64, name, phone string) (*domain.Contact, error)
}

type ContactService struct {
	repo contactRepository
}

func NewContactService(repo contactRepository) *ContactService {
	return &ContactService{repo: repo}
}

func (s *ContactService) GetContacts(ctx context.Context) ([]domain.Contact, error) {
	return s.repo.GetAll(ctx)
}

func (s *ContactService) GetContact(ctx context.Context, id int64) (*domain.Contact, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ContactService) CreateContact(ctx context.Context, name, phone string) (*domain.Contact, error) {
	if !IsE164(phone) {
		return nil, fmt.Errorf("phone number %q is not in E.164 format", phone)
	}

	existing, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePhone, phone)
	}

	return s.repo.Create(ctx, name, phone)
}

func (s *ContactService) UpdateContact(ctx context.Context, id int64, name, phone string) (*domain.Contact, error) {
	if !IsE164(phone) {
		return nil, fmt.Errorf("phone number %q is not in E.164 format", phone)
	}

	return s.repo.Update(ctx, id, name, phone)
}

// BatchResult reports what a batch submission actually persisted.
type BatchResult struct {
	Created []domain.Contact `json:"created"`
	Skipped []string         `json:"skipped,omitempty"`
}

// CreateBatch persists only the entries with valid E.164 numbers and
// reports the rejected numbers. An empty valid subset is an error.
func (s *ContactService) CreateBatch(ctx context.Context, contacts []domain.Contact) (*BatchResult, error) {
	valid := make([]domain.Contact, 0, len(contacts))
	var skipped []string

	for _, contact := range contacts {
		if IsE164(contact.Phone) {
			valid = append(valid, contact)
		} else {
			skipped = append(skipped, contact.Phone)
		}
	}

	if len(valid) == 0 {
		return nil, ErrNoValidNumbers
	}

	created, err := s.repo.CreateBatch(ctx, valid)
	if err != nil {
		return nil, err
	}

	return &BatchResult{Created: created, Skipped: skipped}, nil
}
