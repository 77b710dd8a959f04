package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/voicepoll/voice-survey-service/environments"
	"github.com/voicepoll/voice-survey-service/internal/domain"
	"github.com/voicepoll/voice-survey-service/pkg/logger"
	"github.com/voicepoll/voice-survey-service/pkg/telephony"
)

type dialQueueRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.CallQueueEntry, error)
	Enqueue(ctx context.Context, contactID int64, surveyID *int64, voice, language *string) (*domain.CallQueueEntry, error)
	GetDue(ctx context.Context, limit int) ([]domain.CallQueueEntry, error)
	MarkDialed(ctx context.Context, id int64, callSID string) error
	MarkFailed(ctx context.Context, id int64, maxAttempts int, backoff time.Duration) error
	ResetForRetry(ctx context.Context, id int64) error
}

type contactReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Contact, error)
}

type telephonyClient interface {
	PlaceCall(ctx context.Context, toNumber, voiceURL string) (*telephony.CallResource, error)
	GetTranscription(ctx context.Context, transcriptionSID string) (*telephony.TranscriptionResource, error)
}

// CallService owns outbound call placement: enqueueing, the dialer batch
// pass, and manual retries.
type CallService struct {
	queue    dialQueueRepository
	contacts contactReader
	twilio   telephonyClient
	config   environments.DialerConfig
	baseURL  string
}

func NewCallService(
	queue dialQueueRepository,
	contacts contactReader,
	twilio telephonyClient,
	config environments.DialerConfig,
	baseURL string,
) *CallService {
	return &CallService{
		queue:    queue,
		contacts: contacts,
		twilio:   twilio,
		config:   config,
		baseURL:  baseURL,
	}
}

func (s *CallService) EnqueueCall(ctx context.Context, contactID int64, surveyID *int64, voice, language *string) (*domain.CallQueueEntry, error) {
	contact, err := s.contacts.GetByID(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, fmt.Errorf("no contact found with id %d", contactID)
	}

	return s.queue.Enqueue(ctx, contactID, surveyID, voice, language)
}

// ProcessDueCalls places one call per due queue entry. Failures reschedule
// the entry until the attempt cap abandons it.
func (s *CallService) ProcessDueCalls(ctx context.Context) ([]domain.DialResult, error) {
	entries, err := s.queue.GetDue(ctx, s.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get due calls: %w", err)
	}

	if len(entries) == 0 {
		logger.Debugf("No due calls to place")
		return nil, nil
	}

	logger.Infof("Placing %d due calls", len(entries))

	results := make([]domain.DialResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, s.dial(ctx, &entry))
	}

	return results, nil
}

func (s *CallService) dial(ctx context.Context, entry *domain.CallQueueEntry) domain.DialResult {
	result := domain.DialResult{
		QueueID:  entry.ID,
		DialedAt: time.Now(),
	}

	contact, err := s.contacts.GetByID(ctx, entry.ContactID)
	if err == nil && contact == nil {
		err = fmt.Errorf("no contact found with id %d", entry.ContactID)
	}
	if err != nil {
		logger.Errorf("Failed to resolve contact for queue entry %d: %v", entry.ID, err)
		result.Error = err
		s.markFailed(ctx, entry.ID)
		return result
	}

	call, err := s.twilio.PlaceCall(ctx, contact.Phone, s.greetingURL(contact.Name))
	if err != nil {
		logger.Errorf("Failed to place call for queue entry %d: %v", entry.ID, err)
		result.Error = err
		s.markFailed(ctx, entry.ID)
		return result
	}

	if err := s.queue.MarkDialed(ctx, entry.ID, call.SID); err != nil {
		logger.Errorf("Failed to mark queue entry %d as dialed: %v", entry.ID, err)
		result.Error = err
		return result
	}

	logger.Infof("Placed call for queue entry %d (callSid: %s)", entry.ID, call.SID)

	result.Success = true
	result.CallSID = call.SID

	return result
}

func (s *CallService) markFailed(ctx context.Context, id int64) {
	if err := s.queue.MarkFailed(ctx, id, s.config.MaxAttempts, s.config.RetryBackoff); err != nil {
		logger.Errorf("Failed to mark queue entry %d as failed: %v", id, err)
	}
}

// RetryCall re-arms and immediately redials one queue entry.
func (s *CallService) RetryCall(ctx context.Context, id int64) (*domain.DialResult, error) {
	if err := s.queue.ResetForRetry(ctx, id); err != nil {
		return nil, err
	}

	entry, err := s.queue.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("no call queue entry found with id %d", id)
	}

	result := s.dial(ctx, entry)
	return &result, nil
}

// FetchTranscription pulls a recording transcription from the vendor when
// the webhook callback did not inline the text. Returns empty until the
// transcription job has completed.
func (s *CallService) FetchTranscription(ctx context.Context, transcriptionSID string) (string, error) {
	transcription, err := s.twilio.GetTranscription(ctx, transcriptionSID)
	if err != nil {
		return "", err
	}
	if transcription.Status != "completed" {
		return "", nil
	}
	return transcription.TranscriptionText, nil
}

func (s *CallService) greetingURL(contactName string) string {
	return fmt.Sprintf("%s/api/twilio/greeting?name=%s", s.baseURL, url.QueryEscape(contactName))
}
