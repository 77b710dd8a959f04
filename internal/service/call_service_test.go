package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/voicepoll/voice-survey-service/environments"
	"github.com/voicepoll/voice-survey-service/internal/domain"
	"github.com/voicepoll/voice-survey-service/pkg/telephony"
)

type markFailedCall struct {
	id          int64
	maxAttempts int
	backoff     time.Duration
}

type fakeDialQueue struct {
	byID        map[int64]*domain.CallQueueEntry
	due         []domain.CallQueueEntry
	enqueued    []int64
	dialed      []string
	failedCalls []markFailedCall
	resets      []int64
}

func (f *fakeDialQueue) GetByID(ctx context.Context, id int64) (*domain.CallQueueEntry, error) {
	return f.byID[id], nil
}

func (f *fakeDialQueue) Enqueue(ctx context.Context, contactID int64, surveyID *int64, voice, language *string) (*domain.CallQueueEntry, error) {
	f.enqueued = append(f.enqueued, contactID)
	return &domain.CallQueueEntry{
		ID:        int64(len(f.enqueued)),
		ContactID: contactID,
		SurveyID:  surveyID,
		Status:    domain.CallStatusPending,
		State:     domain.CallStateGreeting,
	}, nil
}

func (f *fakeDialQueue) GetDue(ctx context.Context, limit int) ([]domain.CallQueueEntry, error) {
	if len(f.due) > limit {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeDialQueue) MarkDialed(ctx context.Context, id int64, callSID string) error {
	f.dialed = append(f.dialed, callSID)
	return nil
}

func (f *fakeDialQueue) MarkFailed(ctx context.Context, id int64, maxAttempts int, backoff time.Duration) error {
	f.failedCalls = append(f.failedCalls, markFailedCall{id: id, maxAttempts: maxAttempts, backoff: backoff})
	return nil
}

func (f *fakeDialQueue) ResetForRetry(ctx context.Context, id int64) error {
	f.resets = append(f.resets, id)
	return nil
}

type fakeContactReader struct {
	contacts map[int64]*domain.Contact
}

func (f *fakeContactReader) GetByID(ctx context.Context, id int64) (*domain.Contact, error) {
	return f.contacts[id], nil
}

type fakeTelephony struct {
	shouldFail    bool
	placed        []string // voice URLs
	sid           string
	transcription *telephony.TranscriptionResource
}

func (f *fakeTelephony) GetTranscription(ctx context.Context, transcriptionSID string) (*telephony.TranscriptionResource, error) {
	if f.transcription == nil {
		return nil, fmt.Errorf("transcription %s not found", transcriptionSID)
	}
	return f.transcription, nil
}

func (f *fakeTelephony) PlaceCall(ctx context.Context, toNumber, voiceURL string) (*telephony.CallResource, error) {
	if f.shouldFail {
		return nil, fmt.Errorf("simulated carrier error")
	}
	f.placed = append(f.placed, voiceURL)
	sid := f.sid
	if sid == "" {
		sid = "CA-test"
	}
	return &telephony.CallResource{SID: sid, Status: "queued", To: toNumber}, nil
}

func dialerConfig() environments.DialerConfig {
	return environments.DialerConfig{
		BatchSize:    5,
		DialInterval: 2 * time.Minute,
		MaxAttempts:  3,
		RetryBackoff: 10 * time.Minute,
	}
}

func TestEnqueueCall_UnknownContact(t *testing.T) {
	svc := NewCallService(&fakeDialQueue{}, &fakeContactReader{}, &fakeTelephony{}, dialerConfig(), "https://surveys.example.com")

	if _, err := svc.EnqueueCall(context.Background(), 99, nil, nil, nil); err == nil {
		t.Fatalf("expected an error for an unknown contact")
	}
}

func TestProcessDueCalls_PlacesCallsAndMarksDialed(t *testing.T) {
	queue := &fakeDialQueue{
		due: []domain.CallQueueEntry{
			{ID: 1, ContactID: 10},
			{ID: 2, ContactID: 20},
		},
	}
	contacts := &fakeContactReader{
		contacts: map[int64]*domain.Contact{
			10: {ID: 10, Name: "Ann Müller", Phone: "+15551230001"},
			20: {ID: 20, Name: "Bob", Phone: "+15551230002"},
		},
	}
	twilio := &fakeTelephony{sid: "CA777"}

	svc := NewCallService(queue, contacts, twilio, dialerConfig(), "https://surveys.example.com")

	results, err := svc.ProcessDueCalls(context.Background())
	if err != nil {
		t.Fatalf("ProcessDueCalls returned error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, res := range results {
		if !res.Success || res.CallSID != "CA777" {
			t.Errorf("expected a successful dial with CA777, got %+v", res)
		}
	}

	if len(queue.dialed) != 2 {
		t.Fatalf("expected both entries marked dialed, got %d", len(queue.dialed))
	}

	// The greeting URL carries the contact's name, query-escaped.
	if !strings.Contains(twilio.placed[0], "/api/twilio/greeting?name=Ann+M") {
		t.Errorf("expected escaped contact name in %q", twilio.placed[0])
	}
}

func TestProcessDueCalls_NoDueEntries(t *testing.T) {
	svc := NewCallService(&fakeDialQueue{}, &fakeContactReader{}, &fakeTelephony{}, dialerConfig(), "https://surveys.example.com")

	results, err := svc.ProcessDueCalls(context.Background())
	if err != nil {
		t.Fatalf("ProcessDueCalls returned error: %v", err)
	}
	if results != nil {
		t.Fatalf("expected nil results for an empty queue, got %v", results)
	}
}

func TestProcessDueCalls_CarrierFailureSchedulesRetry(t *testing.T) {
	queue := &fakeDialQueue{
		due: []domain.CallQueueEntry{{ID: 1, ContactID: 10}},
	}
	contacts := &fakeContactReader{
		contacts: map[int64]*domain.Contact{
			10: {ID: 10, Name: "Ann", Phone: "+15551230001"},
		},
	}

	svc := NewCallService(queue, contacts, &fakeTelephony{shouldFail: true}, dialerConfig(), "https://surveys.example.com")

	results, err := svc.ProcessDueCalls(context.Background())
	if err != nil {
		t.Fatalf("ProcessDueCalls returned error: %v", err)
	}

	if len(results) != 1 || results[0].Success {
		t.Fatalf("expected one failed result, got %+v", results)
	}

	if len(queue.failedCalls) != 1 {
		t.Fatalf("expected MarkFailed to be called once, got %d", len(queue.failedCalls))
	}

	call := queue.failedCalls[0]
	if call.maxAttempts != 3 || call.backoff != 10*time.Minute {
		t.Errorf("expected the configured attempt cap and backoff, got %+v", call)
	}
}

func TestRetryCall_ResetsAndRedials(t *testing.T) {
	queue := &fakeDialQueue{
		byID: map[int64]*domain.CallQueueEntry{
			5: {ID: 5, ContactID: 10, Status: domain.CallStatusFailed},
		},
	}
	contacts := &fakeContactReader{
		contacts: map[int64]*domain.Contact{
			10: {ID: 10, Name: "Ann", Phone: "+15551230001"},
		},
	}
	twilio := &fakeTelephony{}

	svc := NewCallService(queue, contacts, twilio, dialerConfig(), "https://surveys.example.com")

	result, err := svc.RetryCall(context.Background(), 5)
	if err != nil {
		t.Fatalf("RetryCall returned error: %v", err)
	}

	if len(queue.resets) != 1 || queue.resets[0] != 5 {
		t.Errorf("expected entry 5 to be re-armed, got %v", queue.resets)
	}
	if !result.Success {
		t.Errorf("expected a successful redial, got %+v", result)
	}
	if len(queue.dialed) != 1 {
		t.Errorf("expected the retried call to be marked dialed")
	}
}

func TestFetchTranscription_CompletedReturnsText(t *testing.T) {
	twilio := &fakeTelephony{transcription: &telephony.TranscriptionResource{
		SID:               "TR123",
		Status:            "completed",
		TranscriptionText: "The service was great",
	}}
	svc := NewCallService(&fakeDialQueue{}, &fakeContactReader{}, twilio, dialerConfig(), "https://surveys.example.com")

	text, err := svc.FetchTranscription(context.Background(), "TR123")
	if err != nil {
		t.Fatalf("FetchTranscription returned error: %v", err)
	}
	if text != "The service was great" {
		t.Errorf("expected the transcription text, got %q", text)
	}
}

func TestFetchTranscription_PendingReturnsEmpty(t *testing.T) {
	twilio := &fakeTelephony{transcription: &telephony.TranscriptionResource{
		SID:    "TR123",
		Status: "in-progress",
	}}
	svc := NewCallService(&fakeDialQueue{}, &fakeContactReader{}, twilio, dialerConfig(), "https://surveys.example.com")

	text, err := svc.FetchTranscription(context.Background(), "TR123")
	if err != nil {
		t.Fatalf("FetchTranscription returned error: %v", err)
	}
	if text != "" {
		t.Errorf("expected empty text for an unfinished transcription, got %q", text)
	}
}
