package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/voicepoll/voice-survey-service/internal/domain"
	"github.com/voicepoll/voice-survey-service/pkg/llm"
)

//
// Test fakes – only for this file.
//

type stateUpdate struct {
	id    int64
	state domain.CallState
	index int
}

type fakeCallQueue struct {
	entry        *domain.CallQueueEntry
	stateUpdates []stateUpdate
	completed    []int64
	notes        []string
}

func (f *fakeCallQueue) GetByCallSID(ctx context.Context, callSID string) (*domain.CallQueueEntry, error) {
	return f.entry, nil
}

func (f *fakeCallQueue) UpdateState(ctx context.Context, id int64, state domain.CallState, currentIndex int) error {
	f.stateUpdates = append(f.stateUpdates, stateUpdate{id: id, state: state, index: currentIndex})
	return nil
}

func (f *fakeCallQueue) MarkCompleted(ctx context.Context, id int64) error {
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeCallQueue) AppendNote(ctx context.Context, id int64, note string) error {
	f.notes = append(f.notes, note)
	return nil
}

type fakeQuestionRepo struct {
	byID         map[int64]*domain.Question
	surveyRows   []domain.Question
	draftCalls   []string
	nextDraftID  int64
	draftParents []int64
}

func (f *fakeQuestionRepo) GetByID(ctx context.Context, id int64) (*domain.Question, error) {
	return f.byID[id], nil
}

func (f *fakeQuestionRepo) GetForSurvey(ctx context.Context, surveyID int64) ([]domain.Question, error) {
	return f.surveyRows, nil
}

func (f *fakeQuestionRepo) CreateFollowUpDraft(ctx context.Context, parentID int64, text string) (*domain.Question, error) {
	f.draftCalls = append(f.draftCalls, text)
	f.draftParents = append(f.draftParents, parentID)
	f.nextDraftID++
	id := f.nextDraftID + 1000
	return &domain.Question{
		ID:               id,
		Text:             text,
		IsFollowUp:       true,
		ParentQuestionID: &parentID,
	}, nil
}

type fakeResponseRepo struct {
	created []domain.Response
}

func (f *fakeResponseRepo) Create(ctx context.Context, resp *domain.Response) (int64, error) {
	f.created = append(f.created, *resp)
	return int64(len(f.created)), nil
}

type fakeAnalyzer struct {
	analysis  *llm.Analysis
	draft     string
	analyzeN  int
	draftN    int
	shouldErr bool
}

func (f *fakeAnalyzer) AnalyzeAnswer(ctx context.Context, questionText, transcript string) (*llm.Analysis, error) {
	f.analyzeN++
	if f.shouldErr {
		return nil, fmt.Errorf("simulated analysis error")
	}
	return f.analysis, nil
}

func (f *fakeAnalyzer) DraftFollowUp(ctx context.Context, questionText, transcript string) (string, error) {
	f.draftN++
	if f.shouldErr {
		return "", fmt.Errorf("simulated draft error")
	}
	return f.draft, nil
}

func newFlowService(queue *fakeCallQueue, questions *fakeQuestionRepo, responses *fakeResponseRepo, analyzer answerAnalyzer) *CallFlowService {
	return NewCallFlowService(queue, questions, responses, analyzer, CallFlowOptions{
		Voice:    "Polly.Joanna",
		Language: "en-US",
		BaseURL:  "https://surveys.example.com",
	})
}

func surveyQueueEntry() *domain.CallQueueEntry {
	surveyID := int64(7)
	return &domain.CallQueueEntry{
		ID:        11,
		ContactID: 3,
		SurveyID:  &surveyID,
		CallSID:   strPtr("CA123"),
		Status:    domain.CallStatusInProgress,
		State:     domain.CallStateGreeting,
	}
}

func strPtr(s string) *string { return &s }

//
// Tests
//

func TestParseSpokenName(t *testing.T) {
	tests := []struct {
		speech string
		want   string
	}{
		{"Hello, this is Maria", "Maria"},
		{"my name is JOHN", "John"},
		{"I'm sandra", "Sandra"},
		{"Peterson speaking", "Peterson"},
		{"Hi, Alex!", "Alex"},
		{"Hello", "there"},
		{"", "there"},
		{"good morning everyone here", "there"},
	}

	for _, tt := range tests {
		if got := ParseSpokenName(tt.speech, "there"); got != tt.want {
			t.Errorf("ParseSpokenName(%q) = %q, want %q", tt.speech, got, tt.want)
		}
	}
}

func TestGreeting_MovesCallIntoAskingState(t *testing.T) {
	queue := &fakeCallQueue{entry: surveyQueueEntry()}
	questions := &fakeQuestionRepo{}
	responses := &fakeResponseRepo{}

	svc := newFlowService(queue, questions, responses, nil)

	out := svc.Greeting(context.Background(), GreetingInput{
		CallSID:      "CA123",
		SpeechResult: "this is Maria",
		DefaultName:  "there",
	})

	if !strings.Contains(out, "Hello Maria!") {
		t.Errorf("expected personalized greeting in %q", out)
	}
	if !strings.Contains(out, "continue-survey?callSid=CA123&amp;start=0") {
		t.Errorf("expected redirect into question sequence in %q", out)
	}

	if len(queue.stateUpdates) != 1 {
		t.Fatalf("expected 1 state update, got %d", len(queue.stateUpdates))
	}
	if queue.stateUpdates[0].state != domain.CallStateAsking || queue.stateUpdates[0].index != 0 {
		t.Errorf("expected transition to asking(0), got %v", queue.stateUpdates[0])
	}

	if len(queue.notes) != 1 || !strings.Contains(queue.notes[0], "Maria") {
		t.Errorf("expected an answered-by note, got %v", queue.notes)
	}
}

func TestContinueSurvey_AsksQuestionAndOpensGather(t *testing.T) {
	queue := &fakeCallQueue{entry: surveyQueueEntry()}
	questions := &fakeQuestionRepo{
		surveyRows: []domain.Question{
			{ID: 21, Text: "How satisfied are you with our service?"},
			{ID: 22, Text: "Would you recommend us to a friend?"},
		},
	}

	svc := newFlowService(queue, questions, &fakeResponseRepo{}, nil)

	out := svc.ContinueSurvey(context.Background(), "CA123", 0)

	if !strings.Contains(out, "<Gather") {
		t.Fatalf("expected a Gather in %q", out)
	}
	if !strings.Contains(out, "How satisfied are you with our service?") {
		t.Errorf("expected the first question text in %q", out)
	}
	if !strings.Contains(out, "idx=0") || !strings.Contains(out, "total=2") || !strings.Contains(out, "questionId=21") {
		t.Errorf("expected answer action parameters in %q", out)
	}
	// Gather timeout falls through to a redirect re-asking the same index.
	if !strings.Contains(out, "continue-survey?callSid=CA123&amp;start=0") {
		t.Errorf("expected timeout redirect to the same index in %q", out)
	}

	if len(queue.stateUpdates) != 1 || queue.stateUpdates[0].state != domain.CallStateAwaiting {
		t.Errorf("expected transition to awaiting, got %v", queue.stateUpdates)
	}
}

func TestContinueSurvey_PastEndThanksAndHangsUp(t *testing.T) {
	queue := &fakeCallQueue{entry: surveyQueueEntry()}
	questions := &fakeQuestionRepo{
		surveyRows: []domain.Question{
			{ID: 21, Text: "How satisfied are you with our service?"},
		},
	}

	svc := newFlowService(queue, questions, &fakeResponseRepo{}, nil)

	out := svc.ContinueSurvey(context.Background(), "CA123", 1)

	if strings.Contains(out, "<Gather") {
		t.Fatalf("expected no Gather past the last question, got %q", out)
	}
	if !strings.Contains(out, "<Hangup") {
		t.Errorf("expected a Hangup in %q", out)
	}
	if !strings.Contains(out, "Thank you") {
		t.Errorf("expected a thank-you in %q", out)
	}

	if len(queue.completed) != 1 || queue.completed[0] != 11 {
		t.Errorf("expected call 11 to be marked completed, got %v", queue.completed)
	}
}

func TestContinueSurvey_FallsBackToSampleQuestions(t *testing.T) {
	// No queue row at all: the flow still works on the built-in sample.
	queue := &fakeCallQueue{}
	svc := newFlowService(queue, &fakeQuestionRepo{}, &fakeResponseRepo{}, nil)

	out := svc.ContinueSurvey(context.Background(), "CA999", 0)

	if !strings.Contains(out, "<Gather") {
		t.Fatalf("expected a Gather for the sample question, got %q", out)
	}
	if !strings.Contains(out, "How satisfied are you with our service") {
		t.Errorf("expected the first sample question in %q", out)
	}
}

func TestHandleResponse_PersistsAnswerAndAdvances(t *testing.T) {
	queue := &fakeCallQueue{entry: surveyQueueEntry()}
	questions := &fakeQuestionRepo{
		byID: map[int64]*domain.Question{
			21: {ID: 21, Text: "How satisfied are you with our service?"},
		},
	}
	responses := &fakeResponseRepo{}

	numeric := 8.0
	insight := "happy with support"
	analyzer := &fakeAnalyzer{
		analysis: &llm.Analysis{NumericValue: &numeric, KeyInsight: &insight},
		draft:    "What did you like most?",
	}

	svc := newFlowService(queue, questions, responses, analyzer)

	out := svc.HandleResponse(context.Background(), ResponseInput{
		CallSID:        "CA123",
		QuestionIndex:  0,
		TotalQuestions: 2,
		QuestionID:     21,
		ContactID:      3,
		SpeechResult:   "It was an eight out of ten",
	})

	if !strings.Contains(out, "continue-survey?callSid=CA123&amp;start=1") {
		t.Fatalf("expected redirect to the next question in %q", out)
	}

	if len(responses.created) != 1 {
		t.Fatalf("expected 1 stored response, got %d", len(responses.created))
	}

	stored := responses.created[0]
	if stored.QuestionID != 21 || stored.ContactID != 3 {
		t.Errorf("response stored against wrong ids: %+v", stored)
	}
	if stored.Answer != "It was an eight out of ten" {
		t.Errorf("unexpected stored answer %q", stored.Answer)
	}
	if stored.NumericValue == nil || *stored.NumericValue != 8.0 {
		t.Errorf("expected numeric value 8.0, got %v", stored.NumericValue)
	}
	if stored.KeyInsight == nil || *stored.KeyInsight != "happy with support" {
		t.Errorf("expected key insight, got %v", stored.KeyInsight)
	}

	// The drafted follow-up is stored for later review.
	if analyzer.draftN != 1 {
		t.Errorf("expected DraftFollowUp to be called once, got %d", analyzer.draftN)
	}
	if len(questions.draftCalls) != 1 || questions.draftCalls[0] != "What did you like most?" {
		t.Errorf("expected drafted follow-up to be stored, got %v", questions.draftCalls)
	}
}

func TestHandleResponse_AnalysisFailureStillStoresAnswer(t *testing.T) {
	queue := &fakeCallQueue{entry: surveyQueueEntry()}
	questions := &fakeQuestionRepo{
		byID: map[int64]*domain.Question{
			21: {ID: 21, Text: "How satisfied are you with our service?"},
		},
	}
	responses := &fakeResponseRepo{}
	analyzer := &fakeAnalyzer{shouldErr: true}

	svc := newFlowService(queue, questions, responses, analyzer)

	out := svc.HandleResponse(context.Background(), ResponseInput{
		CallSID:        "CA123",
		QuestionIndex:  0,
		TotalQuestions: 2,
		QuestionID:     21,
		ContactID:      3,
		SpeechResult:   "Fine, thanks",
	})

	if !strings.Contains(out, "start=1") {
		t.Fatalf("expected the call to advance despite analysis failure, got %q", out)
	}

	if len(responses.created) != 1 {
		t.Fatalf("expected the answer row to be stored, got %d rows", len(responses.created))
	}
	if responses.created[0].NumericValue != nil || responses.created[0].KeyInsight != nil {
		t.Errorf("expected a plain answer row, got %+v", responses.created[0])
	}
}

func TestHandleResponse_TriggersStoredFollowUp(t *testing.T) {
	condition := `answer == "Dissatisfied"`
	followUpText := "We are sorry to hear that. What went wrong?"

	queue := &fakeCallQueue{entry: surveyQueueEntry()}
	questions := &fakeQuestionRepo{
		byID: map[int64]*domain.Question{
			21: {
				ID:                21,
				Text:              "How satisfied were you with our service overall?",
				FollowUpCondition: &condition,
				FollowUpText:      &followUpText,
			},
		},
	}

	svc := newFlowService(queue, questions, &fakeResponseRepo{}, nil)

	out := svc.HandleResponse(context.Background(), ResponseInput{
		CallSID:        "CA123",
		QuestionIndex:  1,
		TotalQuestions: 3,
		QuestionID:     21,
		ContactID:      3,
		SpeechResult:   "Dissatisfied",
	})

	if !strings.Contains(out, "<Gather") {
		t.Fatalf("expected a Gather for the follow-up, got %q", out)
	}
	if !strings.Contains(out, "What went wrong?") {
		t.Errorf("expected follow-up text in %q", out)
	}
	if !strings.Contains(out, "followup=1") {
		t.Errorf("expected the follow-up flag on the answer action in %q", out)
	}
	// Same index: the follow-up interjects before the next primary question.
	if !strings.Contains(out, "idx=1") {
		t.Errorf("expected the follow-up to stay on index 1 in %q", out)
	}

	if len(questions.draftParents) != 1 || questions.draftParents[0] != 21 {
		t.Errorf("expected the follow-up to be materialized under question 21, got %v", questions.draftParents)
	}
}

func TestHandleResponse_FollowUpAnswerDoesNotChain(t *testing.T) {
	condition := "*"
	followUpText := "Anything else?"

	queue := &fakeCallQueue{entry: surveyQueueEntry()}
	questions := &fakeQuestionRepo{
		byID: map[int64]*domain.Question{
			1021: {
				ID:                1021,
				Text:              "What is the main reason for your score?",
				IsFollowUp:        true,
				FollowUpCondition: &condition,
				FollowUpText:      &followUpText,
			},
		},
	}

	svc := newFlowService(queue, questions, &fakeResponseRepo{}, nil)

	out := svc.HandleResponse(context.Background(), ResponseInput{
		CallSID:        "CA123",
		QuestionIndex:  1,
		TotalQuestions: 3,
		QuestionID:     1021,
		ContactID:      3,
		IsFollowUp:     true,
		SpeechResult:   "The speed",
	})

	if strings.Contains(out, "<Gather") {
		t.Fatalf("expected no chained follow-up, got %q", out)
	}
	if !strings.Contains(out, "start=2") {
		t.Errorf("expected advance to the next primary question in %q", out)
	}
}

func TestHandleResponse_TranscriptPreference(t *testing.T) {
	svc := newFlowService(&fakeCallQueue{}, &fakeQuestionRepo{}, &fakeResponseRepo{}, nil)

	tests := []struct {
		name string
		in   ResponseInput
		want string
	}{
		{
			name: "completed transcription wins",
			in: ResponseInput{
				TranscriptionStatus: "completed",
				TranscriptionText:   "from transcription",
				SpeechResult:        "from speech",
				Digits:              "5",
			},
			want: "from transcription",
		},
		{
			name: "incomplete transcription falls back to speech",
			in: ResponseInput{
				TranscriptionStatus: "failed",
				TranscriptionText:   "partial",
				SpeechResult:        "from speech",
			},
			want: "from speech",
		},
		{
			name: "digits as last real input",
			in:   ResponseInput{Digits: "7"},
			want: "7",
		},
		{
			name: "placeholder when nothing captured",
			in:   ResponseInput{},
			want: "(no answer captured)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.transcript(tt.in); got != tt.want {
				t.Errorf("transcript() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvaluateFollowUpCondition(t *testing.T) {
	tests := []struct {
		condition string
		answer    string
		want      bool
	}{
		{"*", "anything", true},
		{`answer == "Dissatisfied"`, "Dissatisfied", true},
		{`answer == "Dissatisfied"`, "Satisfied", false},
		{`len(answer) > 3`, "long answer", true},
		{`len(answer) > 3`, "no", false},
		// Bare option literals fall back to case-insensitive equality.
		{"Dissatisfied", "dissatisfied", true},
		{"Dissatisfied", "Satisfied", false},
	}

	for _, tt := range tests {
		if got := EvaluateFollowUpCondition(tt.condition, tt.answer); got != tt.want {
			t.Errorf("EvaluateFollowUpCondition(%q, %q) = %v, want %v", tt.condition, tt.answer, got, tt.want)
		}
	}
}

func TestErrorMarkup_AlwaysParseable(t *testing.T) {
	svc := newFlowService(&fakeCallQueue{}, &fakeQuestionRepo{}, &fakeResponseRepo{}, nil)

	out := svc.ErrorMarkup()

	if !strings.Contains(out, "<Say") || !strings.Contains(out, "<Hangup") {
		t.Fatalf("expected apology and hangup in %q", out)
	}
}
