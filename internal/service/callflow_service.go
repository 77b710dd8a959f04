package service

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/voicepoll/voice-survey-service/internal/domain"
	"github.com/voicepoll/voice-survey-service/internal/script"
	"github.com/voicepoll/voice-survey-service/internal/twiml"
	"github.com/voicepoll/voice-survey-service/internal/voicetext"
	"github.com/voicepoll/voice-survey-service/pkg/llm"
	"github.com/voicepoll/voice-survey-service/pkg/logger"
)

// Small internal interfaces so the call flow can be tested with fakes.
type callQueueRepository interface {
	GetByCallSID(ctx context.Context, callSID string) (*domain.CallQueueEntry, error)
	UpdateState(ctx context.Context, id int64, state domain.CallState, currentIndex int) error
	MarkCompleted(ctx context.Context, id int64) error
	AppendNote(ctx context.Context, id int64, note string) error
}

type questionRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Question, error)
	GetForSurvey(ctx context.Context, surveyID int64) ([]domain.Question, error)
	CreateFollowUpDraft(ctx context.Context, parentID int64, text string) (*domain.Question, error)
}

type responseRepository interface {
	Create(ctx context.Context, resp *domain.Response) (int64, error)
}

type answerAnalyzer interface {
	AnalyzeAnswer(ctx context.Context, questionText, transcript string) (*llm.Analysis, error)
	DraftFollowUp(ctx context.Context, questionText, transcript string) (string, error)
}

// CallFlowOptions are the fixed voice parameters and webhook base URL.
type CallFlowOptions struct {
	Voice    string
	Language string
	BaseURL  string
}

// CallFlowService drives the outbound-call conversation. Every step is one
// webhook callback from Twilio; the current position is persisted on the
// call_queue row and round-tripped through callback URLs, so the flow is a
// transition table over (state, current index):
//
//	greeting  -> asking(0)
//	asking(n) -> awaiting(n)                      gather opened
//	awaiting(n) -> asking(n+1) | asking(follow-up) | done
type CallFlowService struct {
	queue     callQueueRepository
	questions questionRepository
	responses responseRepository
	analyzer  answerAnalyzer
	opts      CallFlowOptions
}

func NewCallFlowService(
	queue callQueueRepository,
	questions questionRepository,
	responses responseRepository,
	analyzer answerAnalyzer,
	opts CallFlowOptions,
) *CallFlowService {
	return &CallFlowService{
		queue:     queue,
		questions: questions,
		responses: responses,
		analyzer:  analyzer,
		opts:      opts,
	}
}

var (
	nameIntroPattern    = regexp.MustCompile(`(?i)(?:this is|my name is|i am|i'm|it's)\s+([a-zA-Z]+)`)
	nameSpeakingPattern = regexp.MustCompile(`(?i)^\s*([a-zA-Z]+)\s+speaking`)
	greetingWordPattern = regexp.MustCompile(`(?i)^\s*(?:hi|hello|hey|good (?:morning|afternoon|evening))[\s,!.]*`)
)

// ParseSpokenName extracts the callee's name from how they answered the
// phone, falling back to the provided default.
func ParseSpokenName(speech, defaultName string) string {
	if m := nameIntroPattern.FindStringSubmatch(speech); m != nil {
		return capitalize(m[1])
	}
	if m := nameSpeakingPattern.FindStringSubmatch(speech); m != nil {
		return capitalize(m[1])
	}

	// "Hi, Sandra" style: a greeting word followed by a single bare name.
	stripped := greetingWordPattern.ReplaceAllString(speech, "")
	stripped = strings.TrimSpace(strings.Trim(stripped, ".,!?"))
	if stripped != "" && stripped != speech && !strings.Contains(stripped, " ") {
		return capitalize(stripped)
	}

	return defaultName
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// GreetingInput is what the greeting webhook receives from Twilio.
type GreetingInput struct {
	CallSID      string
	SpeechResult string
	DefaultName  string
}

// Greeting speaks a personalized hello and redirects into the question
// sequence.
func (s *CallFlowService) Greeting(ctx context.Context, in GreetingInput) string {
	name := ParseSpokenName(in.SpeechResult, in.DefaultName)

	entry, err := s.queue.GetByCallSID(ctx, in.CallSID)
	if err != nil {
		logger.Warnf("Greeting: failed to load call %s: %v", in.CallSID, err)
	}

	doc := s.document(entry)

	if entry != nil {
		// Best effort; a note failure must not break the live call.
		if err := s.queue.AppendNote(ctx, entry.ID, fmt.Sprintf("answered by %s", name)); err != nil {
			logger.Warnf("Greeting: failed to note call %d: %v", entry.ID, err)
		}
		if err := s.queue.UpdateState(ctx, entry.ID, domain.CallStateAsking, 0); err != nil {
			logger.Warnf("Greeting: failed to update state for call %d: %v", entry.ID, err)
		}
	}

	greeting := fmt.Sprintf("Hello %s! Thank you for taking our call. We would like to ask you a few quick questions.", name)

	return doc.Say(greeting).
		Redirect(s.continueURL(in.CallSID, 0)).
		MustRender()
}

// ContinueSurvey speaks the question at startIndex and opens a capture
// window, or thanks and hangs up once the sequence is exhausted.
func (s *CallFlowService) ContinueSurvey(ctx context.Context, callSID string, startIndex int) string {
	entry, err := s.queue.GetByCallSID(ctx, callSID)
	if err != nil {
		logger.Warnf("ContinueSurvey: failed to load call %s: %v", callSID, err)
	}

	questions := s.questionsForCall(ctx, entry)
	doc := s.document(entry)

	if startIndex >= len(questions) {
		if entry != nil {
			if err := s.queue.MarkCompleted(ctx, entry.ID); err != nil {
				logger.Warnf("ContinueSurvey: failed to complete call %d: %v", entry.ID, err)
			}
		}
		return doc.
			Say("Those were all our questions. Thank you so much for your time. Goodbye!").
			Hangup().
			MustRender()
	}

	if entry != nil {
		if err := s.queue.UpdateState(ctx, entry.ID, domain.CallStateAwaiting, startIndex); err != nil {
			logger.Warnf("ContinueSurvey: failed to update state for call %d: %v", entry.ID, err)
		}
	}

	question := questions[startIndex]
	prompt := voicetext.FormatVoiceQuestion(question.Text, questionMetadata(&question))

	var contactID int64
	if entry != nil {
		contactID = entry.ContactID
	}

	action := s.responseURL(callSID, startIndex, len(questions), question.ID, contactID, false)

	return doc.
		GatherSpeech(prompt, action, 10).
		// No input before the gather timed out: re-ask the same question.
		Redirect(s.continueURL(callSID, startIndex)).
		MustRender()
}

// ResponseInput is what the response webhook receives for one answered
// question.
type ResponseInput struct {
	CallSID             string
	QuestionIndex       int
	TotalQuestions      int
	QuestionID          int64
	ContactID           int64
	IsFollowUp          bool
	SpeechResult        string
	Digits              string
	TranscriptionText   string
	TranscriptionStatus string
}

// HandleResponse captures one answer: transcribe, analyze, persist, then
// advance to the follow-up or the next question. The sequence only ends
// when the question list is exhausted.
func (s *CallFlowService) HandleResponse(ctx context.Context, in ResponseInput) string {
	entry, err := s.queue.GetByCallSID(ctx, in.CallSID)
	if err != nil {
		logger.Warnf("HandleResponse: failed to load call %s: %v", in.CallSID, err)
	}

	doc := s.document(entry)
	transcript := s.transcript(in)

	var question *domain.Question
	if in.QuestionID > 0 {
		question, err = s.questions.GetByID(ctx, in.QuestionID)
		if err != nil {
			logger.Warnf("HandleResponse: failed to load question %d: %v", in.QuestionID, err)
		}
	}

	contactID := in.ContactID
	if entry != nil {
		contactID = entry.ContactID
	}

	if question != nil && contactID > 0 {
		s.recordAnswer(ctx, question, contactID, transcript)
	}

	// A matched follow-up interjects before the next primary question.
	// Follow-up answers never chain further (one level only).
	if !in.IsFollowUp && question != nil {
		if followUp := s.triggeredFollowUp(ctx, question, transcript); followUp != nil {
			if entry != nil {
				if err := s.queue.UpdateState(ctx, entry.ID, domain.CallStateAwaiting, in.QuestionIndex); err != nil {
					logger.Warnf("HandleResponse: failed to update state for call %d: %v", entry.ID, err)
				}
			}
			prompt := voicetext.FormatVoiceQuestion(followUp.Text, questionMetadata(followUp))
			action := s.responseURL(in.CallSID, in.QuestionIndex, in.TotalQuestions, followUp.ID, contactID, true)
			return doc.
				GatherSpeech(prompt, action, 10).
				Redirect(s.continueURL(in.CallSID, in.QuestionIndex+1)).
				MustRender()
		}
	}

	return doc.
		Say("Thank you.").
		Redirect(s.continueURL(in.CallSID, in.QuestionIndex+1)).
		MustRender()
}

// recordAnswer persists the response row with whatever analysis the model
// yields, then stores a drafted follow-up for later review. Analysis
// failures degrade to a plain answer row.
func (s *CallFlowService) recordAnswer(ctx context.Context, question *domain.Question, contactID int64, transcript string) {
	resp := &domain.Response{
		ContactID:  contactID,
		QuestionID: question.ID,
		Answer:     transcript,
	}

	if s.analyzer != nil {
		analysis, err := s.analyzer.AnalyzeAnswer(ctx, question.Text, transcript)
		if err != nil {
			logger.Warnf("Answer analysis failed for question %d: %v", question.ID, err)
		} else if analysis != nil {
			resp.NumericValue = analysis.NumericValue
			resp.KeyInsight = analysis.KeyInsight
		}
	}

	if _, err := s.responses.Create(ctx, resp); err != nil {
		logger.Errorf("Failed to persist response for question %d: %v", question.ID, err)
		return
	}

	if s.analyzer != nil && !question.IsFollowUp {
		draft, err := s.analyzer.DraftFollowUp(ctx, question.Text, transcript)
		if err != nil {
			logger.Warnf("Follow-up drafting failed for question %d: %v", question.ID, err)
			return
		}
		if _, err := s.questions.CreateFollowUpDraft(ctx, question.ID, draft); err != nil {
			logger.Warnf("Failed to store follow-up draft for question %d: %v", question.ID, err)
		}
	}
}

// triggeredFollowUp returns the follow-up question to interject, or nil.
func (s *CallFlowService) triggeredFollowUp(ctx context.Context, question *domain.Question, answer string) *domain.Question {
	if question.FollowUpCondition == nil || question.FollowUpText == nil || *question.FollowUpText == "" {
		return nil
	}
	if !EvaluateFollowUpCondition(*question.FollowUpCondition, answer) {
		return nil
	}

	// Reuse the stored follow-up text as a question row so the answer can
	// reference it.
	followUp, err := s.questions.CreateFollowUpDraft(ctx, question.ID, *question.FollowUpText)
	if err != nil {
		logger.Warnf("Failed to materialize follow-up for question %d: %v", question.ID, err)
		return nil
	}

	return followUp
}

// EvaluateFollowUpCondition decides whether a follow-up fires for a given
// answer. The condition is the wildcard, an expression over `answer`, or a
// literal option value compared case-insensitively.
func EvaluateFollowUpCondition(condition, answer string) bool {
	condition = strings.TrimSpace(condition)
	if condition == domain.FollowUpAlways {
		return true
	}

	env := map[string]any{"answer": answer}
	program, err := expr.Compile(condition, expr.Env(env), expr.AsBool())
	if err != nil {
		// Not an expression: treat the condition as a literal option value.
		return strings.EqualFold(condition, strings.TrimSpace(answer))
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return false
	}

	matched, ok := result.(bool)
	return ok && matched
}

// ErrorMarkup is the generic apology every voice webhook falls back to.
// Twilio must always receive parseable instructions, even on failure.
func (s *CallFlowService) ErrorMarkup() string {
	return s.document(nil).
		Say("We are sorry, something went wrong on our end. Thank you for your time. Goodbye!").
		Hangup().
		MustRender()
}

// TestInterrupt emits a short diagnostic document for manual webhook
// checks.
func (s *CallFlowService) TestInterrupt() string {
	return s.document(nil).
		Say("This is a test of the survey voice system.").
		Pause(1).
		Say("Test complete. Goodbye!").
		Hangup().
		MustRender()
}

func (s *CallFlowService) questionsForCall(ctx context.Context, entry *domain.CallQueueEntry) []domain.Question {
	if entry != nil && entry.SurveyID != nil {
		questions, err := s.questions.GetForSurvey(ctx, *entry.SurveyID)
		if err != nil {
			logger.Warnf("Failed to load questions for survey %d: %v", *entry.SurveyID, err)
		}
		if len(questions) > 0 {
			return questions
		}
	}

	// No survey or an empty one: fall back to the built-in sample.
	fallback := make([]domain.Question, len(script.SampleQuestions))
	for i, text := range script.SampleQuestions {
		fallback[i] = domain.Question{Text: text}
	}
	return fallback
}

// document starts a TwiML document with the call's voice overrides, or the
// configured defaults.
func (s *CallFlowService) document(entry *domain.CallQueueEntry) *twiml.Document {
	voice := s.opts.Voice
	language := s.opts.Language
	if entry != nil {
		if entry.Voice != nil && *entry.Voice != "" {
			voice = *entry.Voice
		}
		if entry.Language != nil && *entry.Language != "" {
			language = *entry.Language
		}
	}
	return twiml.New(voice, language)
}

func (s *CallFlowService) continueURL(callSID string, start int) string {
	return fmt.Sprintf("%s/api/twilio/continue-survey?callSid=%s&start=%d",
		s.opts.BaseURL, url.QueryEscape(callSID), start)
}

func (s *CallFlowService) responseURL(callSID string, index, total int, questionID, contactID int64, followUp bool) string {
	followUpFlag := 0
	if followUp {
		followUpFlag = 1
	}
	return fmt.Sprintf("%s/api/twilio/response?callSid=%s&idx=%d&total=%d&questionId=%d&contactId=%d&followup=%d",
		s.opts.BaseURL, url.QueryEscape(callSID), index, total, questionID, contactID, followUpFlag)
}

func questionMetadata(q *domain.Question) *voicetext.Metadata {
	if q == nil || q.ResponseType == nil {
		return nil
	}
	return &voicetext.Metadata{
		ResponseType: *q.ResponseType,
		Options:      q.Options,
	}
}

// transcript picks the best available text for an answer: a completed
// vendor transcription, then live speech recognition, then keypad digits,
// then a placeholder for local testing.
func (s *CallFlowService) transcript(in ResponseInput) string {
	if in.TranscriptionStatus == "completed" && in.TranscriptionText != "" {
		return in.TranscriptionText
	}
	if in.SpeechResult != "" {
		return in.SpeechResult
	}
	if in.Digits != "" {
		return in.Digits
	}
	return "(no answer captured)"
}
