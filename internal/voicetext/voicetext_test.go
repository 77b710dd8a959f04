package voicetext

import (
	"strings"
	"testing"
)

func TestFormatVoiceQuestion_Idempotent(t *testing.T) {
	meta := &Metadata{ResponseType: "Yes-No"}

	once := FormatVoiceQuestion("Do you like our service", meta)
	twice := FormatVoiceQuestion(once, meta)

	if once != twice {
		t.Fatalf("expected formatting to be idempotent:\nonce:  %q\ntwice: %q", once, twice)
	}

	if !strings.Contains(once, `Please say "Yes" or "No".`) {
		t.Errorf("expected Yes-No instruction, got %q", once)
	}
	if !strings.Contains(once, "Do you like our service?") {
		t.Errorf("expected a question mark to be appended, got %q", once)
	}
}

func TestFormatVoiceQuestion_MultipleChoiceListsOptions(t *testing.T) {
	meta := &Metadata{
		ResponseType: "Multiple-Choice",
		Options:      []string{"Red", "Blue"},
	}

	got := FormatVoiceQuestion("Which color do you prefer?", meta)

	if !strings.Contains(got, `"Red", "Blue"`) {
		t.Errorf("expected quoted options in %q", got)
	}
	if !strings.Contains(got, "Please say one of the following options") {
		t.Errorf("expected option instruction in %q", got)
	}
}

func TestFormatVoiceQuestion_NumericAndOpenEnded(t *testing.T) {
	numeric := FormatVoiceQuestion("How many visits did you make?", &Metadata{ResponseType: "Numeric"})
	if !strings.Contains(numeric, "Please say a number.") {
		t.Errorf("expected numeric instruction in %q", numeric)
	}

	open := FormatVoiceQuestion("What could we improve?", &Metadata{ResponseType: "Open-Ended"})
	if !strings.Contains(open, "in your own words") {
		t.Errorf("expected open-ended instruction in %q", open)
	}
}

func TestValidateVoiceQuestion(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		meta    *Metadata
		wantSub string
	}{
		{
			name:    "empty text",
			text:    "   ",
			wantSub: "cannot be empty",
		},
		{
			name:    "too short",
			text:    "Short",
			wantSub: "too short",
		},
		{
			name: "single option multiple choice",
			text: "Pick one.",
			meta: &Metadata{
				ResponseType: "Multiple-Choice",
				Options:      []string{"Only"},
			},
			wantSub: "at least 2 options",
		},
		{
			name:    "missing terminal punctuation",
			text:    "Tell me about your day here",
			wantSub: "should end with",
		},
		{
			name: "acceptable question",
			text: "How satisfied are you with our service?",
			meta: &Metadata{
				ResponseType: "Multiple-Choice",
				Options:      []string{"Satisfied", "Dissatisfied"},
			},
			wantSub: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateVoiceQuestion(tt.text, tt.meta)
			if tt.wantSub == "" {
				if got != "" {
					t.Fatalf("expected no validation message, got %q", got)
				}
				return
			}
			if !strings.Contains(got, tt.wantSub) {
				t.Fatalf("expected message containing %q, got %q", tt.wantSub, got)
			}
		})
	}
}

func TestSuggestVoiceImprovements(t *testing.T) {
	meta := &Metadata{
		ResponseType: "Multiple-Choice",
		Options:      []string{"A", "B", "C", "D", "E", "F"},
	}

	suggestions := SuggestVoiceImprovements("Click here", meta)

	var hasScreenWord, hasTooMany bool
	for _, s := range suggestions {
		if strings.Contains(s, "screen-oriented") {
			hasScreenWord = true
		}
		if strings.Contains(s, "more than 5 options") {
			hasTooMany = true
		}
	}

	if !hasScreenWord {
		t.Errorf("expected a screen-word suggestion, got %v", suggestions)
	}
	if !hasTooMany {
		t.Errorf("expected a too-many-options suggestion, got %v", suggestions)
	}
}

func TestSuggestVoiceImprovements_CleanQuestion(t *testing.T) {
	suggestions := SuggestVoiceImprovements("How satisfied are you with our support team?", nil)
	if len(suggestions) != 0 {
		t.Fatalf("expected no suggestions, got %v", suggestions)
	}
}
