// Package voicetext contains pure string transforms that shape survey
// question text for spoken delivery over a phone call.
package voicetext

import (
	"fmt"
	"strings"
)

// Metadata describes how a question expects to be answered.
type Metadata struct {
	ResponseType string
	Options      []string
}

var voiceLeadIns = []string{
	"please say",
	"please tell",
	"please respond",
	"please answer",
	"please select",
	"please choose",
}

// IsVoiceFriendly reports whether the text already carries a spoken-response
// instruction, so formatting it again would be redundant.
func IsVoiceFriendly(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range voiceLeadIns {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// FormatVoiceQuestion appends a response-type-specific spoken instruction.
// Already voice-friendly text is returned unchanged, which makes the
// function idempotent on its own output.
func FormatVoiceQuestion(text string, meta *Metadata) string {
	if IsVoiceFriendly(text) {
		return text
	}

	formatted := strings.TrimSpace(text)
	if !strings.HasSuffix(formatted, "?") && !strings.HasSuffix(formatted, ".") {
		formatted += "?"
	}

	responseType := ""
	if meta != nil {
		responseType = meta.ResponseType
	}

	switch responseType {
	case "Multiple-Choice":
		if meta != nil && len(meta.Options) > 0 {
			quoted := make([]string, len(meta.Options))
			for i, opt := range meta.Options {
				quoted[i] = fmt.Sprintf("%q", opt)
			}
			formatted += " Please say one of the following options: " + strings.Join(quoted, ", ") + "."
		} else {
			formatted += " Please select one of the available options."
		}
	case "Yes-No":
		formatted += ` Please say "Yes" or "No".`
	case "Numeric":
		formatted += " Please say a number."
	case "Open-Ended":
		formatted += " Please tell me your answer in your own words."
	default:
		formatted += " Please respond with your answer."
	}

	return formatted
}

// ValidateVoiceQuestion returns the first failing check's message, or ""
// when the question is acceptable for voice delivery. Checks run in order
// and short-circuit.
func ValidateVoiceQuestion(text string, meta *Metadata) string {
	trimmed := strings.TrimSpace(text)

	if trimmed == "" {
		return "Question text cannot be empty"
	}
	if meta != nil && meta.ResponseType == "Multiple-Choice" && len(meta.Options) < 2 {
		return "Multiple-Choice questions need at least 2 options"
	}
	if len(trimmed) < 10 {
		return "Question is too short to be clear over the phone"
	}
	if !strings.HasSuffix(trimmed, "?") && !strings.HasSuffix(trimmed, ".") && !strings.HasSuffix(trimmed, "!") {
		return "Question should end with a question mark, period, or exclamation point"
	}

	return ""
}

// SuggestVoiceImprovements returns advisory notes about the question text.
// Unlike validation the suggestions are independent; several can apply at
// once.
func SuggestVoiceImprovements(text string, meta *Metadata) []string {
	var suggestions []string
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	if !strings.Contains(trimmed, "?") {
		suggestions = append(suggestions, "Consider phrasing as a question with a question mark")
	}
	if len(trimmed) < 15 {
		suggestions = append(suggestions, "Longer questions tend to be clearer when spoken aloud")
	}
	for _, word := range []string{"click", "select", "check"} {
		if strings.Contains(lower, word) {
			suggestions = append(suggestions, fmt.Sprintf("Avoid screen-oriented words like %q in a voice survey", word))
			break
		}
	}
	if meta != nil && meta.ResponseType == "Multiple-Choice" {
		for _, opt := range meta.Options {
			if len(opt) > 30 {
				suggestions = append(suggestions, "Options longer than 30 characters are hard to remember when heard")
				break
			}
		}
		if len(meta.Options) > 5 {
			suggestions = append(suggestions, "Offering more than 5 options over the phone overwhelms callers")
		}
	}

	return suggestions
}
