// Package script holds the built-in survey script. The database is the
// authoritative source for live calls; this script is only the seed the
// default survey is loaded from, so both always agree.
package script

// QuestionType tags how a scripted question participates in the call.
type QuestionType string

const (
	TypeIntro  QuestionType = "intro"
	TypeChoice QuestionType = "choice"
	TypeOpen   QuestionType = "open"
	TypeOutro  QuestionType = "outro"
)

// FollowUp conditionally appends a secondary question. Condition is either
// a specific option value, an expression over `answer`, or "*" meaning the
// follow-up is always asked.
type FollowUp struct {
	Condition string
	Question  string
}

type ScriptQuestion struct {
	ID       string
	Prompt   string
	Type     QuestionType
	Options  []string
	FollowUp *FollowUp
}

// Default is the ordered script for the built-in customer experience survey.
var Default = []ScriptQuestion{
	{
		ID:      "intro",
		Prompt:  "Hello! We are running a short phone survey about your recent experience. Do you have two minutes to answer a few questions?",
		Type:    TypeIntro,
		Options: []string{"Yes", "No"},
	},
	{
		ID:      "satisfaction",
		Prompt:  "How satisfied were you with our service overall?",
		Type:    TypeChoice,
		Options: []string{"Very satisfied", "Satisfied", "Neutral", "Dissatisfied"},
		FollowUp: &FollowUp{
			Condition: `answer == "Dissatisfied"`,
			Question:  "We are sorry to hear that. What went wrong?",
		},
	},
	{
		ID:      "recommend",
		Prompt:  "On a scale from zero to ten, how likely are you to recommend us to a friend?",
		Type:    TypeOpen,
		FollowUp: &FollowUp{
			Condition: "*",
			Question:  "What is the main reason for your score?",
		},
	},
	{
		ID:     "improvements",
		Prompt: "Is there anything we could do better?",
		Type:   TypeOpen,
	},
	{
		ID:     "outro",
		Prompt: "Those were all our questions. Thank you for taking the time to talk to us. Goodbye!",
		Type:   TypeOutro,
	},
}

// SampleQuestions is the fallback question list used by the call flow when
// a call has no associated survey or the survey has no questions.
var SampleQuestions = []string{
	"How satisfied are you with our service?",
	"Would you recommend us to a friend?",
	"Is there anything we could do better?",
}
