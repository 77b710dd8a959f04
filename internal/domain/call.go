package domain

import "time"

type CallStatus string

const (
	CallStatusPending    CallStatus = "pending"
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusAbandoned  CallStatus = "abandoned"
)

// CallState is the conversation step a live call is in. The state is
// persisted on the call_queue row so every webhook callback can resume from
// authoritative storage rather than from anything held in process memory.
type CallState string

const (
	CallStateGreeting CallState = "greeting"
	CallStateAsking   CallState = "asking"
	CallStateAwaiting CallState = "awaiting"
	CallStateDone     CallState = "done"
)

// CallQueueEntry tracks one outbound call's lifecycle and retry state.
type CallQueueEntry struct {
	ID            int64      `db:"id" json:"id"`
	ContactID     int64      `db:"contact_id" json:"contactId"`
	SurveyID      *int64     `db:"survey_id" json:"surveyId,omitempty"`
	CallSID       *string    `db:"call_sid" json:"callSid,omitempty"`
	Status        CallStatus `db:"status" json:"status"`
	State         CallState  `db:"state" json:"state"`
	CurrentIndex  int        `db:"current_index" json:"currentIndex"`
	AttemptCount  int        `db:"attempt_count" json:"attemptCount"`
	LastAttemptAt *time.Time `db:"last_attempt_at" json:"lastAttemptAt,omitempty"`
	NextAttemptAt *time.Time `db:"next_attempt_at" json:"nextAttemptAt,omitempty"`
	Voice         *string    `db:"voice" json:"voice,omitempty"`
	Language      *string    `db:"language" json:"language,omitempty"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

// DialResult reports one outbound call placement by the dialer.
type DialResult struct {
	QueueID  int64
	CallSID  string
	Success  bool
	Error    error
	DialedAt time.Time
}

// SchemaCapabilities records which optional response columns the connected
// database actually has, probed once at startup via information_schema.
type SchemaCapabilities struct {
	HasNumericValue bool `json:"hasNumericValueColumn"`
	HasKeyInsights  bool `json:"hasKeyInsightsColumn"`
}
