// Package protocol defines the JSON messages published on the bus so external
// consumers (dashboards, loggers, downstream automations) can follow voice
// sessions without linking the runtime.
package protocol

import "time"

// SessionState mirrors one orchestrator snapshot.
type SessionState struct {
	SessionID  string    `json:"session_id"`
	State      string    `json:"state"`
	Token      uint64    `json:"token"`
	Transcript string    `json:"transcript,omitempty"`
	Partial    string    `json:"partial,omitempty"`
	AudioLevel float64   `json:"audio_level,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Transcript is broadcast when speech is finalized or a partial updates.
type Transcript struct {
	SessionID string    `json:"session_id"`
	Text      string    `json:"text"`
	Partial   bool      `json:"partial"`
	Timestamp time.Time `json:"timestamp"`
}

// TurnResponse is broadcast when a turn completes with a backend answer.
type TurnResponse struct {
	SessionID     string    `json:"session_id"`
	Transcript    string    `json:"transcript"`
	Intent        string    `json:"intent"`
	ResponseText  string    `json:"response_text"`
	RelevantItems []string  `json:"relevant_items,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

const (
	SubjectSessionState      = "session.state"
	SubjectTranscriptPartial = "transcript.partial"
	SubjectTranscriptFinal   = "transcript.final"
	SubjectTurnResponse      = "turn.response"
)

// Subject prepends the configured subject prefix.
func Subject(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
