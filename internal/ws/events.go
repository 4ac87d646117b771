package ws

import (
	"encoding/json"
	"time"
)

// Event types published on the operator feed.
const (
	EventTrialRecorded  = "trial.recorded"
	EventSurveyRecorded = "survey.recorded"
	EventSessionUpdated = "session.updated"
)

// Event is the structured message sent to WebSocket clients.
type Event struct {
	Type          string          `json:"type"`
	ID            uint64          `json:"id"`
	ParticipantID string          `json:"participant_id,omitempty"`
	Data          json.RawMessage `json:"data"`
	Time          time.Time       `json:"time"`
}

// SubscribeMsg is sent by the client on connect to request event replay.
type SubscribeMsg struct {
	Type        string `json:"type"`
	LastEventID uint64 `json:"last_event_id"`
}

// ResetMsg tells the client to do a full refresh (requested events too old).
type ResetMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}
