package domain

import (
	"time"

	"github.com/goccy/go-json"
)

// SessionRecord represents a persisted conversation session.
type SessionRecord struct {
	SessionID string          `json:"session_id"`
	UserID    string          `json:"user_id"`
	CreatedAt time.Time       `json:"created_at"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// TranscriptLine is a single line of a session transcript.
type TranscriptLine struct {
	LineID    string    `json:"line_id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Event represents a trace event for replay.
type Event struct {
	EventID   string          `json:"event_id"`
	SessionID string          `json:"session_id"`
	Ts        int64           `json:"ts"` // Unix milliseconds
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// StateChangedPayload is the payload of a state_changed event.
type StateChangedPayload struct {
	From   State  `json:"from"`
	To     State  `json:"to"`
	Output string `json:"output,omitempty"`
}

// POISelectedPayload is the payload of a poi_selected event.
type POISelectedPayload struct {
	Category  Category `json:"category"`
	Name      string   `json:"name"`
	Score     float64  `json:"score"`
	Position  int      `json:"position"`
	LatencyMs int64    `json:"latency_ms"`
}

// FeedbackSavedPayload is the payload of a feedback_saved event.
type FeedbackSavedPayload struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Rated     int     `json:"rated"`
}

// QueryRecord is one raw user query.
type QueryRecord struct {
	QueryID   string    `json:"query_id"`
	SessionID string    `json:"session_id"`
	Query     string    `json:"query"`
	CreatedAt time.Time `json:"created_at"`
}
