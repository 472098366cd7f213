// Package eventstream defines transport-neutral events emitted after chat
// turns complete, plus the Publisher interface backends implement.
package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnCompleted is emitted after a chat turn finishes, whether
	// the reply was streamed or returned whole.
	EventTypeTurnCompleted = "chatrelay.turn.completed"
)

// TurnCompletedEvent is a transport-neutral event payload for a completed
// chat turn.
type TurnCompletedEvent struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Source        EventSource     `json:"source"`
	RequestMeta   TurnRequestMeta `json:"request_meta"`
	Turn          TurnPayload     `json:"turn"`
}

// EventSource identifies where the turn originated.
type EventSource struct {
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
}

// TurnRequestMeta captures request lifecycle metadata for the event.
type TurnRequestMeta struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Streaming   bool      `json:"streaming"`
	HTTPStatus  int       `json:"http_status"`
}

// TurnPayload carries the exchanged text of the turn.
type TurnPayload struct {
	Message     string `json:"message"`
	Reply       string `json:"reply"`
	HistoryLen  int    `json:"history_len"`
	ReplyChunks int    `json:"reply_chunks,omitempty"`
}

// NewTurnCompletedEvent stamps a fresh event with the current schema version,
// a unique event ID, and an emission timestamp.
func NewTurnCompletedEvent(source EventSource, meta TurnRequestMeta, turn TurnPayload) *TurnCompletedEvent {
	return &TurnCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTurnCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		RequestMeta:   meta,
		Turn:          turn,
	}
}
