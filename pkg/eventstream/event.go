package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTrained is emitted after a train request has been applied and
	// durably persisted.
	EventTypeTrained = "intents.model.trained"
)

// TrainedEvent is a transport-neutral event payload for a completed train.
type TrainedEvent struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	EventID       string         `json:"event_id"`
	EmittedAt     time.Time      `json:"emitted_at"`
	Systems       []SystemChange `json:"systems"`
}

// SystemChange summarizes one system's batch within a train.
type SystemChange struct {
	SystemID string `json:"system_id"`
	Added    int    `json:"added"`
	Edited   int    `json:"edited"`
	Deleted  int    `json:"deleted"`

	// Records is the system's record count after the batch.
	Records int `json:"records"`
}

// NewTrainedEvent stamps a new event with a fresh ID and the current time.
func NewTrainedEvent(systems []SystemChange) *TrainedEvent {
	return &TrainedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTrained,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Systems:       systems,
	}
}
