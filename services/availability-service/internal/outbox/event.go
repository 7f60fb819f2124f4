package outbox

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	EventActorUpdated      = "availability.actor.updated.v1"
	EventConflictsResolved = "availability.conflicts.resolved.v1"
)

// Event is one message waiting to be published. EventType doubles as the Kafka topic.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Sink accepts events for later delivery.
type Sink interface {
	Publish(ctx context.Context, evt Event) error
}

// NewEvent JSON-encodes payload into an actor event.
func NewEvent(eventType, actorID string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s: %w", eventType, err)
	}
	return Event{
		AggregateType: "actor",
		AggregateID:   actorID,
		EventType:     eventType,
		Payload:       raw,
	}, nil
}
