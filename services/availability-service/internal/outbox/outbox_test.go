package outbox

import (
	"context"
	"testing"

	"github.com/md-rashed-zaman/callboard/libs/kafkax"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestNewEvent(t *testing.T) {
	evt, err := NewEvent(EventActorUpdated, "actor-1", map[string]string{"actor_id": "actor-1"})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	if evt.AggregateType != "actor" || evt.AggregateID != "actor-1" || string(evt.Payload) != `{"actor_id":"actor-1"}` {
		t.Fatalf("unexpected event %+v", evt)
	}
	if _, err := NewEvent(EventActorUpdated, "a", make(chan int)); err == nil {
		t.Fatal("expected encode error")
	}
}

func TestMessage(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	r := Record{
		EventID:     "e-1",
		AggregateID: "actor-1",
		EventType:   EventConflictsResolved,
		Payload:     []byte(`{}`),
		Traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	}
	msg := message(context.Background(), r)
	if msg.Topic != EventConflictsResolved || string(msg.Key) != "actor-1" {
		t.Fatalf("unexpected message %+v", msg)
	}
	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID != "e-1" || meta.EventType != EventConflictsResolved {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if got := kafkax.HeaderValue(msg.Headers, "traceparent"); got != r.Traceparent {
		t.Fatalf("expected trace context to be carried, got %q", got)
	}
}
