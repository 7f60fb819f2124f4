package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestExtractEventMeta(t *testing.T) {
	msg := kafka.Message{
		Topic:   "calendar.busy.imported.v1",
		Key:     []byte("actor-1"),
		Headers: EventMeta{EventID: "evt-1", EventType: "calendar.busy.imported"}.Headers(),
	}
	got := ExtractEventMeta(msg)
	if got.EventID != "evt-1" || got.EventType != "calendar.busy.imported" {
		t.Fatalf("unexpected meta %+v", got)
	}

	got = ExtractEventMeta(kafka.Message{Topic: "t", Key: []byte("k"), Value: []byte(`{"n":1}`)})
	if got.EventID != ContentID("t", []byte(`{"n":1}`)) || got.EventType != "t" {
		t.Fatalf("expected fallbacks, got %+v", got)
	}
}

func TestExtractEventMeta_SameKeyDifferentPayload(t *testing.T) {
	a := ExtractEventMeta(kafka.Message{Topic: "t", Key: []byte("a1"), Value: []byte(`{"events":[]}`)})
	b := ExtractEventMeta(kafka.Message{Topic: "t", Key: []byte("a1"), Value: []byte(`{"events":[{}]}`)})
	if a.EventID == b.EventID {
		t.Fatalf("messages sharing a key must not share an id: %s", a.EventID)
	}
	again := ExtractEventMeta(kafka.Message{Topic: "t", Key: []byte("other"), Value: []byte(`{"events":[]}`)})
	if again.EventID != a.EventID {
		t.Fatalf("identical payloads must share an id, got %s and %s", a.EventID, again.EventID)
	}
	if other := ContentID("u", []byte(`{"events":[]}`)); other == a.EventID {
		t.Fatal("id must depend on the topic")
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" a:9092, ,b:9092")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
}

func TestTraceHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := InjectTraceHeaders(ctx, []kafka.Header{{Key: "traceparent", Value: []byte("stale")}})
	if len(headers) != 1 {
		t.Fatalf("expected overwrite, got %d headers", len(headers))
	}
	out := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), kafka.Message{Headers: headers}))
	if out.TraceID() != traceID {
		t.Fatalf("trace id lost: %s", out.TraceID())
	}
}

func TestReadyCheckNoBrokers(t *testing.T) {
	if err := ReadyCheck(nil)(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
