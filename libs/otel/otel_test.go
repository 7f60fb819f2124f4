package otelx

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLING_PERMILLE", "250")
	cfg, err := ConfigFromEnv("availability-service")
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if !cfg.Enabled || cfg.SampleRatio != 0.25 || cfg.ServiceName != "availability-service" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	t.Setenv("OTEL_SAMPLING_PERMILLE", "2000")
	if _, err := ConfigFromEnv("x"); err == nil {
		t.Fatal("expected range error")
	}
}

func TestTraceContextRoundTrip(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	tp, ts := TraceContextStrings(ctx)
	if tp == "" {
		t.Fatal("expected traceparent")
	}
	got := trace.SpanContextFromContext(ContextWithTraceContext(context.Background(), tp, ts))
	if got.TraceID() != traceID || got.SpanID() != spanID {
		t.Fatalf("unexpected span context %v", got)
	}
	if ContextWithTraceContext(context.Background(), "", "") != context.Background() {
		t.Fatal("expected unchanged context")
	}
}
