package otelx

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceContextRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	const traceparent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	ctx := TraceContext{Parent: traceparent}.Attach(context.Background())
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		t.Fatal("expected a valid remote span context")
	}
	if got := sc.TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("unexpected trace id %s", got)
	}

	if got := CaptureTraceContext(ctx).Parent; got != traceparent {
		t.Fatalf("expected %s, got %s", traceparent, got)
	}
}

func TestAttachEmpty(t *testing.T) {
	ctx := context.Background()
	if got := (TraceContext{}).Attach(ctx); got != ctx {
		t.Fatal("expected the same context back when no trace headers are present")
	}
	if !CaptureTraceContext(ctx).Empty() {
		t.Fatal("expected an empty trace context without an active span")
	}
}
