package outbox

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotkeeper/libs/kafkax"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestAppointmentEvent(t *testing.T) {
	start := time.Date(2030, 1, 7, 10, 0, 0, 0, time.UTC)
	a := model.Appointment{
		ID: "a1", StoreID: "s1", ServiceID: "svc", ClientID: "secret-client",
		StartTime: start, EndTime: start.Add(time.Hour), Status: model.StatusPending,
	}
	evt, err := AppointmentEvent(EventAppointmentCreated, a, start)
	if err != nil {
		t.Fatalf("AppointmentEvent: %v", err)
	}
	if evt.AggregateType != "appointment" || evt.AggregateID != "a1" || evt.EventType != EventAppointmentCreated {
		t.Fatalf("unexpected envelope: %+v", evt)
	}
	if strings.Contains(string(evt.Payload), "secret-client") {
		t.Fatalf("payload leaks client id: %s", evt.Payload)
	}
	var p AppointmentPayload
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if p.Status != "pending" || !p.EndTime.Equal(start.Add(time.Hour)) {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestMessageCarriesMetaAndTrace(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	rec := Record{
		ID:          7,
		EventID:     "evt-1",
		AggregateID: "a1",
		EventType:   EventAppointmentCancelled,
		Payload:     []byte(`{}`),
		Traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	}
	msg := Message(context.Background(), rec)
	if msg.Topic != EventAppointmentCancelled || string(msg.Key) != "a1" {
		t.Fatalf("unexpected topic/key: %s %s", msg.Topic, msg.Key)
	}
	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID != "evt-1" || meta.EventType != EventAppointmentCancelled {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if got := kafkax.HeaderValue(msg.Headers, "traceparent"); got != rec.Traceparent {
		t.Fatalf("traceparent = %q", got)
	}
}
