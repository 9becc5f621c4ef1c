package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/model"
)

const (
	EventAppointmentCreated   = "booking.appointment.created.v1"
	EventAppointmentUpdated   = "booking.appointment.updated.v1"
	EventAppointmentCancelled = "booking.appointment.cancelled.v1"
	EventAppointmentDeleted   = "booking.appointment.deleted.v1"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type AppointmentPayload struct {
	AppointmentID string    `json:"appointment_id"`
	StoreID       string    `json:"store_id"`
	ServiceID     string    `json:"service_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// AppointmentEvent builds the envelope for an appointment change. Client ids stay out of the payload.
func AppointmentEvent(eventType string, a model.Appointment, at time.Time) (Event, error) {
	payload, err := json.Marshal(AppointmentPayload{
		AppointmentID: a.ID,
		StoreID:       a.StoreID,
		ServiceID:     a.ServiceID,
		StartTime:     a.StartTime.UTC(),
		EndTime:       a.EndTime.UTC(),
		Status:        a.Status.String(),
		OccurredAt:    at.UTC(),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "appointment",
		AggregateID:   a.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
