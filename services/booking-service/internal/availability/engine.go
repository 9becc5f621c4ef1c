package availability

import (
	"context"
	"errors"
	"time"

	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// AppointmentFinder returns the non-cancelled appointments of a store whose start
// falls in [from, to).
type AppointmentFinder interface {
	FindByStoreAndDateRange(ctx context.Context, storeID string, from, to time.Time) ([]model.Appointment, error)
}

type Engine struct {
	catalog      catalog.Reader
	appointments AppointmentFinder
	now          func() time.Time
}

func NewEngine(cat catalog.Reader, appointments AppointmentFinder, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{catalog: cat, appointments: appointments, now: now}
}

// Target is a resolved store/service pair for a scheduling decision.
type Target struct {
	Store    model.Store
	Service  model.Service
	Location *time.Location
}

// Resolve loads the store and service and checks they belong together.
func Resolve(ctx context.Context, cat catalog.Reader, storeID, serviceID string) (Target, error) {
	store, err := cat.GetStore(ctx, storeID)
	if errors.Is(err, catalog.ErrNotFound) {
		return Target{}, apperr.NotFound("store not found")
	}
	if err != nil {
		return Target{}, apperr.Internal("load store", err)
	}
	service, err := cat.GetService(ctx, serviceID)
	if errors.Is(err, catalog.ErrNotFound) {
		return Target{}, apperr.NotFound("service not found")
	}
	if err != nil {
		return Target{}, apperr.Internal("load service", err)
	}
	if service.StoreID != store.ID {
		return Target{}, apperr.BadRequest("service does not belong to store")
	}
	loc, err := store.Location()
	if err != nil {
		return Target{}, apperr.Internal("store timezone", err)
	}
	return Target{Store: store, Service: service, Location: loc}, nil
}

// BusyAround loads what occupies the store on the local day of t, measured with each
// appointment's own service duration.
func BusyAround(ctx context.Context, cat catalog.Reader, finder AppointmentFinder, storeID string, t time.Time) ([]model.Appointment, DurationLookup, error) {
	from, to := conflictWindow(t)
	existing, err := finder.FindByStoreAndDateRange(ctx, storeID, from.UTC(), to.UTC())
	if err != nil {
		return nil, nil, apperr.Internal("load appointments", err)
	}
	services, err := cat.ListServices(ctx, storeID)
	if err != nil {
		return nil, nil, apperr.Internal("load services", err)
	}
	return existing, LookupFromServices(services), nil
}

// ListAvailableSlots returns the free, not yet started slots on date (YYYY-MM-DD in the
// store's timezone). A closed day yields an empty list.
func (e *Engine) ListAvailableSlots(ctx context.Context, storeID, serviceID, date string) ([]model.TimeSlot, error) {
	ctx, span := otel.Tracer("booking").Start(ctx, "ListAvailableSlots")
	defer span.End()
	span.SetAttributes(attribute.String("store_id", storeID), attribute.String("service_id", serviceID), attribute.String("date", date))

	target, err := Resolve(ctx, e.catalog, storeID, serviceID)
	if err != nil {
		return nil, err
	}
	day, err := time.ParseInLocation(time.DateOnly, date, target.Location)
	if err != nil {
		return nil, apperr.BadRequest("invalid date")
	}

	candidates := GenerateCandidates(target.Store.WorkingDays, target.Store.BookingIntervalMinutes, target.Service.DurationMinutes, day)
	if len(candidates) == 0 {
		return []model.TimeSlot{}, nil
	}

	existing, durationOf, err := BusyAround(ctx, e.catalog, e.appointments, storeID, day)
	if err != nil {
		return nil, err
	}
	busy := BusyIntervals(existing, durationOf, "")
	now := e.now()

	out := make([]model.TimeSlot, 0, len(candidates))
	for _, c := range candidates {
		if !c.Start.After(now) {
			continue
		}
		if overlapsAny(c.Start, c.End, busy) {
			continue
		}
		out = append(out, c)
	}
	span.SetAttributes(attribute.Int("slots", len(out)))
	return out, nil
}
