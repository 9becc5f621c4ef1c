package availability

import (
	"time"

	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/model"
)

type Interval struct {
	Start time.Time
	End   time.Time
}

// DurationLookup returns the duration of a service and whether it is known.
type DurationLookup func(serviceID string) (time.Duration, bool)

func LookupFromServices(services []model.Service) DurationLookup {
	byID := make(map[string]time.Duration, len(services))
	for _, s := range services {
		byID[s.ID] = s.Duration()
	}
	return func(serviceID string) (time.Duration, bool) {
		d, ok := byID[serviceID]
		return d, ok
	}
}

func normalize(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}

// BusyIntervals returns the occupied [start, end) of every appointment that is not
// cancelled and not excludeID. Each appointment is measured with its own service's
// duration; the stored end time is only used when the service is unknown.
func BusyIntervals(existing []model.Appointment, durationOf DurationLookup, excludeID string) []Interval {
	busy := make([]Interval, 0, len(existing))
	for _, a := range existing {
		if a.Status == model.StatusCancelled {
			continue
		}
		if excludeID != "" && a.ID == excludeID {
			continue
		}
		start := normalize(a.StartTime)
		end := normalize(a.EndTime)
		if durationOf != nil {
			if d, ok := durationOf(a.ServiceID); ok && d > 0 {
				end = start.Add(d)
			}
		}
		if !end.After(start) {
			continue
		}
		busy = append(busy, Interval{Start: start, End: end})
	}
	return busy
}

// Overlaps reports whether [start, end) collides with any existing appointment.
// Touching endpoints do not collide.
func Overlaps(start, end time.Time, existing []model.Appointment, durationOf DurationLookup, excludeID string) bool {
	return overlapsAny(normalize(start), normalize(end), BusyIntervals(existing, durationOf, excludeID))
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		// Half-open intervals: [start,end) overlaps [b.Start,b.End) iff start < b.End && b.Start < end.
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}
