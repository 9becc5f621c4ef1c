package availability

import (
	"time"

	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/model"
)

// GenerateCandidates returns every [start, start+duration) window on date's weekday,
// starting at opening time and stepping by interval, that ends no later than closing.
// A closed or missing day yields no candidates. Wall-clock starts that do not exist
// on date (skipped by a DST change) are left out.
func GenerateCandidates(days []model.WorkingDay, intervalMinutes, durationMinutes int, date time.Time) []model.TimeSlot {
	if intervalMinutes <= 0 || durationMinutes <= 0 {
		return nil
	}
	day, ok := dayFor(days, date.Weekday())
	if !ok || !day.IsOpen {
		return nil
	}

	duration := time.Duration(durationMinutes) * time.Minute
	label := date.Format(time.DateOnly)
	var slots []model.TimeSlot
	for m := day.OpenMinute; m+durationMinutes <= day.CloseMinute; m += intervalMinutes {
		start := time.Date(date.Year(), date.Month(), date.Day(), m/60, m%60, 0, 0, date.Location())
		if minuteOfDay(start) != m || start.Day() != date.Day() {
			continue
		}
		slots = append(slots, model.TimeSlot{
			Date:  label,
			Start: start,
			End:   start.Add(duration),
		})
	}
	return slots
}
