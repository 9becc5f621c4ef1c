package availability

import (
	"time"

	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/model"
)

func dayFor(days []model.WorkingDay, wd time.Weekday) (model.WorkingDay, bool) {
	for _, d := range days {
		if d.Weekday == wd {
			return d, true
		}
	}
	return model.WorkingDay{}, false
}

// minuteOfDay drops seconds and below, so 09:59:59.9 is minute 599.
func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// IsOpenAt reports whether instant falls inside the opening window of its weekday.
// instant must already be in the store's location.
func IsOpenAt(days []model.WorkingDay, instant time.Time) bool {
	day, ok := dayFor(days, instant.Weekday())
	if !ok || !day.IsOpen {
		return false
	}
	m := minuteOfDay(instant)
	return day.OpenMinute <= m && m < day.CloseMinute
}

// DayBounds returns local midnight of t's day and the following midnight.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// conflictWindow widens a day by the longest possible service so appointments that
// started the previous evening and spill into the day are still seen.
func conflictWindow(t time.Time) (time.Time, time.Time) {
	from, to := DayBounds(t)
	return from.Add(-model.MaxServiceDurationMinutes * time.Minute), to
}
