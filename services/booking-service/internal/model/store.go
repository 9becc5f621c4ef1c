package model

import (
	"errors"
	"fmt"
	"time"
)

const MaxServiceDurationMinutes = 24 * 60

// WorkingDay is one weekday's opening window, as minutes after local midnight.
type WorkingDay struct {
	Weekday     time.Weekday
	IsOpen      bool
	OpenMinute  int
	CloseMinute int
}

type Store struct {
	ID                     string
	OwnerID                string
	Timezone               string
	BookingIntervalMinutes int
	WorkingDays            []WorkingDay
}

type Service struct {
	ID              string
	StoreID         string
	DurationMinutes int
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

func (s Service) Validate() error {
	if s.DurationMinutes <= 0 || s.DurationMinutes > MaxServiceDurationMinutes {
		return fmt.Errorf("service %s: duration %d out of range", s.ID, s.DurationMinutes)
	}
	return nil
}

// Location resolves the store timezone, defaulting to UTC.
func (s Store) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}

var ErrWorkingDays = errors.New("store must define exactly one working day per weekday")

func (s Store) Validate() error {
	if s.BookingIntervalMinutes <= 0 {
		return fmt.Errorf("store %s: booking interval must be positive", s.ID)
	}
	if _, err := s.Location(); err != nil {
		return fmt.Errorf("store %s: %w", s.ID, err)
	}
	if len(s.WorkingDays) != 7 {
		return ErrWorkingDays
	}
	var seen [7]bool
	for _, d := range s.WorkingDays {
		if d.Weekday < time.Sunday || d.Weekday > time.Saturday || seen[d.Weekday] {
			return ErrWorkingDays
		}
		seen[d.Weekday] = true
		if d.IsOpen && (d.OpenMinute < 0 || d.CloseMinute > 24*60 || d.OpenMinute >= d.CloseMinute) {
			return fmt.Errorf("store %s: invalid hours on %s", s.ID, d.Weekday)
		}
	}
	return nil
}

// TimeSlot is a computed booking window; Start and End are in the store's location.
type TimeSlot struct {
	Date  string
	Start time.Time
	End   time.Time
}
