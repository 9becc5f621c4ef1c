// Package storage persists appointments and serialises writes per store.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/outbox"
)

var (
	ErrNotFound = errors.New("appointment not found")
	// ErrConflict means a pending or confirmed appointment already occupies the interval.
	ErrConflict = errors.New("appointment overlaps an existing booking")
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// Reader holds the lock-free queries.
type Reader interface {
	FindByID(ctx context.Context, id string) (model.Appointment, error)
	// FindByStoreAndDateRange returns non-cancelled appointments starting in [from, to).
	FindByStoreAndDateRange(ctx context.Context, storeID string, from, to time.Time) ([]model.Appointment, error)
	ListByStore(ctx context.Context, storeID string, limit int) ([]model.Appointment, error)
	ListByClient(ctx context.Context, clientID string, limit int) ([]model.Appointment, error)
}

// Tx is a unit of work holding the store's write lock. Writes and events are applied
// together or not at all.
type Tx interface {
	FindByID(ctx context.Context, id string) (model.Appointment, error)
	FindByStoreAndDateRange(ctx context.Context, storeID string, from, to time.Time) ([]model.Appointment, error)
	Insert(ctx context.Context, a model.Appointment) (model.Appointment, error)
	ApplyPatch(ctx context.Context, id string, patch model.AppointmentPatch, updatedAt time.Time) (model.Appointment, error)
	Delete(ctx context.Context, id string) error
	AppendEvent(ctx context.Context, evt outbox.Event) error
}

type Repository interface {
	Reader
	// WithinStoreLock runs fn while no other writer for storeID can run. A non-nil
	// error from fn discards everything fn wrote.
	WithinStoreLock(ctx context.Context, storeID string, fn func(ctx context.Context, tx Tx) error) error
}

// occupies reports whether a holds its interval against other bookings.
func occupies(s model.Status) bool {
	return s == model.StatusPending || s == model.StatusConfirmed
}
