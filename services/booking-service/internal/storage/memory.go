package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/outbox"
)

// Memory is an in-process Repository. It enforces the same overlap rule as the
// Postgres exclusion constraint so both back ends reject the same writes.
type Memory struct {
	mu     sync.RWMutex
	appts  map[string]model.Appointment
	events []outbox.Event

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewMemory() *Memory {
	return &Memory{
		appts: map[string]model.Appointment{},
		locks: map[string]*sync.Mutex{},
	}
}

func (m *Memory) storeLock(storeID string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[storeID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[storeID] = l
	}
	return l
}

// Events returns the committed outbox events in write order.
func (m *Memory) Events() []outbox.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]outbox.Event(nil), m.events...)
}

func (m *Memory) FindByID(_ context.Context, id string) (model.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.appts[id]
	if !ok {
		return model.Appointment{}, ErrNotFound
	}
	return a, nil
}

func (m *Memory) FindByStoreAndDateRange(_ context.Context, storeID string, from, to time.Time) ([]model.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return inRange(m.appts, nil, storeID, from, to), nil
}

func (m *Memory) ListByStore(_ context.Context, storeID string, limit int) ([]model.Appointment, error) {
	return m.list(func(a model.Appointment) bool { return a.StoreID == storeID }, limit), nil
}

func (m *Memory) ListByClient(_ context.Context, clientID string, limit int) ([]model.Appointment, error) {
	return m.list(func(a model.Appointment) bool { return a.ClientID == clientID }, limit), nil
}

func (m *Memory) list(match func(model.Appointment) bool, limit int) []model.Appointment {
	m.mu.RLock()
	var out []model.Appointment
	for _, a := range m.appts {
		if match(a) {
			out = append(out, a)
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if limit = ClampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *Memory) WithinStoreLock(ctx context.Context, storeID string, fn func(ctx context.Context, tx Tx) error) error {
	l := m.storeLock(storeID)
	l.Lock()
	defer l.Unlock()

	tx := &memTx{m: m, writes: map[string]*model.Appointment{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range tx.writes {
		if a == nil {
			delete(m.appts, id)
			continue
		}
		m.appts[id] = *a
	}
	m.events = append(m.events, tx.events...)
	return nil
}

// memTx stages writes until WithinStoreLock commits them. A nil entry is a delete.
type memTx struct {
	m      *Memory
	writes map[string]*model.Appointment
	events []outbox.Event
}

func (t *memTx) lookup(id string) (model.Appointment, bool) {
	if a, staged := t.writes[id]; staged {
		if a == nil {
			return model.Appointment{}, false
		}
		return *a, true
	}
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	a, ok := t.m.appts[id]
	return a, ok
}

func (t *memTx) FindByID(_ context.Context, id string) (model.Appointment, error) {
	a, ok := t.lookup(id)
	if !ok {
		return model.Appointment{}, ErrNotFound
	}
	return a, nil
}

func (t *memTx) FindByStoreAndDateRange(_ context.Context, storeID string, from, to time.Time) ([]model.Appointment, error) {
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	return inRange(t.m.appts, t.writes, storeID, from, to), nil
}

func (t *memTx) Insert(_ context.Context, a model.Appointment) (model.Appointment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if _, exists := t.lookup(a.ID); exists {
		return model.Appointment{}, ErrConflict
	}
	if err := t.checkOverlap(a); err != nil {
		return model.Appointment{}, err
	}
	t.writes[a.ID] = &a
	return a, nil
}

func (t *memTx) ApplyPatch(_ context.Context, id string, patch model.AppointmentPatch, updatedAt time.Time) (model.Appointment, error) {
	current, ok := t.lookup(id)
	if !ok {
		return model.Appointment{}, ErrNotFound
	}
	next := patch.Apply(current)
	next.UpdatedAt = updatedAt
	if err := t.checkOverlap(next); err != nil {
		return model.Appointment{}, err
	}
	t.writes[id] = &next
	return next, nil
}

func (t *memTx) Delete(_ context.Context, id string) error {
	if _, ok := t.lookup(id); !ok {
		return ErrNotFound
	}
	t.writes[id] = nil
	return nil
}

func (t *memTx) AppendEvent(_ context.Context, evt outbox.Event) error {
	t.events = append(t.events, evt)
	return nil
}

// checkOverlap mirrors the exclusion constraint: two pending or confirmed rows of one
// store may not share any part of [start_time, end_time).
func (t *memTx) checkOverlap(a model.Appointment) error {
	if !occupies(a.Status) {
		return nil
	}
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	for _, other := range merged(t.m.appts, t.writes) {
		if other.ID == a.ID || other.StoreID != a.StoreID || !occupies(other.Status) {
			continue
		}
		if a.StartTime.Before(other.EndTime) && other.StartTime.Before(a.EndTime) {
			return ErrConflict
		}
	}
	return nil
}

func merged(base map[string]model.Appointment, writes map[string]*model.Appointment) []model.Appointment {
	out := make([]model.Appointment, 0, len(base)+len(writes))
	for id, a := range base {
		if _, staged := writes[id]; staged {
			continue
		}
		out = append(out, a)
	}
	for _, a := range writes {
		if a != nil {
			out = append(out, *a)
		}
	}
	return out
}

func inRange(base map[string]model.Appointment, writes map[string]*model.Appointment, storeID string, from, to time.Time) []model.Appointment {
	var out []model.Appointment
	for _, a := range merged(base, writes) {
		if a.StoreID != storeID || a.Status == model.StatusCancelled {
			continue
		}
		if a.StartTime.Before(from) || !a.StartTime.Before(to) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}
