package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/model"
)

// Memory is an in-process catalog used by tests and local runs without Postgres.
type Memory struct {
	mu       sync.RWMutex
	stores   map[string]model.Store
	services map[string]model.Service
}

func NewMemory() *Memory {
	return &Memory{
		stores:   map[string]model.Store{},
		services: map[string]model.Service{},
	}
}

func (m *Memory) UpsertStore(_ context.Context, store model.Store) error {
	if err := store.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	store.WorkingDays = append([]model.WorkingDay(nil), store.WorkingDays...)
	m.stores[store.ID] = store
	return nil
}

func (m *Memory) UpsertService(_ context.Context, service model.Service) error {
	if err := service.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[service.ID] = service
	return nil
}

func (m *Memory) GetStore(_ context.Context, storeID string) (model.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stores[storeID]
	if !ok {
		return model.Store{}, ErrNotFound
	}
	s.WorkingDays = append([]model.WorkingDay(nil), s.WorkingDays...)
	return s, nil
}

func (m *Memory) GetService(_ context.Context, serviceID string) (model.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.services[serviceID]
	if !ok {
		return model.Service{}, ErrNotFound
	}
	return s, nil
}

func (m *Memory) ListServices(_ context.Context, storeID string) ([]model.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Service
	for _, s := range m.services {
		if s.StoreID == storeID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) StoreOwnedBy(ctx context.Context, userID string) (model.Store, error) {
	m.mu.RLock()
	ids := make([]string, 0, 1)
	for id, s := range m.stores {
		if s.OwnerID == userID {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()
	if len(ids) == 0 {
		return model.Store{}, ErrNotFound
	}
	sort.Strings(ids)
	return m.GetStore(ctx, ids[0])
}
