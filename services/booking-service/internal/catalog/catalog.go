// Package catalog exposes the store and service data owned by the catalog service.
// Booking only reads it; the local copy is kept current by catalog events.
package catalog

import (
	"context"
	"errors"

	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/model"
)

var ErrNotFound = errors.New("catalog entry not found")

type Reader interface {
	GetStore(ctx context.Context, storeID string) (model.Store, error)
	GetService(ctx context.Context, serviceID string) (model.Service, error)
	ListServices(ctx context.Context, storeID string) ([]model.Service, error)
	// StoreOwnedBy returns the store operated by userID, or ErrNotFound.
	StoreOwnedBy(ctx context.Context, userID string) (model.Store, error)
}

type Writer interface {
	UpsertStore(ctx context.Context, store model.Store) error
	UpsertService(ctx context.Context, service model.Service) error
}
