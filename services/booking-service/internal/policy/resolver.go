package policy

import (
	"context"
	"errors"

	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/model"
)

type StoreLookup interface {
	StoreOwnedBy(ctx context.Context, userID string) (model.Store, error)
}

type Resolver struct {
	stores StoreLookup
}

func NewResolver(stores StoreLookup) *Resolver {
	return &Resolver{stores: stores}
}

// Resolve builds the caller's AuthorizationContext. A provider without a store resolves
// successfully with no owned store.
func (r *Resolver) Resolve(ctx context.Context, userID string, role Role) (AuthorizationContext, error) {
	ac := AuthorizationContext{UserID: userID, Role: role}
	if role != RoleProvider {
		return ac, nil
	}
	store, err := r.stores.StoreOwnedBy(ctx, userID)
	if errors.Is(err, catalog.ErrNotFound) {
		return ac, nil
	}
	if err != nil {
		return AuthorizationContext{}, err
	}
	ac.OwnedStoreID = store.ID
	return ac, nil
}
