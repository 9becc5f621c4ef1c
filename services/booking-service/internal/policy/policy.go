// Package policy decides what an authenticated caller may do with appointments.
package policy

import (
	"context"

	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/model"
)

type Role string

const (
	RoleClient   Role = "client"
	RoleProvider Role = "provider"
)

func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleClient:
		return RoleClient, true
	case RoleProvider:
		return RoleProvider, true
	default:
		return "", false
	}
}

// AuthorizationContext is resolved once per request and passed to every lifecycle call.
// OwnedStoreID is empty unless the caller operates a store.
type AuthorizationContext struct {
	UserID       string
	Role         Role
	OwnedStoreID string
}

func (c AuthorizationContext) Authenticated() bool {
	return c.UserID != ""
}

func (c AuthorizationContext) IsClientOf(a model.Appointment) bool {
	return c.UserID != "" && a.ClientID == c.UserID
}

func (c AuthorizationContext) IsOperatorOf(storeID string) bool {
	return c.OwnedStoreID != "" && c.OwnedStoreID == storeID
}

func (c AuthorizationContext) CanBook() bool {
	return c.Authenticated() && c.Role == RoleClient
}

func (c AuthorizationContext) CanRead(a model.Appointment) bool {
	return c.IsClientOf(a) || c.IsOperatorOf(a.StoreID)
}

// CanModify covers update and cancel.
func (c AuthorizationContext) CanModify(a model.Appointment) bool {
	return c.CanRead(a)
}

func (c AuthorizationContext) CanChangeStatus(a model.Appointment) bool {
	return c.IsOperatorOf(a.StoreID)
}

func (c AuthorizationContext) CanDelete(a model.Appointment) bool {
	return c.IsClientOf(a)
}

func (c AuthorizationContext) CanListStore(storeID string) bool {
	return c.IsOperatorOf(storeID)
}

type ctxKey struct{}

func WithContext(ctx context.Context, ac AuthorizationContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, ac)
}

func FromContext(ctx context.Context) (AuthorizationContext, bool) {
	ac, ok := ctx.Value(ctxKey{}).(AuthorizationContext)
	return ac, ok
}
