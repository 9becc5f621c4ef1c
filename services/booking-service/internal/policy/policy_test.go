package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/model"
)

func TestAuthorizationContext(t *testing.T) {
	appt := model.Appointment{ID: "a1", StoreID: "s1", ClientID: "c1"}
	client := AuthorizationContext{UserID: "c1", Role: RoleClient}
	otherClient := AuthorizationContext{UserID: "c2", Role: RoleClient}
	operator := AuthorizationContext{UserID: "p1", Role: RoleProvider, OwnedStoreID: "s1"}
	otherOperator := AuthorizationContext{UserID: "p2", Role: RoleProvider, OwnedStoreID: "s2"}
	storeless := AuthorizationContext{UserID: "p3", Role: RoleProvider}

	cases := []struct {
		name   string
		ac     AuthorizationContext
		read   bool
		status bool
		delete bool
		list   bool
		book   bool
	}{
		{"owning client", client, true, false, true, false, true},
		{"other client", otherClient, false, false, false, false, true},
		{"store operator", operator, true, true, false, true, false},
		{"other operator", otherOperator, false, false, false, false, false},
		{"provider without store", storeless, false, false, false, false, false},
		{"anonymous", AuthorizationContext{}, false, false, false, false, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.ac.CanRead(appt); got != c.read {
				t.Fatalf("CanRead = %v", got)
			}
			if got := c.ac.CanModify(appt); got != c.read {
				t.Fatalf("CanModify = %v", got)
			}
			if got := c.ac.CanChangeStatus(appt); got != c.status {
				t.Fatalf("CanChangeStatus = %v", got)
			}
			if got := c.ac.CanDelete(appt); got != c.delete {
				t.Fatalf("CanDelete = %v", got)
			}
			if got := c.ac.CanListStore("s1"); got != c.list {
				t.Fatalf("CanListStore = %v", got)
			}
			if got := c.ac.CanBook(); got != c.book {
				t.Fatalf("CanBook = %v", got)
			}
		})
	}
}

func TestAnonymousNeverMatchesEmptyClient(t *testing.T) {
	if (AuthorizationContext{}).IsClientOf(model.Appointment{}) {
		t.Fatalf("empty user must not match empty client id")
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole("provider"); !ok || r != RoleProvider {
		t.Fatalf("ParseRole(provider) = %q, %v", r, ok)
	}
	if _, ok := ParseRole("admin"); ok {
		t.Fatalf("unexpected role accepted")
	}
}

func TestContextRoundTrip(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("expected no context")
	}
	ctx := WithContext(context.Background(), AuthorizationContext{UserID: "u"})
	ac, ok := FromContext(ctx)
	if !ok || ac.UserID != "u" {
		t.Fatalf("FromContext = %+v, %v", ac, ok)
	}
}

type failingLookup struct{}

func (failingLookup) StoreOwnedBy(context.Context, string) (model.Store, error) {
	return model.Store{}, errors.New("db down")
}

func TestResolver(t *testing.T) {
	ctx := context.Background()
	cat := catalog.NewMemory()
	days := make([]model.WorkingDay, 0, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		days = append(days, model.WorkingDay{Weekday: wd})
	}
	if err := cat.UpsertStore(ctx, model.Store{ID: "s1", OwnerID: "p1", BookingIntervalMinutes: 30, WorkingDays: days}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := NewResolver(cat)

	ac, err := r.Resolve(ctx, "p1", RoleProvider)
	if err != nil || ac.OwnedStoreID != "s1" {
		t.Fatalf("provider resolve = %+v, %v", ac, err)
	}
	ac, err = r.Resolve(ctx, "p9", RoleProvider)
	if err != nil || ac.OwnedStoreID != "" {
		t.Fatalf("storeless provider resolve = %+v, %v", ac, err)
	}
	ac, err = r.Resolve(ctx, "p1", RoleClient)
	if err != nil || ac.OwnedStoreID != "" {
		t.Fatalf("client resolve must not look up stores: %+v, %v", ac, err)
	}
	if _, err := NewResolver(failingLookup{}).Resolve(ctx, "p1", RoleProvider); err == nil {
		t.Fatalf("expected lookup error to propagate")
	}
}
