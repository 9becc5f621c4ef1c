package availability

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/model"
)

// 2030-01-07 is a Monday.
const monday = "2030-01-07"

func mustTime(t *testing.T, v string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		t.Fatalf("parse %q: %v", v, err)
	}
	return ts
}

func weekdaysOpen(open, close int) []model.WorkingDay {
	days := make([]model.WorkingDay, 0, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		isOpen := wd >= time.Monday && wd <= time.Friday
		days = append(days, model.WorkingDay{Weekday: wd, IsOpen: isOpen, OpenMinute: open, CloseMinute: close})
	}
	return days
}

type fakeFinder struct {
	mu    sync.Mutex
	appts []model.Appointment
	calls int
}

func (f *fakeFinder) FindByStoreAndDateRange(_ context.Context, storeID string, from, to time.Time) ([]model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var out []model.Appointment
	for _, a := range f.appts {
		if a.StoreID == storeID && !a.StartTime.Before(from) && a.StartTime.Before(to) && a.Status != model.StatusCancelled {
			out = append(out, a)
		}
	}
	return out, nil
}

func newEngine(t *testing.T, finder *fakeFinder) *Engine {
	t.Helper()
	ctx := context.Background()
	cat := catalog.NewMemory()
	if err := cat.UpsertStore(ctx, model.Store{ID: "store", OwnerID: "owner", BookingIntervalMinutes: 30, WorkingDays: weekdaysOpen(9*60, 18*60)}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	if err := cat.UpsertStore(ctx, model.Store{ID: "other", OwnerID: "owner2", BookingIntervalMinutes: 30, WorkingDays: weekdaysOpen(9*60, 18*60)}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	_ = cat.UpsertService(ctx, model.Service{ID: "hour", StoreID: "store", DurationMinutes: 60})
	_ = cat.UpsertService(ctx, model.Service{ID: "half", StoreID: "store", DurationMinutes: 30})
	_ = cat.UpsertService(ctx, model.Service{ID: "foreign", StoreID: "other", DurationMinutes: 30})
	clock := func() time.Time { return mustTime(t, "2030-01-01T00:00:00Z") }
	return NewEngine(cat, finder, clock)
}

func TestGenerateCandidates(t *testing.T) {
	day := mustTime(t, monday+"T00:00:00Z")
	slots := GenerateCandidates(weekdaysOpen(9*60, 18*60), 30, 60, day)
	if len(slots) != 17 {
		t.Fatalf("expected 17 slots, got %d", len(slots))
	}
	if got := slots[0].Start.Format("15:04"); got != "09:00" {
		t.Fatalf("first start = %s", got)
	}
	last := slots[len(slots)-1]
	if last.Start.Format("15:04") != "17:00" || last.End.Format("15:04") != "18:00" {
		t.Fatalf("last slot = %s-%s", last.Start.Format("15:04"), last.End.Format("15:04"))
	}
	for _, s := range slots {
		if s.End.Sub(s.Start) != time.Hour || s.Date != monday {
			t.Fatalf("bad slot %+v", s)
		}
	}
}

func TestGenerateCandidatesEdges(t *testing.T) {
	day := mustTime(t, monday+"T00:00:00Z")
	sunday := day.AddDate(0, 0, -1)
	if got := GenerateCandidates(weekdaysOpen(540, 1080), 30, 60, sunday); len(got) != 0 {
		t.Fatalf("closed day should have no slots, got %d", len(got))
	}
	if got := GenerateCandidates(weekdaysOpen(540, 1080), 0, 60, day); got != nil {
		t.Fatalf("zero interval should yield nil")
	}
	if got := GenerateCandidates(weekdaysOpen(540, 570), 30, 60, day); len(got) != 0 {
		t.Fatalf("service longer than opening window should yield nothing, got %d", len(got))
	}
	if got := GenerateCandidates(nil, 30, 60, day); got != nil {
		t.Fatalf("missing day should yield nil")
	}
}

func TestIsOpenAt(t *testing.T) {
	days := weekdaysOpen(9*60, 18*60)
	cases := []struct {
		at   string
		want bool
	}{
		{monday + "T09:00:00Z", true},
		{monday + "T08:59:00Z", false},
		{monday + "T17:59:00Z", true},
		{monday + "T18:00:00Z", false},
		{"2030-01-06T10:00:00Z", false},
	}
	for _, c := range cases {
		if got := IsOpenAt(days, mustTime(t, c.at)); got != c.want {
			t.Fatalf("IsOpenAt(%s) = %v, want %v", c.at, got, c.want)
		}
	}
}

func TestIsOpenAtUsesLocalTime(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 14:30Z is 09:30 in New York in January.
	instant := mustTime(t, monday+"T14:30:00Z").In(loc)
	if !IsOpenAt(weekdaysOpen(9*60, 18*60), instant) {
		t.Fatalf("expected open at 09:30 local")
	}
}

func TestOverlaps(t *testing.T) {
	at := func(hhmm string) time.Time { return mustTime(t, monday+"T"+hhmm+":00Z") }
	existing := []model.Appointment{
		{ID: "a", ServiceID: "hour", StartTime: at("10:00"), EndTime: at("11:00"), Status: model.StatusPending},
		{ID: "b", ServiceID: "hour", StartTime: at("14:00"), EndTime: at("15:00"), Status: model.StatusCancelled},
	}
	durations := LookupFromServices([]model.Service{{ID: "hour", DurationMinutes: 60}})

	if Overlaps(at("11:00"), at("12:00"), existing, durations, "") {
		t.Fatalf("touching end should not overlap")
	}
	if Overlaps(at("09:00"), at("10:00"), existing, durations, "") {
		t.Fatalf("touching start should not overlap")
	}
	if !Overlaps(at("10:30"), at("11:30"), existing, durations, "") {
		t.Fatalf("expected overlap")
	}
	if Overlaps(at("10:30"), at("11:30"), existing, durations, "a") {
		t.Fatalf("excluded appointment should not count")
	}
	if Overlaps(at("14:00"), at("15:00"), existing, durations, "") {
		t.Fatalf("cancelled appointment should not count")
	}
}

func TestOverlapsUsesOwnServiceDuration(t *testing.T) {
	at := func(hhmm string) time.Time { return mustTime(t, monday+"T"+hhmm+":00Z") }
	// Stored end is stale; the service is now 90 minutes long.
	existing := []model.Appointment{{ID: "a", ServiceID: "long", StartTime: at("10:00"), EndTime: at("10:30"), Status: model.StatusConfirmed}}
	durations := LookupFromServices([]model.Service{{ID: "long", DurationMinutes: 90}})
	if !Overlaps(at("11:00"), at("11:30"), existing, durations, "") {
		t.Fatalf("expected overlap using current 90 minute duration")
	}
	if Overlaps(at("11:00"), at("11:30"), existing, nil, "") {
		t.Fatalf("without a lookup the stored end applies")
	}
}

func TestListAvailableSlotsEmptyDay(t *testing.T) {
	e := newEngine(t, &fakeFinder{})
	slots, err := e.ListAvailableSlots(context.Background(), "store", "hour", monday)
	if err != nil {
		t.Fatalf("ListAvailableSlots: %v", err)
	}
	if len(slots) != 17 {
		t.Fatalf("expected 17 slots, got %d", len(slots))
	}
}

func TestListAvailableSlotsRemovesBusy(t *testing.T) {
	finder := &fakeFinder{appts: []model.Appointment{{
		ID: "a", StoreID: "store", ServiceID: "hour",
		StartTime: mustTime(t, monday+"T10:00:00Z"), EndTime: mustTime(t, monday+"T11:00:00Z"),
		Status: model.StatusPending,
	}}}
	e := newEngine(t, finder)
	slots, err := e.ListAvailableSlots(context.Background(), "store", "hour", monday)
	if err != nil {
		t.Fatalf("ListAvailableSlots: %v", err)
	}
	starts := map[string]bool{}
	for _, s := range slots {
		starts[s.Start.Format("15:04")] = true
	}
	for _, gone := range []string{"09:30", "10:00", "10:30"} {
		if starts[gone] {
			t.Fatalf("slot %s should be unavailable", gone)
		}
	}
	for _, kept := range []string{"09:00", "11:00"} {
		if !starts[kept] {
			t.Fatalf("slot %s should be available", kept)
		}
	}
	if len(slots) != 14 {
		t.Fatalf("expected 14 slots, got %d", len(slots))
	}

	again, _ := e.ListAvailableSlots(context.Background(), "store", "hour", monday)
	if len(again) != len(slots) {
		t.Fatalf("repeated query changed result: %d vs %d", len(again), len(slots))
	}
}

func TestListAvailableSlotsClosedDay(t *testing.T) {
	finder := &fakeFinder{}
	e := newEngine(t, finder)
	slots, err := e.ListAvailableSlots(context.Background(), "store", "hour", "2030-01-06")
	if err != nil {
		t.Fatalf("ListAvailableSlots: %v", err)
	}
	if slots == nil || len(slots) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", slots)
	}
	if finder.calls != 0 {
		t.Fatalf("closed day should not query appointments")
	}
}

func TestListAvailableSlotsOmitsPast(t *testing.T) {
	e := newEngine(t, &fakeFinder{})
	e.now = func() time.Time { return mustTime(t, monday+"T12:15:00Z") }
	slots, err := e.ListAvailableSlots(context.Background(), "store", "hour", monday)
	if err != nil {
		t.Fatalf("ListAvailableSlots: %v", err)
	}
	if len(slots) == 0 || slots[0].Start.Format("15:04") != "12:30" {
		t.Fatalf("expected first slot 12:30, got %v", slots)
	}
}

func TestListAvailableSlotsErrors(t *testing.T) {
	e := newEngine(t, &fakeFinder{})
	ctx := context.Background()
	cases := []struct {
		name     string
		store    string
		service  string
		date     string
		wantKind apperr.Kind
	}{
		{"unknown store", "nope", "hour", monday, apperr.KindNotFound},
		{"unknown service", "store", "nope", monday, apperr.KindNotFound},
		{"foreign service", "store", "foreign", monday, apperr.KindBadRequest},
		{"bad date", "store", "hour", "07/01/2030", apperr.KindBadRequest},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := e.ListAvailableSlots(ctx, c.store, c.service, c.date)
			if got := apperr.KindOf(err); got != c.wantKind {
				t.Fatalf("kind = %s, want %s (err=%v)", got, c.wantKind, err)
			}
		})
	}
}

func TestGenerateCandidatesSkipsMissingWallClockTimes(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// Clocks jump from 02:00 to 03:00 on 2030-03-10 in New York.
	date := time.Date(2030, 3, 10, 0, 0, 0, 0, loc)
	days := []model.WorkingDay{{Weekday: time.Sunday, IsOpen: true, OpenMinute: 0, CloseMinute: 5 * 60}}

	slots := GenerateCandidates(days, 60, 60, date)
	var got []string
	seen := map[time.Time]bool{}
	for _, s := range slots {
		if seen[s.Start] {
			t.Fatalf("duplicate start %v", s.Start)
		}
		seen[s.Start] = true
		got = append(got, s.Start.Format("15:04"))
	}
	want := []string{"00:00", "01:00", "03:00", "04:00"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("starts = %v, want %v", got, want)
	}
}
