package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/minievents/eventmgmt/internal/domain/attendee"
	"github.com/minievents/eventmgmt/internal/domain/event"
	"github.com/minievents/eventmgmt/internal/validation"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRepo() *Repo {
	r := NewRepo()
	r.SetNow(func() time.Time { return testNow })
	return r
}

func mustCreate(t *testing.T, r *Repo, name string, start time.Time, capacity int) event.Event {
	t.Helper()

	e, err := r.Create(context.Background(), event.CreateEventRequest{
		Name:        name,
		Location:    "Bangalore",
		StartTime:   start,
		EndTime:     start.Add(2 * time.Hour),
		MaxCapacity: capacity,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return e
}

func register(r *Repo, eventID int64, name, email string) (attendee.Attendee, error) {
	req := attendee.RegisterAttendeeRequest{EventID: eventID, Name: name, Email: email}
	if err := req.Validate(); err != nil {
		return attendee.Attendee{}, err
	}
	return r.Register(context.Background(), req)
}

func TestRegisterUnknownEvent(t *testing.T) {
	r := newTestRepo()

	_, err := register(r, 999, "Asha", "asha@example.com")

	if !errors.Is(err, event.ErrNotFound) {
		t.Fatalf("got %v, want event.ErrNotFound", err)
	}
}

// Lookup failure wins even when the payload is also bad in other ways; the
// repo never sees an invalid email, but a missing event must not surface as a
// duplicate or capacity problem.
func TestRegisterNotFoundBeforeOtherChecks(t *testing.T) {
	r := newTestRepo()

	// a real, full, started event exists but the request targets another id
	e := mustCreate(t, r, "Other", testNow.Add(time.Hour), 1)
	if _, err := register(r, e.ID, "A", "a@example.com"); err != nil {
		t.Fatalf("seed registration: %v", err)
	}

	_, err := register(r, e.ID+1, "B", "a@example.com")

	if !errors.Is(err, event.ErrNotFound) {
		t.Fatalf("got %v, want event.ErrNotFound", err)
	}
}

func TestRegisterStartedEvent(t *testing.T) {
	r := newTestRepo()

	tests := []struct {
		name  string
		start time.Time
	}{
		{name: "already_started", start: testNow.Add(-time.Hour)},
		{name: "starts_exactly_now", start: testNow},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			e := mustCreate(t, r, "PyCon", tt.start, 10)

			_, err := register(r, e.ID, "Asha", "asha@example.com")

			var verr *validation.Error
			if !errors.As(err, &verr) {
				t.Fatalf("got %T (%v), want validation error", err, err)
			}

			want := "Cannot register for event 'PyCon' - event has already started"
			if verr.Error() != want {
				t.Fatalf("got message %q, want %q", verr.Error(), want)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r := newTestRepo()
	e := mustCreate(t, r, "GopherCon", testNow.Add(time.Hour), 10)

	if _, err := register(r, e.ID, "Asha", "asha@example.com"); err != nil {
		t.Fatalf("first registration: %v", err)
	}

	// same email, different name and casing/whitespace
	_, err := register(r, e.ID, "Someone Else", "  ASHA@Example.com ")

	if !errors.Is(err, attendee.ErrDuplicateRegistration) {
		t.Fatalf("got %v, want ErrDuplicateRegistration", err)
	}
}

func TestRegisterSameEmailDifferentEvents(t *testing.T) {
	r := newTestRepo()
	e1 := mustCreate(t, r, "Event A", testNow.Add(time.Hour), 10)
	e2 := mustCreate(t, r, "Event B", testNow.Add(time.Hour), 10)

	if _, err := register(r, e1.ID, "Asha", "asha@example.com"); err != nil {
		t.Fatalf("event A registration: %v", err)
	}
	if _, err := register(r, e2.ID, "Asha", "asha@example.com"); err != nil {
		t.Fatalf("event B registration should succeed: %v", err)
	}
}

func TestRegisterCapacity(t *testing.T) {
	r := newTestRepo()
	const capacity = 3

	e := mustCreate(t, r, "Tiny Meetup", testNow.Add(time.Hour), capacity)

	// the N-th registration fills the event, the (N+1)-th is rejected
	for i := 0; i < capacity; i++ {
		if _, err := register(r, e.ID, "Guest", fmt.Sprintf("guest%d@example.com", i)); err != nil {
			t.Fatalf("registration %d: %v", i+1, err)
		}
	}

	_, err := register(r, e.ID, "Late", "late@example.com")

	if !errors.Is(err, attendee.ErrCapacityExceeded) {
		t.Fatalf("got %v, want ErrCapacityExceeded", err)
	}

	got, err := r.GetByID(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if got.AttendeeCount != capacity {
		t.Fatalf("attendee count = %d, want %d", got.AttendeeCount, capacity)
	}
	if !got.IsFull() {
		t.Fatal("event should report full")
	}
}

// A duplicate attempt against a full event must surface as a duplicate, not
// as capacity: the duplicate check runs first.
func TestRegisterDuplicateBeforeCapacity(t *testing.T) {
	r := newTestRepo()
	e := mustCreate(t, r, "Full House", testNow.Add(time.Hour), 1)

	if _, err := register(r, e.ID, "Asha", "asha@example.com"); err != nil {
		t.Fatalf("seed registration: %v", err)
	}

	_, err := register(r, e.ID, "Asha", "asha@example.com")

	if !errors.Is(err, attendee.ErrDuplicateRegistration) {
		t.Fatalf("got %v, want ErrDuplicateRegistration (not capacity)", err)
	}
}

func TestListUpcomingFiltersAndOrders(t *testing.T) {
	r := newTestRepo()

	past := mustCreate(t, r, "Past", testNow.Add(time.Hour), 10)
	later := mustCreate(t, r, "Later", testNow.Add(48*time.Hour), 10)
	sooner := mustCreate(t, r, "Sooner", testNow.Add(2*time.Hour), 10)

	// listing "now" is after the first event's start
	listNow := past.StartTime.Add(time.Minute)

	events, total, err := r.ListUpcoming(context.Background(), listNow, 100, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].ID != sooner.ID || events[1].ID != later.ID {
		t.Fatalf("wrong order: got [%d %d], want [%d %d]", events[0].ID, events[1].ID, sooner.ID, later.ID)
	}
}

func TestListUpcomingPagination(t *testing.T) {
	r := newTestRepo()

	for i := 0; i < 5; i++ {
		mustCreate(t, r, fmt.Sprintf("Event %d", i), testNow.Add(time.Duration(i+1)*time.Hour), 10)
	}

	page1, total, err := r.ListUpcoming(context.Background(), testNow, 3, 0)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if total != 5 || len(page1) != 3 {
		t.Fatalf("page 1: total=%d len=%d, want 5/3", total, len(page1))
	}

	page2, total, err := r.ListUpcoming(context.Background(), testNow, 3, 3)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if total != 5 || len(page2) != 2 {
		t.Fatalf("page 2: total=%d len=%d, want 5/2", total, len(page2))
	}

	// offset past the end: empty page, true total preserved
	page3, total, err := r.ListUpcoming(context.Background(), testNow, 3, 10)
	if err != nil {
		t.Fatalf("page 3: %v", err)
	}
	if total != 5 || len(page3) != 0 {
		t.Fatalf("page 3: total=%d len=%d, want 5/0", total, len(page3))
	}
}

func TestListByEvent(t *testing.T) {
	r := newTestRepo()
	e := mustCreate(t, r, "GopherCon", testNow.Add(time.Hour), 10)

	for i := 0; i < 5; i++ {
		if _, err := register(r, e.ID, "Guest", fmt.Sprintf("guest%d@example.com", i)); err != nil {
			t.Fatalf("registration %d: %v", i, err)
		}
	}

	atts, total, err := r.ListByEvent(context.Background(), e.ID, 3, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 || len(atts) != 3 {
		t.Fatalf("total=%d len=%d, want 5/3", total, len(atts))
	}

	// newest first
	if atts[0].Email != "guest4@example.com" {
		t.Fatalf("first item = %s, want guest4@example.com", atts[0].Email)
	}

	atts2, total, err := r.ListByEvent(context.Background(), e.ID, 3, 3)
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if total != 5 || len(atts2) != 2 {
		t.Fatalf("page 2: total=%d len=%d, want 5/2", total, len(atts2))
	}
}

func TestListByEventUnknownEvent(t *testing.T) {
	r := newTestRepo()

	_, _, err := r.ListByEvent(context.Background(), 42, 10, 0)

	if !errors.Is(err, event.ErrNotFound) {
		t.Fatalf("got %v, want event.ErrNotFound", err)
	}
}

func TestGetByIDCountIsLive(t *testing.T) {
	r := newTestRepo()
	e := mustCreate(t, r, "GopherCon", testNow.Add(time.Hour), 10)

	got, err := r.GetByID(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AttendeeCount != 0 || got.AvailableSpots() != 10 {
		t.Fatalf("fresh event: count=%d spots=%d", got.AttendeeCount, got.AvailableSpots())
	}

	if _, err := register(r, e.ID, "Asha", "asha@example.com"); err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err = r.GetByID(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AttendeeCount != 1 || got.AvailableSpots() != 9 {
		t.Fatalf("after one registration: count=%d spots=%d", got.AttendeeCount, got.AvailableSpots())
	}
}
