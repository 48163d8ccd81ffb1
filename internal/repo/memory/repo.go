// Package memory holds an in-process repo with the same invariant semantics
// as the postgres implementation. It backs handler and engine tests and local
// development without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/minievents/eventmgmt/internal/domain/attendee"
	"github.com/minievents/eventmgmt/internal/domain/event"
	"github.com/minievents/eventmgmt/internal/validation"
)

type Repo struct {
	mu         sync.RWMutex
	events     map[int64]event.Event
	attendees  map[int64][]attendee.Attendee // keyed by event id, insertion order
	nextEvent  int64
	nextAtt    int64

	// now is swappable in tests
	now func() time.Time
}

func NewRepo() *Repo {
	return &Repo{
		events:    make(map[int64]event.Event),
		attendees: make(map[int64][]attendee.Attendee),
		nextEvent: 1,
		nextAtt:   1,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the clock used for event-start checks.
func (r *Repo) SetNow(now func() time.Time) {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
}

func (r *Repo) Create(ctx context.Context, req event.CreateEventRequest) (event.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	e := event.Event{
		ID:          r.nextEvent,
		Name:        req.Name,
		Location:    req.Location,
		StartTime:   req.StartTime.UTC(),
		EndTime:     req.EndTime.UTC(),
		MaxCapacity: req.MaxCapacity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.nextEvent++
	r.events[e.ID] = e

	return e, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (event.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.events[id]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}

	e.AttendeeCount = len(r.attendees[id])
	return e, nil
}

func (r *Repo) ListUpcoming(ctx context.Context, now time.Time, limit, offset int) ([]event.Event, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	upcoming := make([]event.Event, 0, len(r.events))
	for _, e := range r.events {
		if e.StartTime.After(now.UTC()) {
			e.AttendeeCount = len(r.attendees[e.ID])
			upcoming = append(upcoming, e)
		}
	}

	sort.Slice(upcoming, func(i, j int) bool {
		if upcoming[i].StartTime.Equal(upcoming[j].StartTime) {
			return upcoming[i].ID < upcoming[j].ID
		}
		return upcoming[i].StartTime.Before(upcoming[j].StartTime)
	})

	total := len(upcoming)

	if offset >= total {
		return []event.Event{}, total, nil
	}

	end := offset + limit
	if end > total {
		end = total
	}

	return upcoming[offset:end], total, nil
}

// Register mirrors the postgres engine: lookup, not-started, duplicate,
// capacity, insert — in that order.
func (r *Repo) Register(ctx context.Context, req attendee.RegisterAttendeeRequest) (attendee.Attendee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[req.EventID]
	if !ok {
		return attendee.Attendee{}, event.ErrNotFound
	}

	if !e.StartTime.UTC().After(r.now()) {
		return attendee.Attendee{}, validation.Errorf("Cannot register for event '%s' - event has already started", e.Name)
	}

	regs := r.attendees[req.EventID]

	for _, a := range regs {
		if a.Email == req.Email {
			return attendee.Attendee{}, attendee.ErrDuplicateRegistration
		}
	}

	if len(regs) >= e.MaxCapacity {
		return attendee.Attendee{}, attendee.ErrCapacityExceeded
	}

	a := attendee.Attendee{
		ID:           r.nextAtt,
		EventID:      req.EventID,
		Name:         req.Name,
		Email:        req.Email,
		RegisteredAt: r.now(),
	}
	r.nextAtt++
	r.attendees[req.EventID] = append(regs, a)

	return a, nil
}

func (r *Repo) ListByEvent(ctx context.Context, eventID int64, limit, offset int) ([]attendee.Attendee, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.events[eventID]; !ok {
		return nil, 0, event.ErrNotFound
	}

	regs := r.attendees[eventID]
	total := len(regs)

	// newest registration first; ids are insertion-ordered so walking the
	// slice backwards gives registered_at DESC, id DESC
	ordered := make([]attendee.Attendee, 0, total)
	for i := total - 1; i >= 0; i-- {
		ordered = append(ordered, regs[i])
	}

	if offset >= total {
		return []attendee.Attendee{}, total, nil
	}

	end := offset + limit
	if end > total {
		end = total
	}

	return ordered[offset:end], total, nil
}
