package event

import (
	"errors"
	"strings"
	"time"

	"github.com/minievents/eventmgmt/internal/validation"
)

// MaxDuration bounds how long a single event may run.
const MaxDuration = 7 * 24 * time.Hour

const (
	MinCapacity = 1
	MaxCapacity = 10000
)

type Event struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	MaxCapacity int       `json:"max_capacity"`
	// AttendeeCount is always recomputed from the attendees table, never stored.
	AttendeeCount int       `json:"current_attendee_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (e Event) AvailableSpots() int {
	spots := e.MaxCapacity - e.AttendeeCount
	if spots < 0 {
		return 0
	}
	return spots
}

func (e Event) IsFull() bool {
	return e.AttendeeCount >= e.MaxCapacity
}

var ErrNotFound = errors.New("event not found")

type CreateEventRequest struct {
	Name        string    `json:"name" binding:"required,max=255"`
	Location    string    `json:"location" binding:"required,max=255"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
	MaxCapacity int       `json:"max_capacity" binding:"required"`
}

// Validate enforces the business rules on a bound request and trims
// name/location in place. Times are compared as UTC instants.
func (r *CreateEventRequest) Validate(now time.Time) error {
	r.Name = strings.TrimSpace(r.Name)
	r.Location = strings.TrimSpace(r.Location)

	if r.Name == "" {
		return validation.New("Event name cannot be empty")
	}

	if r.Location == "" {
		return validation.New("Event location cannot be empty")
	}

	if r.MaxCapacity < MinCapacity {
		return validation.New("Event capacity must be at least 1")
	}

	if r.MaxCapacity > MaxCapacity {
		return validation.New("Event capacity cannot exceed 10,000")
	}

	start := r.StartTime.UTC()
	end := r.EndTime.UTC()

	if !start.After(now.UTC()) {
		return validation.New("Event start time must be in the future")
	}

	if !end.After(start) {
		return validation.New("End time must be after start time")
	}

	if end.Sub(start) > MaxDuration {
		return validation.New("Duration cannot exceed 7 days")
	}

	return nil
}
