package handlers

import (
	"time"

	"github.com/minievents/eventmgmt/internal/domain/attendee"
	"github.com/minievents/eventmgmt/internal/domain/event"
	"github.com/minievents/eventmgmt/internal/pagination"
	"github.com/minievents/eventmgmt/internal/timezone"
)

// EventResponse is the wire shape for a single event. start/end times are
// projected into the caller's zone; created/updated stay UTC. The derived
// fields are computed here from the live attendee count, never stored.
type EventResponse struct {
	ID                   int64     `json:"id"`
	Name                 string    `json:"name"`
	Location             string    `json:"location"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	MaxCapacity          int       `json:"max_capacity"`
	CurrentAttendeeCount int       `json:"current_attendee_count"`
	AvailableSpots       int       `json:"available_spots"`
	IsFull               bool      `json:"is_full"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func NewEventResponse(e event.Event, loc *time.Location) EventResponse {
	return EventResponse{
		ID:                   e.ID,
		Name:                 e.Name,
		Location:             e.Location,
		StartTime:            timezone.Project(e.StartTime, loc),
		EndTime:              timezone.Project(e.EndTime, loc),
		MaxCapacity:          e.MaxCapacity,
		CurrentAttendeeCount: e.AttendeeCount,
		AvailableSpots:       e.AvailableSpots(),
		IsFull:               e.IsFull(),
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

type EventListResponse struct {
	Items      []EventResponse `json:"items"`
	TotalCount int             `json:"total_count"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
	HasMore    bool            `json:"has_more"`
}

func NewEventListResponse(events []event.Event, total int, page pagination.Params, loc *time.Location) EventListResponse {
	items := make([]EventResponse, 0, len(events))
	for _, e := range events {
		items = append(items, NewEventResponse(e, loc))
	}

	return EventListResponse{
		Items:      items,
		TotalCount: total,
		Limit:      page.Limit,
		Offset:     page.Offset,
		HasMore:    pagination.HasMore(total, page.Offset, len(events)),
	}
}

type AttendeeResponse struct {
	ID           int64     `json:"id"`
	EventID      int64     `json:"event_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}

func NewAttendeeResponse(a attendee.Attendee) AttendeeResponse {
	return AttendeeResponse{
		ID:           a.ID,
		EventID:      a.EventID,
		Name:         a.Name,
		Email:        a.Email,
		RegisteredAt: a.RegisteredAt,
	}
}

type AttendeeListResponse struct {
	Attendees  []AttendeeResponse `json:"attendees"`
	TotalCount int                `json:"total_count"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
	HasMore    bool               `json:"has_more"`
}

func NewAttendeeListResponse(atts []attendee.Attendee, total int, page pagination.Params) AttendeeListResponse {
	items := make([]AttendeeResponse, 0, len(atts))
	for _, a := range atts {
		items = append(items, NewAttendeeResponse(a))
	}

	return AttendeeListResponse{
		Attendees:  items,
		TotalCount: total,
		Limit:      page.Limit,
		Offset:     page.Offset,
		HasMore:    pagination.HasMore(total, page.Offset, len(atts)),
	}
}
