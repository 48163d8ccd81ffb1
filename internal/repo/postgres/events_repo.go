package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minievents/eventmgmt/internal/domain/event"
	"github.com/minievents/eventmgmt/internal/observability"
)

type EventsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewEventsRepo(pool *pgxpool.Pool, prom *observability.Prom) *EventsRepo {
	return &EventsRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *EventsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// Create persists a validated event. Timestamps are stored as naive UTC wall
// clocks: the zone tag is stripped here so the columns stay canonically UTC.
func (r *EventsRepo) Create(ctx context.Context, req event.CreateEventRequest) (event.Event, error) {
	now := time.Now().UTC()

	e := event.Event{
		Name:        req.Name,
		Location:    req.Location,
		StartTime:   req.StartTime.UTC(),
		EndTime:     req.EndTime.UTC(),
		MaxCapacity: req.MaxCapacity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := r.observe("events.create", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO events (name, location, start_time, end_time, max_capacity, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)
			 RETURNING id`,
			e.Name, e.Location, e.StartTime, e.EndTime, e.MaxCapacity, e.CreatedAt, e.UpdatedAt,
		).Scan(&e.ID)
	})

	if err != nil {
		return event.Event{}, err
	}

	return e, nil
}

// GetByID loads one event together with its live attendee count. The count is
// computed from the attendees table on every read, never cached.
func (r *EventsRepo) GetByID(ctx context.Context, id int64) (event.Event, error) {
	var e event.Event

	err := r.observe("events.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT e.id, e.name, e.location, e.start_time, e.end_time, e.max_capacity,
				(SELECT COUNT(*) FROM attendees a WHERE a.event_id = e.id) AS attendee_count,
				e.created_at, e.updated_at
			 FROM events e
			 WHERE e.id = $1`,
			id,
		).Scan(&e.ID, &e.Name, &e.Location, &e.StartTime, &e.EndTime, &e.MaxCapacity, &e.AttendeeCount, &e.CreatedAt, &e.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	return e, nil
}

// ListUpcoming returns events starting after now, ordered by start time, with
// the total matching count for offset pagination.
func (r *EventsRepo) ListUpcoming(ctx context.Context, now time.Time, limit, offset int) ([]event.Event, int, error) {
	var rows pgx.Rows

	err := r.observe("events.list_upcoming", func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx,
			`SELECT e.id, e.name, e.location, e.start_time, e.end_time, e.max_capacity,
				(SELECT COUNT(*) FROM attendees a WHERE a.event_id = e.id) AS attendee_count,
				e.created_at, e.updated_at,
				COUNT(*) OVER() AS total
			 FROM events e
			 WHERE e.start_time > $1
			 ORDER BY e.start_time ASC, e.id ASC
			 LIMIT $2 OFFSET $3`,
			now.UTC(), limit, offset,
		)
		return qerr
	})

	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()

	out := make([]event.Event, 0, limit)
	total := 0

	for rows.Next() {
		var e event.Event
		var t int

		err = rows.Scan(&e.ID, &e.Name, &e.Location, &e.StartTime, &e.EndTime, &e.MaxCapacity, &e.AttendeeCount, &e.CreatedAt, &e.UpdatedAt, &t)
		if err != nil {
			return nil, 0, err
		}

		total = t
		out = append(out, e)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, err
	}

	// COUNT(*) OVER() yields no rows past the last page; recount so has_more
	// stays correct for large offsets.
	if len(out) == 0 {
		err = r.observe("events.list_upcoming.count", func() error {
			return r.pool.QueryRow(ctx,
				`SELECT COUNT(*) FROM events WHERE start_time > $1`, now.UTC(),
			).Scan(&total)
		})
		if err != nil {
			return nil, 0, err
		}
	}

	return out, total, nil
}
