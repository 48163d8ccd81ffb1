package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minievents/eventmgmt/internal/domain/attendee"
	"github.com/minievents/eventmgmt/internal/domain/event"
	"github.com/minievents/eventmgmt/internal/jobs"
	"github.com/minievents/eventmgmt/internal/observability"
	"github.com/minievents/eventmgmt/internal/validation"
)

type AttendeesRepo struct {
	pool *pgxpool.Pool
	jobs *JobsRepo
	prom *observability.Prom
}

// jobs may be nil; registration then skips the confirmation enqueue.
func NewAttendeesRepo(pool *pgxpool.Pool, jobsRepo *JobsRepo, prom *observability.Prom) *AttendeesRepo {
	return &AttendeesRepo{
		pool: pool,
		jobs: jobsRepo,
		prom: prom,
	}
}

func (r *AttendeesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// Register runs the whole registration invariant chain in one transaction.
// Check order is part of the API contract: event lookup, event-not-started,
// duplicate email, capacity, then insert. The event row is locked for the
// duration so the count check and the insert see a consistent state; the
// unique constraint on (event_id, email) remains the backstop against races.
func (r *AttendeesRepo) Register(ctx context.Context, req attendee.RegisterAttendeeRequest) (att attendee.Attendee, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() { _ = tx.Rollback(ctx) }()

	att, err = r.registerTx(ctx, tx, req)
	if err != nil {
		return
	}

	err = tx.Commit(ctx)
	return
}

func (r *AttendeesRepo) registerTx(ctx context.Context, tx pgx.Tx, req attendee.RegisterAttendeeRequest) (att attendee.Attendee, err error) {
	// 1) lock event row; missing event ends the chain immediately
	var eventName string
	var startTime time.Time
	var capacity int

	err = r.observe("attendees.register.event_lock", func() error {
		return tx.QueryRow(ctx,
			`SELECT name, start_time, max_capacity FROM events WHERE id = $1 FOR UPDATE`,
			req.EventID,
		).Scan(&eventName, &startTime, &capacity)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = event.ErrNotFound
		}
		return
	}

	// 2) stored start_time is naive UTC; compare as aware instants
	if !startTime.UTC().After(time.Now().UTC()) {
		err = validation.Errorf("Cannot register for event '%s' - event has already started", eventName)
		return
	}

	// 3) duplicate check against the normalized email, before capacity, so a
	// duplicate attempt on a full event still reports "duplicate"
	var exists bool

	err = r.observe("attendees.register.duplicate_check", func() error {
		return tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM attendees WHERE event_id = $1 AND email = $2)`,
			req.EventID, req.Email,
		).Scan(&exists)
	})

	if err != nil {
		return
	}

	if exists {
		err = attendee.ErrDuplicateRegistration
		return
	}

	// 4) live count, never a cached counter
	var current int

	err = r.observe("attendees.register.capacity_check", func() error {
		return tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM attendees WHERE event_id = $1`,
			req.EventID,
		).Scan(&current)
	})

	if err != nil {
		return
	}

	if current >= capacity {
		err = attendee.ErrCapacityExceeded
		return
	}

	// 5) insert
	att = attendee.Attendee{
		EventID:      req.EventID,
		Name:         req.Name,
		Email:        req.Email,
		RegisteredAt: time.Now().UTC(),
	}

	err = r.observe("attendees.register.insert", func() error {
		return tx.QueryRow(ctx,
			`INSERT INTO attendees (event_id, name, email, registered_at)
			 VALUES ($1,$2,$3,$4)
			 RETURNING id`,
			att.EventID, att.Name, att.Email, att.RegisteredAt,
		).Scan(&att.ID)
	})

	if err != nil {
		// constraint violation is the authoritative duplicate signal
		if isAttendeeEmailConflict(err) {
			err = attendee.ErrDuplicateRegistration
		}
		att = attendee.Attendee{}
		return
	}

	if r.jobs != nil {
		job, jerr := jobs.NewConfirmation(jobs.ConfirmationPayload{
			AttendeeID:  att.ID,
			EventID:     att.EventID,
			EventName:   eventName,
			Name:        att.Name,
			Email:       att.Email,
			RequestedAt: time.Now().UTC(),
		})
		if jerr != nil {
			err = jerr
			return
		}

		if err = r.jobs.EnqueueTx(ctx, tx, job); err != nil {
			return
		}
	}

	return
}

// ListByEvent returns one page of attendees, newest registration first, with
// the total count for the event. A missing event is a not-found error rather
// than an empty page.
func (r *AttendeesRepo) ListByEvent(ctx context.Context, eventID int64, limit, offset int) (atts []attendee.Attendee, total int, err error) {
	err = r.observe("attendees.list_by_event.event_exists", func() error {
		var dummy int64
		return r.pool.QueryRow(ctx, `SELECT id FROM events WHERE id = $1`, eventID).Scan(&dummy)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = event.ErrNotFound
		}
		return
	}

	err = r.observe("attendees.list_by_event.count", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM attendees WHERE event_id = $1`, eventID,
		).Scan(&total)
	})

	if err != nil {
		return
	}

	var rows pgx.Rows

	err = r.observe("attendees.list_by_event", func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx,
			`SELECT id, event_id, name, email, registered_at
			 FROM attendees
			 WHERE event_id = $1
			 ORDER BY registered_at DESC, id DESC
			 LIMIT $2 OFFSET $3`,
			eventID, limit, offset,
		)
		return qerr
	})

	if err != nil {
		return
	}

	defer rows.Close()

	atts = make([]attendee.Attendee, 0, limit)

	for rows.Next() {
		var a attendee.Attendee

		if scanErr := rows.Scan(&a.ID, &a.EventID, &a.Name, &a.Email, &a.RegisteredAt); scanErr != nil {
			err = scanErr
			return
		}
		atts = append(atts, a)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		if r.prom != nil {
			r.prom.DbErrorsTotal.WithLabelValues("attendees.list_by_event", "rows_err").Inc()
		}
		err = rowsErr
		return
	}

	return
}
