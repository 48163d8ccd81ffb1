package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minievents/eventmgmt/internal/jobs"
	"github.com/minievents/eventmgmt/internal/observability"
)

type JobsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewJobsRepo(pool *pgxpool.Pool, prom *observability.Prom) *JobsRepo {
	return &JobsRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *JobsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// EnqueueTx inserts a pending job inside the caller's transaction so the job
// commits or rolls back together with the work that produced it.
func (r *JobsRepo) EnqueueTx(ctx context.Context, tx pgx.Tx, j jobs.Job) error {
	return r.observe("jobs.enqueue_tx", func() error {
		_, err := tx.Exec(ctx,
			`INSERT INTO jobs (id, type, payload, status, attempts, max_attempts, run_at, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			j.ID, j.Type, j.Payload, j.Status, j.Attempts, j.MaxAttempts, j.RunAt, j.CreatedAt, j.UpdatedAt,
		)
		return err
	})
}

// ClaimNext atomically claims the oldest runnable pending job for workerID.
// SKIP LOCKED lets concurrent workers claim without blocking each other.
func (r *JobsRepo) ClaimNext(ctx context.Context, workerID string) (jobs.Job, error) {
	var j jobs.Job

	err := r.observe("jobs.claim_next", func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE jobs
			 SET status = 'processing',
				 attempts = attempts + 1,
				 locked_by = $1,
				 updated_at = NOW()
			 WHERE id = (
				 SELECT id FROM jobs
				 WHERE status = 'pending' AND run_at <= NOW()
				 ORDER BY run_at ASC, created_at ASC
				 LIMIT 1
				 FOR UPDATE SKIP LOCKED
			 )
			 RETURNING id, type, payload, status, attempts, max_attempts, run_at, last_error, created_at, updated_at`,
			workerID,
		).Scan(&j.ID, &j.Type, &j.Payload, &j.Status, &j.Attempts, &j.MaxAttempts, &j.RunAt, &j.LastError, &j.CreatedAt, &j.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return jobs.Job{}, jobs.ErrNotFound
		}
		return jobs.Job{}, err
	}

	return j, nil
}

func (r *JobsRepo) MarkSucceeded(ctx context.Context, id string) error {
	return r.observe("jobs.mark_succeeded", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE jobs SET status = 'succeeded', locked_by = NULL, updated_at = NOW() WHERE id = $1`, id,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return jobs.ErrNotFound
		}
		return nil
	})
}

// Retry returns a failed attempt to pending with a delayed run_at.
func (r *JobsRepo) Retry(ctx context.Context, id string, lastErr string, runAt time.Time) error {
	return r.observe("jobs.retry", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE jobs
			 SET status = 'pending', locked_by = NULL, last_error = $2, run_at = $3, updated_at = NOW()
			 WHERE id = $1`,
			id, lastErr, runAt.UTC(),
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return jobs.ErrNotFound
		}
		return nil
	})
}

// MarkFailed parks a job permanently once its attempts are exhausted.
func (r *JobsRepo) MarkFailed(ctx context.Context, id string, lastErr string) error {
	return r.observe("jobs.mark_failed", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE jobs
			 SET status = 'failed', locked_by = NULL, last_error = $2, updated_at = NOW()
			 WHERE id = $1`,
			id, lastErr,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return jobs.ErrNotFound
		}
		return nil
	})
}
