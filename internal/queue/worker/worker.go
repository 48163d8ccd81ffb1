package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/minievents/eventmgmt/internal/jobs"
	"github.com/minievents/eventmgmt/internal/notifications"
	"github.com/minievents/eventmgmt/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (jobs.Job, error)
	MarkSucceeded(ctx context.Context, id string) error
	Retry(ctx context.Context, id string, lastErr string, runAt time.Time) error
	MarkFailed(ctx context.Context, id string, lastErr string) error
}

type Config struct {
	WorkerID     string
	PollInterval time.Duration
	JobTimeout   time.Duration
}

type Worker struct {
	cfg      Config
	repo     JobsRepository
	notifier notifications.Notifier
	prom     *observability.Prom
	log      *slog.Logger
}

func New(cfg Config, repo JobsRepository, notifier notifications.Notifier, prom *observability.Prom, log *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}

	return &Worker{
		cfg:      cfg,
		repo:     repo,
		notifier: notifier,
		prom:     prom,
		log:      log,
	}
}

// Run polls for runnable jobs until the context is cancelled. Claims drain
// back-to-back; the poll interval only applies while the queue is empty.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker received shutdown signal")
			return nil

		case <-ticker.C:
			for {
				j, err := w.repo.ClaimNext(ctx, w.cfg.WorkerID)

				if err != nil {
					if errors.Is(err, jobs.ErrNotFound) {
						break
					}
					if ctx.Err() != nil {
						return nil
					}
					w.log.Error("claim error", "err", err)
					break
				}

				w.process(ctx, j)
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, j jobs.Job) {
	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
		defer w.prom.JobsInFlight.Dec()
	}

	start := time.Now()

	jctx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	defer cancel()

	err := w.execute(jctx, j)

	result := "done"

	switch {
	case err == nil:
		if mErr := w.repo.MarkSucceeded(ctx, j.ID); mErr != nil {
			w.log.Error("mark succeeded failed", "job_id", j.ID, "err", mErr)
		}

	case errors.Is(err, jobs.ErrInvalidPayload) || errors.Is(err, jobs.ErrInvalidType):
		// malformed jobs never become valid; fail them immediately
		result = "failed"
		if mErr := w.repo.MarkFailed(ctx, j.ID, err.Error()); mErr != nil {
			w.log.Error("mark failed failed", "job_id", j.ID, "err", mErr)
		}

	case j.Attempts >= j.MaxAttempts:
		result = "failed"
		w.log.Warn("job exhausted attempts", "job_id", j.ID, "job_type", j.Type, "attempts", j.Attempts, "err", err)
		if mErr := w.repo.MarkFailed(ctx, j.ID, err.Error()); mErr != nil {
			w.log.Error("mark failed failed", "job_id", j.ID, "err", mErr)
		}

	default:
		result = "retry"
		runAt := time.Now().UTC().Add(ExponentialBackoff(j.Attempts))
		w.log.Warn("job attempt failed, retrying", "job_id", j.ID, "job_type", j.Type, "attempts", j.Attempts, "run_at", runAt, "err", err)
		if mErr := w.repo.Retry(ctx, j.ID, err.Error(), runAt); mErr != nil {
			w.log.Error("retry scheduling failed", "job_id", j.ID, "err", mErr)
		}
	}

	if w.prom != nil {
		w.prom.JobResults.WithLabelValues(j.Type, result).Inc()
		w.prom.JobDuration.WithLabelValues(j.Type, result).Observe(time.Since(start).Seconds())
	}
}

func (w *Worker) execute(ctx context.Context, j jobs.Job) error {
	switch j.Type {
	case jobs.TypeAttendeeConfirmation:
		p, err := jobs.DecodeConfirmation(j)
		if err != nil {
			return err
		}

		return w.notifier.SendConfirmation(ctx, notifications.ConfirmationInput{
			Email:      p.Email,
			Name:       p.Name,
			EventID:    p.EventID,
			EventName:  p.EventName,
			AttendeeID: p.AttendeeID,
		})

	default:
		return jobs.ErrInvalidType
	}
}
