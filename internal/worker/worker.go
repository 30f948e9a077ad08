// Package worker drives the mixing pipeline. A single sequential poller
// reclaims expired leases, takes the oldest eligible job, and runs the stage
// handler for whatever lane the job sits in. Job failures are recorded on
// the job; only infrastructure errors count against the poller itself.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mixdown/internal/config"
	"mixdown/internal/logging"
	"mixdown/internal/notifications"
	"mixdown/internal/queue"
	"mixdown/internal/services"
)

// Worker is the sequential job poller.
type Worker struct {
	cfg    *config.Config
	deps   Deps
	logger *slog.Logger

	consecutiveErrors int
}

// New builds a worker over the given dependency set.
func New(cfg *config.Config, deps Deps) *Worker {
	if deps.Notifier == nil {
		deps.Notifier = notifications.Noop()
	}
	return &Worker{
		cfg:    cfg,
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, "worker"),
	}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "worker started",
		logging.Duration("poll_interval", w.cfg.PollInterval()),
		logging.Int("max_retries", w.cfg.Worker.MaxRetries))

	for {
		if err := ctx.Err(); err != nil {
			w.logger.InfoContext(ctx, "worker stopping")
			return err
		}

		busy, err := w.ProcessNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.consecutiveErrors++
			w.logger.ErrorContext(ctx, "poll cycle failed",
				logging.Int("consecutive_errors", w.consecutiveErrors),
				logging.Error(err))
			if w.consecutiveErrors >= w.cfg.Worker.MaxConsecutiveErrors {
				w.logger.WarnContext(ctx, "too many consecutive errors, cooling down",
					logging.Duration("cooldown", w.cfg.ErrorCooldown()),
					logging.Alert("worker-cooldown"))
				if notifyErr := w.deps.Notifier.NotifyWorkerPaused(ctx, w.consecutiveErrors); notifyErr != nil {
					w.logger.WarnContext(ctx, "cooldown notification failed", logging.Error(notifyErr))
				}
				sleepCtx(ctx, w.cfg.ErrorCooldown())
				w.consecutiveErrors = 0
				continue
			}
			sleepCtx(ctx, w.cfg.PollInterval())
			continue
		}

		w.consecutiveErrors = 0
		if busy {
			sleepCtx(ctx, w.cfg.DrainInterval())
		} else {
			sleepCtx(ctx, w.cfg.PollInterval())
		}
	}
}

// ProcessNext runs one poll cycle: reclaim expired leases, sweep orphaned
// idempotency claims, lease at most one job, and handle it to a terminal or
// parked state. The bool reports whether a job was handled.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	reclaimed, err := w.deps.Store.ReclaimStale(ctx, time.Now().Add(-w.cfg.ReclaimAfter()))
	if err != nil {
		return false, fmt.Errorf("reclaim stale leases: %w", err)
	}
	if reclaimed > 0 {
		w.logger.InfoContext(ctx, "reclaimed expired leases", logging.Int64("jobs", reclaimed))
	}

	if w.deps.Idempotency != nil {
		if _, err := w.deps.Idempotency.Sweep(ctx, w.cfg.LeaseTimeout()); err != nil {
			w.logger.WarnContext(ctx, "idempotency sweep failed", logging.Error(err))
		}
	}

	job, err := w.deps.Store.LeaseNextEligible(ctx, time.Now().Add(-w.cfg.LeaseTimeout()))
	if err != nil {
		return false, fmt.Errorf("lease next job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	w.handleJob(ctx, job)
	return true, nil
}

func (w *Worker) handleJob(ctx context.Context, job *queue.Job) {
	ctx = services.WithJobID(ctx, job.ID)

	w.logger.InfoContext(ctx, "job leased",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("status", string(job.Status)),
		logging.String("plan", job.PlanCode))

	switch job.Status {
	case queue.StatusProcessing:
		w.runWithRetries(ctx, job, "mix", w.stageStandardMix)
	case queue.StatusPrepping:
		w.runWithRetries(ctx, job, "prep", w.stagePrep)
	case queue.StatusAIMixing:
		w.runWithRetries(ctx, job, "ai-mix", w.stageAIMix)
	case queue.StatusMastering:
		w.runWithRetries(ctx, job, "master", w.stageMaster)
	default:
		// Leasing should never hand out other statuses; park it back by
		// doing nothing and let reclaim sort it out.
		w.logger.ErrorContext(ctx, "leased job in unexpected status",
			logging.String(logging.FieldJobID, job.ID),
			logging.String("status", string(job.Status)),
			logging.Alert("unexpected-lease"))
	}
}

// stageFunc runs one pipeline stage to completion for a leased job.
type stageFunc func(ctx context.Context, job *queue.Job) error

// runWithRetries executes a stage under the job wall clock, retrying
// temporary failures with a linearly growing delay. Permanent failures and
// exhausted retries both land the job in failed.
func (w *Worker) runWithRetries(ctx context.Context, job *queue.Job, stageName string, stage stageFunc) {
	maxAttempts := w.cfg.Worker.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		stageCtx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout())
		stageCtx = services.WithStage(stageCtx, stageName)
		stopBeat := w.startHeartbeat(stageCtx, job.ID)
		err := stage(stageCtx, job)
		stopBeat()
		cancel()
		if err == nil {
			w.logger.InfoContext(ctx, "stage finished",
				logging.String(logging.FieldJobID, job.ID),
				logging.String(logging.FieldStage, stageName),
				logging.Int("attempt", attempt))
			return
		}
		lastErr = err

		if classify(err) == failPermanent {
			w.logger.ErrorContext(ctx, "stage failed permanently",
				logging.String(logging.FieldJobID, job.ID),
				logging.String(logging.FieldStage, stageName),
				logging.Error(err))
			w.failJob(ctx, job.ID, err.Error())
			return
		}

		w.logger.WarnContext(ctx, "stage attempt failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldStage, stageName),
			logging.Int("attempt", attempt),
			logging.Error(err))
		if attempt < maxAttempts {
			sleepCtx(ctx, time.Duration(attempt)*w.cfg.RetryDelay())
			if ctx.Err() != nil {
				return
			}
		}
	}

	w.failJob(ctx, job.ID, fmt.Sprintf("retries exhausted after %d attempts: %v", maxAttempts, lastErr))
}

// failJob moves a job into the absorbing failed state from whatever
// non-terminal status it currently holds.
func (w *Worker) failJob(ctx context.Context, jobID, message string) {
	job, err := w.deps.Store.GetJob(ctx, jobID)
	if err != nil {
		w.logger.ErrorContext(ctx, "cannot load job to fail it",
			logging.String(logging.FieldJobID, jobID), logging.Error(err))
		return
	}
	if job.Status.IsTerminal() {
		return
	}
	if err := w.deps.Store.MarkFailed(ctx, jobID, job.Status, message); err != nil {
		w.logger.ErrorContext(ctx, "cannot mark job failed",
			logging.String(logging.FieldJobID, jobID), logging.Error(err))
		return
	}
	w.logger.ErrorContext(ctx, "job failed",
		logging.String(logging.FieldJobID, jobID),
		logging.String("reason", message),
		logging.Alert("job-failed"))
	if err := w.deps.Notifier.NotifyJobFailed(ctx, jobID, message); err != nil {
		w.logger.WarnContext(ctx, "failure notification failed",
			logging.String(logging.FieldJobID, jobID), logging.Error(err))
	}
}

// startHeartbeat re-stamps the job's lease on an interval while a stage
// runs, so stages outliving the lease timeout are not reclaimed out from
// under the worker. The returned stop function blocks until the heartbeat
// goroutine has exited. A heartbeat failure stops the loop: the lease is
// already lost and the stage's guarded transitions will surface the conflict.
func (w *Worker) startHeartbeat(ctx context.Context, jobID string) func() {
	interval := w.cfg.LeaseTimeout() / 2
	if interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if err := w.deps.Store.Heartbeat(ctx, jobID); err != nil {
					w.logger.WarnContext(ctx, "lease heartbeat failed",
						logging.String(logging.FieldJobID, jobID), logging.Error(err))
					return
				}
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
