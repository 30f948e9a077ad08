package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Transition performs a guarded status change. It fails with ErrConflict when
// the job is no longer in the expected source status.
func (s *Store) Transition(ctx context.Context, id string, from, to Status) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), timestamp(time.Now()), id, string(from),
	)
	if err != nil {
		return fmt.Errorf("transition %s -> %s: %w", from, to, err)
	}
	return requireOneRow(res, id, from, to)
}

// LeaseNextEligible claims the oldest eligible job. A paid job is always
// eligible and is claimed by moving it to processing. A job parked in a
// worker-owned status is eligible only once its lease stamp predates
// staleBefore, and is claimed by re-stamping updated_at under that same
// staleness guard, so a live lease can never be taken from its holder. A
// lost claim race re-selects; the winner's fresh stamp keeps its row out of
// the next round. Returns nil when nothing is eligible.
func (s *Store) LeaseNextEligible(ctx context.Context, staleBefore time.Time) (*Job, error) {
	ctx = ensureContext(ctx)
	cutoff := timestamp(staleBefore)

	inFlight := make([]any, 0, len(leasableStatuses)-1)
	for _, status := range leasableStatuses {
		if status != StatusPaid {
			inFlight = append(inFlight, string(status))
		}
	}
	args := append([]any{string(StatusPaid)}, inFlight...)
	args = append(args, cutoff)
	query := `SELECT ` + jobColumns + ` FROM jobs
        WHERE status = ? OR (status IN (` + makePlaceholders(len(inFlight)) + `) AND updated_at < ?)
        ORDER BY created_at ASC LIMIT 1`

	for attempt := 0; attempt < 3; attempt++ {
		var job *Job
		err := retryOnBusy(ctx, func() error {
			scanned, scanErr := scanJob(s.db.QueryRowContext(ctx, query, args...))
			if scanErr != nil {
				return scanErr
			}
			job = scanned
			return nil
		})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("select leasable job: %w", err)
		}

		now := timestamp(time.Now())
		var res sql.Result
		if job.Status == StatusPaid {
			res, err = s.execWithRetry(
				ctx,
				`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
				string(StatusProcessing), now, job.ID, string(StatusPaid),
			)
		} else {
			res, err = s.execWithRetry(
				ctx,
				`UPDATE jobs SET updated_at = ? WHERE id = ? AND status = ? AND updated_at < ?`,
				now, job.ID, string(job.Status), cutoff,
			)
		}
		if err != nil {
			return nil, fmt.Errorf("lease job %s: %w", job.ID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("lease rows affected: %w", err)
		}
		if affected == 1 {
			return s.GetJob(ctx, job.ID)
		}
		// Lost the race to another daemon; look again.
	}
	return nil, nil
}

// Heartbeat re-stamps a leased job's updated_at so a long-running stage is
// not reclaimed mid-run. It fails with ErrConflict once the job has left
// every worker-owned status, telling the caller its lease is gone.
func (s *Store) Heartbeat(ctx context.Context, id string) error {
	statuses := []Status{StatusProcessing, StatusPrepping, StatusAIMixing, StatusMastering, StatusRendering}
	args := make([]any, 0, len(statuses)+2)
	args = append(args, timestamp(time.Now()), id)
	for _, status := range statuses {
		args = append(args, string(status))
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET updated_at = ? WHERE id = ? AND status IN (`+makePlaceholders(len(statuses))+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %s is no longer worker-owned: %w", id, ErrConflict)
	}
	return nil
}

// CompletionParams carries the measured outputs of a finished mix.
type CompletionParams struct {
	ResultPath      string
	PresetKey       string
	OffsetMS        int
	MeasuredLUFS    float64
	TruePeak        float64
	FinalArtifactID string
}

// CompleteProcessing commits a finished standard-lane mix: processing -> done.
func (s *Store) CompleteProcessing(ctx context.Context, id string, params CompletionParams) error {
	return s.complete(ctx, id, StatusProcessing, StatusDone, params)
}

// CompleteRendering commits a finished editing-lane master: rendering -> complete.
func (s *Store) CompleteRendering(ctx context.Context, id string, params CompletionParams) error {
	return s.complete(ctx, id, StatusRendering, StatusComplete, params)
}

func (s *Store) complete(ctx context.Context, id string, from, to Status, params CompletionParams) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, result_path = ?, preset_key = ?, offset_ms = ?,
            measured_lufs = ?, true_peak = ?, final_artifact_id = ?,
            error_message = '', updated_at = ?
        WHERE id = ? AND status = ?`,
		string(to),
		params.ResultPath,
		params.PresetKey,
		params.OffsetMS,
		params.MeasuredLUFS,
		params.TruePeak,
		params.FinalArtifactID,
		timestamp(time.Now()),
		id,
		string(from),
	)
	if err != nil {
		return fmt.Errorf("complete %s: %w", from, err)
	}
	return requireOneRow(res, id, from, to)
}

// AttachPrepArtifact commits a prep stage: prepping -> prep_ready with the
// new artifact reference and detected offset.
func (s *Store) AttachPrepArtifact(ctx context.Context, id, artifactID string, offsetMS int) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, prep_artifact_id = ?, offset_ms = ?, updated_at = ?
        WHERE id = ? AND status = ?`,
		string(StatusPrepReady), artifactID, offsetMS, timestamp(time.Now()),
		id, string(StatusPrepping),
	)
	if err != nil {
		return fmt.Errorf("attach prep artifact: %w", err)
	}
	return requireOneRow(res, id, StatusPrepping, StatusPrepReady)
}

// AttachAIOkArtifact commits an ai-mix stage: ai_mixing -> ai_ok.
func (s *Store) AttachAIOkArtifact(ctx context.Context, id, artifactID, presetKey string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, ai_ok_artifact_id = ?, preset_key = ?, updated_at = ?
        WHERE id = ? AND status = ?`,
		string(StatusAIOk), artifactID, presetKey, timestamp(time.Now()),
		id, string(StatusAIMixing),
	)
	if err != nil {
		return fmt.Errorf("attach ai-ok artifact: %w", err)
	}
	return requireOneRow(res, id, StatusAIMixing, StatusAIOk)
}

// ClearArtifactRef detaches a job's artifact reference ahead of regeneration.
// The superseded artifact row itself is kept.
func (s *Store) ClearArtifactRef(ctx context.Context, id string, kind ArtifactKind) error {
	column, err := artifactRefColumn(kind)
	if err != nil {
		return err
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET `+column+` = '', updated_at = ? WHERE id = ?`,
		timestamp(time.Now()), id,
	); err != nil {
		return fmt.Errorf("clear %s artifact ref: %w", kind, err)
	}
	return nil
}

// MarkFailed moves a job to the absorbing failed state with a diagnostic.
func (s *Store) MarkFailed(ctx context.Context, id string, from Status, message string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(StatusFailed), message, timestamp(time.Now()), id, string(from),
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return requireOneRow(res, id, from, StatusFailed)
}

// RecordJobError stores a diagnostic on the job without changing its status.
func (s *Store) RecordJobError(ctx context.Context, id, message string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET error_message = ?, updated_at = ? WHERE id = ?`,
		message, timestamp(time.Now()), id,
	); err != nil {
		return fmt.Errorf("record job error: %w", err)
	}
	return nil
}

// ReclaimStale returns worker-owned jobs whose lease expired before the cutoff
// to their lane's restart status.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	now := timestamp(time.Now())
	args := make([]any, 0, 2*len(inFlightRestart)+2)
	caseSQL := ""
	inSQL := make([]any, 0, len(inFlightRestart))
	for _, status := range []Status{StatusProcessing, StatusPrepping, StatusAIMixing, StatusMastering, StatusRendering} {
		restart := inFlightRestart[status]
		caseSQL += " WHEN ? THEN ?"
		args = append(args, string(status), string(restart))
		inSQL = append(inSQL, string(status))
	}
	args = append(args, now)
	args = append(args, inSQL...)
	args = append(args, timestamp(cutoff))

	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = CASE status`+caseSQL+` ELSE status END,
            updated_at = ?
        WHERE status IN (`+makePlaceholders(len(inSQL))+`) AND updated_at < ?`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed jobs back to paid for reprocessing. With no ids it
// retries every failed job.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	now := timestamp(time.Now())
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE jobs SET status = ?, error_message = '', updated_at = ? WHERE status = ?`,
			string(StatusPaid), now, string(StatusFailed),
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed jobs: %w", err)
		}
		return res.RowsAffected()
	}

	args := make([]any, 0, len(ids)+3)
	args = append(args, string(StatusPaid), now)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, string(StatusFailed))
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = '', updated_at = ?
        WHERE id IN (`+makePlaceholders(len(ids))+`) AND status = ?`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("retry selected jobs: %w", err)
	}
	return res.RowsAffected()
}

func requireOneRow(res sql.Result, id string, from, to Status) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %s not in %s for transition to %s: %w", id, from, to, ErrConflict)
	}
	return nil
}

func artifactRefColumn(kind ArtifactKind) (string, error) {
	switch kind {
	case ArtifactPrep:
		return "prep_artifact_id", nil
	case ArtifactAIOk:
		return "ai_ok_artifact_id", nil
	case ArtifactFinal:
		return "final_artifact_id", nil
	default:
		return "", fmt.Errorf("unknown artifact kind %q", kind)
	}
}
