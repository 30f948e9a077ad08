package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const jobColumns = `id, owner_id, plan_code, status, instrumental_path, vocal_path,
    result_path, preset_key, inst_policy, micro_adjust, offset_ms, tempo_ratio,
    target_lufs, measured_lufs, true_peak, prep_artifact_id, ai_ok_artifact_id,
    final_artifact_id, error_message, created_at, updated_at`

// NewJobParams describes a job to enqueue.
type NewJobParams struct {
	OwnerID          string
	PlanCode         string
	InstrumentalPath string
	VocalPath        string
	PresetKey        string
	InstPolicy       InstPolicy
	MicroAdjustJSON  string
	TempoRatio       float64
	TargetLUFS       float64
}

// CreateJob inserts a new job in the uploaded state and returns it.
func (s *Store) CreateJob(ctx context.Context, params NewJobParams) (*Job, error) {
	now := timestamp(time.Now())
	id := uuid.NewString()

	policy := ParseInstPolicy(string(params.InstPolicy))
	tempo := params.TempoRatio
	if tempo <= 0 {
		tempo = 1.0
	}
	target := params.TargetLUFS
	if target >= 0 {
		target = -14.0
	}

	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO jobs (
            id, owner_id, plan_code, status, instrumental_path, vocal_path,
            preset_key, inst_policy, micro_adjust, tempo_ratio, target_lufs,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		params.OwnerID,
		params.PlanCode,
		StatusUploaded,
		params.InstrumentalPath,
		params.VocalPath,
		params.PresetKey,
		string(policy),
		params.MicroAdjustJSON,
		tempo,
		target,
		now,
		now,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetJob(ctx, id)
}

// GetJob fetches a job by id.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns jobs filtered by status, oldest first. With no statuses it
// returns every job.
func (s *Store) ListJobs(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Health summarizes job counts by lifecycle phase.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("queue health: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var raw string
		var count int
		if err := rows.Scan(&raw, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan health row: %w", err)
		}
		summary.Total += count
		status := Status(raw)
		switch {
		case status == StatusFailed:
			summary.Failed += count
		case status.IsTerminal():
			summary.Finished += count
		case status.InFlight():
			summary.InFlight += count
		default:
			summary.Waiting += count
		}
	}
	return summary, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(scanner rowScanner) (*Job, error) {
	var (
		job        Job
		status     string
		policy     string
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&job.ID,
		&job.OwnerID,
		&job.PlanCode,
		&status,
		&job.InstrumentalPath,
		&job.VocalPath,
		&job.ResultPath,
		&job.PresetKey,
		&policy,
		&job.MicroAdjustJSON,
		&job.OffsetMS,
		&job.TempoRatio,
		&job.TargetLUFS,
		&job.MeasuredLUFS,
		&job.TruePeak,
		&job.PrepArtifactID,
		&job.AIOkArtifactID,
		&job.FinalArtifactID,
		&job.ErrorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	job.Status = Status(status)
	job.InstPolicy = ParseInstPolicy(policy)
	job.CreatedAt = parseTimestamp(createdRaw)
	job.UpdatedAt = parseTimestamp(updatedRaw)
	return &job, nil
}
