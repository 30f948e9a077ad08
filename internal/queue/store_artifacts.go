package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const artifactColumns = `id, job_id, kind, storage_path, expires_at, meta, created_at`

// NewArtifactParams describes an artifact to record.
type NewArtifactParams struct {
	JobID       string
	Kind        ArtifactKind
	StoragePath string
	ExpiresAt   time.Time
	MetaJSON    string
}

// CreateArtifact records a freshly produced artifact. The job's reference
// column is updated separately by the transition that makes it visible.
func (s *Store) CreateArtifact(ctx context.Context, params NewArtifactParams) (*Artifact, error) {
	id := uuid.NewString()
	now := time.Now()

	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO artifacts (id, job_id, kind, storage_path, expires_at, meta, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		params.JobID,
		string(params.Kind),
		params.StoragePath,
		timestamp(params.ExpiresAt),
		params.MetaJSON,
		timestamp(now),
	); err != nil {
		return nil, fmt.Errorf("insert artifact: %w", err)
	}

	return s.GetArtifact(ctx, id)
}

// GetArtifact fetches an artifact by id.
func (s *Store) GetArtifact(ctx context.Context, id string) (*Artifact, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+artifactColumns+` FROM artifacts WHERE id = ?`, id)
	artifact, err := scanArtifact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("artifact %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	return artifact, nil
}

// LatestArtifact returns the most recent artifact of a kind for a job, or
// ErrNotFound when none exists.
func (s *Store) LatestArtifact(ctx context.Context, jobID string, kind ArtifactKind) (*Artifact, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+artifactColumns+` FROM artifacts
        WHERE job_id = ? AND kind = ? ORDER BY created_at DESC LIMIT 1`,
		jobID, string(kind))
	artifact, err := scanArtifact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("artifact %s/%s: %w", jobID, kind, ErrNotFound)
		}
		return nil, fmt.Errorf("latest artifact: %w", err)
	}
	return artifact, nil
}

func scanArtifact(scanner rowScanner) (*Artifact, error) {
	var (
		artifact   Artifact
		kind       string
		expiresRaw string
		createdRaw string
	)
	if err := scanner.Scan(
		&artifact.ID,
		&artifact.JobID,
		&kind,
		&artifact.StoragePath,
		&expiresRaw,
		&artifact.MetaJSON,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	artifact.Kind = ArtifactKind(kind)
	artifact.ExpiresAt = parseTimestamp(expiresRaw)
	artifact.CreatedAt = parseTimestamp(createdRaw)
	return &artifact, nil
}
