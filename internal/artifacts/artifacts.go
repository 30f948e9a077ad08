// Package artifacts manages the lifetime of intermediate mix outputs. Prep
// and AI-mix artifacts expire; the manager answers "is it still usable?" and
// kicks off regeneration when it is not, so request handlers never block on
// the pipeline.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mixdown/internal/config"
	"mixdown/internal/logging"
	"mixdown/internal/queue"
	"mixdown/internal/services"
)

// Ensure is the answer to an artifact availability check.
type Ensure struct {
	// Ready means Artifact is valid and can be served directly.
	Ready    bool
	Artifact *queue.Artifact
	// RetryAfter is set when regeneration was started or is in flight.
	RetryAfter time.Duration
}

// Manager owns artifact TTL policy.
type Manager struct {
	store      *queue.Store
	prepTTL    time.Duration
	aiOkTTL    time.Duration
	retryAfter time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewManager wires artifact policy from daemon configuration.
func NewManager(store *queue.Store, cfg *config.Config, logger *slog.Logger) *Manager {
	return &Manager{
		store:      store,
		prepTTL:    time.Duration(cfg.Artifacts.PrepTTL) * time.Second,
		aiOkTTL:    time.Duration(cfg.Artifacts.AIOkTTL) * time.Second,
		retryAfter: time.Duration(cfg.Artifacts.RetryAfter) * time.Second,
		now:        time.Now,
		logger:     logging.NewComponentLogger(logger, "artifacts"),
	}
}

// EnsurePrep returns the job's prep artifact when it is still valid, or
// parks the job in the prepping lane and tells the caller when to retry.
func (m *Manager) EnsurePrep(ctx context.Context, jobID string) (Ensure, error) {
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return Ensure{}, err
	}

	if artifact := m.validArtifact(ctx, job.PrepArtifactID); artifact != nil {
		return Ensure{Ready: true, Artifact: artifact}, nil
	}
	if job.Status == queue.StatusPrepping {
		return Ensure{RetryAfter: m.retryAfter}, nil
	}

	if err := m.regenerate(ctx, job, queue.ArtifactPrep, queue.StatusPrepping); err != nil {
		return Ensure{}, err
	}
	m.logger.InfoContext(ctx, "prep regeneration started",
		logging.String(logging.FieldJobID, job.ID))
	return Ensure{RetryAfter: m.retryAfter}, nil
}

// EnsureAIOk returns the job's AI-mix artifact when valid. Requesting an AI
// mix without a usable prep artifact is a caller error: the prep stage feeds
// the AI mix, so it must be regenerated first.
func (m *Manager) EnsureAIOk(ctx context.Context, jobID string) (Ensure, error) {
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return Ensure{}, err
	}

	if m.validArtifact(ctx, job.PrepArtifactID) == nil {
		return Ensure{}, services.Wrap(services.ErrValidation, "artifacts", "ensure-ai",
			fmt.Sprintf("job %s has no usable prep artifact; request prep before an AI mix", job.ID), nil)
	}

	if artifact := m.validArtifact(ctx, job.AIOkArtifactID); artifact != nil {
		return Ensure{Ready: true, Artifact: artifact}, nil
	}
	if job.Status == queue.StatusAIMixing {
		return Ensure{RetryAfter: m.retryAfter}, nil
	}

	if err := m.regenerate(ctx, job, queue.ArtifactAIOk, queue.StatusAIMixing); err != nil {
		return Ensure{}, err
	}
	m.logger.InfoContext(ctx, "ai mix regeneration started",
		logging.String(logging.FieldJobID, job.ID))
	return Ensure{RetryAfter: m.retryAfter}, nil
}

// validArtifact loads an artifact reference and filters out expiry. A ref
// pointing at a missing row counts as absent, not as an error; regeneration
// repairs it either way.
func (m *Manager) validArtifact(ctx context.Context, artifactID string) *queue.Artifact {
	if artifactID == "" {
		return nil
	}
	artifact, err := m.store.GetArtifact(ctx, artifactID)
	if err != nil {
		if !errors.Is(err, queue.ErrNotFound) {
			m.logger.WarnContext(ctx, "artifact lookup failed", logging.Error(err))
		}
		return nil
	}
	if artifact.Expired(m.now()) {
		return nil
	}
	return artifact
}

func (m *Manager) regenerate(ctx context.Context, job *queue.Job, kind queue.ArtifactKind, lane queue.Status) error {
	if job.Status.IsTerminal() {
		return services.Wrap(services.ErrConflict, "artifacts", "regenerate",
			fmt.Sprintf("job %s is %s and cannot regenerate artifacts", job.ID, job.Status), nil)
	}
	if err := m.store.ClearArtifactRef(ctx, job.ID, kind); err != nil {
		return fmt.Errorf("clear %s artifact ref: %w", kind, err)
	}
	if err := m.store.Transition(ctx, job.ID, job.Status, lane); err != nil {
		return fmt.Errorf("enter %s lane: %w", lane, err)
	}
	return nil
}

// SavePrep records a fresh prep artifact and publishes it on the job. The
// new expiry always lands strictly after any replaced artifact's because the
// TTL clock starts now.
func (m *Manager) SavePrep(ctx context.Context, jobID, storagePath string, offsetMS int, metaJSON string) (*queue.Artifact, error) {
	artifact, err := m.store.CreateArtifact(ctx, queue.NewArtifactParams{
		JobID:       jobID,
		Kind:        queue.ArtifactPrep,
		StoragePath: storagePath,
		ExpiresAt:   m.now().Add(m.prepTTL),
		MetaJSON:    metaJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("create prep artifact: %w", err)
	}
	if err := m.store.AttachPrepArtifact(ctx, jobID, artifact.ID, offsetMS); err != nil {
		return nil, fmt.Errorf("attach prep artifact: %w", err)
	}
	return artifact, nil
}

// SaveAIOk records a fresh AI-mix artifact and publishes it on the job.
func (m *Manager) SaveAIOk(ctx context.Context, jobID, storagePath, presetKey, metaJSON string) (*queue.Artifact, error) {
	artifact, err := m.store.CreateArtifact(ctx, queue.NewArtifactParams{
		JobID:       jobID,
		Kind:        queue.ArtifactAIOk,
		StoragePath: storagePath,
		ExpiresAt:   m.now().Add(m.aiOkTTL),
		MetaJSON:    metaJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("create ai_ok artifact: %w", err)
	}
	if err := m.store.AttachAIOkArtifact(ctx, jobID, artifact.ID, presetKey); err != nil {
		return nil, fmt.Errorf("attach ai_ok artifact: %w", err)
	}
	return artifact, nil
}

// SaveFinal records the rendered output. Final artifacts never expire; the
// far-future stamp keeps the expiry column non-null without a sentinel.
func (m *Manager) SaveFinal(ctx context.Context, jobID, storagePath, metaJSON string) (*queue.Artifact, error) {
	artifact, err := m.store.CreateArtifact(ctx, queue.NewArtifactParams{
		JobID:       jobID,
		Kind:        queue.ArtifactFinal,
		StoragePath: storagePath,
		ExpiresAt:   m.now().AddDate(100, 0, 0),
		MetaJSON:    metaJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("create final artifact: %w", err)
	}
	return artifact, nil
}
