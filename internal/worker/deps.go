package worker

import (
	"context"
	"log/slog"

	"mixdown/internal/alignment"
	"mixdown/internal/artifacts"
	"mixdown/internal/config"
	"mixdown/internal/idempotency"
	"mixdown/internal/media/ffmpeg"
	"mixdown/internal/notifications"
	"mixdown/internal/queue"
	"mixdown/internal/render"
	"mixdown/internal/storage"
)

// OffsetDetector estimates the stem offset for a job.
type OffsetDetector interface {
	Detect(ctx context.Context, instPath, vocalPath string) (alignment.Result, error)
}

// Prober inspects a downloaded stem.
type Prober interface {
	Probe(ctx context.Context, path string) (ffmpeg.ProbeResult, error)
}

// Meter measures a rendered mix.
type Meter interface {
	Measure(ctx context.Context, path string) (ffmpeg.Measurement, error)
}

// Deps bundles everything a worker needs. Tests swap individual members for
// fakes; production wiring comes from NewDeps.
type Deps struct {
	Store       *queue.Store
	Objects     storage.ObjectStore
	Detector    OffsetDetector
	Renderer    render.Renderer
	Artifacts   *artifacts.Manager
	Prober      Prober
	Meter       Meter
	Notifier    notifications.Service
	Idempotency *idempotency.Guard
	Logger      *slog.Logger
}

// NewDeps wires the production dependency set from configuration.
func NewDeps(cfg *config.Config, store *queue.Store, logger *slog.Logger) (Deps, error) {
	objects, err := storage.NewFilesystem(cfg.Paths.StoreRoot)
	if err != nil {
		return Deps{}, err
	}
	return Deps{
		Store:    store,
		Objects:  objects,
		Detector: alignment.NewDetector(cfg, logger),
		Renderer: render.NewFFmpeg(render.Options{
			Binary:  cfg.Render.FFmpegBinary,
			Bitrate: cfg.Render.Bitrate,
			Timeout: cfg.RenderTimeout(),
		}, logger),
		Artifacts:   artifacts.NewManager(store, cfg, logger),
		Prober:      mediaTools{cfg: cfg},
		Meter:       mediaTools{cfg: cfg},
		Notifier:    notifications.NewService(cfg),
		Idempotency: idempotency.NewGuard(store, logger),
		Logger:      logger,
	}, nil
}

// mediaTools adapts the ffmpeg wrappers to the worker interfaces.
type mediaTools struct {
	cfg *config.Config
}

func (m mediaTools) Probe(ctx context.Context, path string) (ffmpeg.ProbeResult, error) {
	return ffmpeg.Probe(ctx, m.cfg.Render.FFprobeBinary, path)
}

func (m mediaTools) Measure(ctx context.Context, path string) (ffmpeg.Measurement, error) {
	return ffmpeg.MeasureFile(ctx, m.cfg.Render.FFmpegBinary, path)
}
