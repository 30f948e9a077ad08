package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mixdown/internal/alignment"
	"mixdown/internal/logging"
	"mixdown/internal/media/ffmpeg"
	"mixdown/internal/mixplan"
	"mixdown/internal/presets"
	"mixdown/internal/queue"
	"mixdown/internal/render"
	"mixdown/internal/services"
)

// mixInputs is everything a render needs once the stems are local.
type mixInputs struct {
	instLocal  string
	vocalLocal string
	offset     alignment.Result
	presetKey  string
	graph      mixplan.Graph
}

// scratchPath builds a collision-free scratch file name.
func (w *Worker) scratchPath(kind, jobID, ext string) string {
	name := fmt.Sprintf("%s_%s_%d_%d_%04x.%s",
		kind, jobID, os.Getpid(), time.Now().UnixMilli(), rand.Intn(0x10000), ext)
	return filepath.Join(w.cfg.Paths.ScratchDir, name)
}

// cleanupFiles removes scratch leftovers. Failures are logged and never
// escalate; the files sit in a scratch directory that can be swept offline.
func (w *Worker) cleanupFiles(ctx context.Context, paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			w.logger.WarnContext(ctx, "scratch cleanup failed",
				logging.String("path", path), logging.Error(err))
		}
	}
}

// fetchStems validates the job's stem references and downloads both into
// scratch. The caller owns cleanup of the returned paths.
func (w *Worker) fetchStems(ctx context.Context, job *queue.Job) (inst, vocal string, err error) {
	if strings.TrimSpace(job.InstrumentalPath) == "" || strings.TrimSpace(job.VocalPath) == "" {
		return "", "", services.Wrap(services.ErrValidation, "worker", "fetch",
			"job is missing a stem reference", nil)
	}

	inst = w.scratchPath("inst", job.ID, "wav")
	vocal = w.scratchPath("vocal", job.ID, "wav")
	if err := w.deps.Objects.Download(ctx, job.InstrumentalPath, inst); err != nil {
		return "", "", fmt.Errorf("download instrumental: %w", err)
	}
	if err := w.deps.Objects.Download(ctx, job.VocalPath, vocal); err != nil {
		w.cleanupFiles(ctx, inst)
		return "", "", fmt.Errorf("download vocal: %w", err)
	}

	for _, stem := range []string{inst, vocal} {
		probe, err := w.deps.Prober.Probe(ctx, stem)
		if err != nil {
			w.cleanupFiles(ctx, inst, vocal)
			return "", "", fmt.Errorf("probe stem: %w", err)
		}
		if err := ffmpeg.ValidateStem(probe, float64(w.cfg.Worker.MaxInputDuration)); err != nil {
			w.cleanupFiles(ctx, inst, vocal)
			return "", "", err
		}
	}
	return inst, vocal, nil
}

// resolvePreset picks and gates the preset for a job, applying any stored
// micro adjustments on top.
func resolvePreset(job *queue.Job) (string, presets.Preset, error) {
	key := strings.TrimSpace(job.PresetKey)
	if key == "" {
		key = presets.DefaultForPlan(job.PlanCode)
	}
	if !presets.Allowed(job.PlanCode, key) {
		return "", presets.Preset{}, services.Wrap(services.ErrValidation, "worker", "preset",
			fmt.Sprintf("preset %q is not available on plan %q", key, job.PlanCode), nil)
	}
	preset, ok := presets.Get(key)
	if !ok {
		return "", presets.Preset{}, services.Wrap(services.ErrValidation, "worker", "preset",
			fmt.Sprintf("unknown preset %q", key), nil)
	}
	adjust, err := mixplan.ParseMicroAdjust(job.MicroAdjustJSON)
	if err != nil {
		return "", presets.Preset{}, err
	}
	return key, mixplan.ApplyMicroAdjust(preset, adjust), nil
}

// prepareMix downloads stems, detects the offset, and builds the filter
// graph for a full render.
func (w *Worker) prepareMix(ctx context.Context, job *queue.Job) (mixInputs, error) {
	inst, vocal, err := w.fetchStems(ctx, job)
	if err != nil {
		return mixInputs{}, err
	}

	offset, err := w.deps.Detector.Detect(ctx, inst, vocal)
	if err != nil {
		w.cleanupFiles(ctx, inst, vocal)
		return mixInputs{}, fmt.Errorf("detect offset: %w", err)
	}
	if offset.LowConfidence {
		w.logger.WarnContext(ctx, "proceeding with low-confidence offset",
			logging.String(logging.FieldJobID, job.ID),
			logging.Int("offset_ms", offset.OffsetMS),
			logging.Float64("confidence", offset.Confidence))
	}

	key, preset, err := resolvePreset(job)
	if err != nil {
		w.cleanupFiles(ctx, inst, vocal)
		return mixInputs{}, err
	}

	graph := mixplan.BuildFilterGraph(mixplan.Params{
		Preset:     preset,
		OffsetMS:   offset.OffsetMS,
		TempoRatio: job.TempoRatio,
		TargetLUFS: job.TargetLUFS,
		InstPolicy: job.InstPolicy,
	})
	return mixInputs{
		instLocal:  inst,
		vocalLocal: vocal,
		offset:     offset,
		presetKey:  key,
		graph:      graph,
	}, nil
}

// renderAndMeasure runs the encoder and meters the result.
func (w *Worker) renderAndMeasure(ctx context.Context, job *queue.Job, inputs mixInputs) (string, ffmpeg.Measurement, error) {
	out := w.scratchPath("mix", job.ID, "mp3")
	_, err := w.deps.Renderer.Render(ctx, render.Request{
		InstrumentalPath: inputs.instLocal,
		VocalPath:        inputs.vocalLocal,
		OutputPath:       out,
		FilterComplex:    inputs.graph.FilterComplex(),
	})
	if err != nil {
		return "", ffmpeg.Measurement{}, err
	}
	measurement, err := w.deps.Meter.Measure(ctx, out)
	if err != nil {
		w.cleanupFiles(ctx, out)
		return "", ffmpeg.Measurement{}, fmt.Errorf("measure mix: %w", err)
	}
	return out, measurement, nil
}

// stageStandardMix handles the paid lane: processing -> done in one pass.
func (w *Worker) stageStandardMix(ctx context.Context, job *queue.Job) error {
	inputs, err := w.prepareMix(ctx, job)
	if err != nil {
		return err
	}
	defer w.cleanupFiles(ctx, inputs.instLocal, inputs.vocalLocal)

	out, measurement, err := w.renderAndMeasure(ctx, job, inputs)
	if err != nil {
		return err
	}
	defer w.cleanupFiles(ctx, out)

	resultPath := fmt.Sprintf("results/%s/mix.mp3", job.ID)
	if err := w.deps.Objects.Upload(ctx, out, resultPath, "audio/mpeg"); err != nil {
		return fmt.Errorf("upload mix: %w", err)
	}

	meta := mixMeta(inputs, measurement)
	artifact, err := w.deps.Artifacts.SaveFinal(ctx, job.ID, resultPath, meta)
	if err != nil {
		return fmt.Errorf("save final artifact: %w", err)
	}
	if err := w.deps.Store.CompleteProcessing(ctx, job.ID, queue.CompletionParams{
		ResultPath:      resultPath,
		PresetKey:       inputs.presetKey,
		OffsetMS:        inputs.offset.OffsetMS,
		MeasuredLUFS:    measurement.IntegratedLUFS,
		TruePeak:        measurement.TruePeakDB,
		FinalArtifactID: artifact.ID,
	}); err != nil {
		return err
	}
	if err := w.deps.Notifier.NotifyMixCompleted(ctx, job.ID, inputs.presetKey, measurement.IntegratedLUFS); err != nil {
		w.logger.WarnContext(ctx, "completion notification failed",
			logging.String(logging.FieldJobID, job.ID), logging.Error(err))
	}
	return nil
}

// stagePrep handles the extended lane's analysis step: prepping ->
// prep_ready with an offset manifest artifact.
func (w *Worker) stagePrep(ctx context.Context, job *queue.Job) error {
	inst, vocal, err := w.fetchStems(ctx, job)
	if err != nil {
		return err
	}
	defer w.cleanupFiles(ctx, inst, vocal)

	offset, err := w.deps.Detector.Detect(ctx, inst, vocal)
	if err != nil {
		return fmt.Errorf("detect offset: %w", err)
	}

	manifest, err := json.Marshal(map[string]any{
		"offset_ms":      offset.OffsetMS,
		"confidence":     offset.Confidence,
		"method":         offset.Method,
		"low_confidence": offset.LowConfidence,
	})
	if err != nil {
		return fmt.Errorf("encode prep manifest: %w", err)
	}
	local := w.scratchPath("prep", job.ID, "json")
	if err := os.WriteFile(local, manifest, 0o644); err != nil {
		return fmt.Errorf("write prep manifest: %w", err)
	}
	defer w.cleanupFiles(ctx, local)

	storagePath := fmt.Sprintf("artifacts/%s/prep.json", job.ID)
	if err := w.deps.Objects.Upload(ctx, local, storagePath, "application/json"); err != nil {
		return fmt.Errorf("upload prep manifest: %w", err)
	}
	if _, err := w.deps.Artifacts.SavePrep(ctx, job.ID, storagePath, offset.OffsetMS, string(manifest)); err != nil {
		return fmt.Errorf("publish prep artifact: %w", err)
	}
	return nil
}

// stageAIMix renders the machine-chosen mix: ai_mixing -> ai_ok. It refuses
// to run without a usable prep artifact, since the offset baked into the mix
// comes from that stage.
func (w *Worker) stageAIMix(ctx context.Context, job *queue.Job) error {
	if err := w.requireValidPrep(ctx, job); err != nil {
		return err
	}

	inst, vocal, err := w.fetchStems(ctx, job)
	if err != nil {
		return err
	}
	defer w.cleanupFiles(ctx, inst, vocal)

	key, preset, err := resolvePreset(job)
	if err != nil {
		return err
	}
	inputs := mixInputs{
		instLocal:  inst,
		vocalLocal: vocal,
		offset:     alignment.Result{OffsetMS: job.OffsetMS},
		presetKey:  key,
		graph: mixplan.BuildFilterGraph(mixplan.Params{
			Preset:     preset,
			OffsetMS:   job.OffsetMS,
			TempoRatio: job.TempoRatio,
			TargetLUFS: job.TargetLUFS,
			InstPolicy: job.InstPolicy,
		}),
	}

	out, measurement, err := w.renderAndMeasure(ctx, job, inputs)
	if err != nil {
		return err
	}
	defer w.cleanupFiles(ctx, out)

	storagePath := fmt.Sprintf("artifacts/%s/aimix.mp3", job.ID)
	if err := w.deps.Objects.Upload(ctx, out, storagePath, "audio/mpeg"); err != nil {
		return fmt.Errorf("upload ai mix: %w", err)
	}
	if _, err := w.deps.Artifacts.SaveAIOk(ctx, job.ID, storagePath, key, mixMeta(inputs, measurement)); err != nil {
		return fmt.Errorf("publish ai mix artifact: %w", err)
	}
	return nil
}

// stageMaster finishes the extended lane: mastering -> rendering ->
// complete. The offset was fixed at prep time; mastering re-renders with the
// job's final preset and adjustments.
func (w *Worker) stageMaster(ctx context.Context, job *queue.Job) error {
	inst, vocal, err := w.fetchStems(ctx, job)
	if err != nil {
		return err
	}
	defer w.cleanupFiles(ctx, inst, vocal)

	key, preset, err := resolvePreset(job)
	if err != nil {
		return err
	}
	inputs := mixInputs{
		instLocal:  inst,
		vocalLocal: vocal,
		offset:     alignment.Result{OffsetMS: job.OffsetMS},
		presetKey:  key,
		graph: mixplan.BuildFilterGraph(mixplan.Params{
			Preset:     preset,
			OffsetMS:   job.OffsetMS,
			TempoRatio: job.TempoRatio,
			TargetLUFS: job.TargetLUFS,
			InstPolicy: job.InstPolicy,
		}),
	}

	if err := w.deps.Store.Transition(ctx, job.ID, queue.StatusMastering, queue.StatusRendering); err != nil {
		// A retried attempt may have already crossed into rendering.
		if current, getErr := w.deps.Store.GetJob(ctx, job.ID); getErr != nil || current.Status != queue.StatusRendering {
			return fmt.Errorf("enter rendering: %w", err)
		}
	}

	out, measurement, err := w.renderAndMeasure(ctx, job, inputs)
	if err != nil {
		return err
	}
	defer w.cleanupFiles(ctx, out)

	resultPath := fmt.Sprintf("results/%s/master.mp3", job.ID)
	if err := w.deps.Objects.Upload(ctx, out, resultPath, "audio/mpeg"); err != nil {
		return fmt.Errorf("upload master: %w", err)
	}
	artifact, err := w.deps.Artifacts.SaveFinal(ctx, job.ID, resultPath, mixMeta(inputs, measurement))
	if err != nil {
		return fmt.Errorf("save final artifact: %w", err)
	}
	if err := w.deps.Store.CompleteRendering(ctx, job.ID, queue.CompletionParams{
		ResultPath:      resultPath,
		PresetKey:       inputs.presetKey,
		OffsetMS:        job.OffsetMS,
		MeasuredLUFS:    measurement.IntegratedLUFS,
		TruePeak:        measurement.TruePeakDB,
		FinalArtifactID: artifact.ID,
	}); err != nil {
		return err
	}
	if err := w.deps.Notifier.NotifyMasterCompleted(ctx, job.ID); err != nil {
		w.logger.WarnContext(ctx, "completion notification failed",
			logging.String(logging.FieldJobID, job.ID), logging.Error(err))
	}
	return nil
}

// requireValidPrep fails fast when the AI stage is asked to run without a
// live prep artifact to base itself on.
func (w *Worker) requireValidPrep(ctx context.Context, job *queue.Job) error {
	if job.PrepArtifactID == "" {
		return services.Wrap(services.ErrValidation, "worker", "ai-mix",
			fmt.Sprintf("job %s has no prep artifact; run prep first", job.ID), nil)
	}
	artifact, err := w.deps.Store.GetArtifact(ctx, job.PrepArtifactID)
	if err != nil {
		return services.Wrap(services.ErrValidation, "worker", "ai-mix",
			fmt.Sprintf("job %s prep artifact is gone; run prep again", job.ID), err)
	}
	if artifact.Expired(time.Now()) {
		return services.Wrap(services.ErrValidation, "worker", "ai-mix",
			fmt.Sprintf("job %s prep artifact expired; run prep again", job.ID), nil)
	}
	return nil
}

func mixMeta(inputs mixInputs, measurement ffmpeg.Measurement) string {
	meta, err := json.Marshal(map[string]any{
		"preset_key":    inputs.presetKey,
		"offset_ms":     inputs.offset.OffsetMS,
		"offset_method": inputs.offset.Method,
		"measured_lufs": measurement.IntegratedLUFS,
		"true_peak_db":  measurement.TruePeakDB,
	})
	if err != nil {
		return "{}"
	}
	return string(meta)
}
