// Package alignment estimates the millisecond offset between an instrumental
// and a vocal stem. Detection walks a fallback chain, from an external
// analyzer subprocess, through onboard cross-correlation, down to a crude
// energy heuristic, so a detector failure never blocks a mix.
package alignment

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mixdown/internal/config"
	"mixdown/internal/logging"
	"mixdown/internal/services"
)

// Method names reported on results.
const (
	MethodAnalyzer    = "analyzer"
	MethodCorrelation = "correlation"
	MethodEnergy      = "energy"
)

// Result is one offset estimate. A positive OffsetMS means the vocal leads
// and must be delayed; negative means the instrumental must be delayed.
type Result struct {
	OffsetMS   int
	Confidence float64
	Method     string
	// LowConfidence marks estimates below the configured threshold. The
	// pipeline proceeds anyway; the flag is advisory.
	LowConfidence bool
}

// Detector runs the offset fallback chain.
type Detector struct {
	analyzerBinary  string
	analyzerScript  string
	analyzerTimeout time.Duration
	ffmpegBinary    string
	scratchDir      string
	sampleRate      int
	sampleSeconds   int
	maxOffsetMS     int
	threshold       float64
	logger          *slog.Logger
}

// NewDetector builds a detector from daemon configuration.
func NewDetector(cfg *config.Config, logger *slog.Logger) *Detector {
	return &Detector{
		analyzerBinary:  cfg.Alignment.AnalyzerBinary,
		analyzerScript:  cfg.Alignment.AnalyzerScript,
		analyzerTimeout: cfg.AnalyzerTimeout(),
		ffmpegBinary:    cfg.Render.FFmpegBinary,
		scratchDir:      cfg.Paths.ScratchDir,
		sampleRate:      cfg.Alignment.SampleRate,
		sampleSeconds:   cfg.Alignment.SampleSeconds,
		maxOffsetMS:     cfg.Alignment.MaxOffsetMS,
		threshold:       cfg.Alignment.ConfidenceThreshold,
		logger:          logging.NewComponentLogger(logger, "alignment"),
	}
}

// Detect estimates the stem offset. Every returned result is clamped to the
// configured window; only a failure of all three methods yields an error.
func (d *Detector) Detect(ctx context.Context, instPath, vocalPath string) (Result, error) {
	if instPath == "" || vocalPath == "" {
		return Result{}, services.Wrap(services.ErrValidation, "alignment", "detect", "both stem paths are required", nil)
	}

	result, err := d.runAnalyzer(ctx, instPath, vocalPath)
	if err == nil {
		return d.finish(ctx, result), nil
	}
	d.logger.WarnContext(ctx, "external analyzer unavailable, falling back to correlation", logging.Error(err))

	result, err = d.correlate(ctx, instPath, vocalPath)
	if err == nil {
		return d.finish(ctx, result), nil
	}
	d.logger.WarnContext(ctx, "correlation failed, falling back to energy heuristic", logging.Error(err))

	result, err = d.energyHeuristic(ctx, instPath, vocalPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "alignment", "detect", "all offset detection methods failed", err)
	}
	return d.finish(ctx, result), nil
}

// finish applies the offset clamp and the low-confidence flag. Clamping is
// unconditional so a runaway estimate can never smear a render.
func (d *Detector) finish(ctx context.Context, result Result) Result {
	limit := d.maxOffsetMS
	if limit > 0 {
		if result.OffsetMS > limit {
			result.OffsetMS = limit
		} else if result.OffsetMS < -limit {
			result.OffsetMS = -limit
		}
	}
	if result.Confidence < d.threshold {
		result.LowConfidence = true
	}
	d.logger.InfoContext(ctx, "offset detected",
		logging.String("method", result.Method),
		logging.Int("offset_ms", result.OffsetMS),
		logging.Float64("confidence", result.Confidence),
		logging.Bool("low_confidence", result.LowConfidence))
	return result
}

// extractSamples pulls matching mono excerpts of both stems into scratch.
// Callers must remove the returned paths.
func (d *Detector) extractSamples(ctx context.Context, instPath, vocalPath string) (string, string, error) {
	stamp := fmt.Sprintf("%d_%d", os.Getpid(), time.Now().UnixNano())
	instSample := filepath.Join(d.scratchDir, "align_inst_"+stamp+".wav")
	vocalSample := filepath.Join(d.scratchDir, "align_vocal_"+stamp+".wav")

	if err := d.extractOne(ctx, instPath, instSample); err != nil {
		return "", "", err
	}
	if err := d.extractOne(ctx, vocalPath, vocalSample); err != nil {
		os.Remove(instSample)
		return "", "", err
	}
	return instSample, vocalSample, nil
}
