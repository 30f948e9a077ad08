package alignment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/cwbudde/algo-dsp/dsp/conv"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	timestats "github.com/cwbudde/algo-dsp/stats/time"

	"mixdown/internal/media/ffmpeg"
)

// Correlation band. Rumble below and sheen above carry little alignment
// information, so both stems are band-limited before correlating.
const (
	bandLowHz  = 100.0
	bandHighHz = 4000.0
	bandOrder  = 2
)

func (d *Detector) extractOne(ctx context.Context, src, dst string) error {
	return ffmpeg.ExtractSample(ctx, d.ffmpegBinary, ffmpeg.SampleSpec{
		Input:      src,
		Output:     dst,
		SampleRate: d.sampleRate,
		Seconds:    d.sampleSeconds,
	})
}

// correlate estimates the offset by normalized cross-correlation over
// band-limited excerpts. The peak lag of corr(inst, vocal) is the number of
// samples the instrumental trails the vocal, which is exactly the amount the
// vocal must be delayed by.
func (d *Detector) correlate(ctx context.Context, instPath, vocalPath string) (Result, error) {
	instSample, vocalSample, err := d.extractSamples(ctx, instPath, vocalPath)
	if err != nil {
		return Result{}, fmt.Errorf("sample extraction: %w", err)
	}
	defer os.Remove(instSample)
	defer os.Remove(vocalSample)

	inst, err := ffmpeg.DecodeWAV(instSample)
	if err != nil {
		return Result{}, err
	}
	vocal, err := ffmpeg.DecodeWAV(vocalSample)
	if err != nil {
		return Result{}, err
	}
	if inst.SampleRate != vocal.SampleRate {
		return Result{}, fmt.Errorf("sample rate mismatch: %d vs %d", inst.SampleRate, vocal.SampleRate)
	}

	rate := float64(inst.SampleRate)
	bandLimit(inst.Samples, rate)
	bandLimit(vocal.Samples, rate)

	corr, err := conv.CorrelateNormalized(inst.Samples, vocal.Samples)
	if err != nil {
		return Result{}, fmt.Errorf("correlation: %w", err)
	}
	index, peak := conv.FindPeak(corr)
	if index < 0 {
		return Result{}, errors.New("correlation produced no peak")
	}
	lag := conv.LagFromIndex(index, len(vocal.Samples))

	confidence := peak
	if confidence < 0 {
		confidence = 0
	}
	return Result{
		OffsetMS:   int(math.Round(float64(lag) * 1000 / rate)),
		Confidence: confidence,
		Method:     MethodCorrelation,
	}, nil
}

func bandLimit(samples []float64, sampleRate float64) {
	hp := biquad.NewChain(design.ButterworthHP(bandLowHz, bandOrder, sampleRate))
	hp.ProcessBlock(samples)
	lp := biquad.NewChain(design.ButterworthLP(bandHighHz, bandOrder, sampleRate))
	lp.ProcessBlock(samples)
}

// Energy heuristic thresholds. A vocal markedly louder than the instrumental
// over the opening seconds usually means the vocal entered early.
const (
	energyWindowSeconds = 5
	energyLeadRatio     = 1.5
	energyLagRatio      = 0.5
	energyNudgeMS       = 50
	energyConfidence    = 0.1
)

// energyHeuristic is the last-resort estimate. It never claims confidence
// above the advisory threshold.
func (d *Detector) energyHeuristic(ctx context.Context, instPath, vocalPath string) (Result, error) {
	instSample, vocalSample, err := d.extractSamples(ctx, instPath, vocalPath)
	if err != nil {
		return Result{}, fmt.Errorf("sample extraction: %w", err)
	}
	defer os.Remove(instSample)
	defer os.Remove(vocalSample)

	inst, err := ffmpeg.DecodeWAV(instSample)
	if err != nil {
		return Result{}, err
	}
	vocal, err := ffmpeg.DecodeWAV(vocalSample)
	if err != nil {
		return Result{}, err
	}

	window := energyWindowSeconds * inst.SampleRate
	instRMS := timestats.RMS(head(inst.Samples, window))
	vocalRMS := timestats.RMS(head(vocal.Samples, window))
	if instRMS == 0 {
		return Result{}, errors.New("instrumental excerpt is silent")
	}

	offset := 0
	switch ratio := vocalRMS / instRMS; {
	case ratio > energyLeadRatio:
		offset = energyNudgeMS
	case ratio < energyLagRatio:
		offset = -energyNudgeMS
	}
	return Result{OffsetMS: offset, Confidence: energyConfidence, Method: MethodEnergy}, nil
}

func head(samples []float64, n int) []float64 {
	if n > 0 && n < len(samples) {
		return samples[:n]
	}
	return samples
}
