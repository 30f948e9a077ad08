package ffmpeg

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-dsp/measure/loudness"

	"mixdown/internal/services"
)

// Measurement reports the integrated loudness and sample peak of a render.
type Measurement struct {
	IntegratedLUFS float64
	TruePeakDB     float64
}

// MeasurePCM runs an ITU BS.1770 meter over decoded samples.
func MeasurePCM(pcm PCM) (Measurement, error) {
	if len(pcm.Samples) == 0 || pcm.SampleRate <= 0 || pcm.Channels <= 0 {
		return Measurement{}, services.Wrap(services.ErrValidation, "loudness", "measure", "empty or malformed PCM input", nil)
	}

	meter := loudness.NewMeter(
		loudness.WithSampleRate(float64(pcm.SampleRate)),
		loudness.WithChannels(pcm.Channels),
	)
	meter.StartIntegration()
	meter.ProcessBlock(pcm.Samples)
	meter.StopIntegration()

	peak := 0.0
	for _, p := range meter.Peaks() {
		if p > peak {
			peak = p
		}
	}
	peakDB := -120.0
	if peak > 0 {
		peakDB = 20 * math.Log10(peak)
	}
	return Measurement{
		IntegratedLUFS: meter.Integrated(),
		TruePeakDB:     peakDB,
	}, nil
}

// MeasureFile decodes a rendered file through ffmpeg and meters its loudness.
// The decode step makes the meter format-agnostic; renders are MP3, samples
// are WAV, both land here.
func MeasureFile(ctx context.Context, binary string, path string) (Measurement, error) {
	tmp, err := os.CreateTemp("", "mixdown-meter-*.wav")
	if err != nil {
		return Measurement{}, services.Wrap(services.ErrTransient, "loudness", "tempfile", "cannot create meter scratch file", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := decodeToWAV(ctx, binary, path, tmpPath); err != nil {
		return Measurement{}, err
	}
	pcm, err := DecodeWAV(tmpPath)
	if err != nil {
		return Measurement{}, err
	}
	return MeasurePCM(pcm)
}

func decodeToWAV(ctx context.Context, binary string, src, dst string) error {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return runFFmpeg(ctx, binary, []string{
		"-v", "error", "-hide_banner", "-y",
		"-i", src,
		"-ar", strconv.Itoa(48000),
		"-c:a", "pcm_s16le",
		"-f", "wav", dst,
	})
}

func runFFmpeg(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "loudness", "decode",
			fmt.Sprintf("ffmpeg decode failed for %s: %s", filepath.Base(args[len(args)-1]), strings.TrimSpace(string(output))), err)
	}
	return nil
}
