package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"mixdown/internal/services"
)

// SampleSpec describes a mono analysis excerpt to extract from a stem.
type SampleSpec struct {
	Input      string
	Output     string
	SampleRate int
	Seconds    int
	// HighpassHz optionally strips rumble before correlation; 0 disables it.
	HighpassHz float64
}

// ExtractSample decodes the head of a stem into a mono WAV excerpt suitable
// for offset analysis. The output is always PCM s16le so downstream decoding
// stays trivial.
func ExtractSample(ctx context.Context, binary string, spec SampleSpec) error {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if strings.TrimSpace(spec.Input) == "" || strings.TrimSpace(spec.Output) == "" {
		return errors.New("ffmpeg sample: input and output paths are required")
	}
	if spec.SampleRate <= 0 {
		spec.SampleRate = 22050
	}
	if spec.Seconds <= 0 {
		spec.Seconds = 15
	}

	args := []string{
		"-v", "error", "-hide_banner", "-y",
		"-i", spec.Input,
		"-t", strconv.Itoa(spec.Seconds),
		"-ac", "1",
		"-ar", strconv.Itoa(spec.SampleRate),
	}
	if spec.HighpassHz > 0 {
		args = append(args, "-af", fmt.Sprintf("highpass=f=%g", spec.HighpassHz))
	}
	args = append(args, "-c:a", "pcm_s16le", "-f", "wav", spec.Output)

	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "sample", "extract",
			fmt.Sprintf("ffmpeg sample extraction failed: %s", strings.TrimSpace(string(output))), err)
	}

	info, err := os.Stat(spec.Output)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "sample", "verify", "sample output missing", err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "sample", "verify", "sample output empty", nil)
	}
	return nil
}
