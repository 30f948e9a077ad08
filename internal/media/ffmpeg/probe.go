package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"mixdown/internal/services"
)

// ProbeResult represents the parsed output from an ffprobe inspection.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Probe executes ffprobe against the provided path and decodes the JSON response.
func Probe(ctx context.Context, binary string, path string) (ProbeResult, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return ProbeResult{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return ProbeResult{}, services.Wrap(services.ErrExternalTool, "probe", "inspect",
			fmt.Sprintf("ffprobe inspect failed: %s", strings.TrimSpace(string(output))), err)
	}

	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return ProbeResult{}, services.Wrap(services.ErrExternalTool, "probe", "parse", "ffprobe output not parseable", err)
	}
	return result, nil
}

// AudioStreamCount returns the number of audio streams discovered.
func (r ProbeResult) AudioStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r ProbeResult) DurationSeconds() float64 {
	duration := parseFloat(r.Format.Duration)
	if math.IsNaN(duration) || duration < 0 {
		return 0
	}
	return duration
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r ProbeResult) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

// ValidateStem checks that a downloaded stem is a decodable audio file and
// stays under the configured duration ceiling. Violations are permanent
// validation failures, never retried.
func ValidateStem(result ProbeResult, maxDuration float64) error {
	if result.AudioStreamCount() == 0 {
		return services.Wrap(services.ErrValidation, "probe", "validate",
			fmt.Sprintf("%s contains no audio stream", result.Format.Filename), nil)
	}
	duration := result.DurationSeconds()
	if duration <= 0 {
		return services.Wrap(services.ErrValidation, "probe", "validate",
			fmt.Sprintf("%s has no measurable duration", result.Format.Filename), nil)
	}
	if maxDuration > 0 && duration > maxDuration {
		return services.Wrap(services.ErrValidation, "probe", "validate",
			fmt.Sprintf("%s runs %.1fs, limit is %.0fs", result.Format.Filename, duration, maxDuration), nil)
	}
	return nil
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
