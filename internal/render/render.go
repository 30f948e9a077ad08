// Package render runs the final two-stem mix through ffmpeg. The Renderer
// interface exists so the worker pipeline can be exercised without a real
// encoder on the test host.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"mixdown/internal/logging"
	"mixdown/internal/services"
)

// Request describes one render. FilterComplex comes from mixplan and already
// encodes offsets, weights, and loudness normalization.
type Request struct {
	InstrumentalPath string
	VocalPath        string
	OutputPath       string
	FilterComplex    string
}

// Result reports what the encoder produced.
type Result struct {
	OutputPath string
	SizeBytes  int64
	Elapsed    time.Duration
}

// Renderer mixes two stems into a single output file.
type Renderer interface {
	Render(ctx context.Context, req Request) (Result, error)
}

// Options configure the ffmpeg-backed renderer.
type Options struct {
	Binary  string
	Bitrate string
	Timeout time.Duration
}

// FFmpeg renders through the ffmpeg binary with a hard wall-clock timeout.
type FFmpeg struct {
	binary  string
	bitrate string
	timeout time.Duration
	logger  *slog.Logger
}

// NewFFmpeg builds a renderer. Zero options fall back to a plain ffmpeg on
// PATH at 320 kbit with a four minute ceiling.
func NewFFmpeg(opts Options, logger *slog.Logger) *FFmpeg {
	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	bitrate := strings.TrimSpace(opts.Bitrate)
	if bitrate == "" {
		bitrate = "320k"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 4 * time.Minute
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FFmpeg{binary: binary, bitrate: bitrate, timeout: timeout, logger: logger}
}

// Render executes the mix. Input rejections from ffmpeg surface as permanent
// validation failures; timeouts and everything else stay retryable.
func (f *FFmpeg) Render(ctx context.Context, req Request) (Result, error) {
	if err := validateRequest(req); err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	args := []string{
		"-v", "error", "-hide_banner", "-y",
		"-i", req.InstrumentalPath,
		"-i", req.VocalPath,
		"-filter_complex", req.FilterComplex,
		"-map", "[out]",
		"-c:a", "libmp3lame",
		"-b:a", f.bitrate,
		req.OutputPath,
	}

	start := time.Now()
	f.logger.Info("render started",
		logging.String("binary", f.binary),
		logging.String("output", req.OutputPath))

	cmd := exec.CommandContext(ctx, f.binary, args...)
	output, err := cmd.CombinedOutput()
	elapsed := time.Since(start)
	if err != nil {
		return Result{}, classifyRenderError(ctx, elapsed, string(output), err)
	}

	info, err := os.Stat(req.OutputPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "render", "verify", "render produced no output file", err)
	}
	if info.Size() == 0 {
		return Result{}, services.Wrap(services.ErrExternalTool, "render", "verify", "render produced an empty file", nil)
	}

	f.logger.Info("render finished",
		logging.String("output", req.OutputPath),
		logging.Int64("size_bytes", info.Size()),
		logging.Duration("elapsed", elapsed))
	return Result{OutputPath: req.OutputPath, SizeBytes: info.Size(), Elapsed: elapsed}, nil
}

func validateRequest(req Request) error {
	switch {
	case strings.TrimSpace(req.InstrumentalPath) == "":
		return services.Wrap(services.ErrValidation, "render", "validate", "instrumental path is empty", nil)
	case strings.TrimSpace(req.VocalPath) == "":
		return services.Wrap(services.ErrValidation, "render", "validate", "vocal path is empty", nil)
	case strings.TrimSpace(req.OutputPath) == "":
		return services.Wrap(services.ErrValidation, "render", "validate", "output path is empty", nil)
	case strings.TrimSpace(req.FilterComplex) == "":
		return services.Wrap(services.ErrValidation, "render", "validate", "filter graph is empty", nil)
	}
	return nil
}

// inputRejections are ffmpeg messages that mean the source file itself is
// unusable. Retrying the same inputs cannot succeed.
var inputRejections = []string{
	"invalid data found",
	"no such file or directory",
	"invalid argument",
	"could not find codec",
}

func classifyRenderError(ctx context.Context, elapsed time.Duration, output string, err error) error {
	trimmed := strings.TrimSpace(output)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "render", "encode",
			fmt.Sprintf("render exceeded timeout after %s", elapsed.Round(time.Millisecond)), err)
	}
	lowered := strings.ToLower(trimmed)
	for _, marker := range inputRejections {
		if strings.Contains(lowered, marker) {
			return services.Wrap(services.ErrValidation, "render", "encode",
				fmt.Sprintf("ffmpeg rejected input: %s", trimmed), err)
		}
	}
	return services.Wrap(services.ErrExternalTool, "render", "encode",
		fmt.Sprintf("ffmpeg render failed: %s", trimmed), err)
}
