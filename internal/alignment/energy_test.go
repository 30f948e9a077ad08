package alignment

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"mixdown/internal/testsupport"
)

func writeTone(t *testing.T, path string, rate int, amplitude float64) {
	t.Helper()
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer file.Close()

	data := make([]int, rate*6)
	for i := range data {
		data[i] = int(math.Round(amplitude * 32000 * math.Sin(2*math.Pi*440*float64(i)/float64(rate))))
	}
	enc := wav.NewEncoder(file, rate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
}

func newEnergyDetector(t *testing.T) *Detector {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	stub := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\nprev=\"\"\ninp=\"\"\nfor a; do\n  if [ \"$prev\" = \"-i\" ]; then inp=\"$a\"; fi\n  prev=\"$a\"\n  last=\"$a\"\ndone\ncp \"$inp\" \"$last\"\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	cfg.Render.FFmpegBinary = stub
	return NewDetector(cfg, nil)
}

func TestEnergyHeuristicNudges(t *testing.T) {
	detector := newEnergyDetector(t)
	dir := t.TempDir()
	quiet := filepath.Join(dir, "quiet.wav")
	loud := filepath.Join(dir, "loud.wav")
	writeTone(t, quiet, 22050, 0.01)
	writeTone(t, loud, 22050, 0.9)

	// Vocal much louder than the instrumental: vocal entered early.
	result, err := detector.energyHeuristic(context.Background(), quiet, loud)
	if err != nil {
		t.Fatalf("energyHeuristic: %v", err)
	}
	if result.OffsetMS != energyNudgeMS || result.Method != MethodEnergy {
		t.Fatalf("result = %+v, want +%d ms via energy", result, energyNudgeMS)
	}

	// Vocal much quieter: nudge the other way.
	result, err = detector.energyHeuristic(context.Background(), loud, quiet)
	if err != nil {
		t.Fatalf("energyHeuristic: %v", err)
	}
	if result.OffsetMS != -energyNudgeMS {
		t.Fatalf("offset = %d, want -%d", result.OffsetMS, energyNudgeMS)
	}

	// Comparable levels leave the stems alone.
	result, err = detector.energyHeuristic(context.Background(), loud, loud)
	if err != nil {
		t.Fatalf("energyHeuristic: %v", err)
	}
	if result.OffsetMS != 0 {
		t.Fatalf("offset = %d, want 0", result.OffsetMS)
	}
	if result.Confidence >= detector.threshold {
		t.Fatalf("energy heuristic confidence %v should stay advisory", result.Confidence)
	}
}
