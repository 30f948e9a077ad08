package alignment_test

import (
	"context"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"mixdown/internal/alignment"
	"mixdown/internal/config"
	"mixdown/internal/testsupport"
)

func newDetectorConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	// No analyzer toolchain on test hosts.
	cfg.Alignment.AnalyzerScript = ""
	return cfg
}

func writeAnalyzerScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analyzer.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write analyzer script: %v", err)
	}
	return path
}

func TestDetectUsesAnalyzerResult(t *testing.T) {
	cfg := newDetectorConfig(t)
	cfg.Alignment.AnalyzerBinary = "/bin/sh"
	cfg.Alignment.AnalyzerScript = writeAnalyzerScript(t,
		`echo '{"best_result": {"offset_ms": 42, "confidence": 0.61, "method": "mfcc"}}'`)

	result, err := alignment.NewDetector(cfg, nil).Detect(context.Background(), "inst.wav", "vocal.wav")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if result.OffsetMS != 42 || result.Method != "mfcc" {
		t.Fatalf("result = %+v, want offset 42 via mfcc", result)
	}
	if result.LowConfidence {
		t.Fatal("confidence 0.61 flagged as low")
	}
}

func TestDetectClampsAnalyzerOffset(t *testing.T) {
	cfg := newDetectorConfig(t)
	cfg.Alignment.AnalyzerBinary = "/bin/sh"
	cfg.Alignment.AnalyzerScript = writeAnalyzerScript(t,
		`echo '{"best_result": {"offset_ms": 5000, "confidence": 0.9, "method": "mfcc"}}'`)

	result, err := alignment.NewDetector(cfg, nil).Detect(context.Background(), "inst.wav", "vocal.wav")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if result.OffsetMS != cfg.Alignment.MaxOffsetMS {
		t.Fatalf("offset = %d, want clamped to %d", result.OffsetMS, cfg.Alignment.MaxOffsetMS)
	}
}

func TestDetectFlagsLowConfidence(t *testing.T) {
	cfg := newDetectorConfig(t)
	cfg.Alignment.AnalyzerBinary = "/bin/sh"
	cfg.Alignment.AnalyzerScript = writeAnalyzerScript(t,
		`echo '{"best_result": {"offset_ms": -12, "confidence": 0.11, "method": "mfcc"}}'`)

	result, err := alignment.NewDetector(cfg, nil).Detect(context.Background(), "inst.wav", "vocal.wav")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !result.LowConfidence {
		t.Fatalf("confidence 0.11 not flagged, result %+v", result)
	}
	if result.OffsetMS != -12 {
		t.Fatalf("offset = %d, want -12", result.OffsetMS)
	}
}

func TestDetectRequiresPaths(t *testing.T) {
	cfg := newDetectorConfig(t)
	if _, err := alignment.NewDetector(cfg, nil).Detect(context.Background(), "", ""); err == nil {
		t.Fatal("empty paths accepted")
	}
}

// copyStub stands in for ffmpeg during sample extraction. The test inputs are
// already mono WAV excerpts at the analysis rate, so copying them through is
// exactly what a real extraction would produce.
const copyStub = `#!/bin/sh
prev=""
inp=""
for a; do
  if [ "$prev" = "-i" ]; then inp="$a"; fi
  prev="$a"
  last="$a"
done
cp "$inp" "$last"
`

func writeWAV(t *testing.T, path string, sampleRate int, samples []float64) {
	t.Helper()
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer file.Close()

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(math.Round(s * 32000))
	}
	enc := wav.NewEncoder(file, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
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

func TestDetectCorrelationFindsInjectedOffset(t *testing.T) {
	cfg := newDetectorConfig(t)
	stub := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(stub, []byte(copyStub), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	cfg.Render.FFmpegBinary = stub

	const (
		rate     = 22050
		seconds  = 3
		offsetMS = 100
	)
	shift := offsetMS * rate / 1000

	rng := rand.New(rand.NewSource(7))
	vocal := make([]float64, rate*seconds)
	for i := range vocal {
		vocal[i] = rng.Float64()*1.6 - 0.8
	}
	// The instrumental trails the vocal, so the vocal must be delayed.
	inst := make([]float64, len(vocal))
	copy(inst[shift:], vocal[:len(vocal)-shift])

	dir := t.TempDir()
	instPath := filepath.Join(dir, "inst.wav")
	vocalPath := filepath.Join(dir, "vocal.wav")
	writeWAV(t, instPath, rate, inst)
	writeWAV(t, vocalPath, rate, vocal)

	result, err := alignment.NewDetector(cfg, nil).Detect(context.Background(), instPath, vocalPath)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if result.Method != alignment.MethodCorrelation {
		t.Fatalf("method = %s, want correlation", result.Method)
	}
	if diff := result.OffsetMS - offsetMS; diff < -2 || diff > 2 {
		t.Fatalf("offset = %d ms, want ~%d", result.OffsetMS, offsetMS)
	}
	if result.LowConfidence {
		t.Fatalf("aligned copies flagged low confidence: %+v", result)
	}
}

func TestDetectFailsWhenEveryMethodFails(t *testing.T) {
	cfg := newDetectorConfig(t)
	stub := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	cfg.Render.FFmpegBinary = stub

	if _, err := alignment.NewDetector(cfg, nil).Detect(context.Background(), "inst.wav", "vocal.wav"); err == nil {
		t.Fatal("detection succeeded with no working method")
	}
}
