package ffmpeg_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"mixdown/internal/media/ffmpeg"
)

const probeStub = `#!/bin/sh
cat <<'EOF'
{
  "streams": [
    {"index": 0, "codec_name": "pcm_s16le", "codec_type": "audio", "sample_rate": "44100", "channels": 2}
  ],
  "format": {"filename": "stem.wav", "nb_streams": 1, "duration": "183.4", "size": "1048576", "format_name": "wav"}
}
EOF
`

// touchStub writes a few bytes into whatever path is passed last, which is
// where ffmpeg puts its output file.
const touchStub = `#!/bin/sh
for last; do :; done
printf 'RIFFdata' > "$last"
`

func writeStub(t *testing.T, name, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return path
}

func TestProbeParsesOutput(t *testing.T) {
	binary := writeStub(t, "ffprobe", probeStub)
	result, err := ffmpeg.Probe(context.Background(), binary, "stem.wav")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if got := result.AudioStreamCount(); got != 1 {
		t.Errorf("audio streams = %d, want 1", got)
	}
	if got := result.DurationSeconds(); got != 183.4 {
		t.Errorf("duration = %v, want 183.4", got)
	}
	if got := result.SizeBytes(); got != 1048576 {
		t.Errorf("size = %d, want 1048576", got)
	}
}

func TestProbeRejectsEmptyPath(t *testing.T) {
	if _, err := ffmpeg.Probe(context.Background(), "ffprobe", "  "); err == nil {
		t.Fatal("empty path accepted")
	}
}

func TestValidateStem(t *testing.T) {
	ok := ffmpeg.ProbeResult{
		Streams: []ffmpeg.Stream{{CodecType: "audio"}},
		Format:  ffmpeg.Format{Filename: "stem.wav", Duration: "120"},
	}
	if err := ffmpeg.ValidateStem(ok, 600); err != nil {
		t.Fatalf("valid stem rejected: %v", err)
	}

	noAudio := ffmpeg.ProbeResult{
		Streams: []ffmpeg.Stream{{CodecType: "video"}},
		Format:  ffmpeg.Format{Filename: "movie.mkv", Duration: "120"},
	}
	if err := ffmpeg.ValidateStem(noAudio, 600); err == nil {
		t.Fatal("stem without audio accepted")
	}

	tooLong := ffmpeg.ProbeResult{
		Streams: []ffmpeg.Stream{{CodecType: "audio"}},
		Format:  ffmpeg.Format{Filename: "stem.wav", Duration: "601"},
	}
	if err := ffmpeg.ValidateStem(tooLong, 600); err == nil {
		t.Fatal("over-length stem accepted")
	}
}

func TestExtractSampleWritesOutput(t *testing.T) {
	binary := writeStub(t, "ffmpeg", touchStub)
	out := filepath.Join(t.TempDir(), "sample.wav")
	err := ffmpeg.ExtractSample(context.Background(), binary, ffmpeg.SampleSpec{
		Input:      "stem.wav",
		Output:     out,
		SampleRate: 22050,
		Seconds:    15,
		HighpassHz: 90,
	})
	if err != nil {
		t.Fatalf("ExtractSample: %v", err)
	}
	if info, statErr := os.Stat(out); statErr != nil || info.Size() == 0 {
		t.Fatalf("sample output missing or empty: %v", statErr)
	}
}

func writeTestWAV(t *testing.T, path string, sampleRate int, samples []int) {
	t.Helper()
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer file.Close()

	enc := wav.NewEncoder(file, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav: %v", err)
	}
}

func TestDecodeWAVNormalizesSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeTestWAV(t, path, 22050, []int{0, 16384, -16384, 32767})

	pcm, err := ffmpeg.DecodeWAV(path)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if pcm.SampleRate != 22050 || pcm.Channels != 1 {
		t.Fatalf("format = %d Hz / %d ch, want 22050 / 1", pcm.SampleRate, pcm.Channels)
	}
	if pcm.Frames() != 4 {
		t.Fatalf("frames = %d, want 4", pcm.Frames())
	}
	if math.Abs(pcm.Samples[1]-0.5) > 1e-3 {
		t.Errorf("sample 1 = %v, want ~0.5", pcm.Samples[1])
	}
	if math.Abs(pcm.Samples[2]+0.5) > 1e-3 {
		t.Errorf("sample 2 = %v, want ~-0.5", pcm.Samples[2])
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	if err := os.WriteFile(path, []byte("not a wav"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ffmpeg.DecodeWAV(path); err == nil {
		t.Fatal("garbage accepted as WAV")
	}
}

func TestMeasurePCMSinePeak(t *testing.T) {
	const (
		sampleRate = 48000
		amplitude  = 0.5
		seconds    = 3
	)
	samples := make([]float64, sampleRate*seconds)
	for i := range samples {
		samples[i] = amplitude * math.Sin(2*math.Pi*997*float64(i)/sampleRate)
	}

	m, err := ffmpeg.MeasurePCM(ffmpeg.PCM{Samples: samples, SampleRate: sampleRate, Channels: 1})
	if err != nil {
		t.Fatalf("MeasurePCM: %v", err)
	}
	wantPeak := 20 * math.Log10(amplitude)
	if math.Abs(m.TruePeakDB-wantPeak) > 0.1 {
		t.Errorf("peak = %.2f dB, want %.2f", m.TruePeakDB, wantPeak)
	}
	if m.IntegratedLUFS > 0 || m.IntegratedLUFS < -70 {
		t.Errorf("integrated loudness out of plausible range: %v", m.IntegratedLUFS)
	}
}

func TestMeasurePCMRejectsEmptyInput(t *testing.T) {
	if _, err := ffmpeg.MeasurePCM(ffmpeg.PCM{}); err == nil {
		t.Fatal("empty PCM accepted")
	}
}
