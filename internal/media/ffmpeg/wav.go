package ffmpeg

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"

	"mixdown/internal/services"
)

// PCM holds decoded audio as interleaved float64 samples in [-1, 1].
type PCM struct {
	Samples    []float64
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames across all channels.
func (p PCM) Frames() int {
	if p.Channels <= 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// DecodeWAV loads a PCM WAV file into normalized float samples.
func DecodeWAV(path string) (PCM, error) {
	file, err := os.Open(path)
	if err != nil {
		return PCM{}, services.Wrap(services.ErrNotFound, "wav", "open",
			fmt.Sprintf("cannot open %s", path), err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return PCM{}, services.Wrap(services.ErrValidation, "wav", "decode",
			fmt.Sprintf("%s is not a valid WAV file", path), nil)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return PCM{}, services.Wrap(services.ErrValidation, "wav", "decode",
			fmt.Sprintf("cannot decode %s", path), err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return PCM{}, services.Wrap(services.ErrValidation, "wav", "decode",
			fmt.Sprintf("%s decoded to no samples", path), nil)
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float64(v) / scale
	}
	return PCM{
		Samples:    samples,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
	}, nil
}
