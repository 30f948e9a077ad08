package mixplan

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"mixdown/internal/presets"
	"mixdown/internal/services"
)

// MicroAdjust carries the three user-tweakable knobs applied on top of a
// preset. Nil fields leave the preset untouched.
type MicroAdjust struct {
	// Forwardness shifts the vocal/instrumental balance, -15 to +15.
	Forwardness *float64 `json:"forwardness,omitempty" validate:"omitempty,gte=-15,lte=15"`
	// Space sets the reverb decay directly, 0 to 0.45.
	Space *float64 `json:"space,omitempty" validate:"omitempty,gte=-0.45,lte=0.45"`
	// Brightness adds high-band EQ gain, -2.5 to +2.5 dB.
	Brightness *float64 `json:"brightness,omitempty" validate:"omitempty,gte=-2.5,lte=2.5"`
}

var validate = validator.New()

// Validate reports the first out-of-bounds field as a validation error.
// Resolution still clamps, so validation failures are advisory to the API
// surface, never to the pipeline.
func (m MicroAdjust) Validate() error {
	if err := validate.Struct(m); err != nil {
		return services.Wrap(services.ErrValidation, "mixplan", "validate", "micro adjustment out of bounds", err)
	}
	return nil
}

// ParseMicroAdjust decodes the JSON stored on a job. Empty input yields the
// identity adjustment.
func ParseMicroAdjust(raw string) (MicroAdjust, error) {
	var adjust MicroAdjust
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return adjust, nil
	}
	if err := json.Unmarshal([]byte(trimmed), &adjust); err != nil {
		return MicroAdjust{}, services.Wrap(services.ErrValidation, "mixplan", "parse",
			fmt.Sprintf("malformed micro adjustment %q", raw), err)
	}
	return adjust, nil
}

// IsZero reports whether every knob is absent.
func (m MicroAdjust) IsZero() bool {
	return m.Forwardness == nil && m.Space == nil && m.Brightness == nil
}

// ApplyMicroAdjust resolves a preset against user adjustments. Values beyond
// the nominal knob ranges are clamped, and derived weights stay inside
// [0.1, 1.0]. A zero adjustment returns the preset unchanged.
func ApplyMicroAdjust(preset presets.Preset, adjust MicroAdjust) presets.Preset {
	resolved := preset.Clone()

	if adjust.Forwardness != nil {
		forwardness := clamp(*adjust.Forwardness, -15, 15)
		delta := forwardness * 0.01
		resolved.VocalWeight = clamp(preset.VocalWeight+delta, 0.1, 1.0)
		resolved.InstWeight = clamp(preset.InstWeight-delta*0.5, 0.1, 1.0)
	}

	if adjust.Space != nil {
		resolved.ReverbDecay = clamp(*adjust.Space, 0, 0.45)
	}

	if adjust.Brightness != nil {
		brightness := clamp(*adjust.Brightness, -2.5, 2.5)
		applyBrightness(&resolved, brightness)
	}

	return resolved
}

// applyBrightness spreads the brightness delta over the presence band
// (3-4 kHz, weighted 0.8) and the air band (11-13 kHz, weighted 1.0),
// creating the band when the preset lacks one.
func applyBrightness(preset *presets.Preset, brightness float64) {
	if idx := findBand(preset.EQ, 3000, 4000); idx >= 0 {
		preset.EQ[idx].Gain += brightness * 0.8
	} else {
		preset.EQ = append(preset.EQ, presets.EQBand{Freq: 3500, Gain: brightness * 0.8, Q: 1.2})
	}

	if idx := findBand(preset.EQ, 11000, 13000); idx >= 0 {
		preset.EQ[idx].Gain += brightness
	} else {
		preset.EQ = append(preset.EQ, presets.EQBand{Freq: 12000, Gain: brightness, Q: 0.8})
	}
}

func findBand(bands []presets.EQBand, lo, hi float64) int {
	for i, band := range bands {
		if band.Freq >= lo && band.Freq <= hi {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
