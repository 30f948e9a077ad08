package presets

import "strings"

// Category groups presets by the plan tier that unlocks them.
type Category string

const (
	CategoryBasic  Category = "basic"
	CategoryPop    Category = "pop"
	CategoryStudio Category = "studio"
)

// EQBand is one parametric equalizer band.
type EQBand struct {
	Freq float64
	Gain float64
	Q    float64
}

// Preset is a complete vocal processing recipe.
type Preset struct {
	Key         string
	Category    Category
	DisplayName string
	Description string

	// Vocal chain.
	HighpassHz    float64
	LowpassHz     float64 // 0 means no lowpass
	Deesser       float64 // 0-10 strength
	CompThreshold float64 // dB
	CompRatio     float64
	CompAttackMS  float64
	CompReleaseMS float64
	EQ            []EQBand

	// Reverb.
	ReverbDecay float64
	ReverbMix   float64

	// Mix balance.
	VocalWeight float64
	InstWeight  float64
}

// Clone returns a deep copy so callers can adjust bands without touching the
// catalog.
func (p Preset) Clone() Preset {
	out := p
	out.EQ = make([]EQBand, len(p.EQ))
	copy(out.EQ, p.EQ)
	return out
}

// All returns the full catalog in declaration order.
func All() []Preset {
	out := make([]Preset, 0, len(catalog))
	for _, key := range catalogOrder {
		out = append(out, catalog[key].Clone())
	}
	return out
}

// Get looks up a preset by key.
func Get(key string) (Preset, bool) {
	preset, ok := catalog[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return Preset{}, false
	}
	return preset.Clone(), true
}

// ForPlan returns the presets a plan unlocks: lite gets the basic set,
// standard adds pop, creator gets everything. An unknown plan code falls back
// to the lite set so callers always have something usable.
func ForPlan(planCode string) []Preset {
	var categories map[Category]struct{}
	switch strings.ToLower(strings.TrimSpace(planCode)) {
	case "standard":
		categories = map[Category]struct{}{CategoryBasic: {}, CategoryPop: {}}
	case "creator":
		return All()
	default:
		categories = map[Category]struct{}{CategoryBasic: {}}
	}

	var out []Preset
	for _, key := range catalogOrder {
		preset := catalog[key]
		if _, ok := categories[preset.Category]; ok {
			out = append(out, preset.Clone())
		}
	}
	return out
}

// DefaultForPlan returns the preset applied when a job names none.
func DefaultForPlan(planCode string) string {
	switch strings.ToLower(strings.TrimSpace(planCode)) {
	case "standard":
		return "wide_pop"
	case "creator":
		return "studio_shine"
	default:
		return "clean_light"
	}
}

// Allowed reports whether a plan may use the named preset.
func Allowed(planCode, key string) bool {
	for _, preset := range ForPlan(planCode) {
		if preset.Key == key {
			return true
		}
	}
	return false
}
