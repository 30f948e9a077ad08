package presets

var catalogOrder = []string{
	"clean_light", "soft_room", "vocal_lift_lite",
	"wide_pop", "warm_ballad", "rap_tight", "idol_bright",
	"studio_shine", "airy_sparkle", "live_stage", "vintage_warm", "night_chill",
}

var catalog = map[string]Preset{
	"clean_light": {
		Key:         "clean_light",
		Category:    CategoryBasic,
		DisplayName: "Clean Light",
		Description: "Clear, light sound. A good starting point.",

		HighpassHz:    85,
		Deesser:       4,
		CompThreshold: -20,
		CompRatio:     2.0,
		CompAttackMS:  15,
		CompReleaseMS: 120,
		EQ: []EQBand{
			{Freq: 3500, Gain: 1.5, Q: 1.2},
			{Freq: 12000, Gain: 1.0, Q: 0.8},
		},
		ReverbDecay: 0.15,
		ReverbMix:   0.08,
		VocalWeight: 0.65,
		InstWeight:  0.55,
	},
	"soft_room": {
		Key:         "soft_room",
		Category:    CategoryBasic,
		DisplayName: "Soft Room",
		Description: "Warm room ambience.",

		HighpassHz:    90,
		Deesser:       3,
		CompThreshold: -18,
		CompRatio:     1.8,
		CompAttackMS:  20,
		CompReleaseMS: 150,
		EQ: []EQBand{
			{Freq: 800, Gain: -0.5, Q: 1.0},
			{Freq: 2800, Gain: 1.0, Q: 1.5},
			{Freq: 8000, Gain: -0.5, Q: 0.9},
		},
		ReverbDecay: 0.25,
		ReverbMix:   0.12,
		VocalWeight: 0.60,
		InstWeight:  0.58,
	},
	"vocal_lift_lite": {
		Key:         "vocal_lift_lite",
		Category:    CategoryBasic,
		DisplayName: "Vocal Lift Lite",
		Description: "Light treatment that pushes the vocal forward.",

		HighpassHz:    95,
		Deesser:       5,
		CompThreshold: -16,
		CompRatio:     2.2,
		CompAttackMS:  12,
		CompReleaseMS: 100,
		EQ: []EQBand{
			{Freq: 1200, Gain: -1.0, Q: 2.0},
			{Freq: 4200, Gain: 2.0, Q: 1.3},
			{Freq: 10000, Gain: 1.5, Q: 1.0},
		},
		ReverbDecay: 0.10,
		ReverbMix:   0.05,
		VocalWeight: 0.75,
		InstWeight:  0.45,
	},
	"wide_pop": {
		Key:         "wide_pop",
		Category:    CategoryPop,
		DisplayName: "Wide Pop",
		Description: "Wide, modern pop sound.",

		HighpassHz:    80,
		Deesser:       6,
		CompThreshold: -14,
		CompRatio:     2.5,
		CompAttackMS:  10,
		CompReleaseMS: 80,
		EQ: []EQBand{
			{Freq: 250, Gain: -1.5, Q: 1.8},
			{Freq: 3200, Gain: 1.8, Q: 1.0},
			{Freq: 6500, Gain: 1.2, Q: 0.9},
			{Freq: 13000, Gain: 2.0, Q: 0.7},
		},
		ReverbDecay: 0.30,
		ReverbMix:   0.15,
		VocalWeight: 0.70,
		InstWeight:  0.50,
	},
	"warm_ballad": {
		Key:         "warm_ballad",
		Category:    CategoryPop,
		DisplayName: "Warm Ballad",
		Description: "Warm treatment suited to ballads.",

		HighpassHz:    75,
		Deesser:       3,
		CompThreshold: -18,
		CompRatio:     1.6,
		CompAttackMS:  25,
		CompReleaseMS: 200,
		EQ: []EQBand{
			{Freq: 600, Gain: 0.5, Q: 1.2},
			{Freq: 2000, Gain: 1.5, Q: 1.5},
			{Freq: 5000, Gain: 0.8, Q: 1.1},
			{Freq: 9000, Gain: -0.8, Q: 0.8},
		},
		ReverbDecay: 0.40,
		ReverbMix:   0.18,
		VocalWeight: 0.68,
		InstWeight:  0.52,
	},
	"rap_tight": {
		Key:         "rap_tight",
		Category:    CategoryPop,
		DisplayName: "Rap Tight",
		Description: "Tight, dry sound for rap and hip-hop.",

		HighpassHz:    100,
		Deesser:       7,
		CompThreshold: -12,
		CompRatio:     3.0,
		CompAttackMS:  5,
		CompReleaseMS: 50,
		EQ: []EQBand{
			{Freq: 150, Gain: -2.0, Q: 2.0},
			{Freq: 1800, Gain: 2.5, Q: 2.5},
			{Freq: 4500, Gain: 1.8, Q: 1.4},
			{Freq: 8000, Gain: 2.2, Q: 1.0},
		},
		ReverbDecay: 0.05,
		ReverbMix:   0.02,
		VocalWeight: 0.80,
		InstWeight:  0.40,
	},
	"idol_bright": {
		Key:         "idol_bright",
		Category:    CategoryPop,
		DisplayName: "Idol Bright",
		Description: "Bright, sparkling sound for idol tracks.",

		HighpassHz:    85,
		Deesser:       4,
		CompThreshold: -15,
		CompRatio:     2.3,
		CompAttackMS:  8,
		CompReleaseMS: 70,
		EQ: []EQBand{
			{Freq: 400, Gain: -1.0, Q: 1.5},
			{Freq: 2800, Gain: 2.2, Q: 1.2},
			{Freq: 5500, Gain: 2.8, Q: 1.0},
			{Freq: 12000, Gain: 3.0, Q: 0.8},
			{Freq: 16000, Gain: 1.5, Q: 0.6},
		},
		ReverbDecay: 0.20,
		ReverbMix:   0.12,
		VocalWeight: 0.72,
		InstWeight:  0.48,
	},
	"studio_shine": {
		Key:         "studio_shine",
		Category:    CategoryStudio,
		DisplayName: "Studio Shine",
		Description: "Polished studio-grade shine.",

		HighpassHz:    70,
		LowpassHz:     18000,
		Deesser:       5,
		CompThreshold: -16,
		CompRatio:     2.8,
		CompAttackMS:  7,
		CompReleaseMS: 90,
		EQ: []EQBand{
			{Freq: 120, Gain: -1.8, Q: 2.2},
			{Freq: 800, Gain: -0.8, Q: 3.0},
			{Freq: 3800, Gain: 1.5, Q: 1.8},
			{Freq: 7500, Gain: 2.0, Q: 1.2},
			{Freq: 11500, Gain: 1.8, Q: 0.9},
			{Freq: 15000, Gain: 1.0, Q: 0.7},
		},
		ReverbDecay: 0.22,
		ReverbMix:   0.10,
		VocalWeight: 0.74,
		InstWeight:  0.46,
	},
	"airy_sparkle": {
		Key:         "airy_sparkle",
		Category:    CategoryStudio,
		DisplayName: "Airy Sparkle",
		Description: "Emphasizes air and sparkle.",

		HighpassHz:    65,
		Deesser:       4,
		CompThreshold: -17,
		CompRatio:     2.1,
		CompAttackMS:  12,
		CompReleaseMS: 110,
		EQ: []EQBand{
			{Freq: 200, Gain: -1.2, Q: 1.8},
			{Freq: 1500, Gain: 0.8, Q: 1.5},
			{Freq: 6000, Gain: 1.8, Q: 1.0},
			{Freq: 10000, Gain: 2.5, Q: 0.8},
			{Freq: 14000, Gain: 2.0, Q: 0.6},
			{Freq: 18000, Gain: 1.0, Q: 0.5},
		},
		ReverbDecay: 0.35,
		ReverbMix:   0.14,
		VocalWeight: 0.69,
		InstWeight:  0.51,
	},
	"live_stage": {
		Key:         "live_stage",
		Category:    CategoryStudio,
		DisplayName: "Live Stage",
		Description: "Live stage presence with a long tail.",

		HighpassHz:    90,
		Deesser:       6,
		CompThreshold: -14,
		CompRatio:     2.6,
		CompAttackMS:  15,
		CompReleaseMS: 130,
		EQ: []EQBand{
			{Freq: 300, Gain: 0.5, Q: 1.0},
			{Freq: 1200, Gain: -0.5, Q: 2.0},
			{Freq: 3000, Gain: 2.2, Q: 1.5},
			{Freq: 6000, Gain: 1.5, Q: 1.2},
			{Freq: 9000, Gain: 1.0, Q: 1.0},
		},
		ReverbDecay: 0.50,
		ReverbMix:   0.20,
		VocalWeight: 0.76,
		InstWeight:  0.44,
	},
	"vintage_warm": {
		Key:         "vintage_warm",
		Category:    CategoryStudio,
		DisplayName: "Vintage Warm",
		Description: "Vintage-gear warmth with tamed highs.",

		HighpassHz:    95,
		LowpassHz:     15000,
		Deesser:       3,
		CompThreshold: -20,
		CompRatio:     1.8,
		CompAttackMS:  30,
		CompReleaseMS: 180,
		EQ: []EQBand{
			{Freq: 100, Gain: 1.0, Q: 0.8},
			{Freq: 500, Gain: 1.2, Q: 1.2},
			{Freq: 1800, Gain: 1.5, Q: 1.8},
			{Freq: 4000, Gain: 0.5, Q: 1.5},
			{Freq: 8000, Gain: -1.0, Q: 1.0},
		},
		ReverbDecay: 0.45,
		ReverbMix:   0.16,
		VocalWeight: 0.66,
		InstWeight:  0.54,
	},
	"night_chill": {
		Key:         "night_chill",
		Category:    CategoryStudio,
		DisplayName: "Night Chill",
		Description: "Calm late-night chill sound.",

		HighpassHz:    80,
		Deesser:       2,
		CompThreshold: -22,
		CompRatio:     1.5,
		CompAttackMS:  40,
		CompReleaseMS: 250,
		EQ: []EQBand{
			{Freq: 150, Gain: 0.8, Q: 1.0},
			{Freq: 800, Gain: -0.5, Q: 1.5},
			{Freq: 2500, Gain: 0.8, Q: 2.0},
			{Freq: 6000, Gain: -1.5, Q: 1.2},
			{Freq: 12000, Gain: -2.0, Q: 0.8},
		},
		ReverbDecay: 0.60,
		ReverbMix:   0.22,
		VocalWeight: 0.62,
		InstWeight:  0.58,
	},
}
