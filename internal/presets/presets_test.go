package presets_test

import (
	"testing"

	"mixdown/internal/presets"
)

func TestForPlanGating(t *testing.T) {
	cases := []struct {
		plan string
		want int
	}{
		{"lite", 3},
		{"standard", 7},
		{"creator", 12},
		{"", 3},
		{"enterprise", 3},
		{"LITE", 3},
	}
	for _, tc := range cases {
		got := presets.ForPlan(tc.plan)
		if len(got) != tc.want {
			t.Errorf("ForPlan(%q) = %d presets, want %d", tc.plan, len(got), tc.want)
		}
	}
}

func TestForPlanStandardExcludesStudio(t *testing.T) {
	for _, preset := range presets.ForPlan("standard") {
		if preset.Category == presets.CategoryStudio {
			t.Fatalf("standard plan exposed studio preset %s", preset.Key)
		}
	}
}

func TestDefaultForPlan(t *testing.T) {
	cases := map[string]string{
		"lite":     "clean_light",
		"standard": "wide_pop",
		"creator":  "studio_shine",
		"bogus":    "clean_light",
	}
	for plan, want := range cases {
		if got := presets.DefaultForPlan(plan); got != want {
			t.Errorf("DefaultForPlan(%q) = %q, want %q", plan, got, want)
		}
	}
	for plan, want := range cases {
		if !presets.Allowed(plan, want) {
			t.Errorf("default preset %q not allowed for plan %q", want, plan)
		}
	}
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	first, ok := presets.Get("clean_light")
	if !ok {
		t.Fatal("clean_light missing")
	}
	first.EQ[0].Gain = 99

	second, _ := presets.Get("clean_light")
	if second.EQ[0].Gain == 99 {
		t.Fatal("catalog mutated through returned preset")
	}
}

func TestCatalogShape(t *testing.T) {
	all := presets.All()
	if len(all) != 12 {
		t.Fatalf("catalog size = %d, want 12", len(all))
	}
	for _, preset := range all {
		if preset.HighpassHz <= 0 {
			t.Errorf("%s: highpass must be positive", preset.Key)
		}
		if preset.CompRatio < 1 {
			t.Errorf("%s: compressor ratio below 1", preset.Key)
		}
		if preset.VocalWeight <= 0 || preset.InstWeight <= 0 {
			t.Errorf("%s: weights must be positive", preset.Key)
		}
		if len(preset.EQ) == 0 {
			t.Errorf("%s: no EQ bands", preset.Key)
		}
	}

	shine, _ := presets.Get("studio_shine")
	if shine.LowpassHz != 18000 {
		t.Fatalf("studio_shine lowpass = %v, want 18000", shine.LowpassHz)
	}
	if len(shine.EQ) != 6 {
		t.Fatalf("studio_shine bands = %d, want 6", len(shine.EQ))
	}
}

func TestAllowedRejectsGatedPreset(t *testing.T) {
	if presets.Allowed("lite", "studio_shine") {
		t.Fatal("lite plan should not unlock studio_shine")
	}
	if !presets.Allowed("creator", "night_chill") {
		t.Fatal("creator plan should unlock night_chill")
	}
}
