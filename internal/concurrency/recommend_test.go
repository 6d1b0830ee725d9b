package concurrency

import "testing"

func TestRecommendBaseByMode(t *testing.T) {
	cases := []struct {
		mode Mode
		want int
	}{
		{ModeFullSpeed, 6},  // 8 - 2
		{ModeBalanced, 4},   // 8 / 2
		{ModeBackground, 2}, // 8 / 4
	}
	for _, c := range cases {
		got := Recommend(c.mode, Reading{Thermal: ThermalNominal, AvailableMemoryMB: -1, ProcessorCount: 8})
		if got != c.want {
			t.Errorf("Recommend(%s, 8 cores nominal) = %d, want %d", c.mode, got, c.want)
		}
	}
}

func TestRecommendThermalAdjustments(t *testing.T) {
	base := Reading{AvailableMemoryMB: -1, ProcessorCount: 8}

	fair := base
	fair.Thermal = ThermalFair
	if got := Recommend(ModeFullSpeed, fair); got != 4 { // 6 * 3/4 = 4 (integer division)
		t.Errorf("fair: got %d, want 4", got)
	}

	serious := base
	serious.Thermal = ThermalSerious
	if got := Recommend(ModeFullSpeed, serious); got != 3 { // 6 / 2
		t.Errorf("serious: got %d, want 3", got)
	}

	critical := base
	critical.Thermal = ThermalCritical
	if got := Recommend(ModeFullSpeed, critical); got != 1 {
		t.Errorf("critical: got %d, want 1", got)
	}
}

func TestRecommendMemoryAdjustments(t *testing.T) {
	base := Reading{Thermal: ThermalNominal, ProcessorCount: 8}

	low := base
	low.AvailableMemoryMB = 800
	if got := Recommend(ModeFullSpeed, low); got != 3 { // 6 / 2
		t.Errorf("<1024MB: got %d, want 3", got)
	}

	critical := base
	critical.AvailableMemoryMB = 256
	if got := Recommend(ModeFullSpeed, critical); got != 1 {
		t.Errorf("<512MB: got %d, want 1", got)
	}
}

func TestRecommendLowPowerCoercesToBackground(t *testing.T) {
	r := Reading{Thermal: ThermalNominal, AvailableMemoryMB: -1, ProcessorCount: 8, LowPowerMode: true}
	got := Recommend(ModeFullSpeed, r)
	want := Recommend(ModeBackground, Reading{Thermal: ThermalNominal, AvailableMemoryMB: -1, ProcessorCount: 8})
	if got != want {
		t.Errorf("low power mode: got %d, want %d (background mode result)", got, want)
	}
}

func TestRecommendNeverGoesBelowOne(t *testing.T) {
	r := Reading{Thermal: ThermalCritical, AvailableMemoryMB: 100, ProcessorCount: 1}
	if got := Recommend(ModeBackground, r); got != 1 {
		t.Errorf("expected clamp to 1, got %d", got)
	}
}
