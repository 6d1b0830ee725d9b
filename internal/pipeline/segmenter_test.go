package pipeline

import "testing"

func TestFixedGridCoversFullDuration(t *testing.T) {
	bounds := fixedGrid(95, 30)
	want := []float64{0, 30, 60, 90, 95}
	if len(bounds) != len(want) {
		t.Fatalf("expected %d boundaries, got %v", len(want), bounds)
	}
	for i, b := range want {
		if bounds[i] != b {
			t.Fatalf("boundary %d: expected %v, got %v", i, b, bounds[i])
		}
	}
}

func TestFixedGridDefaultsOnNonPositiveStep(t *testing.T) {
	bounds := fixedGrid(10, 0)
	if len(bounds) < 2 {
		t.Fatalf("expected at least a start and end boundary, got %v", bounds)
	}
}
