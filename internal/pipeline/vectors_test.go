package pipeline

import "testing"

func TestComposeClipTextJoinsNonEmptyFields(t *testing.T) {
	text := composeClipText("a beach", "", `["person","dog"]`, "", "", "", `["summer"]`)
	expected := "a beach person dog summer"
	if text != expected {
		t.Fatalf("expected %q, got %q", expected, text)
	}
}

func TestComposeClipTextEmptyWhenAllFieldsEmpty(t *testing.T) {
	if text := composeClipText("", "", "", "", "", "", ""); text != "" {
		t.Fatalf("expected empty string, got %q", text)
	}
}

func TestEncodeVectorRoundTripsDimensions(t *testing.T) {
	v := []float32{1.5, -2.25, 0, 100.125}
	encoded := encodeVector(v)
	if len(encoded) != 4*len(v) {
		t.Fatalf("expected %d bytes, got %d", 4*len(v), len(encoded))
	}
}
