package memory

import (
	"os"
	"testing"
)

func clearMemoryEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GOMEMLIMIT", "MEMORY_LIMIT", "MEMORY_RATIO"} {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestConfigureFromEnvNoneSet(t *testing.T) {
	clearMemoryEnv(t)

	result := ConfigureFromEnv()
	if result.Configured {
		t.Fatalf("expected Configured=false with no env set, got %+v", result)
	}
	if result.Source != "none" {
		t.Errorf("expected Source=none, got %q", result.Source)
	}
}

func TestConfigureFromEnvMemoryLimit(t *testing.T) {
	clearMemoryEnv(t)
	os.Setenv("MEMORY_LIMIT", "1073741824") // 1 GiB

	result := ConfigureFromEnv()
	if !result.Configured {
		t.Fatalf("expected Configured=true, got %+v", result)
	}
	if result.Source != "MEMORY_LIMIT" {
		t.Errorf("expected Source=MEMORY_LIMIT, got %q", result.Source)
	}
	if result.Ratio != DefaultMemoryRatio {
		t.Errorf("expected default ratio %.2f, got %.2f", DefaultMemoryRatio, result.Ratio)
	}
	ratio := DefaultMemoryRatio
	wantLimit := int64(float64(1073741824) * ratio)
	if result.GoMemLimit != wantLimit {
		t.Errorf("expected GoMemLimit=%d, got %d", wantLimit, result.GoMemLimit)
	}
}

func TestConfigureFromEnvCustomRatio(t *testing.T) {
	clearMemoryEnv(t)
	os.Setenv("MEMORY_LIMIT", "1000000000")
	os.Setenv("MEMORY_RATIO", "0.5")

	result := ConfigureFromEnv()
	if result.Ratio != 0.5 {
		t.Errorf("expected ratio 0.5, got %f", result.Ratio)
	}
}

func TestConfigureFromEnvInvalidRatioFallsBackToDefault(t *testing.T) {
	clearMemoryEnv(t)
	os.Setenv("MEMORY_LIMIT", "1000000000")
	os.Setenv("MEMORY_RATIO", "1.5") // out of range

	result := ConfigureFromEnv()
	if result.Ratio != DefaultMemoryRatio {
		t.Errorf("expected fallback to default ratio %.2f, got %f", DefaultMemoryRatio, result.Ratio)
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{1536, "1.5 KiB"},
		{1073741824, "1.0 GiB"},
	}
	for _, c := range cases {
		if got := formatBytes(c.in); got != c.want {
			t.Errorf("formatBytes(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}
