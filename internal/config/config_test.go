package config

import (
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("METRICS_ENABLED", "")
	t.Setenv("EMBEDDING_DIMENSIONS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DataDir != dataDir {
		t.Fatalf("data dir = %q, want %q", cfg.DataDir, dataDir)
	}
	if cfg.GlobalDBPath != filepath.Join(dataDir, "global.sqlite") {
		t.Fatalf("global db path = %q", cfg.GlobalDBPath)
	}
	if cfg.EmbeddingDimensions != 512 {
		t.Fatalf("embedding dimensions = %d, want default 512", cfg.EmbeddingDimensions)
	}
	if cfg.Provider != ProviderOffline {
		t.Fatalf("provider = %q, want default %q", cfg.Provider, ProviderOffline)
	}
	if cfg.PerformanceMode != PerformanceBalanced {
		t.Fatalf("performance mode = %q, want default %q", cfg.PerformanceMode, PerformanceBalanced)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("EMBEDDING_DIMENSIONS", "768")
	t.Setenv("PROVIDER", "cloud")
	t.Setenv("SKIP_VISION", "true")
	t.Setenv("ORPHANED_RETENTION_DAYS", "7")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.EmbeddingDimensions != 768 {
		t.Fatalf("embedding dimensions = %d, want 768", cfg.EmbeddingDimensions)
	}
	if cfg.Provider != ProviderCloud {
		t.Fatalf("provider = %q, want cloud", cfg.Provider)
	}
	if !cfg.SkipVision {
		t.Fatal("expected SkipVision = true")
	}
	if cfg.OrphanedRetentionDays != 7 {
		t.Fatalf("orphaned retention days = %d, want 7", cfg.OrphanedRetentionDays)
	}
}

func TestLoadConfigInvalidIntFallsBackToDefault(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("EMBEDDING_DIMENSIONS", "not-a-number")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.EmbeddingDimensions != 512 {
		t.Fatalf("embedding dimensions = %d, want fallback default 512", cfg.EmbeddingDimensions)
	}
}
