// Package config loads the findit daemon's environment-variable-driven
// configuration, following the teacher's internal/startup.LoadConfig
// structure: banner, system info log, directory validation, derived paths,
// typed Config struct.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/findit-engine/findit/internal/logging"
)

// Provider selects which concrete implementation backs each pipeline
// provider interface.
type Provider string

const (
	ProviderCloud   Provider = "cloud"
	ProviderOffline Provider = "offline"
)

// PerformanceMode trades indexing throughput against foreground
// responsiveness; consumed by internal/concurrency's ResourceMonitor.
type PerformanceMode string

const (
	PerformanceFullSpeed  PerformanceMode = "full_speed"
	PerformanceBalanced   PerformanceMode = "balanced"
	PerformanceBackground PerformanceMode = "background"
)

// Config holds every environment-driven setting the engine needs, split
// into ambient (logging/metrics/paths) and domain (provider/indexing)
// concerns.
type Config struct {
	DataDir        string
	LogLevel       string
	MetricsEnabled bool
	MetricsPort    string

	// Derived paths, under DataDir.
	GlobalDBPath  string
	ClipIndexPath string
	TextIndexPath string

	Provider                  Provider
	CloudAPIKey               string
	VisionModel               string
	VisionEndpoint            string
	EmbeddingModel            string
	EmbeddingEndpoint         string
	EmbeddingDimensions       int
	CLIPModel                 string
	CLIPEndpoint              string
	CLIPDimensions            int
	STTEndpoint               string
	VisionMaxImagesPerRequest int
	VisionTimeout             time.Duration
	VisionMaxRetries          int
	RateLimitRPM              int
	PerformanceMode           PerformanceMode
	SkipSTT                   bool
	SkipVision                bool
	SkipEmbedding             bool
	OrphanedRetentionDays     int
}

// LoadConfig reads the environment, validates/creates DataDir, and
// returns a fully-resolved Config. It follows the teacher's startup
// ritual (banner, system info, directory setup) so operators see the
// same kind of startup log a media-viewer deployment would.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	dataDir := getEnv("DATA_DIR", "/data")
	metricsPort := getEnv("METRICS_PORT", "9090")
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)

	dataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", dataDir, err)
	}

	cfg := &Config{
		DataDir:        dataDir,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		MetricsEnabled: metricsEnabled,
		MetricsPort:    metricsPort,

		GlobalDBPath:  filepath.Join(dataDir, "global.sqlite"),
		ClipIndexPath: filepath.Join(dataDir, "clip.usearch"),
		TextIndexPath: filepath.Join(dataDir, "text.usearch"),

		Provider:                  Provider(getEnv("PROVIDER", string(ProviderOffline))),
		CloudAPIKey:               getEnv("CLOUD_API_KEY", ""),
		VisionModel:               getEnv("VISION_MODEL", ""),
		VisionEndpoint:            getEnv("VISION_ENDPOINT", ""),
		EmbeddingModel:            getEnv("EMBEDDING_MODEL", ""),
		EmbeddingEndpoint:         getEnv("EMBEDDING_ENDPOINT", ""),
		EmbeddingDimensions:       getEnvInt("EMBEDDING_DIMENSIONS", 512),
		CLIPModel:                 getEnv("CLIP_MODEL", ""),
		CLIPEndpoint:              getEnv("CLIP_ENDPOINT", ""),
		CLIPDimensions:            getEnvInt("CLIP_DIMENSIONS", 512),
		STTEndpoint:               getEnv("STT_ENDPOINT", ""),
		VisionMaxImagesPerRequest: getEnvInt("VISION_MAX_IMAGES_PER_REQUEST", 4),
		VisionTimeout:             time.Duration(getEnvInt("VISION_TIMEOUT_S", 120)) * time.Second,
		VisionMaxRetries:          getEnvInt("VISION_MAX_RETRIES", 3),
		RateLimitRPM:              getEnvInt("RATE_LIMIT_RPM", 60),
		PerformanceMode:           PerformanceMode(getEnv("PERFORMANCE_MODE", string(PerformanceBalanced))),
		SkipSTT:                   getEnvBool("SKIP_STT", false),
		SkipVision:                getEnvBool("SKIP_VISION", false),
		SkipEmbedding:             getEnvBool("SKIP_EMBEDDING", false),
		OrphanedRetentionDays:     getEnvInt("ORPHANED_RETENTION_DAYS", 30),
	}

	logging.Info("  DATA_DIR:                      %s", cfg.DataDir)
	logging.Info("  METRICS_ENABLED:               %v", cfg.MetricsEnabled)
	logging.Info("  METRICS_PORT:                  %s", cfg.MetricsPort)
	logging.Info("  LOG_LEVEL:                     %s", cfg.LogLevel)
	logging.Info("  PROVIDER:                      %s", cfg.Provider)
	logging.Info("  EMBEDDING_MODEL:               %s", cfg.EmbeddingModel)
	logging.Info("  EMBEDDING_DIMENSIONS:          %d", cfg.EmbeddingDimensions)
	logging.Info("  VISION_MODEL:                  %s", cfg.VisionModel)
	logging.Info("  PERFORMANCE_MODE:              %s", cfg.PerformanceMode)
	logging.Info("  SKIP_STT / SKIP_VISION / SKIP_EMBEDDING: %v / %v / %v", cfg.SkipSTT, cfg.SkipVision, cfg.SkipEmbedding)
	logging.Info("  ORPHANED_RETENTION_DAYS:       %d", cfg.OrphanedRetentionDays)

	if err := testWriteAccess(dataDir); err != nil {
		return nil, fmt.Errorf("data directory is not writable: %w", err)
	}
	logging.Info("  [OK] Data directory is writable")

	return cfg, nil
}

func printBanner() {
	banner := `
------------------------------------------------------------
  findit — local semantic video search engine
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Started: %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("")
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
