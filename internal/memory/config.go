package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"github.com/findit-engine/findit/internal/logging"
)

// DefaultMemoryRatio is the fraction of the container memory limit handed
// to the Go heap when MEMORY_RATIO isn't set. The rest stays headroom for
// the ffmpeg subprocesses C7's segmenter shells out to, CGO allocations,
// and mmap'd HNSW index views.
const DefaultMemoryRatio = 0.85

const (
	sourceExplicit = "GOMEMLIMIT"
	sourceDerived  = "MEMORY_LIMIT"
	sourceNone     = "none"
)

// ConfigResult reports what ConfigureFromEnv decided, so cmd/finditd can
// log it in the startup configuration banner alongside the rest of cfg.
type ConfigResult struct {
	Configured     bool
	Source         string // one of sourceExplicit, sourceDerived, sourceNone
	ContainerLimit int64  // bytes; 0 unless derived from MEMORY_LIMIT
	GoMemLimit     int64  // bytes; 0 if nothing was configured
	Ratio          float64
}

// ConfigureFromEnv sets the Go runtime's soft memory limit from the
// container's memory limit. Call it once, early in main, before any
// significant allocation.
//
// GOMEMLIMIT, if already set, wins outright — MEMORY_LIMIT and
// MEMORY_RATIO are only consulted when it isn't. Otherwise MEMORY_LIMIT
// (bytes, typically sourced from the Kubernetes Downward API) times
// MEMORY_RATIO (default DefaultMemoryRatio) becomes GOMEMLIMIT.
func ConfigureFromEnv() ConfigResult {
	if raw := os.Getenv("GOMEMLIMIT"); raw != "" {
		return configureFromExplicitLimit(raw)
	}

	raw := os.Getenv("MEMORY_LIMIT")
	if raw == "" {
		logging.Debug("MEMORY_LIMIT not set; GOMEMLIMIT left at the Go default")
		return ConfigResult{Source: sourceNone}
	}

	containerLimit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		logging.Warn("MEMORY_LIMIT %q is not an integer byte count: %v", raw, err)
		return ConfigResult{Source: sourceNone}
	}

	ratio := memoryRatioFromEnv()
	goLimit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(goLimit)

	logging.Info("GOMEMLIMIT set to %s (%.1f%% of %s container limit)",
		formatBytes(goLimit), ratio*100, formatBytes(containerLimit))

	return ConfigResult{
		Configured:     true,
		Source:         sourceDerived,
		ContainerLimit: containerLimit,
		GoMemLimit:     goLimit,
		Ratio:          ratio,
	}
}

// configureFromExplicitLimit handles the case where the operator set
// GOMEMLIMIT directly; findit defers to it and only reports the value
// already in effect, querying rather than re-setting it.
func configureFromExplicitLimit(raw string) ConfigResult {
	logging.Info("GOMEMLIMIT set via environment: %s", raw)

	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 || limit >= math.MaxInt64 {
		return ConfigResult{Source: sourceExplicit}
	}
	return ConfigResult{Configured: true, Source: sourceExplicit, GoMemLimit: limit}
}

// memoryRatioFromEnv returns MEMORY_RATIO if it parses and falls in
// (0, 1], otherwise DefaultMemoryRatio.
func memoryRatioFromEnv() float64 {
	raw := os.Getenv("MEMORY_RATIO")
	if raw == "" {
		return DefaultMemoryRatio
	}

	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logging.Warn("MEMORY_RATIO %q does not parse as a float: %v, using default %.2f", raw, err, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	if parsed <= 0 || parsed > 1.0 {
		logging.Warn("MEMORY_RATIO %q outside (0.0, 1.0], using default %.2f", raw, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return parsed
}

// formatBytes renders a byte count using binary (1024-based) units, for
// log lines that should read like "1.5 GiB" rather than a raw integer.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}

	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
