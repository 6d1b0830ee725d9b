// Package memory configures Go's runtime soft memory limit (GOMEMLIMIT) for
// the findit daemon when it runs under a container memory limit.
//
// Unlike GOMAXPROCS, which Go derives from cgroup CPU quotas automatically,
// GOMEMLIMIT has no such auto-detection: ConfigureFromEnv reads a container
// memory limit passed via MEMORY_LIMIT (typically the Kubernetes Downward
// API) and sets GOMEMLIMIT to a configurable fraction of it (MEMORY_RATIO,
// default 0.85), leaving headroom for the ffmpeg subprocesses C7's
// segmenter shells out to, CGO allocations, and mmap'd HNSW index views —
// none of which count against the Go heap GOMEMLIMIT governs.
//
// Call ConfigureFromEnv once, early in cmd/finditd's main, before any
// significant allocation. If GOMEMLIMIT is already set directly it takes
// precedence and MEMORY_LIMIT/MEMORY_RATIO are ignored.
//
// This is a distinct concern from internal/concurrency's ResourceMonitor:
// GOMEMLIMIT shapes the Go garbage collector's own behavior, while the
// resource monitor throttles how many pipeline stages run concurrently.
// Wiring a second, independent "pause workers under memory pressure" path
// here would just race the resource monitor's own memory-aware concurrency
// recommendation (§4.6) for the same signal.
package memory
