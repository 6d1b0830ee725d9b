// Package metrics provides Prometheus instrumentation for the findit
// indexing and retrieval engine.
//
// All metrics are prefixed with "findit_" to avoid naming collisions with
// other applications. They are grouped by the component that owns them:
// storage (C1), volume/rebase (C2), sync (C3), watcher (C4), volume monitor
// (C5), concurrency (C6), pipeline (C7), scheduler (C8), providers (C9),
// vector store (C10), HNSW index (C11), and query engine (C12).
//
// Metrics are registered with the default Prometheus registry using
// promauto; [InitializeMetrics] pre-populates expected label combinations
// so every metric is exported from the first scrape. [Collector] gathers
// periodic gauges (Go runtime memory, database file sizes, library
// statistics) that aren't naturally emitted at the point of an operation.
package metrics
