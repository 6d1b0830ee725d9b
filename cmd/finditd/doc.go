// Package main provides the entry point for the findit indexing daemon.
//
// findit maintains a filesystem-backed semantic search index over a
// personal video library: it watches a set of folders, pipelines new or
// changed videos through fingerprinting, scene segmentation, vision
// captioning, speech-to-text, and embedding, and serves hybrid
// full-text/vector search over the result.
//
// # Application Lifecycle
//
//  1. Memory configuration: GOMEMLIMIT from the environment or a
//     container memory limit (internal/memory).
//  2. Configuration loading: environment variables, data directory
//     validation (internal/config).
//  3. Engine construction: opens the global database, wires providers,
//     the scheduler, watcher, volume monitor, and search engine
//     (internal/engine).
//  4. Engine start: startup sync sweep over registered folders, then
//     the scheduler, resource monitor, volume monitor, and orphan sweep
//     run in the background.
//  5. Debug/metrics HTTP server: a small mux-routed surface exposing
//     /healthz, /metrics, and the folder/search control API.
//  6. Graceful shutdown on SIGINT/SIGTERM: stop accepting admin
//     requests, cancel background work, close the engine.
//
// # Environment Variables
//
// See internal/config for the full list; the most commonly set are
// DATA_DIR, PROVIDER, LOG_LEVEL, METRICS_ENABLED, and METRICS_PORT.
package main
