// Package engine is the public façade over every indexing and search
// component: it is the one type a daemon entry point needs to construct.
//
// # Application Lifecycle
//
// NewEngine follows a structured initialization sequence, adapted from the
// teacher's media-viewer startup:
//
//  1. Configuration is already loaded (internal/config) and passed in.
//  2. The global database is opened (internal/storage), carrying every
//     folder's synced rows, watched_folders, and the search history table.
//  3. Components are constructed: the resource monitor and semaphore
//     (internal/concurrency), the volume resolver and monitor
//     (internal/volume, internal/volumemonitor), the filesystem watcher and
//     its manager (internal/watcher), the indexing scheduler
//     (internal/scheduler), the provider set (internal/providers) selected
//     by Config.Provider, the HNSW vector index manager (internal/hnsw),
//     and the query search engine (internal/query).
//  4. Start runs the startup sync sweep — one force=false sync per
//     registered, available folder — before the watcher and scheduler
//     begin accepting filesystem events, so a daemon restart never races a
//     stale view of a folder's clips against a fresh watch.
//
// # Background Services
//
//   - The indexing scheduler's driver loop (one full-folder scans always
//     ahead of per-video increments).
//   - The filesystem watcher's debounce/batch loop, one goroutine per
//     watched folder root.
//   - The volume monitor's poll loop, detecting mount/unmount transitions.
//   - The resource monitor's sample loop, retuning the semaphore's permit
//     count under thermal/power/memory pressure.
//   - The orphaned-retention sweep, run once at startup and every 24h.
//
// # Graceful Shutdown
//
// Shutdown runs a fixed sequence and records its total duration:
//
//  1. Mark the engine closed (a final state), so AddFolder, RemoveFolder
//     and Search return ErrClosed; QueueFolder and QueueVideos do not check it.
//  2. Cancel the indexing scheduler's driver loop.
//  3. Stop the volume monitor and resource monitor poll loops.
//  4. Stop the filesystem watcher and its manager's drain goroutines.
//  5. Release every semaphore waiter so in-flight Acquire calls unblock.
//  6. Flush the HNSW manager's cached indexes (already durable mmap views;
//     this just closes the handles cleanly).
//  7. Close the global database and every open per-folder database.
package engine
