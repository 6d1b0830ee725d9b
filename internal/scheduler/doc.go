// Package scheduler runs the single indexing driver loop: two queues
// (pending folders, pending videos) feeding process_folder/
// process_specific_videos, with per-video concurrency bounded by the
// resource monitor's current recommendation.
//
// It is grounded on djryanj-media-viewer's internal/indexer/parallel.go
// (ParallelWalker: channel/worker-pool fan-out, atomic progress counters,
// context-driven cancellation) generalized from a flat directory walk into
// the folder-queue-over-video-queue priority driver, with
// golang.org/x/sync/errgroup replacing the teacher's hand-rolled
// channel/WaitGroup pair for the per-folder task group and
// internal/concurrency.AsyncSemaphore (not errgroup.SetLimit) providing the
// actual dynamic bound, since only the semaphore supports being resized
// mid-flight by the resource monitor's callback.
package scheduler
