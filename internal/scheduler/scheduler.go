package scheduler

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/findit-engine/findit/internal/concurrency"
	"github.com/findit-engine/findit/internal/logging"
	"github.com/findit-engine/findit/internal/metrics"
	"github.com/findit-engine/findit/internal/pipeline"
)

// FolderProgress is the running completed/failed/sttSkipped tally for one
// folder's in-flight or most recent scan.
type FolderProgress struct {
	Completed  int
	Failed     int
	STTSkipped int
}

// Callbacks are the scheduler's dependencies on the rest of the engine,
// passed as plain functions so this package has no compile-time dependency
// on storage/watcher/sync.
type Callbacks struct {
	// ScanFolder lists every video path under a folder, excluding paths
	// that belong to a more specifically registered nested folder.
	ScanFolder func(folderPath string) ([]string, error)
	// ProcessVideo runs the indexing pipeline for one video.
	ProcessVideo func(ctx context.Context, folderPath, videoPath string) (pipeline.ProcessResult, error)
	// SyncFolder runs one consolidated sync after a folder scan finishes.
	SyncFolder func(ctx context.Context, folderPath string) error
	// ReindexFinished tells the watcher manager to replay events it
	// deferred while this folder was being (re)indexed.
	ReindexFinished func(folderPath string)
}

// Scheduler runs the single driver loop described by the indexing
// scheduler: folder scans take priority over per-video increments, and
// both are dispatched through a task group bounded by sem.
type Scheduler struct {
	callbacks Callbacks
	sem       *concurrency.AsyncSemaphore
	activity  BackgroundActivityAcquirer

	mu             sync.Mutex
	cond           *sync.Cond
	pendingFolders []string
	pendingVideos  map[string][]string
	reindexing     map[string]bool
	progress       map[string]FolderProgress
	stopped        bool
	running        bool

	activeToken BackgroundActivityToken
}

// New creates a Scheduler. sem bounds per-video concurrency across every
// folder/video task group; the caller is expected to retune it from a
// ResourceMonitor's onChange callback.
func New(callbacks Callbacks, sem *concurrency.AsyncSemaphore, activity BackgroundActivityAcquirer) *Scheduler {
	if activity == nil {
		activity = DefaultBackgroundActivityAcquirer
	}
	s := &Scheduler{
		callbacks:     callbacks,
		sem:           sem,
		activity:      activity,
		pendingVideos: make(map[string][]string),
		reindexing:    make(map[string]bool),
		progress:      make(map[string]FolderProgress),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// EnqueueFolder queues a full folder scan. Folder scans are always taken
// before per-video work, matching the priority rule in the driver loop.
func (s *Scheduler) EnqueueFolder(folderPath string) {
	s.mu.Lock()
	s.pendingFolders = append(s.pendingFolders, folderPath)
	s.mu.Unlock()
	metrics.SchedulerPendingFolders.Inc()
	s.cond.Broadcast()
}

// EnqueueVideos queues specific videos within a folder for reprocessing
// (e.g. from a watcher batch) without a full directory scan.
func (s *Scheduler) EnqueueVideos(folderPath string, videoPaths []string) {
	if len(videoPaths) == 0 {
		return
	}
	s.mu.Lock()
	s.pendingVideos[folderPath] = append(s.pendingVideos[folderPath], videoPaths...)
	s.mu.Unlock()
	metrics.SchedulerPendingVideos.Add(float64(len(videoPaths)))
	s.cond.Broadcast()
}

// IsReindexing reports whether folderPath currently has an indexing pass in
// flight. Wired into watcher.Callbacks.IsReindexing so the watcher defers
// filesystem events rather than racing the scheduler.
func (s *Scheduler) IsReindexing(folderPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reindexing[folderPath]
}

// Progress returns the current folder_progress counters for folderPath.
func (s *Scheduler) Progress(folderPath string) FolderProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress[folderPath]
}

// Run executes the driver loop until ctx is cancelled or CancelIndexing is
// called. It blocks; callers typically run it in its own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.running = true
	s.stopped = false
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		s.cond.Broadcast()
	}()

	for {
		s.mu.Lock()
		for len(s.pendingFolders) == 0 && len(s.pendingVideos) == 0 && !s.stopped {
			s.cond.Wait()
		}
		if s.stopped {
			s.releaseActivityLocked()
			s.running = false
			s.mu.Unlock()
			return
		}

		s.acquireActivityLocked()

		var folder string
		var videos []string
		isFolder := len(s.pendingFolders) > 0
		if isFolder {
			folder = s.pendingFolders[0]
			s.pendingFolders = s.pendingFolders[1:]
			metrics.SchedulerPendingFolders.Dec()
		} else {
			folder = s.oldestVideoFolderLocked()
			videos = s.pendingVideos[folder]
			delete(s.pendingVideos, folder)
			metrics.SchedulerPendingVideos.Sub(float64(len(videos)))
		}
		s.mu.Unlock()

		if ctx.Err() != nil {
			continue
		}
		if isFolder {
			s.processFolder(ctx, folder)
		} else {
			s.processVideos(ctx, folder, videos)
		}

		s.mu.Lock()
		if len(s.pendingFolders) == 0 && len(s.pendingVideos) == 0 {
			s.releaseActivityLocked()
		}
		s.mu.Unlock()
	}
}

// oldestVideoFolderLocked returns a deterministic (lexically smallest)
// folder key from pendingVideos. Map iteration order is not guaranteed, and
// "which folder's video backlog runs next" should not depend on it.
func (s *Scheduler) oldestVideoFolderLocked() string {
	keys := make([]string, 0, len(s.pendingVideos))
	for k := range s.pendingVideos {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[0]
}

func (s *Scheduler) acquireActivityLocked() {
	if s.activeToken == nil {
		s.activeToken = s.activity.Acquire("findit-indexing")
		metrics.SchedulerBackgroundActivityActive.Set(1)
	}
}

func (s *Scheduler) releaseActivityLocked() {
	if s.activeToken != nil {
		s.activeToken.Release()
		s.activeToken = nil
		metrics.SchedulerBackgroundActivityActive.Set(0)
	}
}

// CancelIndexing stops the driver, empties both queues, and releases every
// waiter blocked on the semaphore so any in-flight pipeline stage observes
// cancellation rather than hanging.
func (s *Scheduler) CancelIndexing() {
	metrics.SchedulerCancelTotal.Inc()
	s.mu.Lock()
	s.stopped = true
	s.pendingFolders = nil
	s.pendingVideos = make(map[string][]string)
	s.releaseActivityLocked()
	s.mu.Unlock()
	s.sem.ReleaseAll()
	s.cond.Broadcast()
}

func (s *Scheduler) setReindexing(folderPath string, active bool) {
	s.mu.Lock()
	if active {
		s.reindexing[folderPath] = true
	} else {
		delete(s.reindexing, folderPath)
	}
	s.mu.Unlock()
}

// processFolder implements process_folder: scan, dispatch every discovered
// video through the bounded task group, then a single consolidated sync
// and a watcher replay.
func (s *Scheduler) processFolder(ctx context.Context, folderPath string) {
	s.setReindexing(folderPath, true)
	defer s.setReindexing(folderPath, false)

	s.mu.Lock()
	s.progress[folderPath] = FolderProgress{}
	s.mu.Unlock()

	videos, err := s.callbacks.ScanFolder(folderPath)
	if err != nil {
		logging.Error("scheduler: scan folder %s: %v", folderPath, err)
		return
	}

	s.processVideos(ctx, folderPath, videos)

	if s.callbacks.SyncFolder != nil {
		if err := s.callbacks.SyncFolder(ctx, folderPath); err != nil {
			logging.Warn("scheduler: sync folder %s: %v", folderPath, err)
		}
	}
	if s.callbacks.ReindexFinished != nil {
		s.callbacks.ReindexFinished(folderPath)
	}
}

// processVideos implements both process_folder's and
// process_specific_videos' shared dispatch: a task group bounded by the
// semaphore's current permit count, applying the pipeline's own skip
// predicates so it is safe to call on already-indexed videos.
func (s *Scheduler) processVideos(ctx context.Context, folderPath string, videoPaths []string) {
	g, gctx := errgroup.WithContext(ctx)
	for _, videoPath := range videoPaths {
		videoPath := videoPath
		g.Go(func() error {
			if err := s.sem.Acquire(gctx); err != nil {
				return nil
			}
			defer s.sem.Release()

			result, err := s.callbacks.ProcessVideo(gctx, folderPath, videoPath)
			s.recordOutcome(folderPath, result, err)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Scheduler) recordOutcome(folderPath string, result pipeline.ProcessResult, err error) {
	s.mu.Lock()
	p := s.progress[folderPath]
	switch {
	case err != nil || result.Outcome == pipeline.OutcomeFailed:
		p.Failed++
		metrics.SchedulerFolderVideoOutcomes.WithLabelValues("failed").Inc()
	case result.Outcome == pipeline.OutcomeCancelled:
		metrics.SchedulerFolderVideoOutcomes.WithLabelValues("cancelled").Inc()
	default:
		p.Completed++
		metrics.SchedulerFolderVideoOutcomes.WithLabelValues(string(result.Outcome)).Inc()
	}
	if result.STTSkippedNoAudio {
		p.STTSkipped++
		metrics.SchedulerFolderVideoOutcomes.WithLabelValues("stt_skipped_no_audio").Inc()
	}
	s.progress[folderPath] = p
	s.mu.Unlock()
}
