package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/findit-engine/findit/internal/filesystemx"
	"github.com/findit-engine/findit/internal/logging"
	"github.com/findit-engine/findit/internal/metrics"
	"github.com/findit-engine/findit/internal/pipeline"
	"github.com/findit-engine/findit/internal/query"
	"github.com/findit-engine/findit/internal/storage"
)

// videoExtensions mirrors the teacher's media-type classification, trimmed
// to the formats process_video actually knows how to segment.
var videoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
	".wmv": true, ".flv": true, ".webm": true, ".m4v": true,
	".mpeg": true, ".mpg": true, ".3gp": true, ".ts": true,
}

// ErrClosed is returned by AddFolder, RemoveFolder and Search once Shutdown
// has run.
var ErrClosed = errors.New("engine: closed")

// SearchMode selects how much of the query pipeline a Search call runs.
type SearchMode string

const (
	// SearchModeFTS runs only the cheap synchronous keyword search.
	SearchModeFTS SearchMode = "fts"
	// SearchModeAuto runs the full three-way hybrid search.
	SearchModeAuto SearchMode = "auto"
)

// AddFolder validates the candidate against every already-registered
// folder via FolderHierarchy, then — for a normal or parent addition —
// opens its per-folder database, runs an initial sync, starts watching it,
// and enqueues it for indexing. A subfolder addition under an existing
// parent only records a bookmark: no separate database or watch.
func (e *Engine) AddFolder(ctx context.Context, path string) error {
	if e.isClosed() {
		return ErrClosed
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve folder path: %w", err)
	}
	path = filepath.Clean(path)

	existing, err := e.globalStore.ListWatchedFolders(ctx)
	if err != nil {
		return fmt.Errorf("list watched folders: %w", err)
	}
	paths := make([]string, len(existing))
	for i, f := range existing {
		paths[i] = f.FolderPath
	}

	decision := FolderHierarchy{}.Resolve(path, paths)
	switch decision.Kind {
	case AdditionDuplicate:
		return nil
	case AdditionAsSubfolderBookmark:
		e.mu.Lock()
		e.excluding[decision.Parent] = append(e.excluding[decision.Parent], path)
		e.mu.Unlock()
		return nil
	}

	volumeName, volumeUUID := e.volumeResolver.Resolve(path)
	if err := e.globalStore.UpsertWatchedFolder(ctx, storage.WatchedFolder{
		FolderPath:  path,
		VolumeName:  volumeName,
		VolumeUUID:  volumeUUID,
		IsAvailable: true,
		LastSeenAt:  time.Now(),
	}); err != nil {
		return fmt.Errorf("register folder: %w", err)
	}

	folderStore, err := e.openFolderStore(path)
	if err != nil {
		return fmt.Errorf("open folder database: %w", err)
	}
	if _, err := e.syncEngine.Sync(ctx, path, folderStore, e.globalStore, false); err != nil {
		return fmt.Errorf("initial sync: %w", err)
	}
	e.searchEngine.InvalidateFilterCache()

	if decision.Kind == AdditionAsParent {
		e.mu.Lock()
		e.excluding[path] = append(e.excluding[path], decision.Children...)
		e.mu.Unlock()
	}

	if err := e.fsWatcher.Watch(path); err != nil {
		logging.Warn("watch new folder %s: %v", path, err)
	}
	metrics.EngineFoldersRegistered.Set(float64(len(existing) + 1))

	e.scheduler.EnqueueFolder(path)
	return nil
}

// RemoveFolder unwatches path, deletes its projection from the global
// database, and drops any subfolder bookmarks recorded under it. The
// per-folder database file itself is left on disk: re-adding the same
// folder later re-syncs from it without reindexing (scenario 3, §8).
func (e *Engine) RemoveFolder(ctx context.Context, path string) error {
	if e.isClosed() {
		return ErrClosed
	}
	path = filepath.Clean(path)

	if err := e.fsWatcher.Unwatch(path); err != nil {
		logging.Warn("unwatch folder %s: %v", path, err)
	}

	e.mu.Lock()
	if fs, ok := e.folderStores[path]; ok {
		fs.Close()
		delete(e.folderStores, path)
	}
	delete(e.excluding, path)
	delete(e.lastHealthCheck, path)
	e.mu.Unlock()

	if err := e.globalStore.RemoveFolderData(ctx, path); err != nil {
		return fmt.Errorf("remove folder data: %w", err)
	}
	e.searchEngine.InvalidateFilterCache()
	e.vectorManager.InvalidateAll()
	e.publishVectorInvalidated()
	return nil
}

// Folders returns every currently registered watched folder.
func (e *Engine) Folders(ctx context.Context) ([]storage.WatchedFolder, error) {
	return e.globalStore.ListWatchedFolders(ctx)
}

// folderHealthCheckDebounce bounds how often a path is re-probed by
// FolderHealthCheck; a UI can call it on a tight poll loop without
// hammering the filesystem.
const folderHealthCheckDebounce = 10 * time.Second

// FolderHealthCheck probes every registered folder's existence, updating
// is_available when it has changed and publishing
// FolderAvailabilityChanged. Checks are debounced per folder path.
func (e *Engine) FolderHealthCheck(ctx context.Context) error {
	folders, err := e.globalStore.ListWatchedFolders(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, f := range folders {
		e.mu.Lock()
		last, seen := e.lastHealthCheck[f.FolderPath]
		if seen && now.Sub(last) < folderHealthCheckDebounce {
			e.mu.Unlock()
			continue
		}
		e.lastHealthCheck[f.FolderPath] = now
		e.mu.Unlock()

		_, statErr := filesystemx.StatWithRetry(f.FolderPath, filesystemx.DefaultRetryConfig())
		reachable := statErr == nil
		if reachable == f.IsAvailable {
			continue
		}
		if err := e.globalStore.SetFolderAvailability(ctx, f.FolderPath, reachable); err != nil {
			logging.Warn("update availability for %s: %v", f.FolderPath, err)
			continue
		}
		e.events.publish(Event{Kind: EventFolderAvailabilityChange, FolderPath: f.FolderPath, Available: reachable})
	}
	return nil
}

// QueueFolder enqueues a full rescan of path, recording excluding as the
// set of nested child folders to skip (their own registrations already
// cover them).
func (e *Engine) QueueFolder(path string, excluding []string) {
	path = filepath.Clean(path)
	if len(excluding) > 0 {
		e.mu.Lock()
		e.excluding[path] = excluding
		e.mu.Unlock()
	}
	e.scheduler.EnqueueFolder(path)
}

// QueueVideos enqueues specific video paths within folder for reprocessing
// without a full directory scan.
func (e *Engine) QueueVideos(folder string, paths []string) {
	e.scheduler.EnqueueVideos(filepath.Clean(folder), paths)
}

// CancelIndexing cancels the scheduler's driver loop and releases every
// pipeline stage blocked on the concurrency semaphore.
func (e *Engine) CancelIndexing() {
	e.scheduler.CancelIndexing()
}

// InvalidateVectorStore drops every cached HNSW handle and the brute-force
// text store, forcing the next search to reconsider a rebuild/reload.
func (e *Engine) InvalidateVectorStore() {
	e.vectorManager.InvalidateAll()
	e.searchEngine.InvalidateTextStore()
	e.publishVectorInvalidated()
}

// Subscribe returns a channel of engine events and an unsubscribe func.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	return e.events.Subscribe()
}

// Search runs either the cheap FTS-only search or the full hybrid search,
// records the query in search history, and returns hydrated results.
func (e *Engine) Search(ctx context.Context, rawQuery string, filter query.Filter, mode SearchMode) ([]storage.ClipSearchResult, error) {
	if e.isClosed() {
		return nil, ErrClosed
	}
	var (
		results []storage.ClipSearchResult
		err     error
	)
	switch mode {
	case SearchModeFTS:
		results, err = e.searchEngine.SearchFTS(ctx, rawQuery, filter)
	default:
		results, err = e.searchEngine.SearchHybrid(ctx, rawQuery, filter)
	}
	if err != nil {
		return nil, err
	}
	if recErr := e.globalStore.RecordSearch(ctx, storage.SearchRecord{
		Query:       rawQuery,
		ResultCount: len(results),
		Timestamp:   time.Now(),
	}); recErr != nil {
		logging.Warn("record search history: %v", recErr)
	}
	return results, nil
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Engine) publishVectorInvalidated() {
	e.events.publish(Event{Kind: EventVectorStoreInvalidated})
}

// scanFolder implements scheduler.Callbacks.ScanFolder: every video path
// under folderPath, excluding paths that fall under a more specifically
// registered nested folder.
func (e *Engine) scanFolder(folderPath string) ([]string, error) {
	e.mu.Lock()
	excluded := append([]string(nil), e.excluding[folderPath]...)
	e.mu.Unlock()

	var videos []string
	err := filepath.WalkDir(folderPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != folderPath && isUnderAny(p, excluded) {
				return filepath.SkipDir
			}
			if filepath.Base(p) == findItDir {
				return filepath.SkipDir
			}
			return nil
		}
		if videoExtensions[strings.ToLower(filepath.Ext(p))] {
			videos = append(videos, p)
		}
		return nil
	})
	return videos, err
}

func isUnderAny(p string, roots []string) bool {
	for _, r := range roots {
		if p == r || strings.HasPrefix(p, r+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// processVideo implements scheduler.Callbacks.ProcessVideo, wiring the
// pipeline's Config from the engine's opened components and configured
// providers.
func (e *Engine) processVideo(ctx context.Context, folderPath, videoPath string) (pipeline.ProcessResult, error) {
	folderStore, err := e.openFolderStore(folderPath)
	if err != nil {
		return pipeline.ProcessResult{}, err
	}

	result, err := pipeline.ProcessVideo(ctx, pipeline.Config{
		VideoPath:    videoPath,
		FolderPath:   folderPath,
		ThumbnailDir: filepath.Join(folderPath, findItDir, "thumbnails"),

		FolderStore: folderStore,
		GlobalStore: e.globalStore,
		SyncEngine:  e.syncEngine,

		Segmenter:         e.segmenter,
		RateLimiter:       e.rateLimiter,
		VisionProvider:    e.visionProvider,
		VisionFallback:    e.visionFallback,
		STTProvider:       e.sttProvider,
		EmbeddingProvider: e.embeddingProvider,
		CLIPProvider:      e.clipProvider,

		SkipSTT: e.cfg.SkipSTT,
		OnProgress: func(stage string) {
			e.events.publish(Event{Kind: EventIndexingProgress, FolderPath: folderPath, Message: videoPath + ": " + stage})
		},
	})
	if err != nil {
		e.health.record(folderPath, err.Error(), time.Now())
	} else if result.Outcome == pipeline.OutcomeFailed {
		e.health.record(folderPath, result.FailureReason, time.Now())
	}
	if result.ClipsEmbedded > 0 || result.ClipsVisionVector > 0 {
		e.vectorManager.InvalidateAll()
		e.searchEngine.InvalidateTextStore()
		e.publishVectorInvalidated()
	}
	return result, err
}

// syncFolder implements scheduler.Callbacks.SyncFolder: the single
// consolidated sync run after a folder's scan finishes.
func (e *Engine) syncFolder(ctx context.Context, folderPath string) error {
	folderStore, err := e.openFolderStore(folderPath)
	if err != nil {
		return err
	}
	result, err := e.syncEngine.Sync(ctx, folderPath, folderStore, e.globalStore, false)
	if err != nil {
		return err
	}
	e.searchEngine.InvalidateFilterCache()
	progress := e.scheduler.Progress(folderPath)
	e.events.publish(Event{
		Kind:       EventIndexingOutcome,
		FolderPath: folderPath,
		Completed:  progress.Completed,
		Failed:     progress.Failed,
		STTSkipped: progress.STTSkipped,
		Message:    fmt.Sprintf("synced %d videos, %d clips", result.SyncedVideos, result.SyncedClips),
	})
	return nil
}

// reindexFinished implements scheduler.Callbacks.ReindexFinished, signaling
// the watcher manager that it may replay any batch it deferred while
// folderPath was being fully reindexed.
func (e *Engine) reindexFinished(folderPath string) {
	e.watcherManager.ReindexFinished(folderPath)
}

// softDelete implements watcher.Callbacks.SoftDelete: mark the given paths
// orphaned in the folder database, retained for OrphanedRetentionDays
// before the sweep hard-deletes them.
func (e *Engine) softDelete(folderPath string, paths []string) {
	folderStore, err := e.openFolderStore(folderPath)
	if err != nil {
		logging.Warn("soft delete in %s: open folder store: %v", folderPath, err)
		return
	}
	ctx := context.Background()
	tx, err := folderStore.BeginBatch(ctx)
	if err != nil {
		logging.Warn("soft delete in %s: begin batch: %v", folderPath, err)
		return
	}
	err = folderStore.MarkVideosOrphaned(ctx, tx, paths, time.Now())
	if endErr := folderStore.EndBatch(tx, err); endErr != nil {
		logging.Warn("soft delete in %s: %v", folderPath, endErr)
		return
	}
	if err := e.syncFolder(ctx, folderPath); err != nil {
		logging.Warn("sync after soft delete in %s: %v", folderPath, err)
	}
}

// orphanSweepLoop hard-deletes orphaned videos past their retention window,
// once at startup and every orphanSweepInterval thereafter.
func (e *Engine) orphanSweepLoop(ctx context.Context) {
	e.sweepOrphaned(ctx)
	ticker := time.NewTicker(orphanSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sweepOrphaned(ctx)
		}
	}
}

func (e *Engine) sweepOrphaned(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -e.cfg.OrphanedRetentionDays)

	folders, err := e.globalStore.ListWatchedFolders(ctx)
	if err != nil {
		logging.Warn("orphan sweep: list folders: %v", err)
		return
	}
	var total int64
	for _, f := range folders {
		folderStore, err := e.openFolderStore(f.FolderPath)
		if err != nil {
			logging.Warn("orphan sweep: open %s: %v", f.FolderPath, err)
			continue
		}
		n, err := folderStore.DeleteOrphanedBefore(ctx, cutoff)
		if err != nil {
			logging.Warn("orphan sweep: %s: %v", f.FolderPath, err)
			continue
		}
		total += n
	}
	if n, err := e.globalStore.DeleteOrphanedBefore(ctx, cutoff); err != nil {
		logging.Warn("orphan sweep: global: %v", err)
	} else {
		total += n
	}
	if total > 0 {
		metrics.EngineOrphanSweepDeleted.Add(float64(total))
		e.vectorManager.InvalidateAll()
		e.searchEngine.InvalidateFilterCache()
		e.publishVectorInvalidated()
	}
}

// findItDir is the per-folder auxiliary directory holding the folder
// database and thumbnails, matching §6's persisted state layout.
const findItDir = ".findit"
