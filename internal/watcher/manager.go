package watcher

import (
	"sync"

	"github.com/findit-engine/findit/internal/logging"
	"github.com/findit-engine/findit/internal/metrics"
)

// Callbacks are the actions FileWatcherManager takes once it has decided how
// to route a folder's deduplicated batch. They are plain function values
// rather than an interface so the manager has no compile-time dependency on
// the scheduler or pipeline packages that supply them.
type Callbacks struct {
	// IsReindexing reports whether folderPath currently has an active full
	// reindex in flight; while true, batches for that folder are deferred.
	IsReindexing func(folderPath string) bool
	// RescanFolder re-enqueues folderPath for a full scan.
	RescanFolder func(folderPath string)
	// QueueVideos enqueues added/modified paths for indexing.
	QueueVideos func(folderPath string, paths []string)
	// SoftDelete marks paths orphaned, retained for orphaned_retention_days.
	SoftDelete func(folderPath string, paths []string)
}

// FileWatcherManager serializes coalesced batches from a FileSystemWatcher
// through one drain goroutine per folder, so events are applied in the
// order they were observed even though the watcher may hand off several
// folders' batches concurrently. It defers batches for folders under active
// reindex and replays them, in order, once that reindex finishes.
type FileWatcherManager struct {
	callbacks Callbacks

	mu       sync.Mutex
	drains   map[string]chan []FileChangeEvent
	deferred map[string][]FileChangeEvent
}

// NewFileWatcherManager creates a manager bound to the given callbacks.
func NewFileWatcherManager(callbacks Callbacks) *FileWatcherManager {
	return &FileWatcherManager{
		callbacks: callbacks,
		drains:    make(map[string]chan []FileChangeEvent),
		deferred:  make(map[string][]FileChangeEvent),
	}
}

// HandleBatch is the FileSystemWatcher onBatch callback: it hands the batch
// to folderPath's drain goroutine, starting one if this is the first batch
// seen for that folder.
func (m *FileWatcherManager) HandleBatch(folderPath string, events []FileChangeEvent) {
	m.mu.Lock()
	ch, ok := m.drains[folderPath]
	if !ok {
		ch = make(chan []FileChangeEvent, 64)
		m.drains[folderPath] = ch
		go m.drain(folderPath, ch)
	}
	m.mu.Unlock()

	ch <- events
}

// drain applies each batch for folderPath strictly in arrival order.
func (m *FileWatcherManager) drain(folderPath string, ch chan []FileChangeEvent) {
	for events := range ch {
		m.route(folderPath, events)
	}
}

func (m *FileWatcherManager) route(folderPath string, events []FileChangeEvent) {
	if m.callbacks.IsReindexing != nil && m.callbacks.IsReindexing(folderPath) {
		m.defer_(folderPath, events)
		return
	}

	for _, ev := range events {
		if ev.Kind == EventRescanNeeded {
			logging.Debug("watcher: %s needs full rescan, discarding %d other event(s)", folderPath, len(events)-1)
			if m.callbacks.RescanFolder != nil {
				m.callbacks.RescanFolder(folderPath)
			}
			return
		}
	}

	var added, removed []string
	for _, ev := range events {
		switch ev.Kind {
		case EventAdded, EventModified:
			added = append(added, ev.Path)
		case EventRemoved:
			removed = append(removed, ev.Path)
		}
	}

	if len(added) > 0 && m.callbacks.QueueVideos != nil {
		m.callbacks.QueueVideos(folderPath, added)
	}
	if len(removed) > 0 && m.callbacks.SoftDelete != nil {
		m.callbacks.SoftDelete(folderPath, removed)
	}
}

func (m *FileWatcherManager) defer_(folderPath string, events []FileChangeEvent) {
	m.mu.Lock()
	m.deferred[folderPath] = append(m.deferred[folderPath], events...)
	total := len(m.deferred[folderPath])
	m.mu.Unlock()

	metrics.WatcherDeferredEvents.Set(float64(total))
	logging.Debug("watcher: deferring %d event(s) for %s (reindex in progress)", len(events), folderPath)
}

// ReindexFinished replays any events deferred for folderPath while it was
// being reindexed, in the order they were originally observed, then resumes
// normal routing for that folder.
func (m *FileWatcherManager) ReindexFinished(folderPath string) {
	m.mu.Lock()
	events := m.deferred[folderPath]
	delete(m.deferred, folderPath)
	m.mu.Unlock()

	if len(events) == 0 {
		return
	}

	metrics.WatcherDeferredEvents.Set(0)
	m.route(folderPath, deduplicateEvents(events))
}

// StopAll closes every per-folder drain channel. It does not wait for
// in-flight route calls to finish.
func (m *FileWatcherManager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for folder, ch := range m.drains {
		close(ch)
		delete(m.drains, folder)
	}
}
