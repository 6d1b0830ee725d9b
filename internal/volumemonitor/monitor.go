package volumemonitor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/findit-engine/findit/internal/logging"
	"github.com/findit-engine/findit/internal/metrics"
	"github.com/findit-engine/findit/internal/storage"
	syncengine "github.com/findit-engine/findit/internal/sync"
	"github.com/findit-engine/findit/internal/volume"
)

// DefaultPollInterval is how often the monitor re-enumerates mounted
// volumes when polling, the only portable way to derive mount/unmount
// transitions without a platform-specific event subscription.
const DefaultPollInterval = 5 * time.Second

// Callbacks are the actions the monitor takes once it has rebased a folder
// that came back online.
type Callbacks struct {
	// OpenFolderStore returns (opening if necessary) the per-folder Store
	// for folderPath, so its file paths can be rebased.
	OpenFolderStore func(folderPath string) (*storage.Store, error)
	// Reenqueue schedules folderPath for indexing after it comes back online.
	Reenqueue func(folderPath string)
}

// Monitor polls the mount table, rebases and re-syncs folders whose volume
// reappears at a new mount point, and marks folders unavailable when their
// volume disappears.
type Monitor struct {
	resolver    *volume.VolumeResolver
	rebaser     volume.PathRebaser
	globalStore *storage.Store
	syncEngine  *syncengine.Engine
	interval    time.Duration
	callbacks   Callbacks

	mu         sync.Mutex
	knownUUIDs map[string]string // volume UUID -> mount point, as of the last poll
	stopChan   chan struct{}
}

// New creates a volume monitor. resolver should already be wired to a
// volume.Lister appropriate for the current platform.
func New(resolver *volume.VolumeResolver, globalStore *storage.Store, interval time.Duration, callbacks Callbacks) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		resolver:    resolver,
		globalStore: globalStore,
		syncEngine:  syncengine.New(),
		interval:    interval,
		callbacks:   callbacks,
		knownUUIDs:  make(map[string]string),
		stopChan:    make(chan struct{}),
	}
}

// Start runs the startup reconcile pass, then begins the poll loop.
func (m *Monitor) Start(ctx context.Context) error {
	if err := m.resolver.Refresh(); err != nil {
		return err
	}
	m.snapshotMounts()
	if err := m.Reconcile(ctx); err != nil {
		return err
	}
	go m.loop(ctx)
	return nil
}

// Stop ends the poll loop.
func (m *Monitor) Stop() {
	close(m.stopChan)
}

func (m *Monitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.poll(ctx)
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) snapshotMounts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.knownUUIDs = make(map[string]string)
	for _, mnt := range m.resolver.Mounts() {
		if mnt.VolumeUUID != "" {
			m.knownUUIDs[mnt.VolumeUUID] = mnt.MountPoint
		}
	}
}

// poll re-enumerates mounts, diffs against the previous snapshot, and
// handles any mount/unmount transitions it finds.
func (m *Monitor) poll(ctx context.Context) {
	if err := m.resolver.Refresh(); err != nil {
		logging.Warn("volume monitor: refresh failed: %v", err)
		return
	}

	current := make(map[string]string)
	for _, mnt := range m.resolver.Mounts() {
		if mnt.VolumeUUID != "" {
			current[mnt.VolumeUUID] = mnt.MountPoint
		}
	}

	m.mu.Lock()
	previous := m.knownUUIDs
	m.knownUUIDs = current
	m.mu.Unlock()

	for uuid, mountPoint := range current {
		if prevMount, existed := previous[uuid]; !existed || prevMount != mountPoint {
			metrics.VolumeMonitorMountEvents.WithLabelValues("mount").Inc()
			m.handleMount(ctx, uuid)
		}
	}
	for uuid := range previous {
		if _, stillMounted := current[uuid]; !stillMounted {
			metrics.VolumeMonitorMountEvents.WithLabelValues("unmount").Inc()
			m.handleUnmount(ctx, uuid)
		}
	}
}

// handleMount rebases, re-syncs, and re-enqueues every registered folder
// backed by the volume identified by volumeUUID.
func (m *Monitor) handleMount(ctx context.Context, volumeUUID string) {
	folders, err := m.globalStore.ListWatchedFolders(ctx)
	if err != nil {
		logging.Warn("volume monitor: list folders failed: %v", err)
		return
	}

	for _, f := range folders {
		if f.VolumeUUID != volumeUUID {
			continue
		}
		newPath, ok := m.resolver.ResolveUpdatedPath(f.FolderPath, volumeUUID)
		if !ok || newPath == f.FolderPath {
			// Back at its old mount point: nothing to rebase.
			if err := m.globalStore.SetFolderAvailability(ctx, f.FolderPath, true); err != nil {
				logging.Warn("volume monitor: mark %s available: %v", f.FolderPath, err)
			}
			if m.callbacks.Reenqueue != nil {
				m.callbacks.Reenqueue(f.FolderPath)
			}
			continue
		}
		m.rebaseAndResync(ctx, f, newPath)
	}
}

func (m *Monitor) handleUnmount(ctx context.Context, volumeUUID string) {
	folders, err := m.globalStore.ListWatchedFolders(ctx)
	if err != nil {
		logging.Warn("volume monitor: list folders failed: %v", err)
		return
	}

	offline := 0
	for _, f := range folders {
		if f.VolumeUUID == volumeUUID {
			if err := m.globalStore.SetFolderAvailability(ctx, f.FolderPath, false); err != nil {
				logging.Warn("volume monitor: mark %s unavailable: %v", f.FolderPath, err)
			}
		}
		if !f.IsAvailable {
			offline++
		}
	}
	metrics.VolumeMonitorFoldersOffline.Set(float64(offline))
}

// Reconcile handles the case where a volume was already mounted before the
// process started: any registered folder whose stored path is unreachable
// but whose volume_uuid matches a currently mounted volume at a different
// mount point gets rebased immediately, without waiting for a mount
// transition that will never come.
func (m *Monitor) Reconcile(ctx context.Context) error {
	folders, err := m.globalStore.ListWatchedFolders(ctx)
	if err != nil {
		return err
	}

	for _, f := range folders {
		if f.VolumeUUID == "" {
			continue
		}
		newPath, ok := m.resolver.ResolveUpdatedPath(f.FolderPath, f.VolumeUUID)
		if !ok || newPath == f.FolderPath {
			continue
		}
		metrics.VolumeMonitorReconcileTotal.Inc()
		m.rebaseAndResync(ctx, f, newPath)
	}
	return nil
}

func (m *Monitor) rebaseAndResync(ctx context.Context, f storage.WatchedFolder, newPath string) {
	if m.callbacks.OpenFolderStore == nil {
		return
	}
	folderStore, err := m.callbacks.OpenFolderStore(f.FolderPath)
	if err != nil {
		logging.Warn("volume monitor: open folder store for %s: %v", f.FolderPath, err)
		return
	}

	oldPath := f.FolderPath
	if strings.TrimSpace(newPath) == "" || newPath == oldPath {
		return
	}

	if _, _, err := m.rebaser.RebaseIfNeeded(ctx, folderStore, oldPath, newPath); err != nil {
		logging.Warn("volume monitor: rebase %s -> %s: %v", oldPath, newPath, err)
		return
	}
	if err := m.globalStore.RenameFolderPath(ctx, oldPath, newPath); err != nil {
		logging.Warn("volume monitor: rename folder path %s -> %s: %v", oldPath, newPath, err)
		return
	}

	volumeName, volumeUUID := m.resolver.Resolve(newPath)
	if volumeUUID == "" {
		volumeUUID = f.VolumeUUID
	}
	if err := m.globalStore.UpsertWatchedFolder(ctx, storage.WatchedFolder{
		FolderPath:  newPath,
		VolumeName:  volumeName,
		VolumeUUID:  volumeUUID,
		IsAvailable: true,
		LastSeenAt:  time.Now(),
	}); err != nil {
		logging.Warn("volume monitor: re-register %s: %v", newPath, err)
	}

	if _, err := m.syncEngine.Sync(ctx, newPath, folderStore, m.globalStore, true); err != nil {
		logging.Warn("volume monitor: forced sync of %s: %v", newPath, err)
	}

	logging.Info("volume monitor: rebased %s -> %s", oldPath, newPath)
	if m.callbacks.Reenqueue != nil {
		m.callbacks.Reenqueue(newPath)
	}
}
