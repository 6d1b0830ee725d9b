package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/findit-engine/findit/internal/logging"
	"github.com/findit-engine/findit/internal/metrics"
	"github.com/findit-engine/findit/internal/storage"
)

// Result reports how many rows a Sync call pushed into the global database.
type Result struct {
	SyncedVideos int
	SyncedClips  int
}

// Engine pushes a folder database's videos and clips into the global
// database.
type Engine struct{}

// New creates a sync Engine.
func New() *Engine {
	return &Engine{}
}

// Sync reads rows from folderStore with rowid greater than the stored
// cursor (or all rows, when force is true), upserts them into
// globalStore keyed by (folderPath, source_*_id), and advances the
// cursor — all inside a single global-store transaction. Any error rolls
// the whole sync back and leaves the cursor unchanged, so the next run
// retries from the same point.
func (e *Engine) Sync(ctx context.Context, folderPath string, folderStore, globalStore *storage.Store, force bool) (Result, error) {
	start := time.Now()
	result, err := e.sync(ctx, folderPath, folderStore, globalStore, force)
	metrics.SyncDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("error").Inc()
		return result, err
	}
	metrics.SyncRunsTotal.WithLabelValues("success").Inc()
	metrics.SyncVideosSynced.Add(float64(result.SyncedVideos))
	metrics.SyncClipsSynced.Add(float64(result.SyncedClips))
	return result, nil
}

func (e *Engine) sync(ctx context.Context, folderPath string, folderStore, globalStore *storage.Store, force bool) (Result, error) {
	videoCursor, err := globalStore.GetSyncCursor(ctx, folderPath, "videos")
	if err != nil {
		return Result{}, fmt.Errorf("read video cursor: %w", err)
	}
	clipCursor, err := globalStore.GetSyncCursor(ctx, folderPath, "clips")
	if err != nil {
		return Result{}, fmt.Errorf("read clip cursor: %w", err)
	}

	if force {
		videoCursor, clipCursor = 0, 0
	}

	videos, err := folderStore.VideosSince(ctx, videoCursor)
	if err != nil {
		return Result{}, fmt.Errorf("read videos since cursor: %w", err)
	}
	clips, err := folderStore.ClipsSince(ctx, clipCursor)
	if err != nil {
		return Result{}, fmt.Errorf("read clips since cursor: %w", err)
	}

	tx, err := globalStore.BeginBatch(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("begin sync transaction: %w", err)
	}

	// folder-local video_id -> global video_id, needed to translate each
	// clip's video_id foreign key into the global database's own key.
	videoIDMap := make(map[int64]int64, len(videos))

	maxVideoRow := videoCursor
	maxClipRow := clipCursor
	var txErr error

	for _, v := range videos {
		gv := v
		gv.SourceFolder = folderPath
		gv.SourceVideoID = v.VideoID
		if txErr = globalStore.UpsertVideo(ctx, tx, &gv); txErr != nil {
			txErr = fmt.Errorf("upsert video %d: %w", v.VideoID, txErr)
			break
		}
		videoIDMap[v.VideoID] = gv.VideoID
		if v.VideoID > maxVideoRow {
			maxVideoRow = v.VideoID
		}
	}

	if txErr == nil {
		for _, c := range clips {
			globalVideoID, known := videoIDMap[c.VideoID]
			if !known {
				globalVideoID, txErr = globalStore.GlobalVideoID(ctx, folderPath, c.VideoID)
				if txErr != nil {
					txErr = fmt.Errorf("resolve global video id for clip %d (video %d): %w", c.ClipID, c.VideoID, txErr)
					break
				}
			}

			gc := c
			gc.SourceFolder = folderPath
			gc.SourceClipID = c.ClipID
			gc.VideoID = globalVideoID
			if txErr = globalStore.UpsertClip(ctx, tx, &gc); txErr != nil {
				txErr = fmt.Errorf("upsert clip %d: %w", c.ClipID, txErr)
				break
			}
			if c.ClipID > maxClipRow {
				maxClipRow = c.ClipID
			}
		}
	}

	if txErr == nil && len(videos) > 0 {
		txErr = globalStore.SetSyncCursor(ctx, tx, folderPath, "videos", maxVideoRow)
	}
	if txErr == nil && len(clips) > 0 {
		txErr = globalStore.SetSyncCursor(ctx, tx, folderPath, "clips", maxClipRow)
	}

	if err := globalStore.EndBatch(tx, txErr); err != nil {
		return Result{}, fmt.Errorf("sync transaction: %w", err)
	}

	metrics.SyncCursorValue.WithLabelValues(folderPath, "videos").Set(float64(maxVideoRow))
	metrics.SyncCursorValue.WithLabelValues(folderPath, "clips").Set(float64(maxClipRow))

	logging.Debug("sync %s: %d videos, %d clips", folderPath, len(videos), len(clips))
	return Result{SyncedVideos: len(videos), SyncedClips: len(clips)}, nil
}

// RemoveFolderData deletes every global-database row sourced from
// folderPath and its sync cursor, inside a single transaction.
func (e *Engine) RemoveFolderData(ctx context.Context, folderPath string, globalStore *storage.Store) error {
	return globalStore.RemoveFolderData(ctx, folderPath)
}
