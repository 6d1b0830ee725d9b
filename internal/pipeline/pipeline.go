package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/findit-engine/findit/internal/filesystemx"
	"github.com/findit-engine/findit/internal/logging"
	"github.com/findit-engine/findit/internal/metrics"
	"github.com/findit-engine/findit/internal/providers"
	"github.com/findit-engine/findit/internal/storage"
	syncengine "github.com/findit-engine/findit/internal/sync"
)

// clipStartEpsilon is the start_time tolerance used to match a freshly
// segmented boundary against an already-persisted clip, so re-running
// segmentation on an unchanged video is a no-op.
const clipStartEpsilon = 0.25

// Config carries everything one process_video call needs. Providers are
// interfaces so the scheduler can wire cloud or offline implementations (or
// nil, to skip a stage entirely) without this package knowing which.
type Config struct {
	VideoPath    string
	FolderPath   string
	ThumbnailDir string

	FolderStore *storage.Store
	GlobalStore *storage.Store // nil disables stage 8 regardless of SkipSync
	SyncEngine  *syncengine.Engine

	Segmenter         Segmenter
	RateLimiter       providers.RateLimiter
	VisionProvider    providers.VisionCaptionProvider // cloud captioner, may be nil
	VisionFallback    providers.VisionCaptionProvider // offline fallback, may be nil
	STTProvider       providers.STTProvider           // may be nil
	EmbeddingProvider providers.EmbeddingProvider     // may be nil
	CLIPProvider      providers.CLIPEmbeddingProvider // may be nil

	SkipSTT    bool
	SkipSync   bool
	Force      bool // force is for explicit reindex requests, bypassing the fast-path skip
	OnProgress func(stage string)
}

func (c Config) reportProgress(stage string) {
	if c.OnProgress != nil {
		c.OnProgress(stage)
	}
}

// ProcessVideo runs all pipeline stages for one video file, in order,
// stopping at whichever skip predicate applies first. It is safe to call
// repeatedly on the same file.
func ProcessVideo(ctx context.Context, cfg Config) (ProcessResult, error) {
	if ctx.Err() != nil {
		return ProcessResult{Outcome: OutcomeCancelled}, nil
	}
	result, existing, info, err := stageFingerprint(ctx, cfg)
	if err != nil || result.Outcome == OutcomeUnchanged {
		return result, err
	}

	hash, err := contentHash(cfg.VideoPath, info.Size())
	if err != nil {
		return failVideo(ctx, cfg, existing, "content_hash", err)
	}

	if renamed, rr, rerr := stageRenameCheck(ctx, cfg, hash); renamed {
		return rr, rerr
	}

	video := existing
	video.FilePath = cfg.VideoPath
	video.Size = info.Size()
	video.MTime = info.ModTime()
	video.ContentHash = hash
	video.State = storage.VideoStatePending

	if ctx.Err() != nil {
		return ProcessResult{VideoID: video.VideoID, Outcome: OutcomeCancelled}, nil
	}

	clips, segErr := stageSegmentation(ctx, cfg, &video)
	if segErr != nil {
		return failVideo(ctx, cfg, video, "segmentation", segErr)
	}
	result.VideoID = video.VideoID
	result.ClipsSegmented = len(clips)

	if ctx.Err() != nil {
		return ProcessResult{VideoID: video.VideoID, Outcome: OutcomeCancelled}, nil
	}
	result.ClipsCaptioned = stageVisionCaptioning(ctx, cfg, clips)

	if ctx.Err() != nil {
		return ProcessResult{VideoID: video.VideoID, Outcome: OutcomeCancelled}, nil
	}
	result.STTSkippedNoAudio = stageSpeechToText(ctx, cfg, &video, clips)

	if ctx.Err() != nil {
		return ProcessResult{VideoID: video.VideoID, Outcome: OutcomeCancelled}, nil
	}
	result.ClipsEmbedded = stageTextEmbedding(ctx, cfg, clips)

	if ctx.Err() != nil {
		return ProcessResult{VideoID: video.VideoID, Outcome: OutcomeCancelled}, nil
	}
	result.ClipsVisionVector = stageVisionEmbedding(ctx, cfg, clips)

	if !cfg.SkipSync && cfg.GlobalStore != nil && cfg.SyncEngine != nil {
		cfg.reportProgress("sync")
		if _, err := cfg.SyncEngine.Sync(ctx, cfg.FolderPath, cfg.FolderStore, cfg.GlobalStore, false); err != nil {
			logging.Warn("pipeline: sync after %s failed: %v", cfg.VideoPath, err)
		} else {
			result.Synced = true
		}
	}

	result.Outcome = OutcomeProcessed
	metrics.PipelineVideosProcessed.WithLabelValues(string(result.Outcome)).Inc()
	return result, nil
}

// stageFingerprint implements stage 1: a stat-only fast path that returns
// skipped(unchanged) without ever reading the file or hitting the
// segmenter/providers, plus the lookup used by every later stage.
func stageFingerprint(ctx context.Context, cfg Config) (ProcessResult, storage.Video, os.FileInfo, error) {
	stage := "fingerprint"
	start := time.Now()
	defer func() { metrics.PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds()) }()

	cfg.reportProgress(stage)

	info, err := filesystemx.StatWithRetry(cfg.VideoPath, filesystemx.DefaultRetryConfig())
	if err != nil {
		metrics.PipelineStageOutcome.WithLabelValues(stage, "error").Inc()
		return ProcessResult{}, storage.Video{}, nil, StageError{Stage: stage, Err: err}
	}

	existing, err := cfg.FolderStore.FindVideoByPath(ctx, cfg.VideoPath)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		metrics.PipelineStageOutcome.WithLabelValues(stage, "error").Inc()
		return ProcessResult{}, storage.Video{}, nil, StageError{Stage: stage, Err: err}
	}
	found := err == nil

	if found && !cfg.Force && existing.State == storage.VideoStateIndexed &&
		fingerprintMatches(info, existing.Size, existing.MTime.Unix()) {
		metrics.PipelineStageOutcome.WithLabelValues(stage, "skipped").Inc()
		return ProcessResult{VideoID: existing.VideoID, Outcome: OutcomeUnchanged}, existing, info, nil
	}

	metrics.PipelineStageOutcome.WithLabelValues(stage, "ok").Inc()
	return ProcessResult{}, existing, info, nil
}

// stageRenameCheck implements stage 2's rename branch: a hash already known
// under a different path is the same file, just moved.
func stageRenameCheck(ctx context.Context, cfg Config, hash string) (bool, ProcessResult, error) {
	candidate, err := cfg.FolderStore.FindVideoByContentHash(ctx, hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ProcessResult{}, nil
		}
		return true, ProcessResult{}, StageError{Stage: "content_hash", Err: err}
	}
	if candidate.FilePath == cfg.VideoPath {
		return false, ProcessResult{}, nil
	}

	tx, err := cfg.FolderStore.BeginBatch(ctx)
	if err != nil {
		return true, ProcessResult{}, StageError{Stage: "content_hash", Err: err}
	}
	err = cfg.FolderStore.UpdateVideoFilePath(ctx, tx, candidate.VideoID, cfg.VideoPath)
	if err := cfg.FolderStore.EndBatch(tx, err); err != nil {
		return true, ProcessResult{}, StageError{Stage: "content_hash", Err: err}
	}

	logging.Info("pipeline: detected rename of video %d: %s -> %s", candidate.VideoID, candidate.FilePath, cfg.VideoPath)
	return true, ProcessResult{VideoID: candidate.VideoID, Outcome: OutcomeRenamed}, nil
}

func failVideo(ctx context.Context, cfg Config, video storage.Video, stage string, cause error) (ProcessResult, error) {
	video.State = storage.VideoStateFailed
	if video.FilePath == "" {
		video.FilePath = cfg.VideoPath
	}
	tx, err := cfg.FolderStore.BeginBatch(ctx)
	if err == nil {
		err = cfg.FolderStore.UpsertVideo(ctx, tx, &video)
		err = cfg.FolderStore.EndBatch(tx, err)
	}
	if err != nil {
		logging.Error("pipeline: failed to persist failed state for %s: %v", cfg.VideoPath, err)
	}
	logging.Error("pipeline: %s failed at stage %s: %v", cfg.VideoPath, stage, cause)
	metrics.PipelineVideosProcessed.WithLabelValues(string(OutcomeFailed)).Inc()
	return ProcessResult{VideoID: video.VideoID, Outcome: OutcomeFailed, FailureReason: cause.Error()}, StageError{Stage: stage, Err: cause}
}

// stageSegmentation implements stage 3: probe, split into clips, persist the
// video row and clips in one transaction, idempotent by (video_id,
// start_time) so reprocessing an unchanged video doesn't duplicate rows.
func stageSegmentation(ctx context.Context, cfg Config, video *storage.Video) ([]storage.Clip, error) {
	stage := "segmentation"
	start := time.Now()
	defer func() { metrics.PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds()) }()
	cfg.reportProgress(stage)

	probe, err := cfg.Segmenter.Probe(ctx, cfg.VideoPath)
	if err != nil {
		metrics.PipelineStageOutcome.WithLabelValues(stage, "error").Inc()
		return nil, err
	}
	video.DurationSeconds = probe.Duration
	video.HasAudio = probe.HasAudio

	thumbDir := filepath.Join(cfg.ThumbnailDir, thumbnailSubdir(cfg.VideoPath))
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		metrics.PipelineStageOutcome.WithLabelValues(stage, "error").Inc()
		return nil, err
	}

	segments, err := cfg.Segmenter.Segment(ctx, cfg.VideoPath, thumbDir)
	if err != nil {
		metrics.PipelineStageOutcome.WithLabelValues(stage, "error").Inc()
		return nil, err
	}

	tx, err := cfg.FolderStore.BeginBatch(ctx)
	if err != nil {
		metrics.PipelineStageOutcome.WithLabelValues(stage, "error").Inc()
		return nil, err
	}

	video.State = storage.VideoStateIndexed
	if err := cfg.FolderStore.UpsertVideo(ctx, tx, video); err != nil {
		cfg.FolderStore.EndBatch(tx, err)
		metrics.PipelineStageOutcome.WithLabelValues(stage, "error").Inc()
		return nil, err
	}

	existingClips, err := cfg.FolderStore.ListClipsForVideo(ctx, video.VideoID)
	if err != nil {
		cfg.FolderStore.EndBatch(tx, err)
		metrics.PipelineStageOutcome.WithLabelValues(stage, "error").Inc()
		return nil, err
	}

	clips := make([]storage.Clip, 0, len(segments))
	for _, seg := range segments {
		if match := findClipByStart(existingClips, seg.Start); match != nil {
			clips = append(clips, *match)
			continue
		}
		c := storage.Clip{VideoID: video.VideoID, StartTime: seg.Start, EndTime: seg.End, ThumbPath: seg.ThumbnailPath, Tags: "[]"}
		if err := cfg.FolderStore.UpsertClip(ctx, tx, &c); err != nil {
			cfg.FolderStore.EndBatch(tx, err)
			metrics.PipelineStageOutcome.WithLabelValues(stage, "error").Inc()
			return nil, err
		}
		clips = append(clips, c)
	}

	if err := cfg.FolderStore.EndBatch(tx, nil); err != nil {
		metrics.PipelineStageOutcome.WithLabelValues(stage, "error").Inc()
		return nil, err
	}

	metrics.PipelineStageOutcome.WithLabelValues(stage, "ok").Inc()
	metrics.PipelineClipsSegmented.Add(float64(len(clips)))
	return clips, nil
}

func findClipByStart(clips []storage.Clip, start float64) *storage.Clip {
	for i := range clips {
		if math.Abs(clips[i].StartTime-start) <= clipStartEpsilon {
			return &clips[i]
		}
	}
	return nil
}

// thumbnailSubdir derives a stable, filesystem-safe directory name for a
// video's thumbnails from its path so distinct videos never collide.
func thumbnailSubdir(videoPath string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(videoPath))
}
