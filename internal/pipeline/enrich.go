package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/findit-engine/findit/internal/logging"
	"github.com/findit-engine/findit/internal/metrics"
	"github.com/findit-engine/findit/internal/providers"
	"github.com/findit-engine/findit/internal/storage"
)

// stageVisionCaptioning implements stage 4. Errors per clip are logged and
// skipped rather than aborting the video: a caption is enrichment, not a
// structural requirement.
func stageVisionCaptioning(ctx context.Context, cfg Config, clips []storage.Clip) int {
	stage := "vision_captioning"
	start := time.Now()
	defer func() { metrics.PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds()) }()
	cfg.reportProgress(stage)

	provider := cfg.VisionProvider
	if provider == nil || !provider.IsAvailable() {
		provider = cfg.VisionFallback
	}
	if provider == nil || !provider.IsAvailable() {
		metrics.PipelineStageOutcome.WithLabelValues(stage, "skipped").Inc()
		return 0
	}

	captioned := 0
	for i := range clips {
		if ctx.Err() != nil {
			break
		}
		c := &clips[i]
		if c.Description != "" {
			continue
		}
		frame, err := os.ReadFile(c.ThumbPath)
		if err != nil {
			logging.Warn("pipeline: vision captioning: read thumbnail %s: %v", c.ThumbPath, err)
			metrics.PipelineStageOutcome.WithLabelValues(stage, "error").Inc()
			continue
		}
		if prepared, err := prepareFrame(frame); err == nil {
			frame = prepared
		}
		if cfg.RateLimiter != nil {
			if err := cfg.RateLimiter.Acquire(ctx); err != nil {
				break
			}
		}
		captions, err := provider.Caption(ctx, [][]byte{frame})
		if err != nil || len(captions) == 0 {
			logging.Warn("pipeline: vision captioning clip %d: %v", c.ClipID, err)
			metrics.PipelineStageOutcome.WithLabelValues(stage, "error").Inc()
			continue
		}
		applyCaption(c, captions[0])
		if err := persistClip(ctx, cfg, c); err != nil {
			logging.Warn("pipeline: persist caption for clip %d: %v", c.ClipID, err)
			metrics.PipelineStageOutcome.WithLabelValues(stage, "error").Inc()
			continue
		}
		captioned++
	}
	metrics.PipelineStageOutcome.WithLabelValues(stage, "ok").Inc()
	return captioned
}

func applyCaption(c *storage.Clip, caption providers.VisionCaption) {
	c.Scene = caption.Scene
	c.Description = caption.Description
	c.Mood = caption.Mood
	c.ShotType = caption.ShotType
	c.Lighting = caption.Lighting
	c.Subjects = encodeJSONStrings(caption.Subjects)
	c.Actions = encodeJSONStrings(caption.Actions)
	c.Objects = encodeJSONStrings(caption.Objects)
	c.Colors = encodeJSONStrings(caption.Colors)
}

func encodeJSONStrings(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func persistClip(ctx context.Context, cfg Config, c *storage.Clip) error {
	tx, err := cfg.FolderStore.BeginBatch(ctx)
	if err != nil {
		return err
	}
	err = cfg.FolderStore.UpsertClip(ctx, tx, c)
	return cfg.FolderStore.EndBatch(tx, err)
}

// stageSpeechToText implements stage 5: one whole-video transcription,
// distributed across clips by timecode overlap. Reports
// stt_skipped_no_audio as a special, non-error outcome rather than folding
// it into the generic error count.
func stageSpeechToText(ctx context.Context, cfg Config, video *storage.Video, clips []storage.Clip) bool {
	stage := "speech_to_text"
	start := time.Now()
	defer func() { metrics.PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds()) }()
	cfg.reportProgress(stage)

	if cfg.SkipSTT || !video.HasAudio || cfg.STTProvider == nil || !cfg.STTProvider.IsAvailable() {
		metrics.PipelineStageOutcome.WithLabelValues(stage, "skipped").Inc()
		return false
	}

	audio, err := cfg.Segmenter.ExtractAudio(ctx, cfg.VideoPath)
	if err != nil {
		logging.Warn("pipeline: extract audio for %s: %v", cfg.VideoPath, err)
		metrics.PipelineStageOutcome.WithLabelValues(stage, "error").Inc()
		return false
	}

	result, err := cfg.STTProvider.Transcribe(ctx, audio)
	if err != nil {
		if _, ok := err.(providers.ErrNoAudio); ok {
			metrics.PipelineStageOutcome.WithLabelValues(stage, "skipped_no_audio").Inc()
			return true
		}
		logging.Warn("pipeline: transcribe %s: %v", cfg.VideoPath, err)
		metrics.PipelineStageOutcome.WithLabelValues(stage, "error").Inc()
		return false
	}

	if result.SRT != "" {
		srtPath := cfg.VideoPath + ".findit.srt"
		if err := os.WriteFile(srtPath, []byte(result.SRT), 0o644); err != nil {
			logging.Warn("pipeline: write srt for %s: %v", cfg.VideoPath, err)
		} else {
			video.SRTPath = srtPath
			tx, err := cfg.FolderStore.BeginBatch(ctx)
			if err == nil {
				err = cfg.FolderStore.UpsertVideo(ctx, tx, video)
				cfg.FolderStore.EndBatch(tx, err)
			}
		}
	}

	cues := parseSRT(result.SRT)
	if len(cues) == 0 && result.Text != "" {
		cues = []srtCue{{Start: 0, End: video.DurationSeconds, Text: result.Text}}
	}
	for i := range clips {
		c := &clips[i]
		transcript := cuesOverlapping(cues, c.StartTime, c.EndTime)
		if transcript == "" {
			continue
		}
		c.Transcript = transcript
		if err := persistClip(ctx, cfg, c); err != nil {
			logging.Warn("pipeline: persist transcript for clip %d: %v", c.ClipID, err)
		}
	}
	metrics.PipelineStageOutcome.WithLabelValues(stage, "ok").Inc()
	return false
}

// stageTextEmbedding implements stage 6: every clip whose composed text is
// non-empty and whose stored embedding_model lags the configured provider
// gets a fresh embedding.
func stageTextEmbedding(ctx context.Context, cfg Config, clips []storage.Clip) int {
	stage := "text_embedding"
	start := time.Now()
	defer func() { metrics.PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds()) }()
	cfg.reportProgress(stage)

	if cfg.EmbeddingProvider == nil || !cfg.EmbeddingProvider.IsAvailable() {
		metrics.PipelineStageOutcome.WithLabelValues(stage, "skipped").Inc()
		return 0
	}

	embedded := 0
	for i := range clips {
		if ctx.Err() != nil {
			break
		}
		c := &clips[i]
		if c.EmbeddingModel == cfg.EmbeddingProvider.Name() {
			continue
		}
		text := composeClipText(c.Scene, c.Description, c.Subjects, c.Actions, c.Objects, c.Transcript, c.Tags)
		if text == "" {
			continue
		}
		vec, err := cfg.EmbeddingProvider.Embed(ctx, text)
		if err != nil {
			logging.Warn("pipeline: text embedding clip %d: %v", c.ClipID, err)
			metrics.PipelineStageOutcome.WithLabelValues(stage, "error").Inc()
			continue
		}
		c.Embedding = encodeVector(vec)
		c.EmbeddingModel = cfg.EmbeddingProvider.Name()
		c.EmbeddingDimensions = cfg.EmbeddingProvider.Dimensions()
		if err := persistClip(ctx, cfg, c); err != nil {
			logging.Warn("pipeline: persist embedding for clip %d: %v", c.ClipID, err)
			metrics.PipelineStageOutcome.WithLabelValues(stage, "error").Inc()
			continue
		}
		embedded++
	}
	metrics.PipelineStageOutcome.WithLabelValues(stage, "ok").Inc()
	return embedded
}

// stageVisionEmbedding implements stage 7: a CLIP-family image embedding
// per clip thumbnail, stored alongside (not replacing) the text embedding
// so hybrid search can fuse both spaces.
func stageVisionEmbedding(ctx context.Context, cfg Config, clips []storage.Clip) int {
	stage := "vision_embedding"
	start := time.Now()
	defer func() { metrics.PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds()) }()
	cfg.reportProgress(stage)

	if cfg.CLIPProvider == nil || !cfg.CLIPProvider.IsAvailable() {
		metrics.PipelineStageOutcome.WithLabelValues(stage, "skipped").Inc()
		return 0
	}

	modelName := cfg.CLIPProvider.Name()
	embedded := 0
	for i := range clips {
		if ctx.Err() != nil {
			break
		}
		c := &clips[i]
		has, err := cfg.FolderStore.HasClipVector(ctx, c.ClipID, modelName)
		if err != nil {
			logging.Warn("pipeline: check clip vector for clip %d: %v", c.ClipID, err)
			continue
		}
		if has {
			continue
		}
		frame, err := os.ReadFile(c.ThumbPath)
		if err != nil {
			logging.Warn("pipeline: vision embedding: read thumbnail %s: %v", c.ThumbPath, err)
			metrics.PipelineStageOutcome.WithLabelValues(stage, "error").Inc()
			continue
		}
		if prepared, err := prepareFrame(frame); err == nil {
			frame = prepared
		}
		vec, err := cfg.CLIPProvider.EncodeImage(ctx, frame)
		if err != nil {
			logging.Warn("pipeline: vision embedding clip %d: %v", c.ClipID, err)
			metrics.PipelineStageOutcome.WithLabelValues(stage, "error").Inc()
			continue
		}
		tx, err := cfg.FolderStore.BeginBatch(ctx)
		if err != nil {
			continue
		}
		err = cfg.FolderStore.UpsertClipVector(ctx, tx, storage.ClipVector{ClipID: c.ClipID, ModelName: modelName, Vector: encodeVector(vec)})
		if err := cfg.FolderStore.EndBatch(tx, err); err != nil {
			logging.Warn("pipeline: persist vision embedding for clip %d: %v", c.ClipID, err)
			metrics.PipelineStageOutcome.WithLabelValues(stage, "error").Inc()
			continue
		}
		embedded++
	}
	metrics.PipelineStageOutcome.WithLabelValues(stage, "ok").Inc()
	return embedded
}
