package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/findit-engine/findit/internal/providers"
	"github.com/findit-engine/findit/internal/storage"
)

// fakeSegmenter stands in for ffmpeg/ffprobe so tests never shell out.
type fakeSegmenter struct {
	probe    VideoProbe
	segments []Segment
	probeErr error
	segErr   error
	audio    []byte
	audioErr error
}

func (f *fakeSegmenter) Probe(ctx context.Context, videoPath string) (VideoProbe, error) {
	return f.probe, f.probeErr
}

func (f *fakeSegmenter) Segment(ctx context.Context, videoPath, thumbnailDir string) ([]Segment, error) {
	if f.segErr != nil {
		return nil, f.segErr
	}
	for i, s := range f.segments {
		thumbPath := filepath.Join(thumbnailDir, "thumb.jpg")
		if err := os.WriteFile(thumbPath, []byte("jpeg"), 0o644); err != nil {
			return nil, err
		}
		f.segments[i].ThumbnailPath = thumbPath
	}
	return f.segments, nil
}

func (f *fakeSegmenter) ExtractAudio(ctx context.Context, videoPath string) ([]byte, error) {
	return f.audio, f.audioErr
}

func openFolderStore(t *testing.T) *storage.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "folder.db")
	s, err := storage.Open(context.Background(), path, storage.KindFolder)
	if err != nil {
		t.Fatalf("open folder store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeTestVideo(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fake video bytes"), 0o644); err != nil {
		t.Fatalf("write test video: %v", err)
	}
	return path
}

func baseConfig(t *testing.T, store *storage.Store, videoPath string, seg *fakeSegmenter) Config {
	return Config{
		VideoPath:    videoPath,
		FolderPath:   filepath.Dir(videoPath),
		ThumbnailDir: t.TempDir(),
		FolderStore:  store,
		Segmenter:    seg,
		SkipSTT:      true,
		SkipSync:     true,
	}
}

func TestProcessVideoSegmentsAndPersists(t *testing.T) {
	store := openFolderStore(t)
	dir := t.TempDir()
	videoPath := writeTestVideo(t, dir, "a.mp4")

	seg := &fakeSegmenter{
		probe:    VideoProbe{Duration: 60, HasAudio: false},
		segments: []Segment{{Start: 0, End: 30}, {Start: 30, End: 60}},
	}
	cfg := baseConfig(t, store, videoPath, seg)

	result, err := ProcessVideo(context.Background(), cfg)
	if err != nil {
		t.Fatalf("ProcessVideo: %v", err)
	}
	if result.Outcome != OutcomeProcessed {
		t.Fatalf("expected processed, got %s", result.Outcome)
	}
	if result.ClipsSegmented != 2 {
		t.Fatalf("expected 2 clips segmented, got %d", result.ClipsSegmented)
	}

	video, err := store.FindVideoByPath(context.Background(), videoPath)
	if err != nil {
		t.Fatalf("find video: %v", err)
	}
	if video.State != storage.VideoStateIndexed {
		t.Fatalf("expected indexed state, got %s", video.State)
	}

	clips, err := store.ListClipsForVideo(context.Background(), video.VideoID)
	if err != nil {
		t.Fatalf("list clips: %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("expected 2 persisted clips, got %d", len(clips))
	}
}

func TestProcessVideoSkipsUnchanged(t *testing.T) {
	store := openFolderStore(t)
	dir := t.TempDir()
	videoPath := writeTestVideo(t, dir, "a.mp4")

	seg := &fakeSegmenter{probe: VideoProbe{Duration: 10}, segments: []Segment{{Start: 0, End: 10}}}
	cfg := baseConfig(t, store, videoPath, seg)

	if _, err := ProcessVideo(context.Background(), cfg); err != nil {
		t.Fatalf("first pass: %v", err)
	}

	result, err := ProcessVideo(context.Background(), cfg)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if result.Outcome != OutcomeUnchanged {
		t.Fatalf("expected unchanged on second pass, got %s", result.Outcome)
	}
}

func TestProcessVideoReprocessingIsIdempotent(t *testing.T) {
	store := openFolderStore(t)
	dir := t.TempDir()
	videoPath := writeTestVideo(t, dir, "a.mp4")

	seg := &fakeSegmenter{probe: VideoProbe{Duration: 10}, segments: []Segment{{Start: 0, End: 10}}}
	cfg := baseConfig(t, store, videoPath, seg)
	cfg.Force = true

	if _, err := ProcessVideo(context.Background(), cfg); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if _, err := ProcessVideo(context.Background(), cfg); err != nil {
		t.Fatalf("second pass: %v", err)
	}

	video, err := store.FindVideoByPath(context.Background(), videoPath)
	if err != nil {
		t.Fatalf("find video: %v", err)
	}
	clips, err := store.ListClipsForVideo(context.Background(), video.VideoID)
	if err != nil {
		t.Fatalf("list clips: %v", err)
	}
	if len(clips) != 1 {
		t.Fatalf("expected segmentation to stay idempotent by start_time, got %d clips", len(clips))
	}
}

func TestProcessVideoDetectsRename(t *testing.T) {
	store := openFolderStore(t)
	dir := t.TempDir()
	oldPath := writeTestVideo(t, dir, "old.mp4")

	seg := &fakeSegmenter{probe: VideoProbe{Duration: 10}, segments: []Segment{{Start: 0, End: 10}}}
	cfg := baseConfig(t, store, oldPath, seg)
	first, err := ProcessVideo(context.Background(), cfg)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}

	newPath := filepath.Join(dir, "new.mp4")
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatalf("rename: %v", err)
	}

	cfg.VideoPath = newPath
	result, err := ProcessVideo(context.Background(), cfg)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if result.Outcome != OutcomeRenamed {
		t.Fatalf("expected renamed, got %s", result.Outcome)
	}
	if result.VideoID != first.VideoID {
		t.Fatalf("expected same video id across rename, got %d vs %d", result.VideoID, first.VideoID)
	}

	if _, err := store.FindVideoByPath(context.Background(), oldPath); err == nil {
		t.Fatal("expected old path to no longer resolve")
	}
	if _, err := store.FindVideoByPath(context.Background(), newPath); err != nil {
		t.Fatalf("expected new path to resolve: %v", err)
	}
}

func TestProcessVideoMarksFailedOnSegmentationError(t *testing.T) {
	store := openFolderStore(t)
	dir := t.TempDir()
	videoPath := writeTestVideo(t, dir, "a.mp4")

	seg := &fakeSegmenter{probeErr: context.DeadlineExceeded}
	cfg := baseConfig(t, store, videoPath, seg)

	result, err := ProcessVideo(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected an error")
	}
	if result.Outcome != OutcomeFailed {
		t.Fatalf("expected failed, got %s", result.Outcome)
	}

	video, findErr := store.FindVideoByPath(context.Background(), videoPath)
	if findErr != nil {
		t.Fatalf("find video: %v", findErr)
	}
	if video.State != storage.VideoStateFailed {
		t.Fatalf("expected failed state persisted, got %s", video.State)
	}
}

func TestProcessVideoCancelledBeforeSegmentation(t *testing.T) {
	store := openFolderStore(t)
	dir := t.TempDir()
	videoPath := writeTestVideo(t, dir, "a.mp4")

	seg := &fakeSegmenter{probe: VideoProbe{Duration: 10}, segments: []Segment{{Start: 0, End: 10}}}
	cfg := baseConfig(t, store, videoPath, seg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := ProcessVideo(ctx, cfg)
	if err != nil {
		t.Fatalf("cancellation should not surface as an error: %v", err)
	}
	if result.Outcome != OutcomeCancelled {
		t.Fatalf("expected cancelled, got %s", result.Outcome)
	}
}

// fakeSTT implements providers.STTProvider and always reports no audio.
type fakeSTT struct{ available bool }

func (f *fakeSTT) Name() string      { return "fake-stt" }
func (f *fakeSTT) IsAvailable() bool { return f.available }
func (f *fakeSTT) Transcribe(ctx context.Context, audio []byte) (providers.TranscriptionResult, error) {
	return providers.TranscriptionResult{}, providers.ErrNoAudio{}
}

func TestProcessVideoReportsSTTSkippedNoAudio(t *testing.T) {
	store := openFolderStore(t)
	dir := t.TempDir()
	videoPath := writeTestVideo(t, dir, "a.mp4")

	seg := &fakeSegmenter{probe: VideoProbe{Duration: 10, HasAudio: true}, segments: []Segment{{Start: 0, End: 10}}}
	cfg := baseConfig(t, store, videoPath, seg)
	cfg.SkipSTT = false
	cfg.STTProvider = &fakeSTT{available: true}

	result, err := ProcessVideo(context.Background(), cfg)
	if err != nil {
		t.Fatalf("ProcessVideo: %v", err)
	}
	if !result.STTSkippedNoAudio {
		t.Fatal("expected stt_skipped_no_audio to be reported")
	}
}

func TestProcessVideoTextEmbedding(t *testing.T) {
	store := openFolderStore(t)
	dir := t.TempDir()
	videoPath := writeTestVideo(t, dir, "a.mp4")

	seg := &fakeSegmenter{probe: VideoProbe{Duration: 10}, segments: []Segment{{Start: 0, End: 10}}}
	cfg := baseConfig(t, store, videoPath, seg)
	cfg.EmbeddingProvider = providers.NewOfflineEmbeddingProvider("test-embed", mustModelFile(t), 4,
		func(string) ([]float32, error) { return []float32{0.1, 0.2, 0.3, 0.4}, nil })

	result, err := ProcessVideo(context.Background(), cfg)
	if err != nil {
		t.Fatalf("ProcessVideo: %v", err)
	}
	// The segmented clip has no description/scene/transcript yet, so its
	// composed text is empty and embedding is skipped, matching stage 6's
	// "non-empty composed text" predicate.
	if result.ClipsEmbedded != 0 {
		t.Fatalf("expected 0 embedded clips with no text, got %d", result.ClipsEmbedded)
	}
}

func mustModelFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.bin")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write model file: %v", err)
	}
	return path
}
