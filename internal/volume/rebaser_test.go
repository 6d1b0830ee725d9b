package volume

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/findit-engine/findit/internal/storage"
)

func openFolderStore(t *testing.T) *storage.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "folder.db")
	s, err := storage.Open(context.Background(), path, storage.KindFolder)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedVideoAndClip(t *testing.T, s *storage.Store, filePath, srtPath, thumbPath string) {
	t.Helper()
	ctx := context.Background()

	tx, err := s.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("begin batch: %v", err)
	}
	v := &storage.Video{
		FilePath: filePath,
		Size:     1,
		MTime:    time.Unix(0, 0),
		SRTPath:  srtPath,
		State:    storage.VideoStatePending,
	}
	if err := s.UpsertVideo(ctx, tx, v); err != nil {
		s.EndBatch(tx, err)
		t.Fatalf("upsert video: %v", err)
	}
	c := &storage.Clip{VideoID: v.VideoID, StartTime: 0, EndTime: 1, ThumbPath: thumbPath, Tags: "[]"}
	if err := s.UpsertClip(ctx, tx, c); err != nil {
		s.EndBatch(tx, err)
		t.Fatalf("upsert clip: %v", err)
	}
	if err := s.EndBatch(tx, nil); err != nil {
		t.Fatalf("end batch: %v", err)
	}
}

func TestRebaseIfNeededRewritesPathsUnderPrefix(t *testing.T) {
	s := openFolderStore(t)
	seedVideoAndClip(t, s,
		"/mnt/old/movies/a.mp4", "/mnt/old/movies/a.srt", "/mnt/old/.findit/thumbs/a/0.jpg")

	var r PathRebaser
	didRebase, rows, err := r.RebaseIfNeeded(context.Background(), s, "/mnt/old", "/mnt/new")
	if err != nil {
		t.Fatalf("rebase: %v", err)
	}
	if !didRebase {
		t.Fatalf("expected didRebase=true")
	}
	if rows != 2 {
		t.Errorf("expected 2 rows updated (videos + clips), got %d", rows)
	}

	v, err := s.FindVideoByPath(context.Background(), "/mnt/new/movies/a.mp4")
	if err != nil {
		t.Fatalf("find rebased video: %v", err)
	}
	if v.SRTPath != "/mnt/new/movies/a.srt" {
		t.Errorf("expected srt path rebased, got %q", v.SRTPath)
	}

	clips, err := s.ListClipsForVideo(context.Background(), v.VideoID)
	if err != nil {
		t.Fatalf("list clips: %v", err)
	}
	if len(clips) != 1 || clips[0].ThumbPath != "/mnt/new/.findit/thumbs/a/0.jpg" {
		t.Errorf("expected thumbnail path rebased, got %+v", clips)
	}
}

func TestRebaseIfNeededLeavesOtherPrefixesUntouched(t *testing.T) {
	s := openFolderStore(t)
	seedVideoAndClip(t, s,
		"/mnt/other/movies/a.mp4", "", "")

	var r PathRebaser
	didRebase, rows, err := r.RebaseIfNeeded(context.Background(), s, "/mnt/old", "/mnt/new")
	if err != nil {
		t.Fatalf("rebase: %v", err)
	}
	if !didRebase {
		t.Fatalf("expected didRebase=true even with zero matching rows")
	}
	if rows != 0 {
		t.Errorf("expected 0 rows updated, got %d", rows)
	}

	if _, err := s.FindVideoByPath(context.Background(), "/mnt/other/movies/a.mp4"); err != nil {
		t.Errorf("expected untouched video still findable at its original path: %v", err)
	}
}

func TestRebaseIfNeededNoOpWhenPrefixesEqual(t *testing.T) {
	s := openFolderStore(t)
	seedVideoAndClip(t, s, "/mnt/old/movies/a.mp4", "", "")

	var r PathRebaser
	didRebase, rows, err := r.RebaseIfNeeded(context.Background(), s, "/mnt/old", "/mnt/old")
	if err != nil {
		t.Fatalf("rebase: %v", err)
	}
	if didRebase || rows != 0 {
		t.Errorf("expected no-op, got didRebase=%v rows=%d", didRebase, rows)
	}
}

func TestRebaseIfNeededDoesNotMatchSimilarPrefixWithoutSeparator(t *testing.T) {
	// "/mnt/old2/..." must not be rewritten by a rebase from "/mnt/old" — the
	// prefix match requires the path separator boundary (invariant P4).
	s := openFolderStore(t)
	seedVideoAndClip(t, s, "/mnt/old2/movies/a.mp4", "", "")

	var r PathRebaser
	_, rows, err := r.RebaseIfNeeded(context.Background(), s, "/mnt/old", "/mnt/new")
	if err != nil {
		t.Fatalf("rebase: %v", err)
	}
	if rows != 0 {
		t.Errorf("expected collision-safe prefix match to skip /mnt/old2, got %d rows updated", rows)
	}
}
