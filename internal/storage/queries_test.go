package storage

import (
	"context"
	"testing"
	"time"
)

func seedOrphanableVideo(t *testing.T, s *Store, filePath string) int64 {
	t.Helper()
	ctx := context.Background()
	tx, err := s.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("begin batch: %v", err)
	}
	v := &Video{FilePath: filePath, Size: 1, MTime: time.Unix(0, 0), State: VideoStatePending}
	if err := s.UpsertVideo(ctx, tx, v); err != nil {
		s.EndBatch(tx, err)
		t.Fatalf("upsert video: %v", err)
	}
	if err := s.EndBatch(tx, nil); err != nil {
		t.Fatalf("end batch: %v", err)
	}
	return v.VideoID
}

func TestDeleteOrphanedBeforeRespectsRetentionCutoff(t *testing.T) {
	s := openTestStore(t, KindFolder)
	ctx := context.Background()
	seedOrphanableVideo(t, s, "/mnt/a.mp4")

	tx, err := s.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("begin batch: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := s.MarkVideosOrphaned(ctx, tx, []string{"/mnt/a.mp4"}, old); err != nil {
		s.EndBatch(tx, err)
		t.Fatalf("mark orphaned: %v", err)
	}
	if err := s.EndBatch(tx, nil); err != nil {
		t.Fatalf("end batch: %v", err)
	}

	// Cutoff before the orphaned_at timestamp: nothing should be deleted yet.
	n, err := s.DeleteOrphanedBefore(ctx, old.Add(-time.Hour))
	if err != nil {
		t.Fatalf("delete orphaned before (too early): %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 deletions before cutoff, got %d", n)
	}

	n, err = s.DeleteOrphanedBefore(ctx, time.Now())
	if err != nil {
		t.Fatalf("delete orphaned before: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 deletion once cutoff passes orphaned_at, got %d", n)
	}

	if _, err := s.FindVideoByPath(ctx, "/mnt/a.mp4"); err == nil {
		t.Errorf("expected orphaned video to be hard-deleted")
	}
}

func TestDeleteOrphanedBeforeIgnoresNonOrphanedVideos(t *testing.T) {
	s := openTestStore(t, KindFolder)
	ctx := context.Background()
	seedOrphanableVideo(t, s, "/mnt/a.mp4")

	n, err := s.DeleteOrphanedBefore(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("delete orphaned before: %v", err)
	}
	if n != 0 {
		t.Errorf("expected pending (non-orphaned) videos to survive, got %d deletions", n)
	}
}

func TestMarkVideosOrphanedPanicsOnGlobalStore(t *testing.T) {
	s := openTestStore(t, KindGlobal)
	ctx := context.Background()
	tx, err := s.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("begin batch: %v", err)
	}
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected MarkVideosOrphaned to panic on a global store")
		}
		s.EndBatch(tx, nil)
	}()
	s.MarkVideosOrphaned(ctx, tx, []string{"/mnt/a.mp4"}, time.Now())
}

func TestListWatchedFoldersRoundTrip(t *testing.T) {
	s := openTestStore(t, KindGlobal)
	ctx := context.Background()

	if err := s.UpsertWatchedFolder(ctx, WatchedFolder{
		FolderPath: "/mnt/vol", VolumeName: "vol", VolumeUUID: "uuid-1", IsAvailable: true,
	}); err != nil {
		t.Fatalf("upsert watched folder: %v", err)
	}

	folders, err := s.ListWatchedFolders(ctx)
	if err != nil {
		t.Fatalf("list watched folders: %v", err)
	}
	if len(folders) != 1 || folders[0].VolumeUUID != "uuid-1" || !folders[0].IsAvailable {
		t.Fatalf("unexpected folders: %+v", folders)
	}

	if err := s.SetFolderAvailability(ctx, "/mnt/vol", false); err != nil {
		t.Fatalf("set folder availability: %v", err)
	}
	folders, err = s.ListWatchedFolders(ctx)
	if err != nil {
		t.Fatalf("list watched folders after availability change: %v", err)
	}
	if folders[0].IsAvailable {
		t.Errorf("expected folder to be marked unavailable")
	}
}
