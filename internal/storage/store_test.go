package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T, kind Kind) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), path, kind)
	if err != nil {
		t.Fatalf("open %s store: %v", kind, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAppliesWALAndForeignKeyPragmas(t *testing.T) {
	s := openTestStore(t, KindFolder)

	var journalMode string
	if err := s.DB().QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected journal_mode=wal, got %q", journalMode)
	}

	var foreignKeys int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
		t.Fatalf("read foreign_keys: %v", err)
	}
	if foreignKeys != 1 {
		t.Errorf("expected foreign_keys=ON, got %d", foreignKeys)
	}
}

func TestOpenIsIdempotentAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s1, err := Open(ctx, path, KindFolder)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s1.UpsertWatchedFolder(ctx, WatchedFolder{FolderPath: "/mnt/vol", IsAvailable: true}); err != nil {
		t.Fatalf("seed watched folder: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(ctx, path, KindFolder)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	folders, err := s2.ListWatchedFolders(ctx)
	if err != nil {
		t.Fatalf("list watched folders after reopen: %v", err)
	}
	if len(folders) != 1 || folders[0].FolderPath != "/mnt/vol" {
		t.Errorf("expected seeded folder to survive reopen, got %+v", folders)
	}
}

func TestEndBatchRollsBackOnError(t *testing.T) {
	s := openTestStore(t, KindFolder)
	ctx := context.Background()

	tx, err := s.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("begin batch: %v", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO videos (file_path, size, mtime, state) VALUES (?, ?, ?, ?)",
		"/mnt/a.mp4", 1, 0, "pending"); err != nil {
		t.Fatalf("insert within tx: %v", err)
	}

	simulatedErr := context.Canceled
	if err := s.EndBatch(tx, simulatedErr); err != simulatedErr {
		t.Fatalf("expected EndBatch to return the passed error, got %v", err)
	}

	if _, err := s.FindVideoByPath(ctx, "/mnt/a.mp4"); err == nil {
		t.Errorf("expected rolled-back insert to not be visible")
	}
}
