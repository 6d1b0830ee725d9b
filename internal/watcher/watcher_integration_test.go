package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFileSystemWatcherCoalescesWritesIntoOneBatch(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(file, []byte("a"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	var mu sync.Mutex
	var batches [][]FileChangeEvent

	w, err := NewFileSystemWatcher(60*time.Millisecond, func(folder string, events []FileChangeEvent) {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, events)
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.StopAll()

	if err := w.Watch(dir); err != nil {
		t.Fatalf("watch: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(file, []byte("update"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) >= 1
	})

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 {
		t.Fatalf("expected writes within the debounce window to coalesce into one batch, got %d batches: %+v", len(batches), batches)
	}
	if len(batches[0]) != 1 || batches[0][0].Kind != EventModified {
		t.Fatalf("expected a single deduplicated modified event, got %+v", batches[0])
	}
}

func TestFileSystemWatcherReportsNewFile(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var lastBatch []FileChangeEvent

	w, err := NewFileSystemWatcher(60*time.Millisecond, func(folder string, events []FileChangeEvent) {
		mu.Lock()
		defer mu.Unlock()
		lastBatch = events
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.StopAll()

	if err := w.Watch(dir); err != nil {
		t.Fatalf("watch: %v", err)
	}

	newFile := filepath.Join(dir, "new.mp4")
	if err := os.WriteFile(newFile, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(lastBatch) > 0
	})

	mu.Lock()
	defer mu.Unlock()
	found := false
	for _, ev := range lastBatch {
		if ev.Path == newFile && ev.Kind == EventAdded {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an added event for %s, got %+v", newFile, lastBatch)
	}
}

func TestFileSystemWatcherUnwatchStopsEvents(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var batchCount int

	w, err := NewFileSystemWatcher(30*time.Millisecond, func(folder string, events []FileChangeEvent) {
		mu.Lock()
		defer mu.Unlock()
		batchCount++
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.StopAll()

	if err := w.Watch(dir); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if err := w.Unwatch(dir); err != nil {
		t.Fatalf("unwatch: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "ignored.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if batchCount != 0 {
		t.Fatalf("expected no batches after unwatch, got %d", batchCount)
	}
}
