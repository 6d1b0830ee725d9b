package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/findit-engine/findit/internal/concurrency"
	"github.com/findit-engine/findit/internal/pipeline"
)

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	if !cond() {
		t.Fatal("condition not met before timeout")
	}
}

func TestSchedulerProcessesEnqueuedFolder(t *testing.T) {
	var mu sync.Mutex
	var processed []string

	cb := Callbacks{
		ScanFolder: func(folderPath string) ([]string, error) {
			return []string{"a.mp4", "b.mp4"}, nil
		},
		ProcessVideo: func(ctx context.Context, folderPath, videoPath string) (pipeline.ProcessResult, error) {
			mu.Lock()
			processed = append(processed, videoPath)
			mu.Unlock()
			return pipeline.ProcessResult{Outcome: pipeline.OutcomeProcessed}, nil
		},
	}

	sem := concurrency.NewAsyncSemaphore("test", 2)
	s := New(cb, sem, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.EnqueueFolder("/folder")

	waitUntil(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(processed) == 2
	})

	prog := s.Progress("/folder")
	if prog.Completed != 2 {
		t.Fatalf("expected 2 completed, got %d", prog.Completed)
	}
}

func TestSchedulerProcessSpecificVideos(t *testing.T) {
	var count int
	var mu sync.Mutex

	cb := Callbacks{
		ProcessVideo: func(ctx context.Context, folderPath, videoPath string) (pipeline.ProcessResult, error) {
			mu.Lock()
			count++
			mu.Unlock()
			return pipeline.ProcessResult{Outcome: pipeline.OutcomeProcessed}, nil
		},
	}

	sem := concurrency.NewAsyncSemaphore("test", 1)
	s := New(cb, sem, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.EnqueueVideos("/folder", []string{"x.mp4", "y.mp4", "z.mp4"})

	waitUntil(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 3
	})
}

func TestSchedulerFolderTakesPriorityOverVideos(t *testing.T) {
	var mu sync.Mutex
	var order []string

	cb := Callbacks{
		ScanFolder: func(folderPath string) ([]string, error) {
			mu.Lock()
			order = append(order, "folder:"+folderPath)
			mu.Unlock()
			return nil, nil
		},
		ProcessVideo: func(ctx context.Context, folderPath, videoPath string) (pipeline.ProcessResult, error) {
			mu.Lock()
			order = append(order, "video:"+videoPath)
			mu.Unlock()
			return pipeline.ProcessResult{Outcome: pipeline.OutcomeProcessed}, nil
		},
	}

	sem := concurrency.NewAsyncSemaphore("test", 1)
	s := New(cb, sem, nil)

	// Pause the driver loop by enqueueing before Run starts, so both the
	// folder scan and the video batch are queued before the loop picks
	// anything up. The loop should always drain pendingFolders first.
	s.EnqueueVideos("/other", []string{"q.mp4"})
	s.EnqueueFolder("/priority")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	waitUntil(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	if order[0] != "folder:/priority" {
		t.Fatalf("expected folder scan first, got order %v", order)
	}
}

func TestSchedulerRecordsFailures(t *testing.T) {
	cb := Callbacks{
		ProcessVideo: func(ctx context.Context, folderPath, videoPath string) (pipeline.ProcessResult, error) {
			return pipeline.ProcessResult{Outcome: pipeline.OutcomeFailed, FailureReason: "boom"}, nil
		},
	}

	sem := concurrency.NewAsyncSemaphore("test", 1)
	s := New(cb, sem, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.EnqueueVideos("/folder", []string{"bad.mp4"})

	waitUntil(t, time.Second, func() bool {
		return s.Progress("/folder").Failed == 1
	})
}

func TestSchedulerTracksSTTSkipped(t *testing.T) {
	cb := Callbacks{
		ProcessVideo: func(ctx context.Context, folderPath, videoPath string) (pipeline.ProcessResult, error) {
			return pipeline.ProcessResult{Outcome: pipeline.OutcomeProcessed, STTSkippedNoAudio: true}, nil
		},
	}

	sem := concurrency.NewAsyncSemaphore("test", 1)
	s := New(cb, sem, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.EnqueueVideos("/folder", []string{"silent.mp4"})

	waitUntil(t, time.Second, func() bool {
		p := s.Progress("/folder")
		return p.Completed == 1 && p.STTSkipped == 1
	})
}

func TestSchedulerIsReindexingDuringFolderScan(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	cb := Callbacks{
		ScanFolder: func(folderPath string) ([]string, error) {
			close(started)
			<-release
			return nil, nil
		},
	}

	sem := concurrency.NewAsyncSemaphore("test", 1)
	s := New(cb, sem, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.EnqueueFolder("/slow")
	<-started

	if !s.IsReindexing("/slow") {
		t.Fatal("expected IsReindexing to be true while scan is in flight")
	}
	close(release)

	waitUntil(t, time.Second, func() bool {
		return !s.IsReindexing("/slow")
	})
}

func TestSchedulerCancelIndexingDrainsQueues(t *testing.T) {
	block := make(chan struct{})
	cb := Callbacks{
		ProcessVideo: func(ctx context.Context, folderPath, videoPath string) (pipeline.ProcessResult, error) {
			select {
			case <-ctx.Done():
				return pipeline.ProcessResult{Outcome: pipeline.OutcomeCancelled}, nil
			case <-block:
				return pipeline.ProcessResult{Outcome: pipeline.OutcomeProcessed}, nil
			}
		},
	}

	sem := concurrency.NewAsyncSemaphore("test", 1)
	s := New(cb, sem, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.EnqueueVideos("/folder", []string{"slow.mp4"})
	s.EnqueueFolder("/another")
	s.EnqueueVideos("/third", []string{"queued.mp4"})

	s.CancelIndexing()

	s.mu.Lock()
	pendingFolders := len(s.pendingFolders)
	pendingVideos := len(s.pendingVideos)
	s.mu.Unlock()

	if pendingFolders != 0 || pendingVideos != 0 {
		t.Fatalf("expected drained queues, got folders=%d videos=%d", pendingFolders, pendingVideos)
	}
	close(block)
}
