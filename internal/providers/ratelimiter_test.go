package providers

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucketLimiterAllowsBurst(t *testing.T) {
	l := NewTokenBucketLimiter("test", 60, 3)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("expected burst of 3 to be near-instant, took %v", elapsed)
	}
}

func TestTokenBucketLimiterRespectsContext(t *testing.T) {
	l := NewTokenBucketLimiter("test", 1, 1)
	ctx := context.Background()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Acquire(cancelCtx); err == nil {
		t.Fatal("expected second acquire to be rate limited and hit the context deadline")
	}
}
