package query

import "testing"

func TestAllowedClipCacheMissThenHit(t *testing.T) {
	var c AllowedClipCache
	if _, ok := c.Get([]string{"/a"}, ""); ok {
		t.Fatal("expected cache miss before any Set")
	}

	set := c.Set([]string{"/a"}, "", []int64{1, 2, 3})
	if !set[1] || !set[2] || !set[3] {
		t.Fatalf("expected set to contain all ids, got %v", set)
	}

	got, ok := c.Get([]string{"/a"}, "")
	if !ok {
		t.Fatal("expected cache hit for the same filter")
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 allowed ids, got %d", len(got))
	}
}

func TestAllowedClipCacheKeyIgnoresFolderOrder(t *testing.T) {
	var c AllowedClipCache
	c.Set([]string{"/b", "/a"}, "", []int64{1})
	if _, ok := c.Get([]string{"/a", "/b"}, ""); !ok {
		t.Fatal("expected cache hit regardless of folder ordering")
	}
}

func TestAllowedClipCacheMissOnDifferentFilter(t *testing.T) {
	var c AllowedClipCache
	c.Set([]string{"/a"}, "", []int64{1})
	if _, ok := c.Get([]string{"/a"}, "/prefix"); ok {
		t.Fatal("expected cache miss for a different path prefix")
	}
	if _, ok := c.Get([]string{"/a", "/b"}, ""); ok {
		t.Fatal("expected cache miss for a different folder set")
	}
}

func TestAllowedClipCacheInvalidate(t *testing.T) {
	var c AllowedClipCache
	c.Set([]string{"/a"}, "", []int64{1})
	c.Invalidate()
	if _, ok := c.Get([]string{"/a"}, ""); ok {
		t.Fatal("expected cache miss after Invalidate")
	}
}
