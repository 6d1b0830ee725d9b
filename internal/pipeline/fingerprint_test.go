package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

func TestContentHashStableAcrossRename(t *testing.T) {
	dir := t.TempDir()
	data := make([]byte, 3<<20) // larger than the 1 MiB head/tail window
	for i := range data {
		data[i] = byte(i % 251)
	}

	pathA := filepath.Join(dir, "a.mp4")
	if err := os.WriteFile(pathA, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	hashA, err := contentHash(pathA, int64(len(data)))
	if err != nil {
		t.Fatalf("hash a: %v", err)
	}

	pathB := filepath.Join(dir, "b.mp4")
	if err := os.Rename(pathA, pathB); err != nil {
		t.Fatalf("rename: %v", err)
	}
	hashB, err := contentHash(pathB, int64(len(data)))
	if err != nil {
		t.Fatalf("hash b: %v", err)
	}

	if hashA != hashB {
		t.Fatalf("expected identical hash after rename, got %s vs %s", hashA, hashB)
	}
}

func TestContentHashDiffersOnContentChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.mp4")

	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	h1, err := contentHash(path, 11)
	if err != nil {
		t.Fatalf("hash 1: %v", err)
	}

	if err := os.WriteFile(path, []byte("goodbye world"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	h2, err := contentHash(path, 13)
	if err != nil {
		t.Fatalf("hash 2: %v", err)
	}

	if h1 == h2 {
		t.Fatal("expected different hashes for different content")
	}
}

func TestFingerprintMatches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.mp4")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	if !fingerprintMatches(info, info.Size(), info.ModTime().Unix()) {
		t.Fatal("expected matching fingerprint")
	}
	if fingerprintMatches(info, info.Size()+1, info.ModTime().Unix()) {
		t.Fatal("expected size mismatch to fail fingerprint")
	}
	if fingerprintMatches(info, info.Size(), info.ModTime().Unix()+1) {
		t.Fatal("expected mtime mismatch to fail fingerprint")
	}
}
