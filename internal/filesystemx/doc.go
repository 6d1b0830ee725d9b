/*
Package filesystemx provides resilient filesystem operations with automatic
retry logic for transient I/O errors encountered against network-mounted or
removable storage (NFS, SMB, external USB drives that briefly disconnect).

# Purpose

Folders indexed by findit are frequently not local disks: NAS shares, NFS
exports, and external drives that can return a stale-handle or "device not
ready" error for an operation that will succeed a few milliseconds later.
This package wraps os.Stat, os.Open, os.ReadDir and os.WriteFile with retry
logic so that one transient hiccup in the middle of a sync pass does not
fail an entire folder.

# Usage

	info, err := filesystemx.StatWithRetry(path, filesystemx.DefaultRetryConfig())
	if err != nil {
	    // err is the last error seen: returned once retries are exhausted,
	    // or at once for a non-transient error
	}

# Retry behavior

Exponential backoff, defaults:
  - MaxRetries: 3 (up to 4 attempts in all)
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

Only transient errors (ESTALE, ENODEV, EIO, ENOTCONN — see isTransientError) trigger
a retry. Anything else, including os.ErrNotExist, returns immediately.

# Integration

Metrics are recorded through the Observer interface (observer.go) rather
than by importing internal/metrics directly, to avoid an import cycle: the
metrics package itself needs filesystemx.StatWithRetry to size database
files on disk.
*/
package filesystemx
