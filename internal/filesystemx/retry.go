package filesystemx

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/findit-engine/findit/internal/logging"
)

// VolumeResolver maps file paths to known volume labels for metric
// labeling and rebase lookups. It uses longest-prefix matching on
// absolute paths.
type VolumeResolver struct {
	mounts []volumeMount
}

type volumeMount struct {
	path string // absolute path with trailing slash
	name string // volume label
}

// NewVolumeResolver creates a resolver from a map of volume label -> mount path.
func NewVolumeResolver(volumes map[string]string) *VolumeResolver {
	mounts := make([]volumeMount, 0, len(volumes))
	for name, path := range volumes {
		absPath, err := filepath.Abs(path)
		if err != nil {
			absPath = path
		}
		if !strings.HasSuffix(absPath, "/") {
			absPath += "/"
		}
		mounts = append(mounts, volumeMount{path: absPath, name: name})
	}

	sort.Slice(mounts, func(i, j int) bool {
		return len(mounts[i].path) > len(mounts[j].path)
	})

	return &VolumeResolver{mounts: mounts}
}

// Resolve returns the volume label for a given file path, or "unknown" if
// the path doesn't fall under any currently registered mount.
func (vr *VolumeResolver) Resolve(path string) string {
	if vr == nil {
		return "unknown"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "unknown"
	}

	for _, mount := range vr.mounts {
		if strings.HasPrefix(absPath+"/", mount.path) || strings.HasPrefix(absPath, mount.path) {
			return mount.name
		}
	}

	return "unknown"
}

// defaultResolver is the package-level resolver installed with
// SetDefaultVolumeResolver; while it is unset, volume lookups report "unknown".
var defaultResolver *VolumeResolver

// SetDefaultVolumeResolver sets the package-level volume resolver.
func SetDefaultVolumeResolver(vr *VolumeResolver) {
	defaultResolver = vr
}

// RetryConfig configures retry behavior for filesystem operations.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// VolumeResolver overrides the package-level resolver for this call.
	VolumeResolver *VolumeResolver
}

// DefaultRetryConfig returns sensible defaults for resilient retry behavior
// against flaky network-mounted and removable storage.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

func (c *RetryConfig) resolveVolume(path string) string {
	if c.VolumeResolver != nil {
		return c.VolumeResolver.Resolve(path)
	}
	return defaultResolver.Resolve(path)
}

// isTransientError reports whether err is a class of I/O error that is
// worth retrying: a stale NFS file handle, a removable device that briefly
// dropped off the bus, or a generic I/O error surfaced mid-read.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ESTALE, syscall.ENODEV, syscall.EIO, syscall.ENOTCONN:
			return true
		}
	}

	return false
}

// retryOperation runs op, retrying with exponential backoff while it
// returns a transient error, and reports the outcome to the package
// observer. name is the fs operation being retried: "stat", "open",
// "readdir", "write".
func retryOperation(name, path string, config RetryConfig, op func() error) error {
	start := time.Now()
	volume := config.resolveVolume(path)
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := op()
		if err == nil {
			if attempt > 0 {
				logging.Info("%s succeeded on retry %d for %s", name, attempt, path)
				if o := observe(); o != nil {
					o.ObserveRetrySuccess(name, volume)
				}
			}
			if o := observe(); o != nil {
				o.ObserveRetryDuration(name, volume, time.Since(start).Seconds())
				o.ObserveOperation(volume, name, time.Since(start).Seconds(), nil)
			}
			return nil
		}

		lastErr = err

		if !isTransientError(err) {
			if o := observe(); o != nil {
				o.ObserveRetryDuration(name, volume, time.Since(start).Seconds())
				o.ObserveOperation(volume, name, time.Since(start).Seconds(), err)
			}
			return err
		}

		if o := observe(); o != nil {
			o.ObserveStaleError(name, volume)
		}

		if attempt < config.MaxRetries {
			if o := observe(); o != nil {
				o.ObserveRetryAttempt(name, volume)
			}
			logging.Debug("%s transient error for %s, retrying in %v (attempt %d/%d): %v",
				name, path, backoff, attempt+1, config.MaxRetries, err)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("%s failed after %d retries for %s: %v", name, config.MaxRetries, path, lastErr)
	if o := observe(); o != nil {
		o.ObserveRetryFailure(name, volume)
		o.ObserveRetryDuration(name, volume, time.Since(start).Seconds())
		o.ObserveOperation(volume, name, time.Since(start).Seconds(), lastErr)
	}
	return lastErr
}

// StatWithRetry performs os.Stat with retry on transient I/O errors.
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	var info os.FileInfo
	err := retryOperation("stat", path, config, func() error {
		var statErr error
		info, statErr = os.Stat(path)
		return statErr
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// OpenWithRetry performs os.Open with retry on transient I/O errors.
func OpenWithRetry(path string, config RetryConfig) (*os.File, error) {
	var file *os.File
	err := retryOperation("open", path, config, func() error {
		var openErr error
		file, openErr = os.Open(path)
		return openErr
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

// ReadDirWithRetry performs os.ReadDir with retry on transient I/O errors.
func ReadDirWithRetry(path string, config RetryConfig) ([]os.DirEntry, error) {
	var entries []os.DirEntry
	err := retryOperation("readdir", path, config, func() error {
		var readErr error
		entries, readErr = os.ReadDir(path)
		return readErr
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// WriteFileWithRetry performs os.WriteFile with retry on transient I/O errors.
func WriteFileWithRetry(path string, data []byte, perm os.FileMode, config RetryConfig) error {
	return retryOperation("write", path, config, func() error {
		return os.WriteFile(path, data, perm)
	})
}
