package volume

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// VolumeResolver maps file paths to the volume that currently backs them,
// using longest-prefix matching over the live mount table, and remembers
// for each volume UUID the mount point it had in an earlier mount table so
// a rebase can compute how much of a path to rewrite after a remount.
type VolumeResolver struct {
	lister Lister

	mu      sync.RWMutex
	mounts  []Mount           // sorted longest-prefix-first
	history map[string]string // volume UUID -> mount point in the last table a Refresh replaced that listed it
}

// NewResolver creates a resolver backed by lister. Call Refresh once at
// startup and again whenever the volume monitor observes a mount/unmount.
func NewResolver(lister Lister) *VolumeResolver {
	return &VolumeResolver{
		lister:  lister,
		history: make(map[string]string),
	}
}

// Refresh re-enumerates mounted volumes from the Lister.
func (r *VolumeResolver) Refresh() error {
	mounts, err := r.lister.List()
	if err != nil {
		return err
	}

	sort.Slice(mounts, func(i, j int) bool {
		return len(mounts[i].MountPoint) > len(mounts[j].MountPoint)
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.mounts {
		if m.VolumeUUID != "" {
			r.history[m.VolumeUUID] = m.MountPoint
		}
	}
	r.mounts = mounts
	return nil
}

// Mounts returns a snapshot of the currently known mount table.
func (r *VolumeResolver) Mounts() []Mount {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Mount, len(r.mounts))
	copy(out, r.mounts)
	return out
}

// Resolve returns the volume name and UUID backing path, matching the
// longest registered mount point that is a prefix of path. Returns empty
// strings if no mount matches.
func (r *VolumeResolver) Resolve(path string) (volumeName, volumeUUID string) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", ""
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.mounts {
		if hasPathPrefix(absPath, m.MountPoint) {
			return m.VolumeName, m.VolumeUUID
		}
	}
	return "", ""
}

// ResolveUpdatedPath rewrites oldPath under volumeUUID's previously known
// mount point to live under its current one. Returns ok=false if the
// volume is not currently mounted, or if oldPath doesn't fall under any
// mount point this resolver has ever observed for that UUID.
func (r *VolumeResolver) ResolveUpdatedPath(oldPath, volumeUUID string) (newPath string, ok bool) {
	if volumeUUID == "" {
		return "", false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var currentMountPoint string
	for _, m := range r.mounts {
		if m.VolumeUUID == volumeUUID {
			currentMountPoint = m.MountPoint
			break
		}
	}
	if currentMountPoint == "" {
		return "", false
	}

	oldMountPoint, known := r.history[volumeUUID]
	if !known || oldMountPoint == currentMountPoint {
		return "", false
	}
	if !hasPathPrefix(oldPath, oldMountPoint) {
		return "", false
	}

	return currentMountPoint + strings.TrimPrefix(oldPath, oldMountPoint), true
}

// hasPathPrefix reports whether path is prefix itself or lives under
// prefix as a directory component — never matching "/Volumes/DriveA 1"
// against prefix "/Volumes/DriveA".
func hasPathPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return strings.HasPrefix(path, prefix)
}
