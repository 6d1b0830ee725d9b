//go:build linux

package volume

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/findit-engine/findit/internal/logging"
)

// procMountsLister reads /proc/mounts for the current mount table and
// resolves device UUIDs through the /dev/disk/by-uuid symlink farm that
// udev maintains on every mainstream Linux distribution.
type procMountsLister struct{}

// NewLister returns the platform Lister for the current OS.
func NewLister() Lister {
	return procMountsLister{}
}

func (procMountsLister) List() ([]Mount, error) {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	byUUID := deviceToUUID()

	var mounts []Mount
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		device, mountPoint, fsType := fields[0], fields[1], fields[2]

		if !isRealFilesystem(fsType) {
			continue
		}

		mounts = append(mounts, Mount{
			MountPoint: unescapeMountPoint(mountPoint),
			VolumeUUID: byUUID[device],
			VolumeName: filepath.Base(mountPoint),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return mounts, nil
}

// deviceToUUID builds a device-path -> UUID map from /dev/disk/by-uuid,
// which udev populates with one symlink per UUID pointing at the real
// block device node.
func deviceToUUID() map[string]string {
	out := map[string]string{}

	entries, err := os.ReadDir("/dev/disk/by-uuid")
	if err != nil {
		logging.Debug("volume: /dev/disk/by-uuid unavailable: %v", err)
		return out
	}

	for _, e := range entries {
		linkPath := filepath.Join("/dev/disk/by-uuid", e.Name())
		target, err := os.Readlink(linkPath)
		if err != nil {
			continue
		}
		devicePath := target
		if !filepath.IsAbs(devicePath) {
			devicePath = filepath.Join("/dev/disk/by-uuid", devicePath)
		}
		resolved, err := filepath.Abs(devicePath)
		if err != nil {
			continue
		}
		out[filepath.Clean(resolved)] = e.Name()
	}

	return out
}

// isRealFilesystem filters out pseudo-filesystems that never correspond to
// a folder a user would register for indexing.
func isRealFilesystem(fsType string) bool {
	switch fsType {
	case "proc", "sysfs", "devtmpfs", "devpts", "tmpfs", "cgroup", "cgroup2",
		"pstore", "securityfs", "debugfs", "tracefs", "mqueue", "autofs",
		"overlay", "squashfs", "bpf", "configfs", "fusectl", "rpc_pipefs":
		return false
	}
	return true
}

func unescapeMountPoint(s string) string {
	// /proc/mounts octal-escapes space, tab, newline, and backslash.
	replacer := strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`)
	return replacer.Replace(s)
}
