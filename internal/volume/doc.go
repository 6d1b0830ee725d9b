// Package volume maps filesystem paths to the OS volume that backs them
// and rewrites stored paths when a removable volume remounts at a new
// mount point.
//
// VolumeResolver tracks currently mounted volumes (by UUID where the
// platform exposes one) and resolves a path to its owning volume's name
// and UUID using longest-prefix matching, the same technique the teacher
// codebase used for static volume labels — generalized here to a mount
// table that changes at runtime. PathRebaser rewrites the file_path,
// srt_path, and thumbnail_path columns of a storage.Store when a folder's
// absolute location changes, in a single transaction, matching prefixes
// exactly as spec'd (startswith(prefix + "/")) so "/Volumes/DriveA" never
// matches "/Volumes/DriveA 1".
package volume
