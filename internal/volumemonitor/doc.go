// Package volumemonitor watches for removable volumes mounting and
// unmounting and keeps registered folders' stored paths consistent with
// wherever their backing volume currently lives.
//
// There is no single teacher file for this — djryanj-media-viewer never
// deals with removable storage — so the poll loop is built in the teacher's
// idiom (goroutine plus ticker, same shape as internal/memory.Monitor's
// monitorLoop) on top of internal/volume's resolver and rebaser. Go has no
// portable mount-event subscription API, so the monitor polls the mount
// table on an interval and diffs it against the previous snapshot to derive
// mount/unmount transitions.
package volumemonitor
