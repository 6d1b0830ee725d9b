// Package watcher turns raw fsnotify events into coalesced, deduplicated
// batches of FileChangeEvent and routes them to per-folder handlers.
//
// FileSystemWatcher owns the fsnotify.Watcher and a per-path debounce timer,
// adapted from the teacher's indexDebouncer (internal/indexer/indexer.go):
// instead of one global timer that re-triggers a full reindex, each watched
// folder gets its own ~1.5s timer that flushes a deduplicated batch of
// events to a callback. FileWatcherManager drains those batches through a
// single goroutine per folder so ordering is preserved, and decides whether
// to defer, rescan, or dispatch them to the indexing pipeline.
package watcher
