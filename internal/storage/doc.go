/*
Package storage implements findit's two-tier SQLite storage: one database
per watched folder (the source of truth for that folder's videos and
clips) and a single global database (a denormalized projection used for
cross-folder search).

# Schema

Both schemas share the same core tables (watched_folders, videos, clips,
clip_vectors, sync_meta, search_history) plus an FTS5 virtual table
shadowing clips(description, scene, transcript, subjects, actions,
objects, tags) with a trigram tokenizer, which matches CJK text without
language-specific segmentation. The global schema additionally carries
source_folder/source_video_id/source_clip_id columns on videos/clips so
rows can be traced back to their owning folder database.

# Connections

Every database is opened through modernc.org/sqlite (a CGO-free driver)
with WAL journaling, NORMAL synchronous mode, foreign keys enabled, and a
busy_timeout comfortably above the watcher's debounce window so a writer
never collides with a concurrent reader.

# Migrations

initialize() is schema-as-string, matching the teacher's style; anything
added after the first release goes through runMigrations, which checks
user_version and applies ordered steps inside one transaction.
*/
package storage
