// Package sync pushes rows from a per-folder database into the global
// database, keyed by (source_folder, source_video_id/source_clip_id).
//
// A sync run reads everything with a rowid greater than the last synced
// cursor (or every row, when forced), upserts it into the global
// database inside one transaction, and only then advances the cursor —
// so a failure midway leaves the cursor untouched and the next run picks
// up exactly where the last one left off, matching the teacher's
// BeginBatch/EndBatch all-or-nothing transaction pattern.
package sync
