package storage

import (
	"context"
	"database/sql"
	"time"
)

// GlobalVideoID looks up the global database's local video_id for a row
// originally sourced from (sourceFolder, sourceVideoID). Used by the sync
// engine to translate a folder-local clip.video_id foreign key into the
// global database's own autoincrement key.
func (s *Store) GlobalVideoID(ctx context.Context, sourceFolder string, sourceVideoID int64) (int64, error) {
	if s.kind != KindGlobal {
		panic("GlobalVideoID is only valid on the global store")
	}
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT video_id FROM videos WHERE source_folder = ? AND source_video_id = ?`,
		sourceFolder, sourceVideoID).Scan(&id)
	return id, err
}

// UpsertWatchedFolder inserts or updates a folder registration.
func (s *Store) UpsertWatchedFolder(ctx context.Context, f WatchedFolder) error {
	done := observeQuery(s.kind, "upsert_watched_folder")
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watched_folders (folder_path, volume_name, volume_uuid, is_available, last_seen_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(folder_path) DO UPDATE SET
			volume_name  = excluded.volume_name,
			volume_uuid  = excluded.volume_uuid,
			is_available = excluded.is_available,
			last_seen_at = excluded.last_seen_at
	`, f.FolderPath, f.VolumeName, f.VolumeUUID, f.IsAvailable, f.LastSeenAt.Unix())
	done(err)
	return err
}

// SetFolderAvailability flips is_available for a folder, used by the
// volume monitor on mount/unmount.
func (s *Store) SetFolderAvailability(ctx context.Context, folderPath string, available bool) error {
	done := observeQuery(s.kind, "set_folder_availability")
	_, err := s.db.ExecContext(ctx,
		`UPDATE watched_folders SET is_available = ?, last_seen_at = ? WHERE folder_path = ?`,
		available, time.Now().Unix(), folderPath)
	done(err)
	return err
}

// ListWatchedFolders returns every registered folder.
func (s *Store) ListWatchedFolders(ctx context.Context) ([]WatchedFolder, error) {
	done := observeQuery(s.kind, "list_watched_folders")
	rows, err := s.db.QueryContext(ctx, `SELECT folder_path, volume_name, volume_uuid, is_available, last_seen_at FROM watched_folders`)
	done(err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []WatchedFolder
	for rows.Next() {
		var f WatchedFolder
		var volumeName, volumeUUID sql.NullString
		var lastSeen sql.NullInt64
		if err := rows.Scan(&f.FolderPath, &volumeName, &volumeUUID, &f.IsAvailable, &lastSeen); err != nil {
			return nil, err
		}
		f.VolumeName = volumeName.String
		f.VolumeUUID = volumeUUID.String
		if lastSeen.Valid {
			f.LastSeenAt = time.Unix(lastSeen.Int64, 0)
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

// UpsertVideo inserts or updates a video row within a transaction, keyed by
// file_path on a folder store or (source_folder, source_video_id) on the
// global store.
func (s *Store) UpsertVideo(ctx context.Context, tx *sql.Tx, v *Video) error {
	done := observeQuery(s.kind, "upsert_video")
	var err error
	defer func() { done(err) }()

	var orphanedAt sql.NullInt64
	if !v.OrphanedAt.IsZero() {
		orphanedAt = sql.NullInt64{Int64: v.OrphanedAt.Unix(), Valid: true}
	}

	if s.kind == KindGlobal {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO videos (source_folder, source_video_id, file_path, size, mtime, content_hash, duration_seconds, has_audio, srt_path, state, orphaned_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(source_folder, source_video_id) DO UPDATE SET
				file_path = excluded.file_path, size = excluded.size, mtime = excluded.mtime,
				content_hash = excluded.content_hash, duration_seconds = excluded.duration_seconds,
				has_audio = excluded.has_audio, srt_path = excluded.srt_path, state = excluded.state,
				orphaned_at = excluded.orphaned_at
			RETURNING video_id
		`, v.SourceFolder, v.SourceVideoID, v.FilePath, v.Size, v.MTime.Unix(), v.ContentHash, v.DurationSeconds, v.HasAudio, v.SRTPath, string(v.State), orphanedAt)
		err = row.Scan(&v.VideoID)
		return err
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO videos (file_path, size, mtime, content_hash, duration_seconds, has_audio, srt_path, state, orphaned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			size = excluded.size, mtime = excluded.mtime, content_hash = excluded.content_hash,
			duration_seconds = excluded.duration_seconds, has_audio = excluded.has_audio,
			srt_path = excluded.srt_path, state = excluded.state, orphaned_at = excluded.orphaned_at
		RETURNING video_id
	`, v.FilePath, v.Size, v.MTime.Unix(), v.ContentHash, v.DurationSeconds, v.HasAudio, v.SRTPath, string(v.State), orphanedAt)
	err = row.Scan(&v.VideoID)
	return err
}

// UpsertClip inserts or updates a clip row within a transaction.
func (s *Store) UpsertClip(ctx context.Context, tx *sql.Tx, c *Clip) error {
	done := observeQuery(s.kind, "upsert_clip")
	var err error
	defer func() { done(err) }()

	if s.kind == KindGlobal {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO clips (source_folder, source_clip_id, video_id, start_time, end_time, thumbnail_path,
				scene, description, subjects, actions, objects, mood, shot_type, lighting, colors,
				transcript, tags, rating, color_label, embedding, embedding_model, embedding_dimensions)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(source_folder, source_clip_id) DO UPDATE SET
				video_id = excluded.video_id, start_time = excluded.start_time, end_time = excluded.end_time,
				thumbnail_path = excluded.thumbnail_path, scene = excluded.scene, description = excluded.description,
				subjects = excluded.subjects, actions = excluded.actions, objects = excluded.objects,
				mood = excluded.mood, shot_type = excluded.shot_type, lighting = excluded.lighting,
				colors = excluded.colors, transcript = excluded.transcript, tags = excluded.tags,
				rating = excluded.rating, color_label = excluded.color_label, embedding = excluded.embedding,
				embedding_model = excluded.embedding_model, embedding_dimensions = excluded.embedding_dimensions
			RETURNING clip_id
		`, c.SourceFolder, c.SourceClipID, c.VideoID, c.StartTime, c.EndTime, c.ThumbPath,
			c.Scene, c.Description, c.Subjects, c.Actions, c.Objects, c.Mood, c.ShotType, c.Lighting, c.Colors,
			c.Transcript, c.Tags, c.Rating, c.ColorLabel, c.Embedding, c.EmbeddingModel, c.EmbeddingDimensions)
		err = row.Scan(&c.ClipID)
		return err
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO clips (video_id, start_time, end_time, thumbnail_path, scene, description, subjects,
			actions, objects, mood, shot_type, lighting, colors, transcript, tags, rating, color_label,
			embedding, embedding_model, embedding_dimensions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING clip_id
	`, c.VideoID, c.StartTime, c.EndTime, c.ThumbPath, c.Scene, c.Description, c.Subjects,
		c.Actions, c.Objects, c.Mood, c.ShotType, c.Lighting, c.Colors, c.Transcript, c.Tags, c.Rating, c.ColorLabel,
		c.Embedding, c.EmbeddingModel, c.EmbeddingDimensions)
	err = row.Scan(&c.ClipID)
	return err
}

// UpsertClipVector inserts or replaces a named embedding for a clip.
func (s *Store) UpsertClipVector(ctx context.Context, tx *sql.Tx, cv ClipVector) error {
	done := observeQuery(s.kind, "upsert_clip_vector")
	_, err := tx.ExecContext(ctx, `
		INSERT INTO clip_vectors (clip_id, model_name, vector) VALUES (?, ?, ?)
		ON CONFLICT(clip_id, model_name) DO UPDATE SET vector = excluded.vector
	`, cv.ClipID, cv.ModelName, cv.Vector)
	done(err)
	return err
}

// HasClipVector reports whether a clip already carries an embedding for the
// named model, so the pipeline's vision-embedding stage can skip clips that
// are already up to date.
func (s *Store) HasClipVector(ctx context.Context, clipID int64, modelName string) (bool, error) {
	done := observeQuery(s.kind, "has_clip_vector")
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM clip_vectors WHERE clip_id = ? AND model_name = ?`, clipID, modelName).Scan(&exists)
	done(err)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ClipVectorRow is one raw (clip_id, vector) pair as read from clip_vectors,
// undecoded.
type ClipVectorRow struct {
	ClipID int64
	Vector []byte
}

// CountClipVectors returns how many clips carry an embedding for modelName,
// used by the HNSW rebuilder to preallocate before paging through rows.
func (s *Store) CountClipVectors(ctx context.Context, modelName string) (int64, error) {
	done := observeQuery(s.kind, "count_clip_vectors")
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clip_vectors WHERE model_name = ?`, modelName).Scan(&count)
	done(err)
	return count, err
}

// ListClipVectorsPage pages through every clip_vectors row for modelName in
// a stable order, for batch index rebuilds. clip_vectors has no surrogate
// key of its own (its primary key is the composite clip_id, model_name), so
// rowid — SQLite's implicit one, monotonically assigned on insert — serves
// the same "row N was written before row N+1" role the stable ordering
// needs.
func (s *Store) ListClipVectorsPage(ctx context.Context, modelName string, limit, offset int) ([]ClipVectorRow, error) {
	done := observeQuery(s.kind, "list_clip_vectors_page")
	rows, err := s.db.QueryContext(ctx, `
		SELECT clip_id, vector FROM clip_vectors
		WHERE model_name = ?
		ORDER BY rowid
		LIMIT ? OFFSET ?
	`, modelName, limit, offset)
	if err != nil {
		done(err)
		return nil, err
	}
	defer rows.Close()

	var out []ClipVectorRow
	for rows.Next() {
		var r ClipVectorRow
		if err := rows.Scan(&r.ClipID, &r.Vector); err != nil {
			done(err)
			return nil, err
		}
		out = append(out, r)
	}
	err = rows.Err()
	done(err)
	return out, err
}

// GetSyncCursor returns the last synced row version for (folderPath, table),
// or zero if nothing has been synced yet.
func (s *Store) GetSyncCursor(ctx context.Context, folderPath, table string) (int64, error) {
	done := observeQuery(s.kind, "get_sync_cursor")
	var version int64
	err := s.db.QueryRowContext(ctx,
		`SELECT row_version FROM sync_meta WHERE folder_path = ? AND table_name = ?`,
		folderPath, table).Scan(&version)
	done(err)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return version, err
}

// SetSyncCursor records the last synced row version for (folderPath, table).
func (s *Store) SetSyncCursor(ctx context.Context, tx *sql.Tx, folderPath, table string, version int64) error {
	done := observeQuery(s.kind, "set_sync_cursor")
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sync_meta (folder_path, table_name, row_version) VALUES (?, ?, ?)
		ON CONFLICT(folder_path, table_name) DO UPDATE SET row_version = excluded.row_version
	`, folderPath, table, version)
	done(err)
	return err
}

// RemoveFolderData deletes every global-database row sourced from
// folderPath, plus its sync_meta entries, in one transaction.
func (s *Store) RemoveFolderData(ctx context.Context, folderPath string) error {
	if s.kind != KindGlobal {
		panic("RemoveFolderData is only valid on the global store")
	}

	tx, err := s.BeginBatch(ctx)
	if err != nil {
		return err
	}

	done := observeQuery(s.kind, "remove_folder_data")
	_, err = tx.ExecContext(ctx, `DELETE FROM clips WHERE source_folder = ?`, folderPath)
	if err == nil {
		_, err = tx.ExecContext(ctx, `DELETE FROM videos WHERE source_folder = ?`, folderPath)
	}
	if err == nil {
		_, err = tx.ExecContext(ctx, `DELETE FROM sync_meta WHERE folder_path = ?`, folderPath)
	}
	if err == nil {
		_, err = tx.ExecContext(ctx, `DELETE FROM watched_folders WHERE folder_path = ?`, folderPath)
	}
	done(err)

	return s.EndBatch(tx, err)
}

// RenameFolderPath rewrites every global-database reference to oldPath so it
// reads newPath instead: watched_folders, sync_meta, and the source_folder
// provenance column on videos and clips. Used by the volume monitor after a
// folder's mount point moves, alongside PathRebaser rewriting the folder
// store's own file paths.
func (s *Store) RenameFolderPath(ctx context.Context, oldPath, newPath string) error {
	if s.kind != KindGlobal {
		panic("RenameFolderPath is only valid on the global store")
	}

	tx, err := s.BeginBatch(ctx)
	if err != nil {
		return err
	}

	done := observeQuery(s.kind, "rename_folder_path")
	_, err = tx.ExecContext(ctx, `UPDATE watched_folders SET folder_path = ? WHERE folder_path = ?`, newPath, oldPath)
	if err == nil {
		_, err = tx.ExecContext(ctx, `UPDATE sync_meta SET folder_path = ? WHERE folder_path = ?`, newPath, oldPath)
	}
	if err == nil {
		_, err = tx.ExecContext(ctx, `UPDATE videos SET source_folder = ? WHERE source_folder = ?`, newPath, oldPath)
	}
	if err == nil {
		_, err = tx.ExecContext(ctx, `UPDATE clips SET source_folder = ? WHERE source_folder = ?`, newPath, oldPath)
	}
	done(err)

	return s.EndBatch(tx, err)
}

// RecordSearch appends a search history entry.
func (s *Store) RecordSearch(ctx context.Context, r SearchRecord) error {
	done := observeQuery(s.kind, "record_search")
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_history (query, result_count, timestamp) VALUES (?, ?, ?)`,
		r.Query, r.ResultCount, r.Timestamp.Unix())
	done(err)
	return err
}

// MaxVideoRowID returns the highest video_id in the folder store, used by
// the sync engine to read "rowid > cursor" without a second index.
func (s *Store) MaxVideoRowID(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(video_id) FROM videos`).Scan(&max)
	if err != nil {
		return 0, err
	}
	return max.Int64, nil
}

// MaxClipRowID returns the highest clip_id in the folder store.
func (s *Store) MaxClipRowID(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(clip_id) FROM clips`).Scan(&max)
	if err != nil {
		return 0, err
	}
	return max.Int64, nil
}

// VideosSince returns videos with video_id greater than sinceID, ordered by
// video_id, for the sync engine to read and push to the global database.
func (s *Store) VideosSince(ctx context.Context, sinceID int64) ([]Video, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT video_id, file_path, size, mtime, content_hash, duration_seconds, has_audio, srt_path, state, orphaned_at
		FROM videos WHERE video_id > ? ORDER BY video_id
	`, sinceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Video
	for rows.Next() {
		var v Video
		var contentHash, srtPath sql.NullString
		var duration sql.NullFloat64
		var mtime int64
		var orphanedAt sql.NullInt64
		var state string
		if err := rows.Scan(&v.VideoID, &v.FilePath, &v.Size, &mtime, &contentHash, &duration, &v.HasAudio, &srtPath, &state, &orphanedAt); err != nil {
			return nil, err
		}
		v.MTime = time.Unix(mtime, 0)
		v.ContentHash = contentHash.String
		v.DurationSeconds = duration.Float64
		v.SRTPath = srtPath.String
		v.State = VideoState(state)
		if orphanedAt.Valid {
			v.OrphanedAt = time.Unix(orphanedAt.Int64, 0)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ClipsSince returns clips with clip_id greater than sinceID, ordered by
// clip_id.
func (s *Store) ClipsSince(ctx context.Context, sinceID int64) ([]Clip, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT clip_id, video_id, start_time, end_time, thumbnail_path, scene, description, subjects,
			actions, objects, mood, shot_type, lighting, colors, transcript, tags, rating, color_label,
			embedding, embedding_model, embedding_dimensions
		FROM clips WHERE clip_id > ? ORDER BY clip_id
	`, sinceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Clip
	for rows.Next() {
		var c Clip
		var thumb, scene, desc, subj, act, obj, mood, shot, light, colors, transcript, colorLabel, embModel sql.NullString
		var embDim sql.NullInt64
		if err := rows.Scan(&c.ClipID, &c.VideoID, &c.StartTime, &c.EndTime, &thumb, &scene, &desc, &subj,
			&act, &obj, &mood, &shot, &light, &colors, &transcript, &c.Tags, &c.Rating, &colorLabel,
			&c.Embedding, &embModel, &embDim); err != nil {
			return nil, err
		}
		c.ThumbPath, c.Scene, c.Description = thumb.String, scene.String, desc.String
		c.Subjects, c.Actions, c.Objects = subj.String, act.String, obj.String
		c.Mood, c.ShotType, c.Lighting, c.Colors = mood.String, shot.String, light.String, colors.String
		c.Transcript, c.ColorLabel, c.EmbeddingModel = transcript.String, colorLabel.String, embModel.String
		c.EmbeddingDimensions = int(embDim.Int64)
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindVideoByPath looks up a folder store's video row by file_path. Returns
// sql.ErrNoRows when no such row exists.
func (s *Store) FindVideoByPath(ctx context.Context, filePath string) (Video, error) {
	return s.scanVideo(ctx, `WHERE file_path = ?`, filePath)
}

// FindVideoByContentHash looks up a video row by content_hash, used by the
// pipeline's rename-detection step: a file that moved keeps its hash but
// changes file_path. Returns sql.ErrNoRows when no row carries that hash.
func (s *Store) FindVideoByContentHash(ctx context.Context, contentHash string) (Video, error) {
	return s.scanVideo(ctx, `WHERE content_hash = ?`, contentHash)
}

func (s *Store) scanVideo(ctx context.Context, where string, args ...interface{}) (Video, error) {
	done := observeQuery(s.kind, "find_video")
	var v Video
	var contentHash, srtPath sql.NullString
	var duration sql.NullFloat64
	var mtime int64
	var state string
	row := s.db.QueryRowContext(ctx, `
		SELECT video_id, file_path, size, mtime, content_hash, duration_seconds, has_audio, srt_path, state
		FROM videos `+where, args...)
	err := row.Scan(&v.VideoID, &v.FilePath, &v.Size, &mtime, &contentHash, &duration, &v.HasAudio, &srtPath, &state)
	done(err)
	if err != nil {
		return Video{}, err
	}
	v.MTime = time.Unix(mtime, 0)
	v.ContentHash = contentHash.String
	v.DurationSeconds = duration.Float64
	v.SRTPath = srtPath.String
	v.State = VideoState(state)
	return v, nil
}

// UpdateVideoFilePath rewrites a video's file_path in place, used when
// content-hash matching detects the underlying file was renamed or moved
// within the same folder rather than replaced.
func (s *Store) UpdateVideoFilePath(ctx context.Context, tx *sql.Tx, videoID int64, newPath string) error {
	done := observeQuery(s.kind, "update_video_file_path")
	_, err := tx.ExecContext(ctx, `UPDATE videos SET file_path = ? WHERE video_id = ?`, newPath, videoID)
	done(err)
	return err
}

// ListClipsForVideo returns every clip belonging to a video, ordered by
// start_time, so pipeline stages can resume idempotently.
func (s *Store) ListClipsForVideo(ctx context.Context, videoID int64) ([]Clip, error) {
	done := observeQuery(s.kind, "list_clips_for_video")
	rows, err := s.db.QueryContext(ctx, `
		SELECT clip_id, video_id, start_time, end_time, thumbnail_path, scene, description, subjects,
			actions, objects, mood, shot_type, lighting, colors, transcript, tags, rating, color_label,
			embedding, embedding_model, embedding_dimensions
		FROM clips WHERE video_id = ? ORDER BY start_time
	`, videoID)
	done(err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Clip
	for rows.Next() {
		var c Clip
		var thumb, scene, desc, subj, act, obj, mood, shot, light, colors, transcript, colorLabel, embModel sql.NullString
		var embDim sql.NullInt64
		if err := rows.Scan(&c.ClipID, &c.VideoID, &c.StartTime, &c.EndTime, &thumb, &scene, &desc, &subj,
			&act, &obj, &mood, &shot, &light, &colors, &transcript, &c.Tags, &c.Rating, &colorLabel,
			&c.Embedding, &embModel, &embDim); err != nil {
			return nil, err
		}
		c.ThumbPath, c.Scene, c.Description = thumb.String, scene.String, desc.String
		c.Subjects, c.Actions, c.Objects = subj.String, act.String, obj.String
		c.Mood, c.ShotType, c.Lighting, c.Colors = mood.String, shot.String, light.String, colors.String
		c.Transcript, c.ColorLabel, c.EmbeddingModel = transcript.String, colorLabel.String, embModel.String
		c.EmbeddingDimensions = int(embDim.Int64)
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkVideosOrphaned soft-deletes videos by file_path on a folder store:
// their state flips to orphaned and orphaned_at is stamped, so the next
// sync carries both into the global database and the retention sweep can
// later find them. Clips and thumbnails are left in place until the sweep
// hard-deletes the video row (and cascades).
func (s *Store) MarkVideosOrphaned(ctx context.Context, tx *sql.Tx, filePaths []string, at time.Time) error {
	if s.kind != KindFolder {
		panic("MarkVideosOrphaned is only valid on a folder store")
	}
	if len(filePaths) == 0 {
		return nil
	}
	done := observeQuery(s.kind, "mark_videos_orphaned")
	var err error
	for _, p := range filePaths {
		if _, err = tx.ExecContext(ctx,
			`UPDATE videos SET state = ?, orphaned_at = ? WHERE file_path = ?`,
			string(VideoStateOrphaned), at.Unix(), p); err != nil {
			break
		}
	}
	done(err)
	return err
}

// DeleteOrphanedBefore hard-deletes every video whose state is orphaned and
// whose orphaned_at predates cutoff, cascading to its clips and
// clip_vectors via foreign keys. Returns the number of videos removed. Valid
// on both folder and global stores: the retention sweep runs it once per
// folder store (the source of truth) and once on the global projection so
// neither side outlives the other.
func (s *Store) DeleteOrphanedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	done := observeQuery(s.kind, "delete_orphaned_before")
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM videos WHERE state = ? AND orphaned_at IS NOT NULL AND orphaned_at < ?`,
		string(VideoStateOrphaned), cutoff.Unix())
	done(err)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
