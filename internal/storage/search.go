package storage

import (
	"context"
	"database/sql"
	"strings"
)

// FTSHit is one row of the clips_fts MATCH query: a clip ID plus its
// bm25 rank (lower is better, matching SQLite FTS5's convention).
type FTSHit struct {
	ClipID int64
	Rank   float64
}

// ClipSearchResult is a hydrated clip row joined with its owning video's
// path, for presenting search results without a second round trip.
type ClipSearchResult struct {
	Clip
	FilePath string
}

func folderFilterClause(global bool, folderPaths []string) (string, []interface{}) {
	if len(folderPaths) == 0 {
		return "", nil
	}
	placeholders := make([]string, len(folderPaths))
	args := make([]interface{}, len(folderPaths))
	for i, f := range folderPaths {
		placeholders[i] = "?"
		args[i] = f
	}
	col := "clips.source_folder"
	if !global {
		col = "videos.file_path" // per-folder DBs have no source_folder column
	}
	return " AND " + col + " IN (" + strings.Join(placeholders, ",") + ")", args
}

// EmbeddingRow is one clip's raw text-embedding BLOB, as loaded in bulk to
// warm the brute-force vector store.
type EmbeddingRow struct {
	ClipID int64
	Vector []byte
}

// ListClipEmbeddings bulk-loads every clip's embedding BLOB for the named
// model, for the text-embedding VectorStore's cache-miss load path.
func (s *Store) ListClipEmbeddings(ctx context.Context, modelName string) ([]EmbeddingRow, error) {
	done := observeQuery(s.kind, "list_clip_embeddings")
	rows, err := s.db.QueryContext(ctx, `
		SELECT clip_id, embedding FROM clips
		WHERE embedding_model = ? AND embedding IS NOT NULL
	`, modelName)
	if err != nil {
		done(err)
		return nil, err
	}
	defer rows.Close()

	var out []EmbeddingRow
	for rows.Next() {
		var r EmbeddingRow
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

// SearchFTS runs the clips_fts MATCH query against this database, filtered
// by folderPaths (source folders for the global DB) and/or a file_path
// prefix, ordered by bm25 rank, limited to limit rows.
func (s *Store) SearchFTS(ctx context.Context, ftsQuery string, folderPaths []string, pathPrefix string, limit int) ([]FTSHit, error) {
	done := observeQuery(s.kind, "search_fts")

	query := `
		SELECT clips.clip_id, bm25(clips_fts) AS rank
		FROM clips_fts
		JOIN clips ON clips.clip_id = clips_fts.rowid
		JOIN videos ON videos.video_id = clips.video_id
		WHERE clips_fts MATCH ?`
	args := []interface{}{ftsQuery}

	folderClause, folderArgs := folderFilterClause(s.kind == KindGlobal, folderPaths)
	query += folderClause
	args = append(args, folderArgs...)

	if pathPrefix != "" {
		query += " AND videos.file_path LIKE ? || '/%'"
		args = append(args, pathPrefix)
	}
	query += " ORDER BY rank LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		done(err)
		return nil, err
	}
	defer rows.Close()

	var out []FTSHit
	for rows.Next() {
		var h FTSHit
		if err := rows.Scan(&h.ClipID, &h.Rank); err != nil {
			done(err)
			return nil, err
		}
		out = append(out, h)
	}
	err = rows.Err()
	done(err)
	return out, err
}

// ResolveAllowedClipIDs returns every clip ID matching the given
// folder/prefix filter, for the SearchEngine's allowed_clip_ids cache.
func (s *Store) ResolveAllowedClipIDs(ctx context.Context, folderPaths []string, pathPrefix string) ([]int64, error) {
	done := observeQuery(s.kind, "resolve_allowed_clip_ids")

	query := `SELECT clips.clip_id FROM clips JOIN videos ON videos.video_id = clips.video_id WHERE 1=1`
	var args []interface{}

	folderClause, folderArgs := folderFilterClause(s.kind == KindGlobal, folderPaths)
	query += folderClause
	args = append(args, folderArgs...)

	if pathPrefix != "" {
		query += " AND videos.file_path LIKE ? || '/%'"
		args = append(args, pathPrefix)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		done(err)
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			done(err)
			return nil, err
		}
		out = append(out, id)
	}
	err = rows.Err()
	done(err)
	return out, err
}

// HydrateClips loads full clip rows (joined with their video's file_path)
// for a set of clip IDs, preserving the caller's ordering — SQL's IN
// clause makes no ordering guarantee, so the result is reassembled in Go
// from a clip_id -> row map.
func (s *Store) HydrateClips(ctx context.Context, clipIDs []int64) ([]ClipSearchResult, error) {
	if len(clipIDs) == 0 {
		return nil, nil
	}
	done := observeQuery(s.kind, "hydrate_clips")

	placeholders := make([]string, len(clipIDs))
	args := make([]interface{}, len(clipIDs))
	for i, id := range clipIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT clips.clip_id, clips.video_id, clips.start_time, clips.end_time, clips.thumbnail_path,
			clips.scene, clips.description, clips.subjects, clips.actions, clips.objects, clips.mood,
			clips.shot_type, clips.lighting, clips.colors, clips.transcript, clips.tags, clips.rating,
			clips.color_label, clips.embedding, clips.embedding_model, clips.embedding_dimensions,
			videos.file_path
		FROM clips JOIN videos ON videos.video_id = clips.video_id
		WHERE clips.clip_id IN (`+strings.Join(placeholders, ",")+`)
	`, args...)
	if err != nil {
		done(err)
		return nil, err
	}
	defer rows.Close()

	byID := make(map[int64]ClipSearchResult, len(clipIDs))
	for rows.Next() {
		var c ClipSearchResult
		var thumb, scene, desc, subj, act, obj, mood, shot, light, colors, transcript, colorLabel, embModel sql.NullString
		var embDim sql.NullInt64
		if err := rows.Scan(&c.ClipID, &c.VideoID, &c.StartTime, &c.EndTime, &thumb, &scene, &desc, &subj,
			&act, &obj, &mood, &shot, &light, &colors, &transcript, &c.Tags, &c.Rating, &colorLabel,
			&c.Embedding, &embModel, &embDim, &c.FilePath); err != nil {
			done(err)
			return nil, err
		}
		c.ThumbPath, c.Scene, c.Description = thumb.String, scene.String, desc.String
		c.Subjects, c.Actions, c.Objects = subj.String, act.String, obj.String
		c.Mood, c.ShotType, c.Lighting, c.Colors = mood.String, shot.String, light.String, colors.String
		c.Transcript, c.ColorLabel, c.EmbeddingModel = transcript.String, colorLabel.String, embModel.String
		c.EmbeddingDimensions = int(embDim.Int64)
		byID[c.ClipID] = c
	}
	if err := rows.Err(); err != nil {
		done(err)
		return nil, err
	}

	out := make([]ClipSearchResult, 0, len(clipIDs))
	for _, id := range clipIDs {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	done(nil)
	return out, nil
}
