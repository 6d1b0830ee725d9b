package storage

// Kind distinguishes a per-folder database from the global database. It
// doubles as the Prometheus "database" label value throughout this package.
type Kind string

const (
	KindFolder Kind = "folder"
	KindGlobal Kind = "global"
)

// currentSchemaVersion is the highest user_version this binary understands.
// Opening a database whose user_version exceeds this is a MigrationError.
// The baseline schema created by initialize() is version 0; bump this and
// append to the migrations list in migrations.go when a real migration
// is needed.
const currentSchemaVersion = 0

const commonSchema = `
CREATE TABLE IF NOT EXISTS watched_folders (
	folder_path  TEXT PRIMARY KEY,
	volume_name  TEXT,
	volume_uuid  TEXT,
	is_available INTEGER NOT NULL DEFAULT 1,
	last_seen_at INTEGER
);

CREATE TABLE IF NOT EXISTS sync_meta (
	folder_path  TEXT NOT NULL,
	table_name   TEXT NOT NULL,
	row_version  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (folder_path, table_name)
);

CREATE TABLE IF NOT EXISTS search_history (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	query        TEXT NOT NULL,
	result_count INTEGER NOT NULL,
	timestamp    INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
`

// videosTable and clipsTable are shared between both schema kinds; the
// global variant adds source_folder/source_*_id for provenance and a
// different uniqueness constraint.
func videosTable(global bool) string {
	extra := ""
	unique := "UNIQUE(file_path)"
	if global {
		extra = `
	source_folder   TEXT NOT NULL,
	source_video_id INTEGER NOT NULL,`
		unique = "UNIQUE(source_folder, source_video_id)"
	}
	return `
CREATE TABLE IF NOT EXISTS videos (
	video_id         INTEGER PRIMARY KEY AUTOINCREMENT,` + extra + `
	file_path        TEXT NOT NULL,
	size             INTEGER NOT NULL,
	mtime            INTEGER NOT NULL,
	content_hash     TEXT,
	duration_seconds REAL,
	has_audio        INTEGER,
	srt_path         TEXT,
	state            TEXT NOT NULL DEFAULT 'pending',
	orphaned_at      INTEGER,
	` + unique + `
);

CREATE INDEX IF NOT EXISTS idx_videos_state ON videos(state);
CREATE INDEX IF NOT EXISTS idx_videos_file_path ON videos(file_path);
`
}

func clipsTable(global bool) string {
	extra := ""
	unique := ""
	fk := "FOREIGN KEY (video_id) REFERENCES videos(video_id) ON DELETE CASCADE"
	if global {
		extra = `
	source_folder  TEXT NOT NULL,
	source_clip_id INTEGER NOT NULL,`
		unique = "UNIQUE(source_folder, source_clip_id),"
		// The global DB's video_id is a local autoincrement key, not a
		// foreign key into a videos table owned by another database file.
		fk = "FOREIGN KEY (video_id) REFERENCES videos(video_id) ON DELETE CASCADE"
	}
	return `
CREATE TABLE IF NOT EXISTS clips (
	clip_id     INTEGER PRIMARY KEY AUTOINCREMENT,` + extra + `
	video_id    INTEGER NOT NULL,
	start_time  REAL NOT NULL,
	end_time    REAL NOT NULL,
	thumbnail_path TEXT,
	scene       TEXT,
	description TEXT,
	subjects    TEXT,
	actions     TEXT,
	objects     TEXT,
	mood        TEXT,
	shot_type   TEXT,
	lighting    TEXT,
	colors      TEXT,
	transcript  TEXT,
	tags        TEXT NOT NULL DEFAULT '[]',
	rating      INTEGER NOT NULL DEFAULT 0,
	color_label TEXT,
	embedding            BLOB,
	embedding_model      TEXT,
	embedding_dimensions INTEGER,
	` + unique + `
	` + fk + `
);

CREATE INDEX IF NOT EXISTS idx_clips_video_id ON clips(video_id);
CREATE INDEX IF NOT EXISTS idx_clips_rating ON clips(rating);

CREATE TABLE IF NOT EXISTS clip_vectors (
	clip_id    INTEGER NOT NULL,
	model_name TEXT NOT NULL,
	vector     BLOB NOT NULL,
	PRIMARY KEY (clip_id, model_name),
	FOREIGN KEY (clip_id) REFERENCES clips(clip_id) ON DELETE CASCADE
);

CREATE VIRTUAL TABLE IF NOT EXISTS clips_fts USING fts5(
	description,
	scene,
	transcript,
	subjects,
	actions,
	objects,
	tags,
	content='clips',
	content_rowid='clip_id',
	tokenize='trigram'
);

CREATE TRIGGER IF NOT EXISTS clips_ai AFTER INSERT ON clips BEGIN
	INSERT INTO clips_fts(rowid, description, scene, transcript, subjects, actions, objects, tags)
	VALUES (new.clip_id, new.description, new.scene, new.transcript, new.subjects, new.actions, new.objects, new.tags);
END;

CREATE TRIGGER IF NOT EXISTS clips_ad AFTER DELETE ON clips BEGIN
	INSERT INTO clips_fts(clips_fts, rowid, description, scene, transcript, subjects, actions, objects, tags)
	VALUES('delete', old.clip_id, old.description, old.scene, old.transcript, old.subjects, old.actions, old.objects, old.tags);
END;

CREATE TRIGGER IF NOT EXISTS clips_au AFTER UPDATE ON clips BEGIN
	INSERT INTO clips_fts(clips_fts, rowid, description, scene, transcript, subjects, actions, objects, tags)
	VALUES('delete', old.clip_id, old.description, old.scene, old.transcript, old.subjects, old.actions, old.objects, old.tags);
	INSERT INTO clips_fts(rowid, description, scene, transcript, subjects, actions, objects, tags)
	VALUES (new.clip_id, new.description, new.scene, new.transcript, new.subjects, new.actions, new.objects, new.tags);
END;
`
}

// schemaFor returns the full CREATE-statement schema for a database kind.
func schemaFor(kind Kind) string {
	global := kind == KindGlobal
	schema := commonSchema + videosTable(global) + clipsTable(global)
	if global {
		schema += `
CREATE INDEX IF NOT EXISTS idx_videos_source ON videos(source_folder, source_video_id);
CREATE INDEX IF NOT EXISTS idx_clips_source ON clips(source_folder, source_clip_id);
`
	}
	return schema
}
