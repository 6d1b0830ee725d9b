package storage

import "time"

// VideoState is the lifecycle state of a Video row.
type VideoState string

const (
	VideoStatePending  VideoState = "pending"
	VideoStateIndexed  VideoState = "indexed"
	VideoStateFailed   VideoState = "failed"
	VideoStateOrphaned VideoState = "orphaned"
)

// WatchedFolder is a directory registered for indexing.
type WatchedFolder struct {
	FolderPath  string
	VolumeName  string
	VolumeUUID  string
	IsAvailable bool
	LastSeenAt  time.Time
}

// Video is a single video file tracked within a folder database.
type Video struct {
	VideoID         int64
	FilePath        string
	Size            int64
	MTime           time.Time
	ContentHash     string
	DurationSeconds float64
	HasAudio        bool
	SRTPath         string
	State           VideoState
	OrphanedAt      time.Time // zero unless State == VideoStateOrphaned

	// Set only on rows read from the global database.
	SourceFolder  string
	SourceVideoID int64
}

// Clip is a scene/segment within a Video, carrying all derived metadata.
type Clip struct {
	ClipID      int64
	VideoID     int64
	StartTime   float64
	EndTime     float64
	ThumbPath   string
	Scene       string
	Description string
	Subjects    string // JSON array of strings
	Actions     string // JSON array of strings
	Objects     string // JSON array of strings
	Mood        string
	ShotType    string
	Lighting    string
	Colors      string // JSON array of strings
	Transcript  string
	Tags        string // JSON array of strings
	Rating      int
	ColorLabel  string

	Embedding           []byte
	EmbeddingModel      string
	EmbeddingDimensions int

	// Set only on rows read from the global database.
	SourceFolder string
	SourceClipID int64
}

// ClipVector is a named embedding for a clip, kept in a separate table so
// multiple embedding models can coexist without schema churn.
type ClipVector struct {
	ClipID    int64
	ModelName string
	Vector    []byte
}

// SyncCursor tracks the last folder-database rowid synced into the global
// database for one (folder, table) pair.
type SyncCursor struct {
	FolderPath string
	Table      string
	RowVersion int64
}

// SearchRecord is one entry in a folder's search history.
type SearchRecord struct {
	Query       string
	ResultCount int
	Timestamp   time.Time
}
