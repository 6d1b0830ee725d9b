package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// --- Storage (C1) ---
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findit_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "findit_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"database", "operation"},
	)

	DBConnectionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "findit_db_connections_open",
			Help: "Number of open database connections",
		},
		[]string{"database"},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "findit_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"database", "file"}, // file: main, wal, shm
	)

	DBMigrationVersion = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "findit_db_migration_version",
			Help: "Current user_version of a database",
		},
		[]string{"database"},
	)
)

// --- Volume resolver / path rebaser (C2) ---
var (
	VolumeRebaseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findit_volume_rebase_total",
			Help: "Total number of path rebase operations performed",
		},
		[]string{"status"},
	)

	VolumeRebaseRowsUpdated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "findit_volume_rebase_rows_updated_total",
			Help: "Total number of rows whose paths were rewritten by a rebase",
		},
	)
)

// --- Sync engine (C3) ---
var (
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findit_sync_runs_total",
			Help: "Total number of sync runs by status",
		},
		[]string{"status"},
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "findit_sync_duration_seconds",
			Help:    "Duration of a folder sync run",
			Buckets: prometheus.DefBuckets,
		},
	)

	SyncVideosSynced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "findit_sync_videos_synced_total",
			Help: "Total number of video rows synced into the global database",
		},
	)

	SyncClipsSynced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "findit_sync_clips_synced_total",
			Help: "Total number of clip rows synced into the global database",
		},
	)

	SyncCursorValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "findit_sync_cursor_value",
			Help: "Last synced row version per folder and table",
		},
		[]string{"folder", "table"},
	)
)

// --- Watcher (C4) ---
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findit_watcher_events_total",
			Help: "Total number of filesystem change events observed",
		},
		[]string{"kind"},
	)

	WatcherBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "findit_watcher_batches_total",
			Help: "Total number of coalesced event batches delivered",
		},
	)

	WatcherDeferredEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "findit_watcher_deferred_events",
			Help: "Number of events currently buffered for folders being reindexed",
		},
	)

	WatcherWatchedPaths = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "findit_watcher_watched_paths",
			Help: "Number of directories currently watched",
		},
	)
)

// --- Volume monitor (C5) ---
var (
	VolumeMonitorMountEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findit_volume_monitor_mount_events_total",
			Help: "Total number of mount/unmount events observed",
		},
		[]string{"kind"}, // mount, unmount
	)

	VolumeMonitorFoldersOffline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "findit_volume_monitor_folders_offline",
			Help: "Number of registered folders currently marked unavailable",
		},
	)

	VolumeMonitorReconcileTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "findit_volume_monitor_reconcile_total",
			Help: "Total number of folders rebased during the startup reconcile pass",
		},
	)
)

// --- Concurrency: semaphore + resource monitor (C6) ---
var (
	SemaphorePermitsHeld = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "findit_semaphore_permits_held",
			Help: "Number of permits currently held",
		},
		[]string{"name"},
	)

	SemaphoreMaxPermits = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "findit_semaphore_max_permits",
			Help: "Current maximum permit count",
		},
		[]string{"name"},
	)

	SemaphoreWaiters = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "findit_semaphore_waiters",
			Help: "Number of goroutines currently queued for a permit",
		},
		[]string{"name"},
	)

	SemaphoreWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "findit_semaphore_wait_duration_seconds",
			Help:    "Time spent waiting to acquire a permit",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"name"},
	)

	ResourceMonitorRecommendedConcurrency = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "findit_resource_monitor_recommended_concurrency",
			Help: "Current concurrency recommendation from the resource monitor",
		},
	)

	ResourceMonitorThermalState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "findit_resource_monitor_thermal_state",
			Help: "Current thermal state (0=nominal,1=fair,2=serious,3=critical)",
		},
	)

	ResourceMonitorAvailableMemoryMB = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "findit_resource_monitor_available_memory_mb",
			Help: "Available system memory in MB as last sampled",
		},
	)
)

// --- Providers (C9) ---
var (
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findit_provider_requests_total",
			Help: "Total number of provider requests by provider, capability and status",
		},
		[]string{"provider", "capability", "status"},
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "findit_provider_request_duration_seconds",
			Help:    "Duration of a provider request",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "capability"},
	)

	ProviderRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findit_provider_retries_total",
			Help: "Total number of retried provider requests",
		},
		[]string{"provider", "capability"},
	)

	RateLimiterWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "findit_rate_limiter_wait_duration_seconds",
			Help:    "Time spent waiting for a rate limiter token",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)

// --- Vector store (C10) ---
var (
	VectorStoreSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "findit_vector_store_size",
			Help: "Number of vectors currently loaded in the brute-force store",
		},
		[]string{"model"},
	)

	VectorStoreSearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "findit_vector_store_search_duration_seconds",
			Help:    "Duration of a brute-force vector search",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
		[]string{"model"},
	)
)

// --- HNSW index (C11) ---
var (
	HNSWIndexSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "findit_hnsw_index_size",
			Help: "Number of vectors currently present in the HNSW index",
		},
		[]string{"model"},
	)

	HNSWRebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findit_hnsw_rebuilds_total",
			Help: "Total number of HNSW index rebuilds by status",
		},
		[]string{"model", "status"},
	)

	HNSWRebuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "findit_hnsw_rebuild_duration_seconds",
			Help:    "Duration of an HNSW index rebuild",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	HNSWSearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "findit_hnsw_search_duration_seconds",
			Help:    "Duration of an HNSW approximate nearest neighbor search",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
		[]string{"model"},
	)
)

// --- Query engine (C12) ---
var (
	QueryRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findit_query_requests_total",
			Help: "Total number of search queries by mode",
		},
		[]string{"mode"}, // fts, auto
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "findit_query_duration_seconds",
			Help:    "End-to-end duration of a search query",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	QueryExpansionTranslations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findit_query_expansion_translations_total",
			Help: "Total number of query expansions performed by path",
		},
		[]string{"path"}, // dictionary, neural, skipped
	)

	QueryFilterCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "findit_query_filter_cache_hits_total",
			Help: "Total number of allowed_clip_ids cache hits",
		},
	)

	QueryFilterCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "findit_query_filter_cache_misses_total",
			Help: "Total number of allowed_clip_ids cache misses",
		},
	)
)

// --- Filesystem retry (shared, from internal/filesystemx) ---
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "findit_filesystem_operation_duration_seconds",
			Help:    "Duration of a filesystem operation by volume and operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findit_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findit_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findit_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findit_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that exhausted all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findit_filesystem_stale_errors_total",
			Help: "Total number of stale-file-handle class errors observed",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "findit_filesystem_retry_duration_seconds",
			Help:    "Total duration of a filesystem operation including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "volume"},
	)
)

// --- Go runtime / memory (ambient, C6 feeds from this) ---
var (
	GoMemLimit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "findit_go_mem_limit_bytes",
			Help: "Configured GOMEMLIMIT in bytes (0 if unset)",
		},
	)

	GoMemAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "findit_go_mem_alloc_bytes",
			Help: "Current heap allocation in bytes",
		},
	)

	GoMemSysBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "findit_go_mem_sys_bytes",
			Help: "Total memory obtained from the OS in bytes",
		},
	)

	GoGCRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "findit_go_gc_runs_total",
			Help: "Total number of completed garbage collection cycles",
		},
	)

	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "findit_memory_usage_ratio",
			Help: "Memory usage as a ratio of the configured limit (0.0-1.0)",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "findit_memory_paused",
			Help: "Whether pipeline processing is currently paused for memory pressure (1=paused)",
		},
	)
)

// --- Application info ---
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "findit_app_info",
			Help: "Build information for the findit engine",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// --- Indexing pipeline (C7) ---
var (
	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "findit_pipeline_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	PipelineStageOutcome = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findit_pipeline_stage_outcomes_total",
			Help: "Outcome of each pipeline stage (ok, error, skipped)",
		},
		[]string{"stage", "outcome"},
	)

	PipelineVideosProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findit_pipeline_videos_processed_total",
			Help: "Videos that finished process_video, by terminal outcome",
		},
		[]string{"outcome"},
	)

	PipelineClipsSegmented = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "findit_pipeline_clips_segmented_total",
			Help: "Total clips emitted by the segmentation stage",
		},
	)
)

// --- Indexing scheduler (C8) ---
var (
	SchedulerPendingFolders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "findit_scheduler_pending_folders",
			Help: "Folders currently queued for a full scan",
		},
	)

	SchedulerPendingVideos = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "findit_scheduler_pending_videos",
			Help: "Individual videos currently queued across all folders",
		},
	)

	SchedulerFolderVideoOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findit_scheduler_folder_video_outcomes_total",
			Help: "Per-video outcomes recorded by the scheduler's folder progress counters",
		},
		[]string{"outcome"},
	)

	SchedulerBackgroundActivityActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "findit_scheduler_background_activity_active",
			Help: "Whether the scheduler currently holds a background-activity token (1=held)",
		},
	)

	SchedulerCancelTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "findit_scheduler_cancel_total",
			Help: "Total number of cancel_indexing calls",
		},
	)
)

// --- Engine facade ---
var (
	EngineFoldersRegistered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "findit_engine_folders_registered",
			Help: "Currently registered watched folders",
		},
	)

	EngineFolderFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findit_engine_folder_failures_total",
			Help: "Folder-level failures recorded in the bounded per-folder health log",
		},
		[]string{"folder"},
	)

	EngineOrphanSweepDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "findit_engine_orphan_sweep_deleted_total",
			Help: "Videos hard-deleted by the orphaned-retention sweep",
		},
	)

	EngineShutdownDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "findit_engine_shutdown_duration_seconds",
			Help:    "Duration of the graceful shutdown sequence",
			Buckets: prometheus.DefBuckets,
		},
	)
)
