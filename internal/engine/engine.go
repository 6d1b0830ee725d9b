package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/findit-engine/findit/internal/concurrency"
	"github.com/findit-engine/findit/internal/config"
	"github.com/findit-engine/findit/internal/hnsw"
	"github.com/findit-engine/findit/internal/logging"
	"github.com/findit-engine/findit/internal/metrics"
	"github.com/findit-engine/findit/internal/pipeline"
	"github.com/findit-engine/findit/internal/providers"
	"github.com/findit-engine/findit/internal/query"
	"github.com/findit-engine/findit/internal/scheduler"
	"github.com/findit-engine/findit/internal/storage"
	syncengine "github.com/findit-engine/findit/internal/sync"
	"github.com/findit-engine/findit/internal/volume"
	"github.com/findit-engine/findit/internal/volumemonitor"
	"github.com/findit-engine/findit/internal/watcher"
)

// folderDBRelPath is where add_folder creates a folder's source-of-truth
// database, relative to the folder root.
const folderDBRelPath = ".findit/folder.sqlite"

const orphanSweepInterval = 24 * time.Hour

// Engine wires every indexing and search component behind the external
// interface a daemon entry point drives: add_folder/remove_folder,
// queue_folder/queue_videos/cancel_indexing, search, and the event bus.
type Engine struct {
	cfg         *config.Config
	globalStore *storage.Store

	volumeResolver *volume.VolumeResolver
	volumeMonitor  *volumemonitor.Monitor
	rebaser        volume.PathRebaser

	fsWatcher      *watcher.FileSystemWatcher
	watcherManager *watcher.FileWatcherManager

	semaphore       *concurrency.AsyncSemaphore
	resourceMonitor *concurrency.ResourceMonitor
	scheduler       *scheduler.Scheduler
	syncEngine      *syncengine.Engine

	vectorManager *hnsw.Manager
	searchEngine  *query.SearchEngine

	segmenter         pipeline.Segmenter
	rateLimiter       providers.RateLimiter
	visionProvider    providers.VisionCaptionProvider
	visionFallback    providers.VisionCaptionProvider
	sttProvider       providers.STTProvider
	embeddingProvider providers.EmbeddingProvider
	clipProvider      providers.CLIPEmbeddingProvider

	events *EventBus
	health *folderHealthLog

	mu              sync.Mutex
	folderStores    map[string]*storage.Store
	lastHealthCheck map[string]time.Time
	excluding       map[string][]string
	closed          bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine constructs every component from cfg but starts nothing; call
// Start to begin background services.
func NewEngine(ctx context.Context, cfg *config.Config) (*Engine, error) {
	globalStore, err := storage.Open(ctx, cfg.GlobalDBPath, storage.KindGlobal)
	if err != nil {
		return nil, fmt.Errorf("open global database: %w", err)
	}

	e := &Engine{
		cfg:             cfg,
		globalStore:     globalStore,
		rebaser:         volume.PathRebaser{},
		folderStores:    make(map[string]*storage.Store),
		lastHealthCheck: make(map[string]time.Time),
		excluding:       make(map[string][]string),
		events:          newEventBus(),
		health:          newFolderHealthLog(),
		syncEngine:      syncengine.New(),
	}

	e.volumeResolver = volume.NewResolver(volume.NewLister())
	if err := e.volumeResolver.Refresh(); err != nil {
		logging.Warn("initial volume refresh failed: %v", err)
	}

	initialPermits := concurrency.Recommend(performanceMode(cfg.PerformanceMode), concurrency.Reading{ProcessorCount: 0})
	e.semaphore = concurrency.NewAsyncSemaphore("pipeline", initialPermits)
	e.resourceMonitor = concurrency.NewResourceMonitor(concurrency.NewSensors(), concurrency.DefaultSampleInterval,
		performanceMode(cfg.PerformanceMode), e.semaphore.SetMaxPermits)

	e.scheduler = scheduler.New(scheduler.Callbacks{
		ScanFolder:      e.scanFolder,
		ProcessVideo:    e.processVideo,
		SyncFolder:      e.syncFolder,
		ReindexFinished: e.reindexFinished,
	}, e.semaphore, nil)

	e.watcherManager = watcher.NewFileWatcherManager(watcher.Callbacks{
		IsReindexing: e.scheduler.IsReindexing,
		RescanFolder: e.scheduler.EnqueueFolder,
		QueueVideos:  e.scheduler.EnqueueVideos,
		SoftDelete:   e.softDelete,
	})

	fsWatcher, err := watcher.NewFileSystemWatcher(watcher.DefaultDebounce, e.watcherManager.HandleBatch)
	if err != nil {
		globalStore.Close()
		return nil, fmt.Errorf("create filesystem watcher: %w", err)
	}
	e.fsWatcher = fsWatcher

	e.volumeMonitor = volumemonitor.New(e.volumeResolver, globalStore, volumemonitor.DefaultPollInterval, volumemonitor.Callbacks{
		OpenFolderStore: e.openFolderStore,
		Reenqueue:       e.scheduler.EnqueueFolder,
	})

	e.vectorManager = hnsw.NewManager(cfg.DataDir, globalStore)
	e.segmenter = pipeline.NewFFmpegSegmenter()

	e.wireProviders()

	e.searchEngine = &query.SearchEngine{
		Store:             globalStore,
		Parser:            query.QueryParser{},
		Pipeline:          query.QueryPipeline{},
		VectorManager:     e.vectorManager,
		ClipModel:         cfg.CLIPModel,
		ClipDimensions:    cfg.CLIPDimensions,
		TextModel:         cfg.EmbeddingModel,
		TextDimensions:    cfg.EmbeddingDimensions,
		EmbeddingProvider: e.embeddingProvider,
		CLIPProvider:      e.clipProvider,
	}

	return e, nil
}

// wireProviders constructs the cloud provider set when PROVIDER=cloud and
// an endpoint is configured for the capability; offline mode, or a cloud
// capability missing its endpoint, leaves that stage's provider nil so the
// pipeline skips it rather than failing.
func (e *Engine) wireProviders() {
	cfg := e.cfg
	if cfg.Provider != config.ProviderCloud {
		return
	}
	e.rateLimiter = providers.NewTokenBucketLimiter("cloud", cfg.RateLimitRPM, cfg.RateLimitRPM)

	if !cfg.SkipVision && cfg.VisionEndpoint != "" {
		e.visionProvider = providers.NewCloudVisionCaptionProvider("vision", cfg.VisionEndpoint, cfg.CloudAPIKey, cfg.VisionMaxImagesPerRequest, e.rateLimiter)
	}
	if !cfg.SkipSTT && cfg.STTEndpoint != "" {
		e.sttProvider = providers.NewCloudSTTProvider("stt", cfg.STTEndpoint, cfg.CloudAPIKey, e.rateLimiter)
	}
	if !cfg.SkipEmbedding && cfg.EmbeddingEndpoint != "" {
		e.embeddingProvider = providers.NewCloudEmbeddingProvider("embedding", cfg.EmbeddingEndpoint, cfg.CloudAPIKey, cfg.EmbeddingDimensions, e.rateLimiter)
	}
	if cfg.CLIPEndpoint != "" {
		e.clipProvider = providers.NewCloudCLIPEmbeddingProvider("clip", cfg.CLIPEndpoint, cfg.CloudAPIKey, cfg.CLIPDimensions, e.rateLimiter)
	}
}

func performanceMode(m config.PerformanceMode) concurrency.Mode {
	switch m {
	case config.PerformanceFullSpeed:
		return concurrency.ModeFullSpeed
	case config.PerformanceBackground:
		return concurrency.ModeBackground
	default:
		return concurrency.ModeBalanced
	}
}

// Start runs the startup sync sweep for every registered, available
// folder, then begins every background service. It must be called at most
// once.
func (e *Engine) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	folders, err := e.globalStore.ListWatchedFolders(runCtx)
	if err != nil {
		return fmt.Errorf("list watched folders at startup: %w", err)
	}
	for _, f := range folders {
		if !f.IsAvailable {
			continue
		}
		if err := e.startupSync(runCtx, f.FolderPath); err != nil {
			e.health.record(f.FolderPath, err.Error(), time.Now())
			logging.Warn("startup sync failed for %s: %v", f.FolderPath, err)
			continue
		}
		if err := e.fsWatcher.Watch(f.FolderPath); err != nil {
			logging.Warn("watch %s: %v", f.FolderPath, err)
		}
	}
	metrics.EngineFoldersRegistered.Set(float64(len(folders)))

	if err := e.volumeMonitor.Start(runCtx); err != nil {
		return fmt.Errorf("start volume monitor: %w", err)
	}
	e.resourceMonitor.Start()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.scheduler.Run(runCtx)
	}()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.orphanSweepLoop(runCtx)
	}()

	return nil
}

func (e *Engine) startupSync(ctx context.Context, folderPath string) error {
	fs, err := e.openFolderStore(folderPath)
	if err != nil {
		return err
	}
	_, err = e.syncEngine.Sync(ctx, folderPath, fs, e.globalStore, false)
	return err
}

// Shutdown runs the graceful shutdown sequence documented in doc.go. It is
// safe to call once; a second call is a no-op.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	start := time.Now()
	defer func() { metrics.EngineShutdownDuration.Observe(time.Since(start).Seconds()) }()

	if e.cancel != nil {
		e.cancel()
	}
	e.scheduler.CancelIndexing()
	e.volumeMonitor.Stop()
	e.resourceMonitor.Stop()
	if err := e.fsWatcher.StopAll(); err != nil {
		logging.Warn("stop watcher: %v", err)
	}
	e.watcherManager.StopAll()
	e.semaphore.ReleaseAll()
	e.vectorManager.InvalidateAll()

	e.wg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	for path, fs := range e.folderStores {
		if err := fs.Close(); err != nil {
			logging.Warn("close folder database %s: %v", path, err)
		}
	}
	return e.globalStore.Close()
}

// openFolderStore returns the cached per-folder Store, opening it (and its
// .findit directory) if this is the first reference.
func (e *Engine) openFolderStore(folderPath string) (*storage.Store, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fs, ok := e.folderStores[folderPath]; ok {
		return fs, nil
	}

	dbPath := filepath.Join(folderPath, folderDBRelPath)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create .findit directory under %s: %w", folderPath, err)
	}
	fs, err := storage.Open(context.Background(), dbPath, storage.KindFolder)
	if err != nil {
		return nil, err
	}
	e.folderStores[folderPath] = fs
	return fs, nil
}
