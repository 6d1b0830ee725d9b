package metrics

import (
	"os"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/findit-engine/findit/internal/filesystemx"
	"github.com/findit-engine/findit/internal/logging"
)

// Stats holds library-wide statistics collected from the global database.
type Stats struct {
	TotalFolders  int
	TotalVideos   int
	TotalClips    int
	TotalFailed   int
	TotalOrphaned int
}

// StatsProvider is implemented by the engine façade to expose library stats.
type StatsProvider interface {
	GetStats() Stats
}

// trackedDatabase is one SQLite database whose file sizes are collected.
type trackedDatabase struct {
	label string // "folder" or "global"
	path  string
}

// Collector periodically collects and updates gauges that aren't naturally
// emitted at the point of an operation: Go runtime memory, database file
// sizes on disk, and library-wide statistics.
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	lastGCCount   uint32

	mu        sync.Mutex
	databases []trackedDatabase
}

// NewCollector creates a new metrics collector.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// TrackDatabase registers a SQLite database path (and its -wal/-shm
// siblings) to be measured on each collection tick. Safe to call
// concurrently as folders are added/removed.
func (c *Collector) TrackDatabase(label, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.databases = append(c.databases, trackedDatabase{label: label, path: path})
}

// Start begins the metrics collection loop.
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection loop.
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	c.collectMemoryMetrics()
	c.collectDBSizes()

	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()
	logging.Debug("Metrics collected: folders=%d videos=%d clips=%d failed=%d orphaned=%d",
		stats.TotalFolders, stats.TotalVideos, stats.TotalClips, stats.TotalFailed, stats.TotalOrphaned)
}

func (c *Collector) collectMemoryMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	GoMemAllocBytes.Set(float64(memStats.Alloc))
	GoMemSysBytes.Set(float64(memStats.Sys))

	if memStats.NumGC > c.lastGCCount {
		GoGCRuns.Add(float64(memStats.NumGC - c.lastGCCount))
		c.lastGCCount = memStats.NumGC
	}

	if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < 1<<62 {
		GoMemLimit.Set(float64(limit))
	}
}

func (c *Collector) collectDBSizes() {
	c.mu.Lock()
	databases := append([]trackedDatabase(nil), c.databases...)
	c.mu.Unlock()

	retryConfig := filesystemx.DefaultRetryConfig()

	for _, db := range databases {
		if info, err := filesystemx.StatWithRetry(db.path, retryConfig); err == nil {
			DBSizeBytes.WithLabelValues(db.label, "main").Set(float64(info.Size()))
		} else if !os.IsNotExist(err) {
			logging.Debug("Failed to stat database file %s: %v", db.path, err)
		}

		if info, err := filesystemx.StatWithRetry(db.path+"-wal", retryConfig); err == nil {
			DBSizeBytes.WithLabelValues(db.label, "wal").Set(float64(info.Size()))
		} else {
			DBSizeBytes.WithLabelValues(db.label, "wal").Set(0)
		}

		if info, err := filesystemx.StatWithRetry(db.path+"-shm", retryConfig); err == nil {
			DBSizeBytes.WithLabelValues(db.label, "shm").Set(float64(info.Size()))
		} else {
			DBSizeBytes.WithLabelValues(db.label, "shm").Set(0)
		}
	}
}
