package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Thumbnail cache metrics
var (
	ThumbCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prompt_explorer_thumb_cache_hits_total",
			Help: "Total number of thumbnail cache hits",
		},
	)

	ThumbCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prompt_explorer_thumb_cache_misses_total",
			Help: "Total number of thumbnail cache misses",
		},
	)

	ThumbCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prompt_explorer_thumb_cache_evictions_total",
			Help: "Total number of thumbnail cache evictions",
		},
	)

	ThumbCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "prompt_explorer_thumb_cache_entries",
			Help: "Current number of cached thumbnails",
		},
	)

	ThumbDecodeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prompt_explorer_thumb_decode_failures_total",
			Help: "Total number of thumbnail decodes that fell back to a placeholder",
		},
	)

	ThumbDecodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prompt_explorer_thumb_decode_duration_seconds",
			Help:    "Thumbnail decode and resize duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)
)

// Scan metrics
var (
	ScanRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prompt_explorer_scan_runs_total",
			Help: "Total number of folder scans started",
		},
	)

	ScanSupersededTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prompt_explorer_scan_superseded_total",
			Help: "Total number of scans whose results were discarded as stale",
		},
	)

	ScanFilesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prompt_explorer_scan_files_processed_total",
			Help: "Total number of files processed across all scans",
		},
	)

	ScanPromptCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prompt_explorer_scan_prompt_cache_hits_total",
			Help: "Total number of prompts served from the persistent prompt cache",
		},
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prompt_explorer_scan_duration_seconds",
			Help:    "Folder scan duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
	)

	ScanWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "prompt_explorer_scan_workers",
			Help: "Number of extraction workers used by the last scan",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompt_explorer_db_queries_total",
			Help: "Total number of prompt cache database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prompt_explorer_db_query_duration_seconds",
			Help:    "Prompt cache query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompt_explorer_watcher_events_total",
			Help: "Total number of file system events seen by the folder watcher",
		},
		[]string{"type"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prompt_explorer_watcher_errors_total",
			Help: "Total number of folder watcher errors",
		},
	)

	WatcherReloads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prompt_explorer_watcher_reloads_total",
			Help: "Total number of automatic reloads triggered by folder changes",
		},
	)
)

// Grid metrics
var (
	GridSlotBinds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prompt_explorer_grid_slot_binds_total",
			Help: "Total number of grid slots realized with a thumbnail",
		},
	)

	GridSlotReleases = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prompt_explorer_grid_slot_releases_total",
			Help: "Total number of grid slots that released their thumbnail",
		},
	)

	GridRealizedSlots = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "prompt_explorer_grid_realized_slots",
			Help: "Current number of grid slots holding a realized thumbnail",
		},
	)
)
