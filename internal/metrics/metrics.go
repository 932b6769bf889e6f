// Package metrics defines the Prometheus collectors for the map core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mapview_tile_cache_hits_total",
		Help: "Total number of tile cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mapview_tile_cache_misses_total",
		Help: "Total number of tile cache misses",
	})

	CacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mapview_tile_cache_evictions_total",
		Help: "Total number of tiles evicted from the cache",
	})

	CacheMemoryBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mapview_tile_cache_memory_bytes",
		Help: "Estimated GPU memory held by cached tiles",
	})

	TilesLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mapview_tiles_loaded_total",
		Help: "Total number of tiles fetched successfully",
	})

	TilesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mapview_tiles_failed_total",
		Help: "Total number of tile fetches that failed",
	})

	TilesPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mapview_tiles_pending",
		Help: "Number of tile fetches currently in flight",
	})

	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mapview_tile_fetch_duration_seconds",
		Help:    "Duration of tile HTTP fetches in seconds",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	})
)
