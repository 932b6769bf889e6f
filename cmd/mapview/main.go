// Command mapview drives the map core headlessly: it pans and zooms a
// scripted camera over a live tile source, exercising the loader, decoder
// and cache, and serves Prometheus metrics plus a health endpoint for
// inspection. The "GPU" here is a byte-counting stub; a real host swaps in
// its own uploader and renderer.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mapview/internal/camera"
	"mapview/internal/config"
	"mapview/internal/loader"
	"mapview/internal/logger"
	"mapview/internal/mapsystem"
	"mapview/internal/raster"
	"mapview/internal/tilecache"
)

// headlessResource stands in for a GPU texture.
type headlessResource struct{}

func (r *headlessResource) Release() {}

// headlessUploader accepts every raster without touching a GPU.
type headlessUploader struct{}

func (u *headlessUploader) Upload(img *raster.Image) (tilecache.Resource, error) {
	return &headlessResource{}, nil
}

// statsRenderer logs frame composition instead of drawing.
type statsRenderer struct {
	log *zap.Logger
}

func (r *statsRenderer) Draw(tiles []mapsystem.RenderTile, cache *tilecache.Cache) {
	r.log.Debug("frame", zap.Int("render_tiles", len(tiles)), zap.Int("cached", cache.Len()))
}

func main() {
	cfg, err := config.New()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Logger.Level)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting mapview",
		zap.Float64("center_lon", cfg.Map.CenterLon),
		zap.Float64("center_lat", cfg.Map.CenterLat),
		zap.Float64("zoom", cfg.Map.Zoom),
		zap.String("loader_mode", cfg.Loader.Mode),
	)

	cam := camera.New(cfg.Map.CenterLon, cfg.Map.CenterLat, cfg.Map.Zoom,
		cfg.Map.ViewportWidth, cfg.Map.ViewportHeight)
	cache := tilecache.New(cfg.Cache.MaxTiles, cfg.MaxMemoryBytes())

	ldr, err := loader.New(cfg.Loader.Mode, loader.Config{
		URLTemplate:   cfg.Loader.URLTemplate,
		UserAgent:     cfg.Loader.UserAgent,
		QueueSize:     cfg.Loader.QueueSize,
		MaxConcurrent: cfg.Loader.MaxConcurrent,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize loader", zap.Error(err))
	}

	sys := mapsystem.New(cam, cache, ldr, nil, &headlessUploader{}, log)
	defer sys.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: mux,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Metrics server failed", zap.Error(err))
		}
	}()

	log.Info("Metrics server started", zap.Int("port", cfg.Metrics.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	renderer := &statsRenderer{log: log}
	ticker := time.NewTicker(cfg.Metrics.FrameInterval)
	defer ticker.Stop()

	frame := 0
	statsEvery := int(5 * time.Second / cfg.Metrics.FrameInterval)
	if statsEvery <= 0 {
		statsEvery = 1
	}

loop:
	for {
		select {
		case <-ticker.C:
			// A slow eastward drift with a periodic zoom pulse keeps tiles
			// cycling through the loader and cache.
			sys.Pan(-2, 0)
			if frame%600 == 300 {
				sys.ZoomBy(0.5)
			} else if frame%600 == 599 {
				sys.ZoomBy(-0.5)
			}

			sys.Update()
			sys.Render(renderer)

			if frame%statsEvery == 0 {
				stats := sys.CacheStats()
				log.Info("map stats",
					zap.Int("cached_tiles", stats.TileCount),
					zap.Float64("cache_fill_pct", stats.TileUsagePercent()),
					zap.Int("memory_used", stats.MemoryUsed),
					zap.Int("pending", sys.PendingTiles()),
					zap.Int("render_tiles", len(sys.RenderList())),
				)
			}
			frame++
		case <-quit:
			break loop
		}
	}

	log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Metrics server forced to shutdown", zap.Error(err))
	}

	log.Info("Stopped")
}
