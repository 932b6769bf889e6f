// Package mapsystem ties the camera, cache and loader together into the
// per-frame update loop and hands screen-space tile placements to an
// external renderer.
package mapsystem

import (
	"time"

	"go.uber.org/zap"

	"mapview/internal/camera"
	"mapview/internal/loader"
	"mapview/internal/raster"
	"mapview/internal/tile"
	"mapview/internal/tilecache"
)

// RenderTile places one cache-resident tile on screen: top-left corner in
// pixels plus the square edge length at the current zoom.
type RenderTile struct {
	Key  tile.Key
	X, Y float64
	Size float64
}

// DecodeFunc turns raw fetched bytes into an RGBA raster. raster.Decode is
// the default; hosts may substitute their own.
type DecodeFunc func(data []byte) (*raster.Image, error)

// Uploader turns a decoded raster into a GPU-resident resource. The
// returned handle is owned by the cache entry it ends up in.
type Uploader interface {
	Upload(img *raster.Image) (tilecache.Resource, error)
}

// Renderer consumes the per-frame placements. It reads the cache through
// Peek only, so a render scan never perturbs eviction order.
type Renderer interface {
	Draw(tiles []RenderTile, cache *tilecache.Cache)
}

// System is the frame-driving orchestrator. All methods are called from the
// same goroutine; the frame design never overlaps Update with Draw.
type System struct {
	cam      *camera.Camera
	cache    *tilecache.Cache
	loader   loader.Loader
	decode   DecodeFunc
	uploader Uploader
	log      *zap.Logger

	// Rebuilt from scratch every Update, never carried across frames.
	renderTiles []RenderTile
}

// New wires the orchestrator. A nil decode falls back to raster.Decode.
func New(cam *camera.Camera, cache *tilecache.Cache, ldr loader.Loader, decode DecodeFunc, uploader Uploader, log *zap.Logger) *System {
	if decode == nil {
		decode = raster.Decode
	}
	return &System{
		cam:      cam,
		cache:    cache,
		loader:   ldr,
		decode:   decode,
		uploader: uploader,
		log:      log,
	}
}

// Update runs one frame: request missing visible tiles, absorb completed
// fetches into the cache, and rebuild the render list. Tiles that are
// visible but not yet resident are simply absent from the list this frame.
func (s *System) Update() {
	visible := s.cam.VisibleTiles(1)

	for _, key := range visible {
		if !s.cache.Contains(key) && !s.loader.IsLoading(key) {
			s.loader.Request(key)
		}
	}

	for {
		res, ok := s.loader.Poll()
		if !ok {
			break
		}
		if res.Err != nil {
			// Advisory only: the tile stays absent and is re-requested the
			// next frame it is visible and not pending.
			s.log.Warn("tile load failed",
				zap.Uint32("x", res.Key.X), zap.Uint32("y", res.Key.Y),
				zap.Uint8("z", res.Key.Z), zap.Error(res.Err))
			continue
		}
		s.absorb(res.Key, res.Data)
	}

	s.renderTiles = s.renderTiles[:0]
	size := s.cam.TileScreenSize()
	for _, key := range visible {
		if !s.cache.Contains(key) {
			continue
		}
		x, y := s.cam.TileToScreen(key)
		s.renderTiles = append(s.renderTiles, RenderTile{Key: key, X: x, Y: y, Size: size})
	}
}

// absorb decodes and uploads one fetched tile, then installs it in the
// cache. Decode and upload failures are logged and dropped.
func (s *System) absorb(key tile.Key, data []byte) {
	img, err := s.decode(data)
	if err != nil {
		s.log.Warn("tile decode failed",
			zap.Uint32("x", key.X), zap.Uint32("y", key.Y),
			zap.Uint8("z", key.Z), zap.Error(err))
		return
	}

	res, err := s.uploader.Upload(img)
	if err != nil {
		s.log.Warn("tile upload failed",
			zap.Uint32("x", key.X), zap.Uint32("y", key.Y),
			zap.Uint8("z", key.Z), zap.Error(err))
		return
	}

	s.cache.Insert(key, &tilecache.Entry{
		Resource:   res,
		MemorySize: raster.MemorySize(img.Width, img.Height),
		CreatedAt:  time.Now(),
	})
}

// Render hands this frame's placements and the cache to the renderer.
func (s *System) Render(r Renderer) {
	r.Draw(s.renderTiles, s.cache)
}

// RenderList exposes the current frame's placements.
func (s *System) RenderList() []RenderTile {
	return s.renderTiles
}

// Camera returns the viewport for input handling and overlays.
func (s *System) Camera() *camera.Camera {
	return s.cam
}

// Pan moves the viewport by a pixel delta.
func (s *System) Pan(dx, dy float64) {
	s.cam.Pan(dx, dy)
}

// ZoomAt zooms while anchoring the world point under the given screen
// position.
func (s *System) ZoomAt(delta, screenX, screenY float64) {
	s.cam.ZoomAt(delta, screenX, screenY)
}

// ZoomBy zooms about the viewport center.
func (s *System) ZoomBy(delta float64) {
	s.cam.ZoomBy(delta)
}

// Resize updates the viewport dimensions.
func (s *System) Resize(width, height uint32) {
	s.cam.Resize(width, height)
}

// ScreenToWorld converts a screen position to geographic coordinates.
func (s *System) ScreenToWorld(x, y float64) (float64, float64) {
	return s.cam.ScreenToWorld(x, y)
}

// CacheStats exposes cache occupancy for diagnostics.
func (s *System) CacheStats() tilecache.Stats {
	return s.cache.Stats()
}

// PendingTiles returns the number of fetches in flight.
func (s *System) PendingTiles() int {
	return s.loader.PendingCount()
}

// Close stops the loader and releases every cached resource.
func (s *System) Close() {
	s.loader.Close()
	s.cache.Clear()
}
