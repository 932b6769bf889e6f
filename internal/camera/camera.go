// Package camera holds the map viewport: a center, a fractional zoom and a
// pixel size, plus the pan/zoom operations that mutate them and the
// screen-space math derived from them.
package camera

import (
	"math"

	"github.com/paulmach/orb"

	"mapview/internal/tile"
)

const (
	// MinZoom and MaxZoom bound the fractional zoom range.
	MinZoom = 0.0
	MaxZoom = 19.0

	earthCircumference = 40075016.686 // meters
	metersPerDegree    = 111320.0

	// Longitude deltas scale by 1/cos(lat); floor the cosine so the math
	// stays finite near the poles.
	minCosLat = 0.01
)

// Camera is the map viewport state. Center and zoom are re-normalized and
// re-clamped by every mutating operation.
type Camera struct {
	centerLon float64
	centerLat float64
	zoom      float64

	viewportWidth  uint32
	viewportHeight uint32
}

// New creates a camera. Out-of-range input is normalized immediately.
func New(lon, lat, zoom float64, width, height uint32) *Camera {
	return &Camera{
		centerLon:      tile.NormalizeLongitude(lon),
		centerLat:      tile.ClampLatitude(lat),
		zoom:           clampZoom(zoom),
		viewportWidth:  width,
		viewportHeight: height,
	}
}

func clampZoom(z float64) float64 {
	return math.Min(math.Max(z, MinZoom), MaxZoom)
}

// Center returns the camera center as (lon, lat).
func (c *Camera) Center() (float64, float64) {
	return c.centerLon, c.centerLat
}

// SetCenter moves the camera, re-normalizing the coordinates.
func (c *Camera) SetCenter(lon, lat float64) {
	c.centerLon = tile.NormalizeLongitude(lon)
	c.centerLat = tile.ClampLatitude(lat)
}

// Zoom returns the current fractional zoom.
func (c *Camera) Zoom() float64 {
	return c.zoom
}

// SetZoom sets the zoom, clamped to the legal range.
func (c *Camera) SetZoom(z float64) {
	c.zoom = clampZoom(z)
}

// ViewportSize returns the viewport dimensions in pixels.
func (c *Camera) ViewportSize() (uint32, uint32) {
	return c.viewportWidth, c.viewportHeight
}

// Resize updates the viewport dimensions.
func (c *Camera) Resize(width, height uint32) {
	c.viewportWidth = width
	c.viewportHeight = height
}

// TileZoom is the integer zoom level used for tile selection.
func (c *Camera) TileZoom() uint8 {
	return uint8(math.Floor(c.zoom))
}

// ZoomScale is the visual scale factor contributed by the fractional part
// of the zoom, in [1, 2).
func (c *Camera) ZoomScale() float64 {
	return math.Pow(2.0, c.zoom-math.Floor(c.zoom))
}

// TileScreenSize is the on-screen edge length of a tile at the current zoom.
func (c *Camera) TileScreenSize() float64 {
	return tile.Size * c.ZoomScale()
}

// MetersPerPixel at the camera center for the current zoom.
func (c *Camera) MetersPerPixel() float64 {
	latRad := c.centerLat * math.Pi / 180.0
	return earthCircumference * math.Cos(latRad) / (tile.Size * math.Pow(2.0, c.zoom))
}

// Pan moves the camera by a pixel delta. Dragging the map right (positive
// dx) moves the center west, matching direct-manipulation panning.
func (c *Camera) Pan(dxPixels, dyPixels float64) {
	mpp := c.MetersPerPixel()

	cosLat := math.Max(math.Cos(c.centerLat*math.Pi/180.0), minCosLat)
	lonDelta := dxPixels * mpp / (metersPerDegree * cosLat)
	c.centerLon = tile.NormalizeLongitude(c.centerLon - lonDelta)

	latDelta := dyPixels * mpp / metersPerDegree
	c.centerLat = tile.ClampLatitude(c.centerLat + latDelta)
}

// ZoomAt changes zoom by delta while keeping the world point under the
// given screen position visually stationary.
func (c *Camera) ZoomAt(delta, screenX, screenY float64) {
	oldZoom := c.zoom
	c.zoom = clampZoom(c.zoom + delta)

	if math.Abs(c.zoom-oldZoom) < 0.001 {
		return
	}

	offsetX := screenX - float64(c.viewportWidth)/2.0
	offsetY := screenY - float64(c.viewportHeight)/2.0

	// Shift the center so the cursor's world point stays put: the cursor
	// offset shrinks or grows by the scale change, and the difference is
	// absorbed by the center.
	scaleChange := math.Pow(2.0, c.zoom-oldZoom)
	newOffsetX := offsetX * (1.0 - 1.0/scaleChange)
	newOffsetY := offsetY * (1.0 - 1.0/scaleChange)

	// Pixel offset to geo offset at the pre-zoom scale.
	mpp := earthCircumference * math.Cos(c.centerLat*math.Pi/180.0) / (tile.Size * math.Pow(2.0, oldZoom))
	cosLat := math.Max(math.Cos(c.centerLat*math.Pi/180.0), minCosLat)

	lonDelta := newOffsetX * mpp / (metersPerDegree * cosLat)
	latDelta := newOffsetY * mpp / metersPerDegree

	c.centerLon = tile.NormalizeLongitude(c.centerLon + lonDelta)
	c.centerLat = tile.ClampLatitude(c.centerLat - latDelta)
}

// ZoomBy changes zoom with no cursor anchoring.
func (c *Camera) ZoomBy(delta float64) {
	c.zoom = clampZoom(c.zoom + delta)
}

// VisibleTiles enumerates the tiles covering the viewport plus buffer extra
// tiles on each side, row-major. Rows past the poles are skipped and
// columns wrap across the antimeridian, so every returned key is valid and
// unique.
func (c *Camera) VisibleTiles(buffer int32) []tile.Key {
	z := c.TileZoom()
	scaledTileSize := c.TileScreenSize()

	cx, cy := tile.LonLatToTileFrac(c.centerLon, c.centerLat, z)

	tilesX := int32(math.Ceil(float64(c.viewportWidth)/scaledTileSize)) + 1
	tilesY := int32(math.Ceil(float64(c.viewportHeight)/scaledTileSize)) + 1

	halfTilesX := tilesX/2 + buffer
	halfTilesY := tilesY/2 + buffer

	minX := int32(math.Floor(cx)) - halfTilesX
	maxX := int32(math.Ceil(cx)) + halfTilesX
	minY := int32(math.Floor(cy)) - halfTilesY
	maxY := int32(math.Ceil(cy)) + halfTilesY

	// A narrow world at low zoom can wrap the same column into view twice;
	// cap the span to one full world so keys stay unique.
	worldTiles := int32(1) << z
	if maxX-minX+1 > worldTiles {
		maxX = minX + worldTiles - 1
	}

	tiles := make([]tile.Key, 0, (maxX-minX+1)*(maxY-minY+1))
	for ty := minY; ty <= maxY; ty++ {
		if !tile.IsValidTileY(ty, z) {
			continue
		}
		for tx := minX; tx <= maxX; tx++ {
			tiles = append(tiles, tile.Key{X: tile.WrapTileX(tx, z), Y: uint32(ty), Z: z})
		}
	}

	return tiles
}

// TileToScreen returns the screen position of the tile's top-left corner,
// choosing the horizontal wrap direction that keeps antimeridian tiles on
// the near side of the viewport.
func (c *Camera) TileToScreen(k tile.Key) (float64, float64) {
	z := c.TileZoom()
	scaledTileSize := c.TileScreenSize()

	cx, cy := tile.LonLatToTileFrac(c.centerLon, c.centerLat, z)

	relX := float64(k.X) - cx
	relY := float64(k.Y) - cy

	maxTiles := float64(uint64(1) << z)
	if relX > maxTiles/2.0 {
		relX -= maxTiles
	} else if relX < -maxTiles/2.0 {
		relX += maxTiles
	}

	screenX := float64(c.viewportWidth)/2.0 + relX*scaledTileSize
	screenY := float64(c.viewportHeight)/2.0 + relY*scaledTileSize

	return screenX, screenY
}

// ScreenToWorld converts a screen position to geographic coordinates.
func (c *Camera) ScreenToWorld(screenX, screenY float64) (float64, float64) {
	mpp := c.MetersPerPixel()
	cosLat := math.Max(math.Cos(c.centerLat*math.Pi/180.0), minCosLat)

	offsetX := screenX - float64(c.viewportWidth)/2.0
	offsetY := screenY - float64(c.viewportHeight)/2.0

	lonDelta := offsetX * mpp / (metersPerDegree * cosLat)
	latDelta := offsetY * mpp / metersPerDegree

	lon := tile.NormalizeLongitude(c.centerLon + lonDelta)
	lat := tile.ClampLatitude(c.centerLat - latDelta)

	return lon, lat
}

// WorldToScreen is the inverse of ScreenToWorld for a fixed camera.
func (c *Camera) WorldToScreen(lon, lat float64) (float64, float64) {
	mpp := c.MetersPerPixel()
	cosLat := math.Max(math.Cos(c.centerLat*math.Pi/180.0), minCosLat)

	lonDelta := lon - c.centerLon
	if lonDelta > 180.0 {
		lonDelta -= 360.0
	} else if lonDelta < -180.0 {
		lonDelta += 360.0
	}

	offsetX := lonDelta * metersPerDegree * cosLat / mpp
	offsetY := (c.centerLat - lat) * metersPerDegree / mpp

	return float64(c.viewportWidth)/2.0 + offsetX, float64(c.viewportHeight)/2.0 + offsetY
}

// VisibleBounds returns the geographic bounding box of the viewport.
func (c *Camera) VisibleBounds() orb.Bound {
	lonTL, latTL := c.ScreenToWorld(0, 0)
	lonBR, latBR := c.ScreenToWorld(float64(c.viewportWidth), float64(c.viewportHeight))

	return orb.Bound{
		Min: orb.Point{math.Min(lonTL, lonBR), math.Min(latTL, latBR)},
		Max: orb.Point{math.Max(lonTL, lonBR), math.Max(latTL, latBR)},
	}
}
