// Package tile implements the Web Mercator (EPSG:3857-style) tile coordinate
// system used by OSM-compatible slippy maps.
package tile

import (
	"math"
	"strconv"
	"strings"
)

// Size is the edge length of a standard slippy-map tile in pixels.
const Size = 256.0

// Mercator is undefined past these latitudes.
const (
	MaxLatitude = 85.05112878
	MinLatitude = -85.05112878
)

// Key identifies a map tile. At zoom Z, valid X and Y are in [0, 2^Z).
type Key struct {
	X uint32
	Y uint32
	Z uint8
}

// MaxCoord returns the number of tiles along one axis at this key's zoom.
func (k Key) MaxCoord() uint32 {
	return 1 << k.Z
}

// ParentAtZoom returns the ancestor tile containing k at a coarser zoom,
// or false if targetZ is not coarser than k's zoom.
func (k Key) ParentAtZoom(targetZ uint8) (Key, bool) {
	if targetZ >= k.Z {
		return Key{}, false
	}
	diff := k.Z - targetZ
	return Key{X: k.X >> diff, Y: k.Y >> diff, Z: targetZ}, true
}

// URL expands a template of the form "https://host/{z}/{x}/{y}.png".
func (k Key) URL(template string) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(int(k.Z)),
		"{x}", strconv.FormatUint(uint64(k.X), 10),
		"{y}", strconv.FormatUint(uint64(k.Y), 10),
	)
	return r.Replace(template)
}

// LonLatToTile converts a geographic position to the tile containing it.
// Results are clamped to the valid range at the given zoom.
func LonLatToTile(lon, lat float64, zoom uint8) (uint32, uint32) {
	fx, fy := LonLatToTileFrac(lon, lat, zoom)

	maxTile := float64(uint32(1)<<zoom - 1)
	x := math.Min(math.Max(math.Floor(fx), 0), maxTile)
	y := math.Min(math.Max(math.Floor(fy), 0), maxTile)

	return uint32(x), uint32(y)
}

// LonLatToTileFrac is LonLatToTile without flooring or clamping, for
// sub-tile positioning.
func LonLatToTileFrac(lon, lat float64, zoom uint8) (float64, float64) {
	n := float64(uint64(1) << zoom)

	x := (lon + 180.0) / 360.0 * n

	latRad := lat * math.Pi / 180.0
	y := (1.0 - math.Asinh(math.Tan(latRad))/math.Pi) / 2.0 * n

	return x, y
}

// TileToLonLat returns the geographic position of the tile's top-left corner.
func TileToLonLat(x, y uint32, zoom uint8) (float64, float64) {
	n := float64(uint64(1) << zoom)

	lon := float64(x)/n*360.0 - 180.0
	latRad := math.Atan(math.Sinh(math.Pi * (1.0 - 2.0*float64(y)/n)))

	return lon, latRad * 180.0 / math.Pi
}

// WrapTileX wraps an X coordinate modulo the world width at the given zoom.
// The result is always non-negative, which is what makes infinite east-west
// scrolling work.
func WrapTileX(x int32, zoom uint8) uint32 {
	maxTiles := int32(1) << zoom
	return uint32((x%maxTiles+maxTiles)%maxTiles)
}

// IsValidTileY reports whether y is a real tile row at the given zoom.
// There is no vertical wraparound.
func IsValidTileY(y int32, zoom uint8) bool {
	maxTiles := int32(1) << zoom
	return y >= 0 && y < maxTiles
}

// NormalizeLongitude brings a longitude into [-180, 180].
func NormalizeLongitude(lon float64) float64 {
	for lon < -180.0 {
		lon += 360.0
	}
	for lon > 180.0 {
		lon -= 360.0
	}
	return lon
}

// ClampLatitude clamps a latitude to the Mercator-projectable range.
func ClampLatitude(lat float64) float64 {
	return math.Min(math.Max(lat, MinLatitude), MaxLatitude)
}

// SubRegion returns the normalized UV rectangle of target within parent's
// image, for rendering a coarse ancestor tile as a placeholder while the
// exact tile loads. Returns the identity rectangle when parent is not
// coarser than target.
func SubRegion(target, parent Key) (u0, v0, u1, v1 float32) {
	if parent.Z >= target.Z {
		return 0, 0, 1, 1
	}

	zoomDiff := target.Z - parent.Z
	subdivisions := uint32(1) << zoomDiff

	localX := target.X % subdivisions
	localY := target.Y % subdivisions

	size := 1.0 / float32(subdivisions)
	u0 = float32(localX) * size
	v0 = float32(localY) * size

	return u0, v0, u0 + size, v0 + size
}
