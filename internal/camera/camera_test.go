package camera

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"mapview/internal/tile"
)

func seoulCamera() *Camera {
	return New(126.9780, 37.5665, 12.0, 800, 600)
}

func TestNewNormalizes(t *testing.T) {
	c := New(190.0, 90.0, 25.0, 800, 600)
	lon, lat := c.Center()
	if math.Abs(lon-(-170.0)) > 1e-9 {
		t.Errorf("center lon = %v, want -170", lon)
	}
	if lat != tile.MaxLatitude {
		t.Errorf("center lat = %v, want %v", lat, tile.MaxLatitude)
	}
	if c.Zoom() != MaxZoom {
		t.Errorf("zoom = %v, want %v", c.Zoom(), MaxZoom)
	}
}

func TestPanKeepsRanges(t *testing.T) {
	c := seoulCamera()
	for i := 0; i < 500; i++ {
		c.Pan(250, -400)
		lon, lat := c.Center()
		if lon < -180 || lon > 180 {
			t.Fatalf("pan %d: lon %v out of range", i, lon)
		}
		if lat < tile.MinLatitude || lat > tile.MaxLatitude {
			t.Fatalf("pan %d: lat %v out of range", i, lat)
		}
	}
}

func TestScreenWorldRoundTrip(t *testing.T) {
	c := seoulCamera()
	points := [][2]float64{{400, 300}, {0, 0}, {800, 600}, {123, 456}}
	for _, p := range points {
		lon, lat := c.ScreenToWorld(p[0], p[1])
		sx, sy := c.WorldToScreen(lon, lat)
		if math.Abs(sx-p[0]) > 1e-6 || math.Abs(sy-p[1]) > 1e-6 {
			t.Errorf("round trip of (%v, %v) gave (%v, %v)", p[0], p[1], sx, sy)
		}
	}
}

func TestZoomAtAnchorsCursor(t *testing.T) {
	c := seoulCamera()
	cursorX, cursorY := 600.0, 150.0

	wantLon, wantLat := c.ScreenToWorld(cursorX, cursorY)
	c.ZoomAt(1.0, cursorX, cursorY)
	sx, sy := c.WorldToScreen(wantLon, wantLat)

	// The world point under the cursor should stay put within a few pixels;
	// the anchoring math linearizes meters-per-pixel around the old center.
	if math.Abs(sx-cursorX) > 2.0 || math.Abs(sy-cursorY) > 2.0 {
		t.Errorf("cursor anchor drifted: (%v, %v) -> (%v, %v)", cursorX, cursorY, sx, sy)
	}
}

func TestZoomAtNegligibleDeltaIsNoop(t *testing.T) {
	c := seoulCamera()
	lon0, lat0 := c.Center()
	c.ZoomAt(0.0005, 10, 10)
	lon1, lat1 := c.Center()
	if lon0 != lon1 || lat0 != lat1 {
		t.Error("negligible zoom delta moved the center")
	}
}

func TestZoomClamping(t *testing.T) {
	c := seoulCamera()
	c.ZoomBy(100)
	if c.Zoom() != MaxZoom {
		t.Errorf("zoom = %v, want clamp at %v", c.Zoom(), MaxZoom)
	}
	c.ZoomBy(-100)
	if c.Zoom() != MinZoom {
		t.Errorf("zoom = %v, want clamp at %v", c.Zoom(), MinZoom)
	}
	// Clamped-to-same-zoom must not shift the center.
	lon0, lat0 := c.Center()
	c.ZoomAt(-5, 0, 0)
	lon1, lat1 := c.Center()
	if lon0 != lon1 || lat0 != lat1 {
		t.Error("no-op zoom at the clamp boundary moved the center")
	}
}

func TestVisibleTilesValidAndUnique(t *testing.T) {
	cams := []*Camera{
		seoulCamera(),
		New(179.9, 0.0, 4.0, 1024, 768),  // antimeridian
		New(0.0, 84.9, 3.0, 800, 600),    // near north pole
		New(0.0, 0.0, 0.0, 1920, 1080),   // whole-world zoom
	}
	for ci, c := range cams {
		tiles := c.VisibleTiles(1)
		if len(tiles) == 0 {
			t.Fatalf("camera %d: no visible tiles", ci)
		}
		seen := make(map[tile.Key]bool, len(tiles))
		z := c.TileZoom()
		n := uint32(1) << z
		for _, k := range tiles {
			if k.Z != z {
				t.Fatalf("camera %d: tile %v at wrong zoom", ci, k)
			}
			if k.X >= n || k.Y >= n {
				t.Fatalf("camera %d: tile %v out of range at zoom %d", ci, k, z)
			}
			if seen[k] {
				t.Fatalf("camera %d: duplicate tile %v", ci, k)
			}
			seen[k] = true
		}
	}
}

func TestVisibleTilesContainsCenter(t *testing.T) {
	c := seoulCamera()
	cx, cy := tile.LonLatToTile(126.9780, 37.5665, c.TileZoom())
	want := tile.Key{X: cx, Y: cy, Z: c.TileZoom()}
	for _, k := range c.VisibleTiles(1) {
		if k == want {
			return
		}
	}
	t.Errorf("center tile %v not in visible set", want)
}

func TestTileToScreenCenterTile(t *testing.T) {
	c := seoulCamera()
	z := c.TileZoom()
	cx, cy := tile.LonLatToTileFrac(126.9780, 37.5665, z)
	k := tile.Key{X: uint32(cx), Y: uint32(cy), Z: z}

	sx, sy := c.TileToScreen(k)
	size := c.TileScreenSize()

	// The tile containing the center must overlap the viewport midpoint.
	if sx > 400 || sx+size < 400 || sy > 300 || sy+size < 300 {
		t.Errorf("center tile at (%v, %v) size %v does not cover viewport center", sx, sy, size)
	}
}

func TestTileToScreenWrapsNearAntimeridian(t *testing.T) {
	c := New(179.9, 0.0, 5.0, 800, 600)
	// Tile 0 sits just east across the antimeridian; it must project to the
	// near (right) side, not a full world-width away.
	sx, _ := c.TileToScreen(tile.Key{X: 0, Y: 16, Z: 5})
	if sx < 0 || sx > 2000 {
		t.Errorf("antimeridian tile projected far away: x = %v", sx)
	}
}

func TestVisibleBounds(t *testing.T) {
	c := seoulCamera()
	b := c.VisibleBounds()
	if !b.Contains(orb.Point{126.9780, 37.5665}) {
		t.Errorf("bounds %v do not contain the camera center", b)
	}
	if b.Min[0] >= b.Max[0] || b.Min[1] >= b.Max[1] {
		t.Errorf("degenerate bounds %v", b)
	}
}

func TestResize(t *testing.T) {
	c := seoulCamera()
	c.Resize(1920, 1080)
	w, h := c.ViewportSize()
	if w != 1920 || h != 1080 {
		t.Errorf("viewport = %dx%d, want 1920x1080", w, h)
	}
}
