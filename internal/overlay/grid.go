// Package overlay is a sparse pixel-grid drawing layer anchored to
// geographic coordinates. Cells live in a world-space grid with a fixed
// cell size in degrees; each frame the grid is flattened into screen-space
// quads for the external renderer.
package overlay

import (
	"math"

	"github.com/paulmach/orb"

	"mapview/internal/camera"
)

// Color is a straight-alpha RGBA color with components in [0, 1].
type Color [4]float32

// Coord addresses one grid cell in world space.
type Coord struct {
	X int64
	Y int64
}

// Quad is one colored screen-space rectangle, corners in pixel coordinates
// ordered bottom-left, bottom-right, top-right, top-left.
type Quad struct {
	Corners [4][2]float64
	Color   Color
}

// Grid is the overlay state. Not safe for concurrent use; it is owned by
// the frame-driving goroutine like the rest of the map core.
type Grid struct {
	cells    map[Coord]Color
	cellSize float64

	quads []Quad
}

// New creates a grid with the given cell size in degrees (0.0001 is about
// 10 m at the equator).
func New(cellSize float64) *Grid {
	return &Grid{
		cells:    make(map[Coord]Color),
		cellSize: cellSize,
	}
}

// CellSize returns the cell edge length in degrees.
func (g *Grid) CellSize() float64 {
	return g.cellSize
}

// Set colors the cell at the given coordinate.
func (g *Grid) Set(c Coord, color Color) {
	g.cells[c] = color
}

// Get returns the cell color if one is set.
func (g *Grid) Get(c Coord) (Color, bool) {
	color, ok := g.cells[c]
	return color, ok
}

// Remove clears one cell.
func (g *Grid) Remove(c Coord) {
	delete(g.cells, c)
}

// Clear drops every cell.
func (g *Grid) Clear() {
	g.cells = make(map[Coord]Color)
}

// Len returns the number of colored cells.
func (g *Grid) Len() int {
	return len(g.cells)
}

// WorldToGrid converts a geographic point to the cell containing it.
func (g *Grid) WorldToGrid(p orb.Point) Coord {
	return Coord{
		X: int64(math.Floor(p[0] / g.cellSize)),
		Y: int64(math.Floor(p[1] / g.cellSize)),
	}
}

// GridToWorld returns the geographic center of a cell.
func (g *Grid) GridToWorld(c Coord) orb.Point {
	return orb.Point{
		(float64(c.X) + 0.5) * g.cellSize,
		(float64(c.Y) + 0.5) * g.cellSize,
	}
}

// Update rebuilds the screen-space quads for the current camera. Quads are
// screen-anchored, so any camera motion invalidates them; the rebuild runs
// every frame. Culling uses the camera's visible bounds padded by one cell.
func (g *Grid) Update(cam *camera.Camera) {
	g.quads = g.quads[:0]

	if len(g.cells) == 0 {
		return
	}

	bounds := cam.VisibleBounds()
	pad := g.cellSize
	half := g.cellSize / 2.0

	for c, color := range g.cells {
		center := g.GridToWorld(c)
		if center[0] < bounds.Min[0]-pad || center[0] > bounds.Max[0]+pad ||
			center[1] < bounds.Min[1]-pad || center[1] > bounds.Max[1]+pad {
			continue
		}

		corners := [4]orb.Point{
			{center[0] - half, center[1] - half},
			{center[0] + half, center[1] - half},
			{center[0] + half, center[1] + half},
			{center[0] - half, center[1] + half},
		}

		var q Quad
		q.Color = color
		for i, corner := range corners {
			x, y := cam.WorldToScreen(corner[0], corner[1])
			q.Corners[i] = [2]float64{x, y}
		}
		g.quads = append(g.quads, q)
	}
}

// Quads returns the screen-space quads built by the last Update.
func (g *Grid) Quads() []Quad {
	return g.quads
}
