// Package raster decodes encoded tile bytes into tightly packed RGBA
// rasters ready for GPU upload.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"

	// Tile sources serve PNG or JPEG; WebP shows up on some providers.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Image is a decoded raster: Data is width*height*4 bytes of RGBA rows,
// top to bottom, no padding.
type Image struct {
	Width  int
	Height int
	Data   []uint8
}

// MemorySize returns the GPU byte-size estimate for a texture of the given
// dimensions (RGBA8, 4 bytes per pixel).
func MemorySize(width, height int) int {
	return width * height * 4
}

// Decode turns encoded image bytes into an RGBA raster.
func Decode(data []byte) (*Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode tile image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	// Re-draw into an origin-anchored RGBA image so Data has the exact
	// stride and offset the uploader expects.
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	return &Image{Width: w, Height: h, Data: rgba.Pix}, nil
}
