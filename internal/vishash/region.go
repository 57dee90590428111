package vishash

import (
	"image"
	"image/color"
)

// Region crops a size x size square centered on (x, y), in the coordinate
// space of img. When the square would cross the frame edge it is shifted
// inward rather than shrunk, so the fingerprint always covers the full
// region area. A frame smaller than the region in either dimension is
// returned whole: downsampling makes the fingerprint well-defined anyway.
func Region(img image.Image, x, y, size int) image.Image {
	b := img.Bounds()
	if size <= 0 || b.Dx() <= size || b.Dy() <= size {
		return img
	}

	x0 := clamp(x-size/2, b.Min.X, b.Max.X-size)
	y0 := clamp(y-size/2, b.Min.Y, b.Max.Y-size)

	return crop{img: img, rect: image.Rect(x0, y0, x0+size, y0+size)}
}

// crop is a bounds-restricted view over an image. It avoids copying pixel
// data and works for any image.Image, unlike the concrete SubImage methods.
type crop struct {
	img  image.Image
	rect image.Rectangle
}

func (c crop) ColorModel() color.Model { return c.img.ColorModel() }
func (c crop) Bounds() image.Rectangle { return c.rect }
func (c crop) At(x, y int) color.Color { return c.img.At(x, y) }

// downsampleGray reduces img to a w x h grid of grayscale intensities in
// [0, 255] by averaging each destination cell's source block. Luminance
// uses the BT.601 weights.
func downsampleGray(img image.Image, w, h int) [][]float64 {
	b := img.Bounds()
	sw, sh := b.Dx(), b.Dy()

	grid := make([][]float64, h)
	for gy := 0; gy < h; gy++ {
		grid[gy] = make([]float64, w)
		for gx := 0; gx < w; gx++ {
			// Source block for this cell, at least one pixel.
			x0 := b.Min.X + gx*sw/w
			x1 := b.Min.X + (gx+1)*sw/w
			y0 := b.Min.Y + gy*sh/h
			y1 := b.Min.Y + (gy+1)*sh/h
			if x1 <= x0 {
				x1 = x0 + 1
			}
			if y1 <= y0 {
				y1 = y0 + 1
			}

			var sum float64
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					r, g, bl, _ := img.At(x, y).RGBA()
					// RGBA returns 16-bit channels; scale to 8-bit.
					lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
					sum += lum
				}
			}
			grid[gy][gx] = sum / float64((x1-x0)*(y1-y0))
		}
	}
	return grid
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
