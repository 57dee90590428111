package testutil

import (
	"image"
	"image/color"
)

// UniformImage returns a w x h image filled with a single gray level.
func UniformImage(w, h int, level uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	c := color.RGBA{R: level, G: level, B: level, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// GradientImage returns a w x h image whose intensity ramps horizontally
// from black to white. Useful where a hash needs structure to latch onto.
func GradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			level := uint8(x * 255 / max(w-1, 1))
			img.SetRGBA(x, y, color.RGBA{R: level, G: level, B: level, A: 255})
		}
	}
	return img
}

// CheckerImage returns a w x h checkerboard with the given cell size.
func CheckerImage(w, h, cell int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			level := uint8(0)
			if ((x/cell)+(y/cell))%2 == 0 {
				level = 255
			}
			img.SetRGBA(x, y, color.RGBA{R: level, G: level, B: level, A: 255})
		}
	}
	return img
}

// NoiseImage returns a w x h image of deterministic pseudo-random gray
// levels. The same seed always produces the same pixels, so fingerprints
// over it are reproducible while its spectrum stays free of the ties that
// uniform synthetic images produce.
func NoiseImage(w, h int, seed uint64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	state := seed
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// xorshift64
			state ^= state << 13
			state ^= state >> 7
			state ^= state << 17
			level := uint8(state)
			img.SetRGBA(x, y, color.RGBA{R: level, G: level, B: level, A: 255})
		}
	}
	return img
}

// Invert returns a copy of img with every pixel intensity inverted.
// The maximally-perturbed counterpart for distance monotonicity tests.
func Invert(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			out.SetRGBA(x, y, color.RGBA{
				R: 255 - uint8(r>>8),
				G: 255 - uint8(g>>8),
				B: 255 - uint8(bl>>8),
				A: 255,
			})
		}
	}
	return out
}

// PerturbRows returns a copy of img with the top n rows forced to white.
// Larger n means a larger visual change, which distance property tests
// rely on being monotonically harder to match.
func PerturbRows(img image.Image, n int) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if y-b.Min.Y < n {
				out.SetRGBA(x, y, white)
				continue
			}
			r, g, bl, _ := img.At(x, y).RGBA()
			out.SetRGBA(x, y, color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8), A: 255})
		}
	}
	return out
}
