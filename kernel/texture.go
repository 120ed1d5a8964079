package kernel

import (
	"image"
	"image/color"
	"math"
	"math/rand"
)

var crackColor = color.RGBA{A: 255}

// Crack draws lines random strokes of the given pixel width in opaque black
// over a copy of src. Endpoints come from rng so callers control
// reproducibility.
func Crack(src *image.RGBA, lines, width int, rng *rand.Rand) *image.RGBA {
	dst := clone(src)
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	if w == 0 || h == 0 {
		return dst
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	for i := 0; i < lines; i++ {
		x1 := int(math.Floor(rng.Float64() * float64(w)))
		y1 := int(math.Floor(rng.Float64() * float64(h)))
		x2 := int(math.Floor(rng.Float64() * float64(w)))
		y2 := int(math.Floor(rng.Float64() * float64(h)))
		drawLine(dst, x1, y1, x2, y2, width, crackColor)
	}
	return dst
}

// drawLine traces an error-accumulating step path from (x1,y1) to (x2,y2),
// stamping a square brush of lineWidth at every step.
func drawLine(img *image.RGBA, x1, y1, x2, y2, lineWidth int, c color.RGBA) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx, sy := -1, -1
	if x1 < x2 {
		sx = 1
	}
	if y1 < y2 {
		sy = 1
	}
	err := dx - dy
	half := lineWidth / 2
	x, y := x1, y1
	for {
		for wy := -half; wy <= half; wy++ {
			for wx := -half; wx <= half; wx++ {
				px, py := x+wx, y+wy
				if px < 0 || px >= w || py < 0 || py >= h {
					continue
				}
				i := py*img.Stride + px*4
				img.Pix[i] = c.R
				img.Pix[i+1] = c.G
				img.Pix[i+2] = c.B
				img.Pix[i+3] = c.A
			}
		}
		if x == x2 && y == y2 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x += sx
		}
		if e2 < dx {
			err += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Burn pushes red up by 50*intensity and pulls green and blue down by 30 and
// 50 times intensity.
func Burn(src *image.RGBA, intensity float64) *image.RGBA {
	return mapRGB(src, func(r, g, b float64) (float64, float64, float64) {
		return r + intensity*50, g - intensity*30, b - intensity*50
	})
}

// Fade scales the alpha channel by alpha and leaves colour untouched.
func Fade(src *image.RGBA, alpha float64) *image.RGBA {
	dst := clone(src)
	pix := dst.Pix
	for i := 3; i < len(pix); i += 4 {
		pix[i] = clamp8(math.Floor(float64(pix[i]) * alpha))
	}
	return dst
}
