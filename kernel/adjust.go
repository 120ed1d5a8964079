package kernel

import (
	"image"
	"math"
)

// mapRGB applies fn to every pixel's colour channels. Alpha is copied through.
func mapRGB(src *image.RGBA, fn func(r, g, b float64) (float64, float64, float64)) *image.RGBA {
	dst := clone(src)
	pix := dst.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		r, g, b := fn(float64(pix[i]), float64(pix[i+1]), float64(pix[i+2]))
		pix[i] = clamp8(r)
		pix[i+1] = clamp8(g)
		pix[i+2] = clamp8(b)
	}
	return dst
}

// Brightness scales every colour channel by factor.
func Brightness(src *image.RGBA, factor float64) *image.RGBA {
	return mapRGB(src, func(r, g, b float64) (float64, float64, float64) {
		return r * factor, g * factor, b * factor
	})
}

const contrastMidpoint = 128

// Contrast stretches channels away from (or toward) the 128 midpoint.
func Contrast(src *image.RGBA, factor float64) *image.RGBA {
	f := func(v float64) float64 { return (v-contrastMidpoint)*factor + contrastMidpoint }
	return mapRGB(src, func(r, g, b float64) (float64, float64, float64) {
		return f(r), f(g), f(b)
	})
}

// Saturation blends each channel toward the pixel's luma. A factor of 0
// yields greyscale, 1 leaves the pixel unchanged.
func Saturation(src *image.RGBA, factor float64) *image.RGBA {
	return mapRGB(src, func(r, g, b float64) (float64, float64, float64) {
		gray := 0.299*r + 0.587*g + 0.114*b
		return gray + (r-gray)*factor, gray + (g-gray)*factor, gray + (b-gray)*factor
	})
}

// gaussianKernel returns 2*radius+1 weights with sigma radius/3, normalised
// to sum to one.
func gaussianKernel(radius int) []float64 {
	size := radius*2 + 1
	k := make([]float64, size)
	sigma := float64(radius) / 3
	var sum float64
	for i := range k {
		x := float64(i - radius)
		k[i] = math.Exp(-(x * x) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// Blur convolves along the horizontal axis only. Rows never exchange
// information; the vertical pass was never part of this effect.
// Samples past the edges clamp to the edge pixel. A radius below 1 is
// treated as 1.
func Blur(src *image.RGBA, radius int) *image.RGBA {
	if radius < 1 {
		radius = 1
	}
	in := clone(src)
	dst := clone(src)
	w, h := in.Bounds().Dx(), in.Bounds().Dy()
	k := gaussianKernel(radius)
	for y := 0; y < h; y++ {
		row := y * in.Stride
		for x := 0; x < w; x++ {
			var r, g, b, a, ws float64
			for i, wt := range k {
				sx := x + i - radius
				if sx < 0 {
					sx = 0
				} else if sx > w-1 {
					sx = w - 1
				}
				si := row + sx*4
				r += float64(in.Pix[si]) * wt
				g += float64(in.Pix[si+1]) * wt
				b += float64(in.Pix[si+2]) * wt
				a += float64(in.Pix[si+3]) * wt
				ws += wt
			}
			di := row + x*4
			dst.Pix[di] = clamp8(r / ws)
			dst.Pix[di+1] = clamp8(g / ws)
			dst.Pix[di+2] = clamp8(b / ws)
			dst.Pix[di+3] = clamp8(a / ws)
		}
	}
	return dst
}
