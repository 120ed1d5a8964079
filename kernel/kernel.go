package kernel

import (
	"image"
	"image/color"
	"math"
)

// Particle is a single point handed to ParticleRasterize. Velocity and life
// are carried along so the same value can be integrated by the caller.
type Particle struct {
	X, Y    float64
	VX, VY  float64
	Life    float64
	MaxLife float64
	R, G, B uint8
	Alpha   float64
}

// ExplosionColor is the fixed tint of the falloff gradient.
var ExplosionColor = color.RGBA{R: 215, G: 43, B: 22, A: 255}

func newBuffer(width, height int) *image.RGBA {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

// clone copies src into a zero-origin buffer with a packed stride so the
// per-channel transforms can walk Pix linearly.
func clone(src *image.RGBA) *image.RGBA {
	if src == nil {
		return newBuffer(0, 0)
	}
	b := src.Bounds()
	dst := newBuffer(b.Dx(), b.Dy())
	rowLen := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		so := src.PixOffset(b.Min.X, b.Min.Y+y)
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+rowLen], src.Pix[so:so+rowLen])
	}
	return dst
}

// Copy returns a zero-origin copy of src.
func Copy(src *image.RGBA) *image.RGBA {
	return clone(src)
}

// clamp8 converts a channel value the way a clamped byte array stores it:
// NaN becomes 0, values are clamped to [0,255] and rounded half to even.
func clamp8(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.RoundToEven(v))
}

// ExplosionFalloff renders a radial gradient centred on (centerX, centerY).
// Pixels within radius get alpha floor(intensity*(1-d/radius)*255); the rest
// stay fully transparent.
func ExplosionFalloff(width, height int, centerX, centerY, radius, intensity float64) *image.RGBA {
	img := newBuffer(width, height)
	if radius <= 0 {
		return img
	}
	pix := img.Pix
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx := float64(x) - centerX
			dy := float64(y) - centerY
			d := math.Sqrt(dx*dx + dy*dy)
			if d > radius {
				continue
			}
			i := y*img.Stride + x*4
			pix[i] = ExplosionColor.R
			pix[i+1] = ExplosionColor.G
			pix[i+2] = ExplosionColor.B
			pix[i+3] = clamp8(math.Floor(intensity * (1 - d/radius) * 255))
		}
	}
	return img
}

// ParticleRasterize plots each particle as a single pixel. Later particles
// overwrite earlier ones at the same pixel; nothing is blended.
func ParticleRasterize(width, height int, particles []Particle) *image.RGBA {
	img := newBuffer(width, height)
	for _, p := range particles {
		fx := math.Floor(p.X)
		fy := math.Floor(p.Y)
		if math.IsNaN(fx) || math.IsNaN(fy) {
			continue
		}
		if fx < 0 || fy < 0 || fx >= float64(width) || fy >= float64(height) {
			continue
		}
		i := int(fy)*img.Stride + int(fx)*4
		img.Pix[i] = p.R
		img.Pix[i+1] = p.G
		img.Pix[i+2] = p.B
		img.Pix[i+3] = clamp8(math.Floor(p.Alpha * 255))
	}
	return img
}

// NoiseBackground fills an opaque buffer from palette using a smooth
// sine/cosine field. Indices past the end of the palette fall back to the
// first entry.
func NoiseBackground(width, height int, palette []color.RGBA) *image.RGBA {
	img := newBuffer(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			n := (math.Sin(float64(x)*0.1)+math.Cos(float64(y)*0.1))*0.5 + 0.5
			var c color.RGBA
			if len(palette) > 0 {
				idx := int(math.Floor(n * float64(len(palette))))
				if idx < 0 || idx >= len(palette) {
					idx = 0
				}
				c = palette[idx]
			}
			i := y*img.Stride + x*4
			img.Pix[i] = c.R
			img.Pix[i+1] = c.G
			img.Pix[i+2] = c.B
			img.Pix[i+3] = 255
		}
	}
	return img
}
