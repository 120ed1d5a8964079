package kernel

import (
	"image/color"
	"testing"
)

// BenchmarkExplosionFalloff measures one tile-sized explosion, the most
// frequent request.
func BenchmarkExplosionFalloff(b *testing.B) {
	b.ReportAllocs()
	for n := 0; n < b.N; n++ {
		ExplosionFalloff(40, 40, 20, 20, 20, 1)
	}
}

// BenchmarkParticleRasterize measures a full-canvas particle frame.
func BenchmarkParticleRasterize(b *testing.B) {
	ps := make([]Particle, 15)
	for i := range ps {
		ps[i] = Particle{X: float64(100 + i), Y: float64(100 + i), Life: 1, MaxLife: 1, R: 255, Alpha: 1}
	}
	b.ReportAllocs()
	for n := 0; n < b.N; n++ {
		ParticleRasterize(600, 600, ps)
	}
}

// BenchmarkNoiseBackground measures the one-off arena background.
func BenchmarkNoiseBackground(b *testing.B) {
	pal := []color.RGBA{{100, 100, 100, 255}, {80, 80, 80, 255}, {60, 60, 60, 255}}
	b.ReportAllocs()
	for n := 0; n < b.N; n++ {
		NoiseBackground(600, 600, pal)
	}
}

// BenchmarkBlur measures the row blur on a tile.
func BenchmarkBlur(b *testing.B) {
	src := ExplosionFalloff(40, 40, 20, 20, 20, 1)
	b.ReportAllocs()
	for n := 0; n < b.N; n++ {
		Blur(src, 2)
	}
}
