package main

import (
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	text "github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// screenSurface draws onto an ebiten image.
type screenSurface struct {
	dst    *ebiten.Image
	images *imageCache
}

func (s *screenSurface) FillRect(x, y, w, h float64, c color.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	vector.DrawFilledRect(s.dst, float32(x), float32(y), float32(w), float32(h), c, false)
}

func (s *screenSurface) FillCircle(x, y, r float64, c color.Color) {
	vector.DrawFilledCircle(s.dst, float32(x), float32(y), float32(r), c, true)
}

func (s *screenSurface) StrokeCircle(x, y, r, width float64, c color.Color) {
	vector.StrokeCircle(s.dst, float32(x), float32(y), float32(r), float32(width), c, true)
}

func (s *screenSurface) DrawImage(img image.Image, x, y, w, h float64) {
	src := s.images.get(img)
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}
	op := &ebiten.DrawImageOptions{Filter: ebiten.FilterNearest}
	op.GeoM.Scale(w/float64(b.Dx()), h/float64(b.Dy()))
	op.GeoM.Translate(x, y)
	s.dst.DrawImage(src, op)
}

func (s *screenSurface) DrawStream(key string, img *image.RGBA, x, y float64) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(x, y)
	s.dst.DrawImage(s.images.stream(key, img), op)
}

func (s *screenSurface) DrawText(str string, x, y, size float64, c color.Color, align textAlign) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(c)
	op.SecondaryAlign = text.AlignCenter
	switch align {
	case alignCenter:
		op.PrimaryAlign = text.AlignCenter
	case alignEnd:
		op.PrimaryAlign = text.AlignEnd
	}
	text.Draw(s.dst, str, face(size), op)
}

func (s *screenSurface) DrawTextRotated(str string, x, y, size, angle float64, c color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Rotate(angle)
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(c)
	op.PrimaryAlign = text.AlignCenter
	op.SecondaryAlign = text.AlignCenter
	text.Draw(s.dst, str, face(size), op)
}
