package main

import (
	"bytes"
	"log"

	text "github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontSource *text.GoTextFaceSource
	faces      = make(map[float64]*text.GoTextFace)
)

func initFont() {
	src, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		log.Fatalf("failed to parse font: %v", err)
	}
	fontSource = src
	clear(faces)
}

// face returns a cached face of the given pixel size.
func face(size float64) *text.GoTextFace {
	if f, ok := faces[size]; ok {
		return f
	}
	if fontSource == nil {
		initFont()
	}
	f := &text.GoTextFace{Source: fontSource, Size: size}
	faces[size] = f
	return f
}
