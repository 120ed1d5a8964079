package main

import (
	"image"
	"image/color"

	dark "github.com/thiagokokada/dark-mode-go"

	"arenaclient/effects"
	"arenaclient/offload"
)

var (
	darkPalette = []color.RGBA{
		{100, 100, 100, 255},
		{80, 80, 80, 255},
		{60, 60, 60, 255},
	}
	lightPalette = []color.RGBA{
		{170, 170, 170, 255},
		{150, 150, 150, 255},
		{130, 130, 130, 255},
	}
)

// isDarkMode is swapped out in tests.
var isDarkMode = dark.IsDarkMode

// themePalette picks the noise palette for the configured theme, asking the
// OS when the theme is unset.
func themePalette(theme string) []color.RGBA {
	switch theme {
	case "dark":
		return darkPalette
	case "light":
		return lightPalette
	}
	on, err := isDarkMode()
	if err != nil {
		logDebug("dark mode detection: %v", err)
		return darkPalette
	}
	if on {
		return darkPalette
	}
	return lightPalette
}

// backdrop is the generated arena background. Until the kernel answers, or
// if it fails, the frame is filled with a flat grey instead.
type backdrop struct {
	img     *image.RGBA
	pending bool
	failed  bool
}

func (b *backdrop) request(sub effects.Submitter, w, h int, palette []color.RGBA) {
	if b.pending || b.img != nil {
		return
	}
	b.pending = true
	b.failed = false
	sub.Submit(offload.KindBackground, offload.BackgroundParams{
		Pattern: offload.PatternNoise,
		Width:   w,
		Height:  h,
		Palette: palette,
	}, func(res offload.Result) {
		b.pending = false
		if !res.OK() {
			b.failed = true
			logWarn("background generation failed, keeping flat fill: %v", res.Err)
			return
		}
		b.img = res.Image
	})
}
