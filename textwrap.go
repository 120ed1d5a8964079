package main

import (
	"strings"

	text "github.com/hajimehoshi/ebiten/v2/text/v2"
)

// wrapText splits s into lines no wider than maxWidth in face. Words stay
// whole unless a single word is wider than maxWidth, in which case it is
// broken by rune.
func wrapText(s string, face text.Face, maxWidth float64) []string {
	fits := func(s string) bool {
		w, _ := text.Measure(s, face, 0)
		return w <= maxWidth
	}
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		cur := ""
		for _, w := range words {
			if cur != "" && fits(cur+" "+w) {
				cur += " " + w
				continue
			}
			if cur != "" {
				lines = append(lines, cur)
			}
			cur = ""
			for _, r := range w {
				if cur != "" && !fits(cur+string(r)) {
					lines = append(lines, cur)
					cur = ""
				}
				cur += string(r)
			}
		}
		lines = append(lines, cur)
	}
	return lines
}

// textWidth is the widest of lines in face.
func textWidth(lines []string, face text.Face) float64 {
	var widest float64
	for _, l := range lines {
		if w, _ := text.Measure(l, face, 0); w > widest {
			widest = w
		}
	}
	return widest
}
