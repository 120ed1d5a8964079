package main

import (
	"errors"
	"image"
	"testing"

	"arenaclient/offload"
)

type captureSubmitter struct {
	kind   offload.Kind
	params any
	done   func(offload.Result)
	calls  int
}

func (c *captureSubmitter) Submit(kind offload.Kind, params any, done func(offload.Result)) string {
	c.kind, c.params, c.done = kind, params, done
	c.calls++
	return "bg"
}

func TestThemePalette(t *testing.T) {
	old := isDarkMode
	defer func() { isDarkMode = old }()

	if p := themePalette("light"); &p[0] != &lightPalette[0] {
		t.Fatalf("light theme did not pick light palette")
	}
	isDarkMode = func() (bool, error) { return false, nil }
	if p := themePalette(""); &p[0] != &lightPalette[0] {
		t.Fatalf("OS light mode did not pick light palette")
	}
	isDarkMode = func() (bool, error) { return false, errors.New("no portal") }
	if p := themePalette(""); &p[0] != &darkPalette[0] {
		t.Fatalf("detection failure did not fall back to dark")
	}
}

func TestBackdropRequest(t *testing.T) {
	sub := &captureSubmitter{}
	var b backdrop
	b.request(sub, 600, 600, darkPalette)
	b.request(sub, 600, 600, darkPalette)
	if sub.calls != 1 || sub.kind != offload.KindBackground {
		t.Fatalf("calls=%d kind=%s", sub.calls, sub.kind)
	}
	p, ok := sub.params.(offload.BackgroundParams)
	if !ok || p.Width != 600 || p.Pattern != offload.PatternNoise {
		t.Fatalf("params = %#v", sub.params)
	}

	sub.done(offload.Result{Kind: offload.KindBackground, Err: errors.New("timeout")})
	if !b.failed || b.img != nil || b.pending {
		t.Fatalf("after failure: %+v", b)
	}

	b.request(sub, 600, 600, darkPalette)
	img := image.NewRGBA(image.Rect(0, 0, 600, 600))
	sub.done(offload.Result{Kind: offload.KindBackground, Image: img})
	if b.img != img || b.failed {
		t.Fatalf("after success: %+v", b)
	}
	b.request(sub, 600, 600, darkPalette)
	if sub.calls != 2 {
		t.Fatalf("requested again after success: %d", sub.calls)
	}
}
