package sprites

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLoadReportsProgressAndMissing(t *testing.T) {
	fsys := fstest.MapFS{
		"player/front.png": {Data: pngBytes(t, 40, 40)},
		"bombs/bomb.png":   {Data: pngBytes(t, 32, 32)},
		"player/back.png":  {Data: []byte("not a png")},
	}
	var logged int
	s := Load(fsys, []string{PlayerFront, Bomb, PlayerBack, Shield}, 2, func(string, ...any) { logged++ })
	<-s.Done()

	if !s.Complete() {
		t.Fatalf("not complete after Done")
	}
	done, total := s.Progress()
	if done != 4 || total != 4 {
		t.Fatalf("progress %d/%d", done, total)
	}
	if img := s.Get(PlayerFront); img == nil || img.Bounds().Dx() != 40 {
		t.Fatalf("front sprite %v", img)
	}
	if s.Get(PlayerBack) != nil || s.Get(Shield) != nil {
		t.Fatalf("broken sprites should be absent")
	}
	missing := s.Missing()
	if len(missing) != 2 || missing[PlayerBack] == nil || missing[Shield] == nil {
		t.Fatalf("missing %v", missing)
	}
	if logged != 2 {
		t.Fatalf("logged %d failures", logged)
	}
}

func TestNilSetGet(t *testing.T) {
	var s *Set
	if s.Get(Bomb) != nil {
		t.Fatalf("nil set returned an image")
	}
}

func TestLoadSerializesFailureLogs(t *testing.T) {
	names := make([]string, 32)
	for i := range names {
		names[i] = fmt.Sprintf("missing/%d", i)
	}
	var logged int
	s := Load(fstest.MapFS{}, names, 8, func(string, ...any) { logged++ })
	<-s.Done()
	if logged != len(names) {
		t.Fatalf("logged %d failures, want %d", logged, len(names))
	}
	if len(s.Missing()) != len(names) {
		t.Fatalf("missing %d", len(s.Missing()))
	}
}
