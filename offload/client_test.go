package offload

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"arenaclient/kernel"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) advance(d time.Duration) time.Time {
	f.now = f.now.Add(d)
	return f.now
}

// stubExec holds posted requests until the test releases them.
type stubExec struct {
	posted  [][]byte
	out     [][]byte
	postErr error
	closed  int
}

func (s *stubExec) post(msg []byte) error {
	if s.postErr != nil {
		return s.postErr
	}
	s.posted = append(s.posted, msg)
	return nil
}

func (s *stubExec) drain(fn func([]byte)) {
	out := s.out
	s.out = nil
	for _, b := range out {
		fn(b)
	}
}

func (s *stubExec) close() { s.closed++ }

// release runs the i'th posted request and queues its response.
func (s *stubExec) release(i int) {
	s.out = append(s.out, handle(s.posted[i]))
}

func newStubClient(clk *fakeClock) (*Client, *stubExec) {
	c := New(Config{DisableWorker: true, Now: clk.Now})
	st := &stubExec{}
	c.exec = st
	c.usingW = true
	return c, st
}

func explosionParams() ExplosionParams {
	return ExplosionParams{Width: 40, Height: 40, CenterX: 20, CenterY: 20, Radius: 20, Intensity: 1}
}

func TestWorkerConstructionFailureFallsBack(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	c := New(Config{Workers: -1, Now: clk.Now})
	if c.Supported() {
		t.Fatalf("client claims worker support after construction failure")
	}
	var got []Result
	c.Submit(KindExplosion, explosionParams(), func(r Result) { got = append(got, r) })
	if len(got) != 0 {
		t.Fatalf("continuation ran inside Submit")
	}
	c.Poll(clk.Now())
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	if !got[0].OK() {
		t.Fatalf("fallback failed: %v", got[0].Err)
	}
	if n := len(got[0].Image.Pix); n != 40*40*4 {
		t.Fatalf("buffer length %d, want %d", n, 40*40*4)
	}
	want := kernel.ExplosionFalloff(40, 40, 20, 20, 20, 1)
	if !bytes.Equal(got[0].Image.Pix, want.Pix) {
		t.Fatalf("fallback result differs from direct kernel call")
	}
	if s := c.Stats(); s.InProcess != 1 || s.Fulfilled != 1 {
		t.Fatalf("stats %#v", s)
	}
}

func TestTimeoutThenOrphan(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	c, st := newStubClient(clk)

	calls := 0
	var last Result
	id := c.Submit(KindExplosion, explosionParams(), func(r Result) { calls++; last = r })

	c.Poll(clk.advance(999 * time.Millisecond))
	if calls != 0 {
		t.Fatalf("resolved before deadline")
	}
	c.Poll(clk.advance(time.Millisecond))
	if calls != 1 || !errors.Is(last.Err, ErrTimeout) || last.ID != id {
		t.Fatalf("calls=%d result=%#v", calls, last)
	}

	st.release(0)
	c.Poll(clk.advance(time.Millisecond))
	if calls != 1 {
		t.Fatalf("late response re-resolved the request")
	}
	if s := c.Stats(); s.Orphaned != 1 || s.TimedOut != 1 {
		t.Fatalf("stats %#v", s)
	}
	if c.Pending() != 0 {
		t.Fatalf("pending = %d", c.Pending())
	}
}

func TestResponsesMatchedByID(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	c, st := newStubClient(clk)

	got := map[string]Result{}
	ids := make([]string, 3)
	for i := range ids {
		p := ParticleParams{Width: 4, Height: 4, Frame: i + 1}
		ids[i] = c.Submit(KindParticles, p, func(r Result) { got[r.ID] = r })
	}
	st.release(2)
	st.release(0)
	st.release(1)
	if n := c.Poll(clk.Now()); n != 3 {
		t.Fatalf("Poll delivered %d, want 3", n)
	}
	for i, id := range ids {
		r, ok := got[id]
		if !ok || !r.OK() {
			t.Fatalf("request %s missing or failed: %#v", id, r)
		}
		if r.Frame != i+1 {
			t.Fatalf("request %s frame %d, want %d", id, r.Frame, i+1)
		}
	}
	if ids[0] == ids[1] || ids[1] == ids[2] {
		t.Fatalf("correlation ids not unique: %v", ids)
	}
}

func TestExactlyOneOutcome(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	c, st := newStubClient(clk)

	counts := map[string]int{}
	for i := 0; i < 6; i++ {
		c.Submit(KindExplosion, explosionParams(), func(r Result) { counts[r.ID]++ })
	}
	st.release(0)
	st.release(3)
	c.Poll(clk.advance(500 * time.Millisecond))
	c.Poll(clk.advance(600 * time.Millisecond))
	for i := range st.posted {
		st.release(i)
	}
	c.Poll(clk.advance(time.Second))
	c.Close()

	if len(counts) != 6 {
		t.Fatalf("%d requests resolved, want 6", len(counts))
	}
	for id, n := range counts {
		if n != 1 {
			t.Fatalf("request %s resolved %d times", id, n)
		}
	}
}

func TestBusyWorkerRunsInProcess(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	c, st := newStubClient(clk)
	st.postErr = errWorkerBusy

	var res Result
	c.Submit(KindExplosion, explosionParams(), func(r Result) { res = r })
	c.Poll(clk.Now())
	if !res.OK() {
		t.Fatalf("in-process fallback failed: %v", res.Err)
	}
	if s := c.Stats(); s.InProcess != 1 || s.Worker != 0 {
		t.Fatalf("stats %#v", s)
	}
}

func TestUnknownKindFails(t *testing.T) {
	c := New(Config{DisableWorker: true})
	var res Result
	c.Submit(Kind("sparkles"), explosionParams(), func(r Result) { res = r })
	c.Poll(time.Now())
	if !errors.Is(res.Err, ErrCompute) {
		t.Fatalf("err = %v, want ErrCompute", res.Err)
	}
}

func TestCloseFailsPendingOnce(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	c, st := newStubClient(clk)

	var errs []error
	c.Submit(KindExplosion, explosionParams(), func(r Result) { errs = append(errs, r.Err) })
	c.Close()
	c.Close()
	if st.closed != 1 {
		t.Fatalf("worker closed %d times", st.closed)
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrClosed) {
		t.Fatalf("errs = %v", errs)
	}

	c.Submit(KindExplosion, explosionParams(), func(r Result) { errs = append(errs, r.Err) })
	if len(errs) != 1 {
		t.Fatalf("submit after close resolved synchronously")
	}
	c.Poll(clk.Now())
	if len(errs) != 2 || !errors.Is(errs[1], ErrClosed) {
		t.Fatalf("errs = %v", errs)
	}
}

func TestImageAndTextureOps(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for i := range src.Pix {
		src.Pix[i] = uint8(i * 9)
	}
	c := New(Config{DisableWorker: true})
	var got []*image.RGBA
	keep := func(r Result) {
		if !r.OK() {
			t.Fatalf("%s failed: %v", r.Kind, r.Err)
		}
		got = append(got, r.Image)
	}
	c.Submit(KindImage, ImageParams{Op: OpBrightness, Width: 3, Height: 2, Pix: src.Pix, Factor: 1.5}, keep)
	c.Submit(KindImage, ImageParams{Op: "emboss", Width: 3, Height: 2, Pix: src.Pix}, keep)
	c.Submit(KindTexture, TextureParams{Op: OpFade, Width: 3, Height: 2, Pix: src.Pix}, keep)
	c.Submit(KindBackground, BackgroundParams{Pattern: PatternNoise, Width: 3, Height: 2,
		Palette: []color.RGBA{{R: 100, G: 100, B: 100, A: 255}}}, keep)
	c.Poll(time.Now())

	if len(got) != 4 {
		t.Fatalf("got %d results", len(got))
	}
	if !bytes.Equal(got[0].Pix, kernel.Brightness(src, 1.5).Pix) {
		t.Fatalf("brightness mismatch")
	}
	if !bytes.Equal(got[1].Pix, src.Pix) {
		t.Fatalf("unknown op should pass the source through")
	}
	if !bytes.Equal(got[2].Pix, kernel.Fade(src, 0.5).Pix) {
		t.Fatalf("fade default mismatch")
	}
	if got[3].Pix[3] != 255 {
		t.Fatalf("background not opaque")
	}
}

func TestBadBufferFails(t *testing.T) {
	c := New(Config{DisableWorker: true})
	var res Result
	c.Submit(KindImage, ImageParams{Op: OpBlur, Width: 3, Height: 3, Pix: make([]byte, 5)}, func(r Result) { res = r })
	c.Poll(time.Now())
	if !errors.Is(res.Err, ErrCompute) {
		t.Fatalf("err = %v", res.Err)
	}
}

func TestRealWorkerRoundTrip(t *testing.T) {
	c := New(Config{Workers: 2, Timeout: 10 * time.Second})
	defer c.Close()
	if !c.Supported() {
		t.Fatalf("worker not started")
	}
	var res *Result
	c.Submit(KindExplosion, explosionParams(), func(r Result) { res = &r })
	deadline := time.Now().Add(5 * time.Second)
	for res == nil && time.Now().Before(deadline) {
		c.Poll(time.Now())
		time.Sleep(time.Millisecond)
	}
	if res == nil {
		t.Fatalf("worker never answered")
	}
	if !res.OK() || len(res.Image.Pix) != 40*40*4 {
		t.Fatalf("bad result %#v", res)
	}
	if s := c.Stats(); s.Worker != 1 {
		t.Fatalf("stats %#v", s)
	}
}
