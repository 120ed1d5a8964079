package effects

import (
	"errors"
	"image"
	"math/rand"
	"testing"
	"time"

	"arenaclient/offload"
)

type call struct {
	kind   offload.Kind
	params any
	done   func(offload.Result)
}

type fakeSubmitter struct {
	calls []call
}

func (f *fakeSubmitter) Submit(kind offload.Kind, params any, done func(offload.Result)) string {
	f.calls = append(f.calls, call{kind: kind, params: params, done: done})
	return "req"
}

func (f *fakeSubmitter) count(kind offload.Kind) int {
	n := 0
	for _, c := range f.calls {
		if c.kind == kind {
			n++
		}
	}
	return n
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

var t0 = time.Unix(1700000000, 0)

func newTestRegistry(sub Submitter, clk *clock) *Registry {
	return New(sub, Config{Now: clk.Now, Rand: rand.New(rand.NewSource(1))})
}

func TestSpawnIssuesOneRequestPerExplosion(t *testing.T) {
	clk := &clock{now: t0}
	sub := &fakeSubmitter{}
	r := newTestRegistry(sub, clk)

	exps := []Explosion{{ID: "exp_1", Row: 2, Col: 3}}
	if n := r.Spawn(clk.now, exps); n != 1 {
		t.Fatalf("Spawn issued %d, want 1", n)
	}
	if n := r.Spawn(clk.now, exps); n != 0 {
		t.Fatalf("second Spawn issued %d, want 0", n)
	}
	if len(sub.calls) != 1 || sub.calls[0].kind != offload.KindExplosion {
		t.Fatalf("calls %#v", sub.calls)
	}
	p := sub.calls[0].params.(offload.ExplosionParams)
	if p.Width != 40 || p.Height != 40 || p.Radius != 40 || p.CenterX != 20 {
		t.Fatalf("params %#v", p)
	}

	sub.calls[0].done(offload.Result{Image: image.NewRGBA(image.Rect(0, 0, 40, 40))})
	effs := r.Effects()
	if len(effs) != 1 {
		t.Fatalf("got %d effects, want 1", len(effs))
	}
	if e := effs[0]; e.Row != 2 || e.Col != 3 || e.Fallback || e.Image == nil {
		t.Fatalf("effect %#v", e)
	}
}

func TestFailedRequestStoresFallback(t *testing.T) {
	clk := &clock{now: t0}
	sub := &fakeSubmitter{}
	r := newTestRegistry(sub, clk)
	r.Spawn(clk.now, []Explosion{{ID: "exp_1", Row: 1, Col: 1}})
	sub.calls[0].done(offload.Result{Err: offload.ErrTimeout})

	e, ok := r.Effect("exp_1")
	if !ok {
		t.Fatalf("no effect after failure")
	}
	if !e.Fallback || e.Image != nil {
		t.Fatalf("effect %#v, want fallback without image", e)
	}
}

func TestSpawnThroughInProcessBroker(t *testing.T) {
	clk := &clock{now: t0}
	c := offload.New(offload.Config{DisableWorker: true, Now: clk.Now})
	r := newTestRegistry(c, clk)
	r.Spawn(clk.now, []Explosion{{ID: "exp_9", Row: 2, Col: 3}})
	if n, _ := r.Len(); n != 0 {
		t.Fatalf("effect created before the broker delivered")
	}
	c.Poll(clk.now)
	e, ok := r.Effect("exp_9")
	if !ok || e.Image == nil {
		t.Fatalf("effect %#v ok=%v", e, ok)
	}
	if len(e.Image.Pix) != 40*40*4 {
		t.Fatalf("buffer length %d", len(e.Image.Pix))
	}
}

func TestSweepRemovesExpiredEffects(t *testing.T) {
	clk := &clock{now: t0}
	sub := &fakeSubmitter{}
	r := newTestRegistry(sub, clk)
	r.Spawn(clk.now, []Explosion{{ID: "a"}})
	sub.calls[0].done(offload.Result{Err: errors.New("boom")})

	if n := r.Sweep(t0.Add(999 * time.Millisecond)); n != 0 {
		t.Fatalf("swept %d early", n)
	}
	if n := r.Sweep(t0.Add(time.Second)); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if n, _ := r.Len(); n != 0 {
		t.Fatalf("%d effects remain", n)
	}
}

func TestRetainAllowsReuseAfterExplosionGone(t *testing.T) {
	clk := &clock{now: t0}
	sub := &fakeSubmitter{}
	r := newTestRegistry(sub, clk)
	exps := []Explosion{{ID: "a"}}
	r.Spawn(clk.now, exps)
	sub.calls[0].done(offload.Result{Err: offload.ErrTimeout})
	r.Sweep(t0.Add(2 * time.Second))

	r.Retain([]string{"a"})
	if n := r.Spawn(clk.now, exps); n != 0 {
		t.Fatalf("respawned while explosion still live")
	}
	r.Retain(nil)
	if n := r.Spawn(clk.now, exps); n != 1 {
		t.Fatalf("did not respawn after explosion left the snapshot")
	}
}

func TestParticleSystemExpires(t *testing.T) {
	clk := &clock{now: t0}
	sub := &fakeSubmitter{}
	r := newTestRegistry(sub, clk)
	sys := r.SpawnParticles(t0, 100, 100)
	if len(sys.Particles) != 15 {
		t.Fatalf("seeded %d particles, want 15", len(sys.Particles))
	}
	if sys.Duration != 1500*time.Millisecond {
		t.Fatalf("duration %v", sys.Duration)
	}

	prev := make([]float64, len(sys.Particles))
	for i, p := range sys.Particles {
		prev[i] = p.Life
	}
	r.Advance(t0.Add(16 * time.Millisecond))
	for i, p := range sys.Particles {
		if p.Life > prev[i] {
			t.Fatalf("particle %d life grew", i)
		}
	}

	for now := t0; now.Before(t0.Add(5 * time.Second)); now = now.Add(16 * time.Millisecond) {
		r.Advance(now)
	}
	r.Sweep(t0.Add(5 * time.Second))
	if _, n := r.Len(); n != 0 {
		t.Fatalf("%d particle systems survive", n)
	}
}

func TestParticleSweepEnforcesDuration(t *testing.T) {
	clk := &clock{now: t0}
	r := newTestRegistry(&fakeSubmitter{}, clk)
	r.SpawnParticles(t0, 10, 10)
	if n := r.Sweep(t0.Add(1499 * time.Millisecond)); n != 0 {
		t.Fatalf("swept %d early", n)
	}
	if n := r.Sweep(t0.Add(1500 * time.Millisecond)); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
}

func TestParticleRasterizeThrottled(t *testing.T) {
	clk := &clock{now: t0}
	sub := &fakeSubmitter{}
	r := newTestRegistry(sub, clk)
	sys := r.SpawnParticles(t0, 300, 300)

	for i := 1; i <= 10; i++ {
		r.Advance(t0.Add(time.Duration(i) * 16 * time.Millisecond))
	}
	if n := sub.count(offload.KindParticles); n != 1 {
		t.Fatalf("%d rasterize requests in flight, want 1", n)
	}

	sub.calls[0].done(offload.Result{Image: image.NewRGBA(image.Rect(0, 0, 600, 600)), Frame: 1})
	if sys.Image == nil || sys.Frame() != 1 {
		t.Fatalf("buffer not stored")
	}
	r.Advance(t0.Add(11 * 16 * time.Millisecond))
	if n := sub.count(offload.KindParticles); n != 2 {
		t.Fatalf("moving particles not re-rasterized: %d requests", n)
	}
}

func TestParticleRasterizeFailureRendersLocally(t *testing.T) {
	clk := &clock{now: t0}
	sub := &fakeSubmitter{}
	r := newTestRegistry(sub, clk)
	sys := r.SpawnParticles(t0, 300, 300)
	r.Advance(t0.Add(16 * time.Millisecond))
	sub.calls[0].done(offload.Result{Err: offload.ErrTimeout})
	if sys.Image == nil {
		t.Fatalf("no fallback buffer")
	}
	if b := sys.Image.Bounds(); b.Dx() != 600 || b.Dy() != 600 {
		t.Fatalf("fallback bounds %v", b)
	}
	lit := 0
	for i := 3; i < len(sys.Image.Pix); i += 4 {
		if sys.Image.Pix[i] > 0 {
			lit++
		}
	}
	if lit == 0 {
		t.Fatalf("fallback buffer is empty")
	}
}

func TestExplosionSeedsParticlesWhenEnabled(t *testing.T) {
	clk := &clock{now: t0}
	r := New(&fakeSubmitter{}, Config{Particles: true, Now: clk.Now})
	r.Spawn(t0, []Explosion{{ID: "a", Row: 2, Col: 3}})
	sys := r.Systems()
	if len(sys) != 1 {
		t.Fatalf("%d systems, want 1", len(sys))
	}
	p := sys[0].Particles[0]
	if p.X != 140 || p.Y != 100 {
		t.Fatalf("particles centred at %v,%v, want 140,100", p.X, p.Y)
	}
}

func TestClear(t *testing.T) {
	clk := &clock{now: t0}
	sub := &fakeSubmitter{}
	r := newTestRegistry(sub, clk)
	r.Spawn(t0, []Explosion{{ID: "a"}})
	sub.calls[0].done(offload.Result{Err: offload.ErrTimeout})
	r.SpawnParticles(t0, 1, 1)
	r.Clear()
	if e, s := r.Len(); e != 0 || s != 0 {
		t.Fatalf("Len after Clear = %d, %d", e, s)
	}
}

func TestSpawnedExplosionCoversWholeTile(t *testing.T) {
	clk := &clock{now: t0}
	broker := offload.New(offload.Config{DisableWorker: true, Now: clk.Now})
	defer broker.Close()
	r := New(broker, Config{Now: clk.Now, Rand: rand.New(rand.NewSource(1))})

	r.Spawn(clk.now, []Explosion{{ID: "exp_1", Row: 0, Col: 0}})
	broker.Poll(clk.now)
	e, ok := r.Effect("exp_1")
	if !ok || e.Image == nil {
		t.Fatalf("effect %#v ok=%v", e, ok)
	}
	if a := e.Image.RGBAAt(20, 20).A; a != 255 {
		t.Fatalf("centre alpha = %d, want 255", a)
	}
	if a := e.Image.RGBAAt(0, 0).A; a != 74 {
		t.Fatalf("corner alpha = %d, want 74", a)
	}
	if a := e.Image.RGBAAt(0, 20).A; a == 0 {
		t.Fatalf("edge midpoint left transparent")
	}
}
