// Package effects owns short-lived explosion effects and particle systems:
// it requests their buffers from the compute broker, integrates particles
// once per frame and sweeps out anything past its lifetime.
package effects

import (
	"cmp"
	"image"
	"math"
	"math/rand"
	"slices"
	"strconv"
	"time"

	"arenaclient/kernel"
	"arenaclient/offload"
)

// Submitter is the part of the compute broker the registry needs.
type Submitter interface {
	Submit(kind offload.Kind, params any, done func(offload.Result)) string
}

const (
	DefaultTile             = 40
	DefaultEffectDuration   = 1000 * time.Millisecond
	DefaultParticleDuration = 1500 * time.Millisecond
	DefaultParticleCap      = 5 * time.Second
	DefaultParticleCount    = 15
	DefaultSweepInterval    = 5 * time.Second

	// per-frame integration step
	frameStep = 0.016
	gravity   = 0.05

	moveThreshold  = 0.1
	alphaThreshold = 0.05
)

// Config sizes effects and sets their lifetimes. Zero fields take the
// defaults above.
type Config struct {
	Tile             int
	CanvasWidth      int
	CanvasHeight     int
	EffectDuration   time.Duration
	ParticleDuration time.Duration
	ParticleCap      time.Duration
	ParticleCount    int
	// Particles enables particle systems alongside explosion effects.
	Particles bool
	Rand      *rand.Rand
	Now       func() time.Time
	Logf      func(format string, v ...any)
}

// Explosion is the slice of snapshot state the registry needs.
type Explosion struct {
	ID       string
	Row, Col int
}

// Effect is a resolved explosion visual. A nil Image means the kernel
// failed and the layered fallback should be drawn.
type Effect struct {
	ID       string
	Row, Col int
	Image    *image.RGBA
	Fallback bool
	Start    time.Time
	Duration time.Duration
}

// Expired reports whether the effect has outlived its duration.
func (e *Effect) Expired(now time.Time) bool {
	return now.Sub(e.Start) >= e.Duration
}

// ParticleSystem is a burst of particles with its latest rasterized buffer.
type ParticleSystem struct {
	ID        string
	Particles []kernel.Particle
	Start     time.Time
	Duration  time.Duration
	Image     *image.RGBA

	rendered []kernel.Particle
	inflight bool
	frame    int
}

// Frame returns the frame number of the buffer currently held in Image.
func (ps *ParticleSystem) Frame() int { return ps.frame }

// Expired reports whether the system is done: out of particles or past its
// duration or the hard cap.
func (ps *ParticleSystem) Expired(now time.Time, limit time.Duration) bool {
	age := now.Sub(ps.Start)
	return len(ps.Particles) == 0 || age >= ps.Duration || age >= limit
}

// Registry tracks every live effect and particle system. Like the compute
// broker it belongs to the frame loop goroutine.
type Registry struct {
	cfg     Config
	sub     Submitter
	rng     *rand.Rand
	effects map[string]*Effect
	pending map[string]bool
	seen    map[string]bool
	systems map[string]*ParticleSystem
	seq     int
	frame   int
}

// New returns an empty registry submitting work to sub.
func New(sub Submitter, cfg Config) *Registry {
	if cfg.Tile <= 0 {
		cfg.Tile = DefaultTile
	}
	if cfg.CanvasWidth <= 0 {
		cfg.CanvasWidth = cfg.Tile * 15
	}
	if cfg.CanvasHeight <= 0 {
		cfg.CanvasHeight = cfg.Tile * 15
	}
	if cfg.EffectDuration <= 0 {
		cfg.EffectDuration = DefaultEffectDuration
	}
	if cfg.ParticleDuration <= 0 {
		cfg.ParticleDuration = DefaultParticleDuration
	}
	if cfg.ParticleCap <= 0 {
		cfg.ParticleCap = DefaultParticleCap
	}
	if cfg.ParticleCount <= 0 {
		cfg.ParticleCount = DefaultParticleCount
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Registry{
		cfg:     cfg,
		sub:     sub,
		rng:     rng,
		effects: make(map[string]*Effect),
		pending: make(map[string]bool),
		seen:    make(map[string]bool),
		systems: make(map[string]*ParticleSystem),
	}
}

func (r *Registry) logf(format string, v ...any) {
	if r.cfg.Logf != nil {
		r.cfg.Logf(format, v...)
	}
}

// Spawn requests an effect for every explosion not seen before and returns
// how many requests it issued. Calling it again with the same explosions
// issues nothing.
func (r *Registry) Spawn(now time.Time, explosions []Explosion) int {
	n := 0
	for _, ex := range explosions {
		if r.ensure(now, ex) {
			n++
		}
	}
	return n
}

func (r *Registry) ensure(now time.Time, ex Explosion) bool {
	if ex.ID == "" || r.seen[ex.ID] {
		return false
	}
	r.seen[ex.ID] = true
	r.pending[ex.ID] = true

	tile := r.cfg.Tile
	half := float64(tile) / 2
	params := offload.ExplosionParams{
		Width: tile, Height: tile,
		CenterX: half, CenterY: half,
		Radius: float64(tile), Intensity: 1,
	}
	r.sub.Submit(offload.KindExplosion, params, func(res offload.Result) {
		delete(r.pending, ex.ID)
		eff := &Effect{
			ID:       ex.ID,
			Row:      ex.Row,
			Col:      ex.Col,
			Start:    r.cfg.Now(),
			Duration: r.cfg.EffectDuration,
		}
		if res.OK() {
			eff.Image = res.Image
		} else {
			eff.Fallback = true
			r.logf("explosion %s using fallback: %v", ex.ID, res.Err)
		}
		r.effects[ex.ID] = eff
	})

	if r.cfg.Particles {
		r.spawnParticles(now, ex)
	}
	return true
}

// Retain forgets explosions that are no longer in the snapshot so a reused
// id can spawn again later.
func (r *Registry) Retain(ids []string) {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	for id := range r.seen {
		if !keep[id] && !r.pending[id] {
			if _, live := r.effects[id]; !live {
				delete(r.seen, id)
			}
		}
	}
}

func (r *Registry) spawnParticles(now time.Time, ex Explosion) *ParticleSystem {
	tile := float64(r.cfg.Tile)
	cx := float64(ex.Col)*tile + tile/2
	cy := float64(ex.Row)*tile + tile/2
	return r.SpawnParticles(now, cx, cy)
}

// SpawnParticles seeds a burst centred on (x, y) in canvas pixels.
func (r *Registry) SpawnParticles(now time.Time, x, y float64) *ParticleSystem {
	n := r.cfg.ParticleCount
	ps := make([]kernel.Particle, n)
	for i := range ps {
		angle := math.Pi * 2 * float64(i) / float64(n)
		speed := 1 + r.rng.Float64()*2
		life := 0.3 + r.rng.Float64()*0.7
		ps[i] = kernel.Particle{
			X: x, Y: y,
			VX:      math.Cos(angle) * speed,
			VY:      math.Sin(angle) * speed,
			Life:    life,
			MaxLife: life,
			R:       255,
			G:       uint8(100 + r.rng.Float64()*155),
			Alpha:   1,
		}
	}
	r.seq++
	sys := &ParticleSystem{
		ID:        "particle_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + strconv.Itoa(r.seq),
		Particles: ps,
		Start:     now,
		Duration:  r.cfg.ParticleDuration,
	}
	r.systems[sys.ID] = sys
	return sys
}

// Advance integrates every particle system by one frame and requests a new
// buffer where the particles moved enough to matter.
func (r *Registry) Advance(now time.Time) {
	r.frame++
	for id, sys := range r.systems {
		if now.Sub(sys.Start) >= sys.Duration || now.Sub(sys.Start) >= r.cfg.ParticleCap {
			delete(r.systems, id)
			continue
		}
		integrate(sys)
		if len(sys.Particles) == 0 {
			delete(r.systems, id)
			continue
		}
		if sys.Image == nil || changed(sys.rendered, sys.Particles) {
			r.rasterize(sys)
		}
	}
}

func integrate(sys *ParticleSystem) {
	alive := sys.Particles[:0]
	for _, p := range sys.Particles {
		p.X += p.VX
		p.Y += p.VY
		p.Life -= frameStep
		p.Alpha = math.Max(0, p.Life/p.MaxLife)
		p.VY += gravity
		if p.Life > 0 {
			alive = append(alive, p)
		}
	}
	sys.Particles = alive
}

// changed compares the particles against the set last sent for rasterizing.
func changed(prev, cur []kernel.Particle) bool {
	if len(prev) != len(cur) {
		return true
	}
	for i := range cur {
		if math.Abs(cur[i].X-prev[i].X) > moveThreshold ||
			math.Abs(cur[i].Y-prev[i].Y) > moveThreshold ||
			math.Abs(cur[i].Alpha-prev[i].Alpha) > alphaThreshold {
			return true
		}
	}
	return false
}

// rasterize keeps at most one request in flight per system.
func (r *Registry) rasterize(sys *ParticleSystem) {
	if sys.inflight {
		return
	}
	sys.inflight = true
	sys.rendered = slices.Clone(sys.Particles)
	snap := sys.rendered
	w, h := r.cfg.CanvasWidth, r.cfg.CanvasHeight
	params := offload.ParticleParams{Width: w, Height: h, Particles: snap, Frame: r.frame}
	r.sub.Submit(offload.KindParticles, params, func(res offload.Result) {
		sys.inflight = false
		if res.OK() {
			sys.Image = res.Image
			sys.frame = res.Frame
			return
		}
		r.logf("particle system %s rasterized in-process: %v", sys.ID, res.Err)
		sys.Image = kernel.ParticleRasterize(w, h, snap)
	})
}

// Sweep drops every effect and particle system past its lifetime and
// returns how many were removed.
func (r *Registry) Sweep(now time.Time) int {
	n := 0
	for id, e := range r.effects {
		if e.Expired(now) {
			delete(r.effects, id)
			n++
		}
	}
	for id, sys := range r.systems {
		if sys.Expired(now, r.cfg.ParticleCap) {
			delete(r.systems, id)
			n++
		}
	}
	return n
}

// Effects returns the live effects ordered by start time then id.
func (r *Registry) Effects() []*Effect {
	out := make([]*Effect, 0, len(r.effects))
	for _, e := range r.effects {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *Effect) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Effect returns the effect for an explosion id.
func (r *Registry) Effect(id string) (*Effect, bool) {
	e, ok := r.effects[id]
	return e, ok
}

// Systems returns the live particle systems ordered by start time then id.
func (r *Registry) Systems() []*ParticleSystem {
	out := make([]*ParticleSystem, 0, len(r.systems))
	for _, s := range r.systems {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *ParticleSystem) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Len returns the number of live effects and particle systems.
func (r *Registry) Len() (effects, systems int) {
	return len(r.effects), len(r.systems)
}

// Clear drops everything. Requests still in flight resolve into the cleared
// registry and are swept normally.
func (r *Registry) Clear() {
	clear(r.effects)
	clear(r.pending)
	clear(r.seen)
	clear(r.systems)
}
