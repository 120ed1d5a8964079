package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"arenaclient/effects"
	"arenaclient/offload"
	"arenaclient/sched"
	"arenaclient/session"
	"arenaclient/sprites"
)

const (
	scoreboardInterval = time.Second
	metricsInterval    = 10 * time.Second
	ambientDuckFor     = 500 * time.Millisecond
)

// gameOptions are the collaborators a Game is built from.
type gameOptions struct {
	URL          string
	Identity     session.Identity
	IdentityPath string
	// Dialer defaults to a websocket dialer.
	Dialer  session.Dialer
	Sprites *sprites.Set
	Keys    keySource
	Now     func() time.Time
}

// Game owns everything the arena screen needs. All of it is driven from
// Update and Draw on the ebiten goroutine.
type Game struct {
	ctx    context.Context
	opt    gameOptions
	now    func() time.Time
	sch    *sched.Scheduler
	broker *offload.Client
	reg    *effects.Registry
	ses    *session.Session
	scene  *scene
	images *imageCache
	pres   *presence
	perf   perfMetrics

	scoreboard []string
	lastDir    session.Direction
	duck       sched.Slot
	wasAlive   bool

	leaving   bool
	leaveOnce sync.Once
}

func newGame(ctx context.Context, opt gameOptions) *Game {
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if opt.Keys == nil {
		opt.Keys = ebitenKeys{}
	}
	now := opt.Now
	g := &Game{
		ctx:     ctx,
		opt:     opt,
		now:     now,
		sch:     sched.New(),
		images:  newImageCache(),
		lastDir: session.Down,
	}
	g.broker = offload.New(offload.Config{
		Workers:       gs.Workers,
		DisableWorker: gs.DisableWorker,
		Timeout:       time.Duration(gs.ComputeTimeoutMS) * time.Millisecond,
		Now:           now,
		Logf:          componentLog("offload"),
	})
	g.reg = effects.New(g.broker, effects.Config{
		Tile:          tileSize,
		CanvasWidth:   boardSize,
		CanvasHeight:  boardSize,
		ParticleCount: gs.ParticleCount,
		Particles:     gs.Particles,
		Now:           now,
		Logf:          componentLog("effects"),
	})
	g.ses = session.New(session.Config{
		URL:      opt.URL,
		Identity: opt.Identity,
		Dialer:   opt.Dialer,
		Sched:    g.sch,
		Now:      now,
		Hooks:    g.hooks(),
		Logf:     componentLog("session"),
	})
	g.scene = &scene{
		tile:    tileSize,
		reg:     g.reg,
		sprites: opt.Sprites,
		bg:      &backdrop{},
		count:   &countdown{lock: g.ses.SetInputLocked},
		notes:   &notices{},
	}
	g.scene.bg.request(g.broker, boardSize, boardSize, themePalette(gs.Theme))

	start := now()
	g.sch.Every(start, scoreboardInterval, g.refreshScoreboard)
	g.sch.Every(start, effects.DefaultSweepInterval, g.sweep)
	g.sch.Every(start, metricsInterval, g.reportPerf)
	return g
}

func (g *Game) hooks() session.Hooks {
	return session.Hooks{
		Snapshot:    g.onSnapshot,
		Explosions:  g.onExplosions,
		Countdown:   func(now time.Time) { g.scene.count.start(g.sch, now) },
		StateChange: func(st session.State) { logDebug("connection %v", st) },
		Toast:       func(msg string) { g.scene.notes.toast(g.now(), msg, toastDuration) },
		Blocking:    func(msg string) { g.scene.notes.block(msg) },
		LobbyLost: func(msg string) {
			logWarn("lobby lost: %s", msg)
			g.scene.notes.block(msg)
			g.leave("lobby not found")
		},
		Identity: g.storeIdentity,
	}
}

func (g *Game) storeIdentity(id session.Identity) {
	if g.opt.IdentityPath == "" {
		return
	}
	if err := saveIdentity(g.opt.IdentityPath, id); err != nil {
		logError("save identity: %v", err)
	}
}

func (g *Game) onSnapshot(prev, next *session.Snapshot) {
	ids := make([]string, 0, len(next.Explosions))
	for id := range next.Explosions {
		ids = append(ids, id)
	}
	g.reg.Retain(ids)

	if me := next.Players[g.ses.Identity().PlayerID]; me != nil {
		if g.wasAlive && !me.Alive {
			g.scene.notes.toast(g.now(), "YOU DIED - SPECTATE MODE", deathDuration)
		}
		g.wasAlive = me.Alive
	}
	if prev == nil || prev.Phase != next.Phase {
		g.pres.update(g.ses.Identity().LobbyID, next)
	}
}

func (g *Game) onExplosions(now time.Time, fresh []*session.Explosion) {
	list := make([]effects.Explosion, 0, len(fresh))
	for _, ex := range fresh {
		list = append(list, effects.Explosion{ID: ex.ID, Row: ex.Position.Row, Col: ex.Position.Col})
	}
	if g.reg.Spawn(now, list) == 0 {
		return
	}
	playSound(explosionPCM, 1)
	duckAmbient()
	g.duck.Replace(g.sch, now, ambientDuckFor, func(time.Time) { restoreAmbient() })
}

func (g *Game) refreshScoreboard(now time.Time) {
	g.scoreboard = scoreboardLines(g.ses.Snapshot(), now)
}

func (g *Game) sweep(now time.Time) {
	if n := g.reg.Sweep(now); n > 0 {
		logDebug("swept %d effects", n)
	}
	g.images.sweep()
}

func (g *Game) reportPerf(time.Time) {
	if line := g.perf.report(g.broker.Stats()); line != "" {
		logDebug("%s", line)
	}
}

// start begins connecting. It is separate from newGame so tests can build
// a game without a network.
func (g *Game) start() {
	if gs.Presence {
		g.pres = startPresence(g.ctx, gs.PresenceAppID)
	}
	g.ses.Connect()
}

// leave tears the arena down for good: effects are dropped, the lobby is
// forgotten, the server is told, the connection closes normally and the
// compute worker stops. It runs once.
func (g *Game) leave(reason string) {
	g.leaveOnce.Do(func() {
		logDebug("leaving arena: %s", reason)
		g.reg.Clear()
		if err := g.ses.LeaveLobby(); err != nil && !errors.Is(err, session.ErrNotOpen) {
			logWarn("leave lobby: %v", err)
		}
		id := g.ses.Identity()
		id.LobbyID = ""
		g.storeIdentity(id)
		g.ses.Close()
		g.broker.Close()
		g.sch.Clear()
		g.pres.update("", nil)
		g.leaving = true
	})
}

func (g *Game) applyActions(now time.Time, acts []action) {
	for _, a := range acts {
		switch a.kind {
		case actMenu:
			g.leave("main menu")
			return
		case actToggleDebug:
			toggleDebug()
			continue
		}
		if g.scene.count.active {
			continue
		}
		var err error
		switch a.kind {
		case actMove:
			g.lastDir = a.dir
			err = g.ses.Move(now, a.dir)
		case actBomb:
			err = g.ses.PlaceBomb(now)
		case actDetonate:
			err = g.ses.RemoteDetonate()
		case actDash:
			err = g.ses.Dash(g.lastDir)
		}
		if err != nil && !errors.Is(err, session.ErrThrottled) {
			logDebug("input: %v", err)
		}
	}
}

// tick is one frame of game logic.
func (g *Game) tick(now time.Time) {
	g.ses.Pump()
	g.broker.Poll(now)
	g.sch.Run(now)
	g.reg.Advance(now)
	if !g.leaving {
		g.applyActions(now, readActions(g.opt.Keys, g.scene.menuBtn))
	}
}

func (g *Game) view(now time.Time) frameView {
	return frameView{
		Snap:       g.ses.Snapshot(),
		Self:       g.ses.Identity().PlayerID,
		Status:     g.ses.Status(),
		Scoreboard: g.scoreboard,
		Now:        now,
	}
}

func (g *Game) Update() error {
	select {
	case <-g.ctx.Done():
		g.leave("shutdown")
	default:
	}
	now := g.now()
	g.tick(now)
	flushSettings(now)
	if g.leaving {
		return ebiten.Termination
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	now := g.now()
	g.scene.draw(&screenSurface{dst: screen, images: g.images}, g.view(now))
	if gs.Debug {
		st := g.broker.Stats()
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("TPS %.0f  FPS %.0f  frame %d  pending %d  fulfilled %d",
			ebiten.ActualTPS(), ebiten.ActualFPS(), g.scene.frame, g.broker.Pending(), st.Fulfilled), 4, screenHeight-16)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func runGame(ctx context.Context, opt gameOptions) {
	ebiten.SetWindowTitle("Arena")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	applySettings()

	g := newGame(ctx, opt)
	g.start()
	op := &ebiten.RunGameOptions{ScreenTransparent: false}
	if err := ebiten.RunGameWithOptions(g, op); err != nil {
		logError("ebiten: %v", err)
	}
	g.leave("window closed")
	g.images.clear()
	saveSettings()
}
