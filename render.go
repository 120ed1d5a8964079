package main

import (
	"image"
	"image/color"
	"math"
	"slices"
	"strconv"
	"time"
	"unicode/utf8"

	"arenaclient/effects"
	"arenaclient/session"
	"arenaclient/sprites"
)

const (
	tileSize     = effects.DefaultTile
	boardTiles   = 15
	boardSize    = tileSize * boardTiles
	panelWidth   = 200
	screenWidth  = boardSize + panelWidth
	screenHeight = boardSize

	toastWidth  = 360
	waitingText = "Waiting for game state..."
)

type textAlign int

const (
	alignStart textAlign = iota
	alignCenter
	alignEnd
)

// surface is what a frame is composited onto. The ebiten screen implements
// it in surface.go; tests record the calls. Text is anchored at its
// vertical middle.
type surface interface {
	FillRect(x, y, w, h float64, c color.Color)
	FillCircle(x, y, r float64, c color.Color)
	StrokeCircle(x, y, r, width float64, c color.Color)
	DrawImage(img image.Image, x, y, w, h float64)
	// DrawStream draws a buffer that is replaced often, reusing one
	// texture per key.
	DrawStream(key string, img *image.RGBA, x, y float64)
	DrawText(s string, x, y, size float64, c color.Color, align textAlign)
	// DrawTextRotated draws s centred on (x, y), turned by angle radians
	// around that point.
	DrawTextRotated(s string, x, y, size, angle float64, c color.Color)
}

var (
	basicFill      = color.RGBA{0x4a, 0x4a, 0x4a, 0xff}
	panelFill      = color.RGBA{0x1e, 0x1e, 0x1e, 0xff}
	wallBrown      = color.RGBA{0xab, 0x78, 0x3a, 0xff}
	playerFallback = color.RGBA{0x4d, 0x4f, 0xd6, 0xff}
	shieldCyan     = color.RGBA{0x00, 0xff, 0xff, 0xff}
	bombFallback   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	tagShadow      = color.NRGBA{0, 0, 0, 230}
	tagRed         = color.RGBA{0xff, 0x44, 0x44, 0xff}
	tagText        = color.RGBA{0xff, 0xff, 0x00, 0xff}
	flameOuter     = color.RGBA{0xff, 0xb3, 0x47, 0xff}
	flameMid       = color.RGBA{0xff, 0x62, 0x00, 0xff}
	flameCore      = color.RGBA{0xf4, 0xe4, 0xbc, 0xff}
	basicOuter     = color.RGBA{0xd7, 0x2b, 0x16, 0xff}
	basicMid       = color.RGBA{0xf3, 0x96, 0x42, 0xff}
	basicCore      = color.RGBA{0xff, 0xe5, 0xa8, 0xff}
	accentOrange   = color.RGBA{0xff, 0x6b, 0x35, 0xff}
	accentGold     = color.RGBA{0xff, 0xd7, 0x00, 0xff}
	overlayFill    = color.NRGBA{0, 0, 0, 230}
	buttonBlue     = color.RGBA{0x29, 0x77, 0xf5, 0xff}
	toastFill      = color.NRGBA{0x10, 0x10, 0x10, 220}
)

type rect struct {
	X, Y, W, H float64
}

func (r rect) contains(x, y float64) bool {
	return r.W > 0 && x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// frameView is the per-frame input to the compositor. Snap is read once
// per frame so every layer sees the same snapshot.
type frameView struct {
	Snap       *session.Snapshot
	Self       string
	Status     string
	Scoreboard []string
	Now        time.Time
}

// scene composites frames in a fixed layer order.
type scene struct {
	tile    float64
	reg     *effects.Registry
	sprites *sprites.Set
	bg      *backdrop
	count   *countdown
	notes   *notices

	frame   uint64
	menuBtn rect
}

func (sc *scene) draw(dst surface, v frameView) {
	sc.drawBackground(dst)
	sc.drawPanel(dst, v)

	snap := v.Snap
	if snap == nil || snap.Rows() == 0 {
		dst.DrawText(waitingText, boardSize/2, boardSize/2, 20, color.Black, alignCenter)
		sc.menuBtn = rect{}
		sc.drawToasts(dst, v.Now)
		return
	}

	sc.drawPowerups(dst, snap, v.Now)
	sc.drawWalls(dst, snap)
	sc.drawPlayers(dst, snap, v.Self)
	sc.drawBombs(dst, snap)
	sc.drawExplosions(dst, snap, v.Now)
	sc.drawEffects(dst)
	if sc.count != nil && sc.count.active {
		sc.drawCountdown(dst)
	}
	if snap.Phase == session.PhaseFinished {
		sc.drawSummary(dst, snap)
	} else {
		sc.menuBtn = rect{}
	}
	sc.drawToasts(dst, v.Now)
	sc.frame++
}

func (sc *scene) drawBackground(dst surface) {
	if sc.bg != nil && sc.bg.img != nil {
		dst.DrawImage(sc.bg.img, 0, 0, boardSize, boardSize)
		return
	}
	dst.FillRect(0, 0, boardSize, boardSize, basicFill)
}

func (sc *scene) drawPanel(dst surface, v frameView) {
	dst.FillRect(boardSize, 0, panelWidth, screenHeight, panelFill)
	x := float64(boardSize + 10)
	dst.DrawText("Status: "+v.Status, x, 16, 14, color.White, alignStart)
	y := 48.0
	for _, line := range v.Scoreboard {
		dst.DrawText(line, x, y, 13, color.White, alignStart)
		y += 20
	}
}

func (sc *scene) center(p session.Position) (x, y float64) {
	return (float64(p.Col) + 0.5) * sc.tile, (float64(p.Row) + 0.5) * sc.tile
}

func (sc *scene) drawPowerups(dst surface, snap *session.Snapshot, now time.Time) {
	size := sc.tile * 0.6
	glow := 0.3 + math.Sin(float64(now.UnixMilli())*0.005)*0.2
	for _, pu := range snap.PowerupList() {
		x, y := sc.center(pu.Position)
		var name string
		fallback := accentGold
		switch pu.Type {
		case session.PowerupBombRange:
			name = sprites.BombRange1
			if pu.Level >= 2 {
				name = sprites.BombRange2
			}
			dst.FillCircle(x, y, size*0.8, color.NRGBA{0xff, 0xc8, 0x00, uint8(glow * 255)})
		case session.PowerupShield:
			name = sprites.Shield
			fallback = shieldCyan
		}
		if img := sc.sprites.Get(name); img != nil {
			dst.DrawImage(img, x-size/2, y-size/2, size, size)
		} else {
			dst.FillRect(x-size/2, y-size/2, size, size, fallback)
		}
	}
}

func (sc *scene) drawWalls(dst surface, snap *session.Snapshot) {
	t := sc.tile
	k := t / 64
	for r, row := range snap.Board {
		for c, cell := range row {
			x, y := float64(c)*t, float64(r)*t
			switch cell {
			case session.TileWall:
				dst.FillRect(x, y, t, t, color.Black)
				dst.FillRect(x, y, t-2, t-2, color.White)
				dst.FillRect(x+2, y+2, t-4, t-4, wallBrown)
			case session.TileSoftWall:
				dst.FillRect(x, y, t, t, color.Black)
				for _, b := range [...]rect{
					{1, 1, 62, 20}, {0, 23, 20, 18}, {22, 23, 42, 18}, {0, 43, 42, 20}, {44, 43, 20, 20},
				} {
					dst.FillRect(x+b.X*k, y+b.Y*k, b.W*k, b.H*k, wallBrown)
				}
			}
		}
	}
}

func facingSprite(d session.Direction) string {
	switch d {
	case session.Up:
		return sprites.PlayerBack
	case session.Left:
		return sprites.PlayerLeft
	case session.Right:
		return sprites.PlayerRight
	}
	return sprites.PlayerFront
}

func (sc *scene) drawPlayers(dst surface, snap *session.Snapshot, self string) {
	for _, p := range snap.PlayerList() {
		if !p.Alive {
			continue
		}
		x, y := sc.center(p.Position)
		if img := sc.sprites.Get(facingSprite(p.Facing)); img != nil {
			size := sc.tile * 0.8
			dst.DrawImage(img, x-size/2, y-size/2, size, size)
		} else {
			dst.FillCircle(x, y, sc.tile*0.35, playerFallback)
		}
		if p.Shield {
			dst.StrokeCircle(x, y, sc.tile*0.42, 3, shieldCyan)
		}
		sc.drawNameTag(dst, p, x, y, p.ID == self)
	}
}

// drawNameTag draws the boxed name above a player. The local player's box
// is gold instead of red.
func (sc *scene) drawNameTag(dst surface, p *session.Player, x, y float64, self bool) {
	name := p.Name
	if name == "" {
		name = "Player"
	}
	ny := y - sc.tile*0.6
	w := float64(utf8.RuneCountInString(name)*8 + 16)
	dst.FillRect(x-w/2-2, ny-12, w+4, 24, tagShadow)
	border := color.Color(tagRed)
	if self {
		border = accentGold
	}
	dst.FillRect(x-w/2, ny-10, w, 20, border)
	dst.FillRect(x-w/2+2, ny-8, w-4, 16, color.Black)
	dst.DrawText(name, x, ny, 10, tagText, alignCenter)
}

func (sc *scene) drawBombs(dst surface, snap *session.Snapshot) {
	size := sc.tile * 0.8
	img := sc.sprites.Get(sprites.Bomb)
	for _, b := range snap.BombList() {
		x, y := sc.center(b.Position)
		if img != nil {
			dst.DrawImage(img, x-size/2, y-size/2, size, size)
		} else {
			dst.FillCircle(x, y, size*0.4, bombFallback)
		}
	}
}

// layered draws the three-band flame used for explosions.
func layered(dst surface, x, y, t float64, outer, mid, core color.Color) {
	dst.FillRect(x, y, t, t, outer)
	dst.FillRect(x, y+6, t, t-12, mid)
	dst.FillRect(x+6, y, t-12, t, mid)
	dst.FillRect(x, y+12, t, t-24, core)
	dst.FillRect(x+12, y, t-24, t, core)
}

// drawExplosions draws every explosion tile and makes sure the registry has
// an effect for each; the registry ignores explosions it has already seen.
func (sc *scene) drawExplosions(dst surface, snap *session.Snapshot, now time.Time) {
	for _, ex := range snap.ExplosionList() {
		x, y := float64(ex.Position.Col)*sc.tile, float64(ex.Position.Row)*sc.tile
		layered(dst, x, y, sc.tile, flameOuter, flameMid, flameCore)
		if sc.reg != nil {
			sc.reg.Spawn(now, []effects.Explosion{{ID: ex.ID, Row: ex.Position.Row, Col: ex.Position.Col}})
		}
	}
}

func (sc *scene) drawEffects(dst surface) {
	if sc.reg == nil {
		return
	}
	for _, e := range sc.reg.Effects() {
		x, y := float64(e.Col)*sc.tile, float64(e.Row)*sc.tile
		if e.Image != nil {
			dst.DrawImage(e.Image, x, y, sc.tile, sc.tile)
			continue
		}
		layered(dst, x, y, sc.tile, basicOuter, basicMid, basicCore)
	}
	for _, ps := range sc.reg.Systems() {
		if ps.Image != nil {
			dst.DrawStream(ps.ID, ps.Image, 0, 0)
			continue
		}
		for _, p := range ps.Particles {
			if p.Life > 0 {
				a := max(0, min(1, p.Alpha))
				dst.FillCircle(p.X, p.Y, 2, color.NRGBA{p.R, p.G, p.B, uint8(a * 255)})
			}
		}
	}
}

func (sc *scene) drawCountdown(dst surface) {
	s := strconv.Itoa(sc.count.value)
	size := 140 * sc.count.scale
	cx, cy := float64(boardSize)/2, float64(boardSize)/2
	rot := sc.count.rotation
	dst.DrawTextRotated(s, cx+4, cy+4, size, rot, color.Black)
	dst.DrawTextRotated(s, cx, cy, size, rot, accentOrange)
	dst.DrawTextRotated(s, cx-2, cy-2, size, rot, accentGold)
}

// rankPlayers orders players by score, highest first, then by id.
func rankPlayers(snap *session.Snapshot) []*session.Player {
	players := snap.PlayerList()
	slices.SortStableFunc(players, func(a, b *session.Player) int {
		return b.Score - a.Score
	})
	return players
}

func (sc *scene) drawSummary(dst surface, snap *session.Snapshot) {
	dst.FillRect(0, 0, boardSize, boardSize, overlayFill)
	cx := float64(boardSize) / 2
	y := 150.0
	dst.DrawText("GAME OVER", cx, y, 60, accentOrange, alignCenter)
	y += 120
	dst.DrawText("FINAL SCORES", cx, y, 40, accentGold, alignCenter)
	y += 80
	for i, p := range rankPlayers(snap) {
		winner := i == 0 && p.Score > 0
		c := color.Color(color.White)
		if winner {
			c = accentGold
		}
		dst.DrawText(strconv.Itoa(i+1)+".", cx-200, y, 30, c, alignCenter)
		dst.DrawText(summaryName(p), cx-50, y, 30, c, alignCenter)
		dst.DrawText(strconv.Itoa(p.Score), cx+150, y, 30, c, alignCenter)
		if winner {
			dst.DrawText("WINNER!", cx+250, y, 20, accentOrange, alignCenter)
		}
		y += 50
	}
	y += 60
	sc.menuBtn = rect{X: cx - 100, Y: y, W: 200, H: 50}
	dst.FillRect(sc.menuBtn.X, sc.menuBtn.Y, sc.menuBtn.W, sc.menuBtn.H, buttonBlue)
	dst.DrawText("MAIN MENU", cx, y+25, 20, color.White, alignCenter)
}

func (sc *scene) drawToasts(dst surface, now time.Time) {
	if sc.notes == nil {
		return
	}
	const size, lineH = 14, 18
	f := face(size)
	cx := float64(boardSize) / 2
	bottom := float64(boardSize) - 24
	for _, msg := range slices.Backward(sc.notes.active(now)) {
		lines := wrapText(msg, f, toastWidth)
		w := textWidth(lines, f) + 24
		h := float64(len(lines))*lineH + 10
		top := bottom - h
		dst.FillRect(cx-w/2, top, w, h, toastFill)
		for i, l := range lines {
			dst.DrawText(l, cx, top+5+lineH*(float64(i)+0.5), size, color.White, alignCenter)
		}
		bottom = top - 6
	}
}
