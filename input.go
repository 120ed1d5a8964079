package main

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"arenaclient/session"
)

type actionKind int

const (
	actMove actionKind = iota
	actBomb
	actDetonate
	actDash
	actMenu
	actToggleDebug
)

type action struct {
	kind actionKind
	dir  session.Direction
}

// keySource is the slice of ebiten input the frame loop reads.
type keySource interface {
	pressed(k ebiten.Key) bool
	justPressed(k ebiten.Key) bool
	clicked() (x, y int, ok bool)
}

type ebitenKeys struct{}

func (ebitenKeys) pressed(k ebiten.Key) bool     { return ebiten.IsKeyPressed(k) }
func (ebitenKeys) justPressed(k ebiten.Key) bool { return inpututil.IsKeyJustPressed(k) }

func (ebitenKeys) clicked() (int, int, bool) {
	if !inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		return 0, 0, false
	}
	x, y := ebiten.CursorPosition()
	return x, y, true
}

var moveKeys = []struct {
	dir  session.Direction
	keys []ebiten.Key
}{
	{session.Up, []ebiten.Key{ebiten.KeyArrowUp, ebiten.KeyW}},
	{session.Down, []ebiten.Key{ebiten.KeyArrowDown, ebiten.KeyS}},
	{session.Left, []ebiten.Key{ebiten.KeyArrowLeft, ebiten.KeyA}},
	{session.Right, []ebiten.Key{ebiten.KeyArrowRight, ebiten.KeyD}},
}

func anyKey(keys []ebiten.Key, fn func(ebiten.Key) bool) bool {
	for _, k := range keys {
		if fn(k) {
			return true
		}
	}
	return false
}

// readActions turns this frame's input into game actions. Held movement
// keys repeat every frame; the session's move cooldown paces them. At most
// one move is produced per frame.
func readActions(in keySource, menu rect) []action {
	var acts []action
	for _, m := range moveKeys {
		if anyKey(m.keys, in.pressed) {
			acts = append(acts, action{kind: actMove, dir: m.dir})
			break
		}
	}
	if in.justPressed(ebiten.KeySpace) {
		acts = append(acts, action{kind: actBomb})
	}
	if in.justPressed(ebiten.KeyR) {
		acts = append(acts, action{kind: actDetonate})
	}
	if anyKey([]ebiten.Key{ebiten.KeyShiftLeft, ebiten.KeyShiftRight}, in.justPressed) {
		acts = append(acts, action{kind: actDash})
	}
	if in.justPressed(ebiten.KeyF3) {
		acts = append(acts, action{kind: actToggleDebug})
	}
	if menu.W > 0 {
		if anyKey([]ebiten.Key{ebiten.KeyEnter, ebiten.KeyEscape}, in.justPressed) {
			acts = append(acts, action{kind: actMenu})
		} else if x, y, ok := in.clicked(); ok && menu.contains(float64(x), float64(y)) {
			acts = append(acts, action{kind: actMenu})
		}
	}
	return acts
}
