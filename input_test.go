package main

import (
	"testing"

	"github.com/hajimehoshi/ebiten/v2"

	"arenaclient/session"
)

type fakeKeys struct {
	held  map[ebiten.Key]bool
	press map[ebiten.Key]bool
	click *[2]int
}

func (f fakeKeys) pressed(k ebiten.Key) bool     { return f.held[k] }
func (f fakeKeys) justPressed(k ebiten.Key) bool { return f.press[k] }

func (f fakeKeys) clicked() (int, int, bool) {
	if f.click == nil {
		return 0, 0, false
	}
	return f.click[0], f.click[1], true
}

func TestReadActionsMoveAndBomb(t *testing.T) {
	in := fakeKeys{
		held:  map[ebiten.Key]bool{ebiten.KeyA: true, ebiten.KeyArrowDown: true},
		press: map[ebiten.Key]bool{ebiten.KeySpace: true, ebiten.KeyShiftLeft: true},
	}
	acts := readActions(in, rect{})
	if len(acts) != 3 {
		t.Fatalf("actions = %+v", acts)
	}
	if acts[0] != (action{kind: actMove, dir: session.Down}) {
		t.Fatalf("move = %+v", acts[0])
	}
	if acts[1].kind != actBomb || acts[2].kind != actDash {
		t.Fatalf("actions = %+v", acts)
	}
}

func TestReadActionsMenuOnlyWhenShown(t *testing.T) {
	in := fakeKeys{press: map[ebiten.Key]bool{ebiten.KeyEnter: true}}
	if acts := readActions(in, rect{}); len(acts) != 0 {
		t.Fatalf("menu action without a button: %+v", acts)
	}
	btn := rect{X: 200, Y: 400, W: 200, H: 50}
	if acts := readActions(in, btn); len(acts) != 1 || acts[0].kind != actMenu {
		t.Fatalf("enter on summary = %+v", acts)
	}

	click := fakeKeys{click: &[2]int{250, 420}}
	if acts := readActions(click, btn); len(acts) != 1 || acts[0].kind != actMenu {
		t.Fatalf("click on button = %+v", acts)
	}
	miss := fakeKeys{click: &[2]int{10, 10}}
	if acts := readActions(miss, btn); len(acts) != 0 {
		t.Fatalf("click outside button = %+v", acts)
	}
}

func TestReadActionsDebugToggle(t *testing.T) {
	in := fakeKeys{press: map[ebiten.Key]bool{ebiten.KeyF3: true}}
	acts := readActions(in, rect{})
	if len(acts) != 1 || acts[0].kind != actToggleDebug {
		t.Fatalf("actions = %+v", acts)
	}
}
