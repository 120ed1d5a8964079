package main

import (
	"strings"
	"testing"

	text "github.com/hajimehoshi/ebiten/v2/text/v2"
)

func TestWrapText(t *testing.T) {
	f := face(14)
	w1, _ := text.Measure("hello", f, 0)
	w2, _ := text.Measure("hello world", f, 0)
	maxWidth := (w1 + w2) / 2
	lines := wrapText("hello world", f, maxWidth)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "hello" || lines[1] != "world" {
		t.Fatalf("got lines %#v", lines)
	}
}

func TestWrapTextBreaksLongWords(t *testing.T) {
	f := face(14)
	w, _ := text.Measure("abcd", f, 0)
	lines := wrapText("abcdefghijkl", f, w)
	if len(lines) < 3 {
		t.Fatalf("expected the word to be split, got %#v", lines)
	}
	if strings.Join(lines, "") != "abcdefghijkl" {
		t.Fatalf("runes lost: %#v", lines)
	}
	if got := textWidth(lines, f); got > w {
		t.Fatalf("widest line %.1f exceeds %.1f", got, w)
	}
}
