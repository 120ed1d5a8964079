package main

import (
	"time"

	"github.com/sqweek/dialog"
)

const (
	toastDuration = 1400 * time.Millisecond
	deathDuration = 3 * time.Second
)

type toast struct {
	text  string
	until time.Time
}

// notices holds transient toasts drawn over the arena and raises blocking
// notices as native dialogs.
type notices struct {
	toasts []toast
}

// showDialog opens a native message box. It runs on its own goroutine so the
// frame loop keeps going while the box is open.
var showDialog = func(msg string) {
	go dialog.Message("%s", msg).Title("Arena").Error()
}

func (n *notices) toast(now time.Time, msg string, d time.Duration) {
	n.toasts = append(n.toasts, toast{text: msg, until: now.Add(d)})
}

// active drops expired toasts and returns the rest, newest last.
func (n *notices) active(now time.Time) []string {
	live := n.toasts[:0]
	for _, t := range n.toasts {
		if now.Before(t.until) {
			live = append(live, t)
		}
	}
	n.toasts = live
	out := make([]string, len(live))
	for i, t := range live {
		out[i] = t.text
	}
	return out
}

func (n *notices) block(msg string) {
	logError("server: %s", msg)
	showDialog(msg)
}
