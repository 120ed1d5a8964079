package main

import (
	"time"

	"arenaclient/sched"
)

const (
	countdownFrom  = 3
	countdownPulse = 200 * time.Millisecond
	// countdownTilt is the pulse rotation in radians.
	countdownTilt = 0.1
)

// countdown is the 3-2-1 overlay shown when a round starts. It is purely
// presentational; the server decides when play begins. While it runs, local
// input is locked through lock.
type countdown struct {
	value    int
	active   bool
	scale    float64
	rotation float64

	tick  *sched.Task
	pulse sched.Slot
	lock  func(bool)
}

func (c *countdown) start(s *sched.Scheduler, now time.Time) {
	c.tick.Cancel()
	c.pulse.Cancel()
	c.value = countdownFrom
	c.active = true
	c.scale = 1
	c.rotation = 0
	if c.lock != nil {
		c.lock(true)
	}
	c.tick = s.Every(now, time.Second, func(now time.Time) {
		c.value--
		c.scale = 1.5
		c.rotation = countdownTilt
		c.pulse.Replace(s, now, countdownPulse, func(time.Time) {
			c.scale = 1
			c.rotation = 0
		})
		if c.value <= 0 {
			c.stop()
		}
	})
}

func (c *countdown) stop() {
	c.tick.Cancel()
	c.tick = nil
	if c.active && c.lock != nil {
		c.lock(false)
	}
	c.active = false
}
