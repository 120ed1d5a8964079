// Package sched runs one-shot and repeating tasks from the frame loop. Tasks
// only fire inside Run, so callbacks never race the rest of the main thread.
package sched

import (
	"slices"
	"time"
)

// Task is a handle to a scheduled callback.
type Task struct {
	at        time.Time
	every     time.Duration
	seq       uint64
	fn        func(now time.Time)
	cancelled bool
	done      bool
}

// Cancel stops the task from firing. It reports whether the task was still
// pending.
func (t *Task) Cancel() bool {
	if t == nil || t.cancelled || t.done {
		return false
	}
	t.cancelled = true
	return true
}

// Pending reports whether the task will still fire.
func (t *Task) Pending() bool {
	return t != nil && !t.cancelled && !t.done
}

// Scheduler holds tasks until Run is called with a time at or past their
// deadline.
type Scheduler struct {
	tasks []*Task
	seq   uint64
}

// New returns an empty scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) add(at time.Time, every time.Duration, fn func(time.Time)) *Task {
	s.seq++
	t := &Task{at: at, every: every, seq: s.seq, fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

// After schedules fn to run once, d after now.
func (s *Scheduler) After(now time.Time, d time.Duration, fn func(now time.Time)) *Task {
	return s.add(now.Add(d), 0, fn)
}

// Every schedules fn to run every d, first firing d after now. A repeating
// task that falls behind fires once and then realigns to the current time.
func (s *Scheduler) Every(now time.Time, d time.Duration, fn func(now time.Time)) *Task {
	if d <= 0 {
		d = time.Millisecond
	}
	return s.add(now.Add(d), d, fn)
}

// Run fires every task due at now in deadline order and returns how many
// ran. Tasks scheduled by a callback are not considered until the next Run.
func (s *Scheduler) Run(now time.Time) int {
	var due []*Task
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if t.cancelled || t.done {
			continue
		}
		if !t.at.After(now) {
			due = append(due, t)
		}
		live = append(live, t)
	}
	for i := len(live); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = live

	slices.SortFunc(due, func(a, b *Task) int {
		if c := a.at.Compare(b.at); c != 0 {
			return c
		}
		return int(a.seq) - int(b.seq)
	})

	ran := 0
	for _, t := range due {
		// an earlier callback may have cancelled this one
		if t.cancelled {
			continue
		}
		if t.every > 0 {
			t.at = t.at.Add(t.every)
			if !t.at.After(now) {
				t.at = now.Add(t.every)
			}
		} else {
			t.done = true
		}
		t.fn(now)
		ran++
	}
	return ran
}

// Len returns the number of tasks still pending.
func (s *Scheduler) Len() int {
	n := 0
	for _, t := range s.tasks {
		if t.Pending() {
			n++
		}
	}
	return n
}

// Clear cancels every task.
func (s *Scheduler) Clear() {
	for _, t := range s.tasks {
		t.cancelled = true
	}
	s.tasks = nil
}

// Slot holds at most one outstanding one-shot task.
type Slot struct {
	task *Task
}

// Schedule arms the slot unless a task is already pending, in which case the
// existing task is returned with ok false.
func (sl *Slot) Schedule(s *Scheduler, now time.Time, d time.Duration, fn func(now time.Time)) (t *Task, ok bool) {
	if sl.task.Pending() {
		return sl.task, false
	}
	sl.task = s.After(now, d, fn)
	return sl.task, true
}

// Replace cancels any pending task and arms a new one.
func (sl *Slot) Replace(s *Scheduler, now time.Time, d time.Duration, fn func(now time.Time)) *Task {
	sl.task.Cancel()
	sl.task = s.After(now, d, fn)
	return sl.task
}

// Cancel cancels the pending task, if any.
func (sl *Slot) Cancel() bool {
	ok := sl.task.Cancel()
	sl.task = nil
	return ok
}

// Pending reports whether the slot holds a task that will still fire.
func (sl *Slot) Pending() bool {
	return sl.task.Pending()
}
