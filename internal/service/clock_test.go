package service

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"birdsbuddy/internal/models"
)

// fakeClock runs AfterFunc callbacks synchronously from Advance, in due
// order. clockwork's fake clock fires them on separate goroutines, which
// leaves same-instant timers unordered; tests that need strict ordering use
// this one.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	c  *fakeClock
	at time.Time
	f  func()
}

func (t *fakeTimer) Chan() <-chan time.Time { return nil }

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	return t.c.removeLocked(t)
}

func (t *fakeTimer) Reset(d time.Duration) bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	active := t.c.removeLocked(t)
	t.at = t.c.now.Add(d)
	t.c.timers = append(t.c.timers, t)
	return active
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.March, 3, 6, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) clockwork.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) removeLocked(t *fakeTimer) bool {
	for i, tm := range c.timers {
		if tm == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return true
		}
	}
	return false
}

// Advance moves the clock forward by d, firing every timer that falls due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		idx := -1
		for i, tm := range c.timers {
			if tm.at.After(target) {
				continue
			}
			if idx < 0 || tm.at.Before(c.timers[idx].at) {
				idx = i
			}
		}
		if idx < 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		tm := c.timers[idx]
		c.timers = append(c.timers[:idx], c.timers[idx+1:]...)
		if tm.at.After(c.now) {
			c.now = tm.at
		}
		c.mu.Unlock()
		tm.f()
	}
}

// Pending is the number of timers not yet fired.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func newTestSession(t *testing.T, clock *fakeClock) *Session {
	t.Helper()
	return NewSession(SessionOptions{Clock: clock})
}

func ptr[T any](v T) *T { return &v }

func messages(entries []models.EventLogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Message)
	}
	return out
}

// countEvents counts entries with the given message.
func countEvents(entries []models.EventLogEntry, msg string) int {
	n := 0
	for _, e := range entries {
		if e.Message == msg {
			n++
		}
	}
	return n
}

func findEvent(entries []models.EventLogEntry, msg string) (models.EventLogEntry, bool) {
	for _, e := range entries {
		if e.Message == msg {
			return e, true
		}
	}
	return models.EventLogEntry{}, false
}
