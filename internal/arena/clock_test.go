package arena

import (
	"sync"
	"time"
)

// fakeClock fires timers only when Advance moves past their deadline.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	fired   bool
	stopped bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs due callbacks synchronously.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.fired && !t.stopped && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// seqPicker returns vals in order, then zeros.
type seqPicker struct {
	vals []int
	i    int
}

func (p *seqPicker) IntN(n int) int {
	if p.i >= len(p.vals) {
		return 0
	}
	v := p.vals[p.i] % n
	p.i++
	return v
}

// hookClock runs a one-shot callback inside Now or AfterFunc, before the
// underlying fake clock answers.
type hookClock struct {
	*fakeClock
	onNow       func()
	onAfterFunc func()
}

func (c *hookClock) Now() time.Time {
	if hook := c.onNow; hook != nil {
		c.onNow = nil
		hook()
	}
	return c.fakeClock.Now()
}

func (c *hookClock) AfterFunc(d time.Duration, f func()) Timer {
	if hook := c.onAfterFunc; hook != nil {
		c.onAfterFunc = nil
		hook()
	}
	return c.fakeClock.AfterFunc(d, f)
}
