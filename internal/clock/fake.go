package clock

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a Clock whose time only moves when Advance or Set is
// called. AfterFunc callbacks run synchronously in the goroutine that
// advances the clock, in deadline order. Ticks are sent without
// blocking.
//
// Callbacks run without the clock's lock held, so a callback may call
// Now, AfterFunc or Stop. It must not call Advance on the same clock.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	callback func()

	// channel and interval are set for tickers, which are rescheduled
	// instead of firing once
	channel  chan time.Time
	interval time.Duration

	stopped bool
	fired   bool
}

type firing struct {
	waiter *fakeWaiter
	at     time.Time
}

// Fake returns a FakeClock set to initial.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// Now returns the fake current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AfterFunc registers f to run once the clock has been advanced by at
// least d. If d <= 0, f runs before AfterFunc returns.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{stopFunc: func() bool { return false }}
	}

	c.mu.Lock()
	waiter := &fakeWaiter{deadline: c.current.Add(d), callback: f}
	c.waiters = append(c.waiters, waiter)
	c.mu.Unlock()

	return &Timer{
		stopFunc: func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			if waiter.stopped || waiter.fired {
				return false
			}
			waiter.stopped = true
			return true
		},
	}
}

// NewTicker returns a Ticker that ticks every d of fake time. An Advance
// spanning several intervals ticks once per interval; ticks that do not
// fit the channel buffer are dropped.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	channel := make(chan time.Time, 1)

	c.mu.Lock()
	waiter := &fakeWaiter{deadline: c.current.Add(d), channel: channel, interval: d}
	c.waiters = append(c.waiters, waiter)
	c.mu.Unlock()

	return &Ticker{
		C: channel,
		stopFunc: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			waiter.stopped = true
		},
	}
}

// Advance moves the clock forward by d and fires every pending callback
// and ticker whose deadline is reached.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()

	c.fireDue()
}

// Set jumps the clock to t. Pending callbacks whose deadline is reached
// fire as in Advance.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()

	c.fireDue()
}

// Pending reports how many callbacks and tickers are registered and not
// yet fired or stopped.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for _, w := range c.waiters {
		if !w.stopped && !w.fired {
			count++
		}
	}
	return count
}

func (c *FakeClock) fireDue() {
	for {
		c.mu.Lock()
		due := c.collectDueLocked()
		c.mu.Unlock()

		if len(due) == 0 {
			return
		}
		for _, f := range due {
			if f.waiter.channel != nil {
				select {
				case f.waiter.channel <- f.at:
				default:
				}
				continue
			}
			f.waiter.callback()
		}
	}
}

func (c *FakeClock) collectDueLocked() []firing {
	var due []firing
	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		switch {
		case w.stopped || w.fired:
			// dropped
		case w.deadline.After(c.current):
			remaining = append(remaining, w)
		case w.interval > 0:
			due = append(due, firing{waiter: w, at: w.deadline})
			w.deadline = w.deadline.Add(w.interval)
			remaining = append(remaining, w)
		default:
			w.fired = true
			due = append(due, firing{waiter: w, at: w.deadline})
		}
	}
	c.waiters = remaining

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].at.Before(due[j].at)
	})
	return due
}
