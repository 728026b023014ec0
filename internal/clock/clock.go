package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock is the time source used by every component that waits or stamps
// state. Production code uses Real; tests use Fake.
type Clock interface {
	Now() time.Time
	// After returns a channel that receives the clock time once d has
	// elapsed. A non-positive d fires immediately.
	After(d time.Duration) <-chan time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker mirrors the subset of time.Ticker the services rely on.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) After(d time.Duration) <-chan time.Time {
	if d <= 0 {
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}
	return time.After(d)
}

func (Real) NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// Fake is deterministic and test-friendly. Time only moves through Set
// and Advance; pending After channels and tickers fire as the clock
// passes their deadline.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*waiter
	changed chan struct{}
}

type waiter struct {
	at      time.Time
	period  time.Duration
	ch      chan time.Time
	stopped bool
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start, changed: make(chan struct{})}
}

func (c *Fake) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Fake) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.addLocked(&waiter{at: c.now.Add(d), ch: ch})
	return ch
}

func (c *Fake) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &waiter{at: c.now.Add(d), period: d, ch: make(chan time.Time, 1)}
	c.addLocked(w)
	return &fakeTicker{clock: c, w: w}
}

func (c *Fake) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.fireLocked()
	c.mu.Unlock()
}

func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.fireLocked()
	c.mu.Unlock()
}

// Waiters reports how many After channels and tickers are pending.
func (c *Fake) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// BlockUntil waits until at least n waiters are pending. It lets a test
// synchronise with a goroutine that is about to sleep on the clock.
func (c *Fake) BlockUntil(n int) {
	for {
		c.mu.Lock()
		if len(c.waiters) >= n {
			c.mu.Unlock()
			return
		}
		changed := c.changed
		c.mu.Unlock()
		<-changed
	}
}

func (c *Fake) addLocked(w *waiter) {
	c.waiters = append(c.waiters, w)
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *Fake) fireLocked() {
	sort.SliceStable(c.waiters, func(i, j int) bool { return c.waiters[i].at.Before(c.waiters[j].at) })
	kept := c.waiters[:0]
	for _, w := range c.waiters {
		if w.stopped {
			continue
		}
		if w.at.After(c.now) {
			kept = append(kept, w)
			continue
		}
		select {
		case w.ch <- c.now:
		default:
		}
		if w.period > 0 {
			for !w.at.After(c.now) {
				w.at = w.at.Add(w.period)
			}
			kept = append(kept, w)
		}
	}
	c.waiters = kept
}

type fakeTicker struct {
	clock *Fake
	w     *waiter
}

func (t *fakeTicker) C() <-chan time.Time { return t.w.ch }

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.w.stopped = true
	kept := t.clock.waiters[:0]
	for _, w := range t.clock.waiters {
		if w != t.w {
			kept = append(kept, w)
		}
	}
	t.clock.waiters = kept
}
