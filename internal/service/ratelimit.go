package service

import (
	"sync"
	"time"
)

// Gate is the per-owner admission gate: a sliding window of request
// timestamps, bounded by max requests per window. It is process-local and
// best-effort; the relay runs as a single instance pinned to one egress
// identity, so no shared counter is needed.
type Gate struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	window  time.Duration
	max     int
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

func NewGate(window time.Duration, max int) *Gate {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 30
	}
	return &Gate{
		windows: make(map[string][]time.Time),
		window:  window,
		max:     max,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
}

// WithClock overrides the time source; used by tests.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Allow admits or rejects a request for the owner. Entries older than the
// window are purged lazily on each check. On rejection the returned
// duration is a positive retry-after hint.
func (g *Gate) Allow(owner string) (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	cutoff := now.Add(-g.window)

	live := g.windows[owner][:0]
	for _, ts := range g.windows[owner] {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	if len(live) >= g.max {
		g.windows[owner] = live
		retryAfter := live[0].Sub(cutoff)
		if retryAfter <= 0 {
			retryAfter = time.Second
		}
		return retryAfter, false
	}

	g.windows[owner] = append(live, now)
	return 0, true
}

// StartSweeper evicts owners whose window is entirely expired, bounding
// memory for owners that stop sending traffic.
func (g *Gate) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				g.sweep()
			case <-g.stop:
				return
			}
		}
	}()
}

func (g *Gate) Stop() {
	g.once.Do(func() { close(g.stop) })
}

func (g *Gate) sweep() {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.now().Add(-g.window)
	for owner, window := range g.windows {
		expired := true
		for _, ts := range window {
			if ts.After(cutoff) {
				expired = false
				break
			}
		}
		if expired {
			delete(g.windows, owner)
		}
	}
}
