package app

import (
	"sync"
	"time"
)

// Countdown is a Timer with one-second resolution. Starting a countdown
// cancels the running one, so two countdowns never coexist.
type Countdown struct {
	interval time.Duration

	mu   sync.Mutex
	gen  uint64
	stop chan struct{}
}

// NewCountdown returns a Countdown ticking once per second.
func NewCountdown() *Countdown {
	return NewCountdownWithInterval(time.Second)
}

// NewCountdownWithInterval is test-only for fast ticks.
func NewCountdownWithInterval(interval time.Duration) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{interval: interval}
}

// Start begins a countdown of seconds ticks. onTick receives the remaining
// seconds after every tick; onExpire fires at most once, after the final tick.
func (c *Countdown) Start(seconds int, onTick func(remaining int), onExpire func()) {
	c.mu.Lock()
	c.cancelLocked()
	c.gen++
	gen := c.gen
	stop := make(chan struct{})
	c.stop = stop
	c.mu.Unlock()

	go c.run(gen, stop, seconds, onTick, onExpire)
}

// Cancel stops the running countdown. It never blocks and is safe to call
// after expiry or when nothing runs.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	c.cancelLocked()
	c.mu.Unlock()
}

func (c *Countdown) cancelLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.gen++
}

func (c *Countdown) run(gen uint64, stop <-chan struct{}, seconds int, onTick func(int), onExpire func()) {
	remaining := seconds
	if remaining <= 0 {
		if c.finish(gen) && onExpire != nil {
			onExpire()
		}
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			remaining--
			if !c.current(gen) {
				return
			}
			if onTick != nil {
				onTick(remaining)
			}
			if remaining <= 0 {
				if c.finish(gen) && onExpire != nil {
					onExpire()
				}
				return
			}
		}
	}
}

func (c *Countdown) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

// finish retires countdown gen, reporting whether it was still the live one.
func (c *Countdown) finish(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.stop = nil
	c.gen++
	return true
}
