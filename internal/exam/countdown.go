package exam

import (
	"sync"
	"time"
)

// countdown invokes fn on a fixed interval until cancelled. Cancellation is
// idempotent and guarantees no further invocations after cancel returns the
// goroutine to its select.
type countdown struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func startCountdown(interval time.Duration, fn func()) *countdown {
	c := &countdown{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-c.done:
				return
			case <-c.ticker.C:
				fn()
			}
		}
	}()
	return c
}

func (c *countdown) cancel() {
	c.once.Do(func() {
		c.ticker.Stop()
		close(c.done)
	})
}
