// Package engine provides the author simulation and the clock that drives
// it in real time.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the real-time length of one tick.
const DefaultInterval = 100 * time.Millisecond

// Clock calls Step at a fixed interval until Step reports a pause or the end
// of the run. Only one tick loop runs at a time.
type Clock struct {
	Interval time.Duration
	Step     func() StepResult

	mu       sync.Mutex
	speed    float64 // 1.0 = Interval per tick, 0 = idle
	running  bool
	finished bool
	ticks    uint64
	cancel   context.CancelFunc
	done     chan struct{} // closed when the current loop exits
	finishCh chan struct{} // closed once the run is finished
}

// NewClock creates a stopped clock driving step.
func NewClock(step func() StepResult, interval time.Duration) *Clock {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Clock{
		Interval: interval,
		Step:     step,
		speed:    1.0,
		finishCh: make(chan struct{}),
	}
}

// Resume starts the tick loop. It returns false, doing nothing, when the
// loop is already running or the run is finished.
func (c *Clock) Resume(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running || c.finished {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	c.running = true
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx, cancel, c.done)
	return true
}

// Stop halts the tick loop, if any, and waits for it to exit. Used for
// process shutdown; the run can still be resumed afterwards.
func (c *Clock) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Wait blocks until the current tick loop exits.
func (c *Clock) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Done returns a channel closed once the run has finished.
func (c *Clock) Done() <-chan struct{} {
	return c.finishCh
}

// Running reports whether the tick loop is active.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Finished reports whether the run has reached its terminal state.
func (c *Clock) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}

// Ticks returns how many ticks the clock has driven.
func (c *Clock) Ticks() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Speed returns the speed multiplier.
func (c *Clock) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// SetSpeed sets the speed multiplier. 0 idles the loop without stopping it.
func (c *Clock) SetSpeed(speed float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if speed < 0 {
		speed = 0
	}
	c.speed = speed
}

func (c *Clock) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	defer cancel()

	slog.Info("clock started", "interval", c.Interval, "speed", c.Speed())

	reason := "stopped"
	for ctx.Err() == nil {
		speed := c.Speed()
		if speed <= 0 {
			// Idle; check again shortly.
			if !sleepCtx(ctx, 100*time.Millisecond) {
				break
			}
			continue
		}

		start := time.Now()
		result := c.Step()

		c.mu.Lock()
		c.ticks++
		ticks := c.ticks
		c.mu.Unlock()

		if result == StepFinished {
			c.mu.Lock()
			if !c.finished {
				c.finished = true
				close(c.finishCh)
			}
			c.mu.Unlock()
			reason = "finished"
			break
		}
		if result == StepPause {
			reason = "paused"
			break
		}
		slog.Debug("tick", "n", ticks)

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(c.Interval) / speed)
		if elapsed < target && !sleepCtx(ctx, target-elapsed) {
			break
		}
	}

	c.mu.Lock()
	c.running = false
	c.cancel = nil
	ticks := c.ticks
	c.mu.Unlock()

	slog.Info("clock "+reason, "ticks", ticks)
}

// sleepCtx sleeps for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
