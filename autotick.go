// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dspatch

import "golang.org/x/sync/errgroup"

// StartAutoTick spawns a goroutine that calls c.Tick(mode) in a loop until
// StopAutoTick is called. Calling it again while already running just
// updates the mode used by the next tick.
func (c *Circuit) StartAutoTick(mode TickMode) {
	a := &c.auto
	a.mu.Lock()
	if a.running {
		a.mode = mode
		a.mu.Unlock()
		return
	}
	a.running = true
	a.paused = false
	a.stop = false
	a.mode = mode
	a.done = make(chan struct{})
	a.mu.Unlock()
	go c.autoTickLoop()
}

func (c *Circuit) autoTickLoop() {
	a := &c.auto
	defer func() {
		a.mu.Lock()
		a.running = false
		close(a.done)
		a.mu.Unlock()
	}()
	for {
		a.mu.Lock()
		for a.paused && !a.stop {
			if a.pauseAck != nil {
				close(a.pauseAck)
				a.pauseAck = nil
			}
			a.cond.Wait()
		}
		if a.stop {
			a.mu.Unlock()
			return
		}
		mode := a.mode
		a.mu.Unlock()

		c.tickAutoSafe(mode)
	}
}

// tickAutoSafe runs one auto-tick cycle, recovering and logging a panic
// from user Process code instead of letting it take down the auto-tick
// goroutine silently.
func (c *Circuit) tickAutoSafe(mode TickMode) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("auto-tick: component panicked", "recovered", r)
		}
	}()
	c.Tick(mode)
}

// PauseAutoTick blocks until the auto-tick goroutine (if running) has
// finished any in-flight tick and parked. It is idempotent and a no-op
// when auto-tick is not running or already paused.
func (c *Circuit) PauseAutoTick() {
	a := &c.auto
	a.mu.Lock()
	if !a.running || a.paused {
		a.mu.Unlock()
		return
	}
	ack := make(chan struct{})
	a.pauseAck = ack
	a.paused = true
	a.cond.Broadcast()
	a.mu.Unlock()
	<-ack
}

// ResumeAutoTick releases a paused auto-tick loop. No-op if not running or
// not paused.
func (c *Circuit) ResumeAutoTick() {
	a := &c.auto
	a.mu.Lock()
	if !a.running || !a.paused {
		a.mu.Unlock()
		return
	}
	a.paused = false
	a.cond.Broadcast()
	a.mu.Unlock()
}

// StopAutoTick signals the auto-tick goroutine to exit and waits for it to
// do so. No-op if auto-tick is not running.
func (c *Circuit) StopAutoTick() {
	a := &c.auto
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.stop = true
	a.paused = false
	done := a.done
	a.cond.Broadcast()
	a.mu.Unlock()
	<-done
}

// IsAutoTicking reports whether the auto-tick goroutine is currently
// running (paused or not).
func (c *Circuit) IsAutoTicking() bool {
	a := &c.auto
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// pauseAutoTickInternal and resumeAutoTickInternal are the withQuiescence
// hooks: every wiring mutation pauses auto-tick for its duration so a
// Component is never mutated while mid-tick, and resumes it afterward. A
// Circuit with no auto-tick running pays only the cost of the running-flag
// check.
func (c *Circuit) pauseAutoTickInternal() {
	c.PauseAutoTick()
}

func (c *Circuit) resumeAutoTickInternal() {
	c.ResumeAutoTick()
}

// Close stops auto-tick, joins every CircuitThread worker group, and
// releases the thread pool. A Circuit must not be used after Close
// returns.
func (c *Circuit) Close() {
	c.StopAutoTick()
	c.mu.Lock()
	groups := c.ctGroups
	pool := c.pool
	c.ctGroups = nil
	c.pool = nil
	c.mu.Unlock()

	var g errgroup.Group
	for _, ct := range groups {
		ct := ct
		g.Go(func() error {
			ct.Stop()
			return nil
		})
	}
	_ = g.Wait()

	if pool != nil {
		pool.Close()
	}
}
