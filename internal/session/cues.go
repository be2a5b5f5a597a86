package session

import (
	"sync"
	"time"

	"github.com/roach88/truthtrail/internal/clock"
)

// StreakMilestones are the streak lengths that schedule a cue.
var StreakMilestones = []int{3, 5, 10}

func isMilestone(streak int) bool {
	for _, m := range StreakMilestones {
		if streak == m {
			return true
		}
	}
	return false
}

// streakCue debounces the streak feedback callback. At most one cue is
// pending; scheduling or cancelling invalidates the previous one.
type streakCue struct {
	clock clock.Clock
	delay time.Duration
	fn    func(streak int)

	mu      sync.Mutex
	pending clock.Timer
	gen     uint64
}

// schedule cancels any pending cue and, for milestone streaks, arms a new
// one. alive is checked when the timer fires.
func (c *streakCue) schedule(streak int, alive func() bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	if !isMilestone(streak) {
		return
	}

	gen := c.gen
	c.pending = c.clock.AfterFunc(c.delay, func() {
		c.mu.Lock()
		current := gen == c.gen
		if current {
			c.pending = nil
		}
		c.mu.Unlock()

		if current && alive() {
			c.fn(streak)
		}
	})
}

// cancel stops the pending cue, if any.
func (c *streakCue) cancel() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *streakCue) stopLocked() {
	c.gen++
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}
