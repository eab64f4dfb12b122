package combat

import "time"

// DefaultSafetyBuffer is subtracted from the cooldown when checking the
// server estimate. A rejected shot costs more than a slightly late one.
const DefaultSafetyBuffer = 300 * time.Millisecond

// CooldownClock tracks one ship's reload time against both the local fire
// time and the validator's implied fire time.
type CooldownClock struct {
	duration     time.Duration
	safetyBuffer time.Duration

	localLastFired         time.Time
	serverImpliedLastFired time.Time
}

func NewCooldownClock(duration, safetyBuffer time.Duration) *CooldownClock {
	return &CooldownClock{duration: duration, safetyBuffer: safetyBuffer}
}

func (c *CooldownClock) Duration() time.Duration { return c.duration }

// ServerImpliedLastFired is the best estimate of when the validator last
// accepted a shot. The zero time means no estimate yet.
func (c *CooldownClock) ServerImpliedLastFired() time.Time {
	return c.serverImpliedLastFired
}

// CanFire reports whether both the local and the server-implied cooldowns
// have elapsed.
func (c *CooldownClock) CanFire(now time.Time) bool {
	return c.Remaining(now) <= 0
}

// Remaining is how long until CanFire becomes true.
func (c *CooldownClock) Remaining(now time.Time) time.Duration {
	var remaining time.Duration
	if !c.localLastFired.IsZero() {
		remaining = c.duration - now.Sub(c.localLastFired)
	}
	if !c.serverImpliedLastFired.IsZero() {
		server := (c.duration - c.safetyBuffer) - now.Sub(c.serverImpliedLastFired)
		if server > remaining {
			remaining = server
		}
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (c *CooldownClock) RecordLocalFire(now time.Time) {
	c.localLastFired = now
}

// ReconcileFromConfirmation uses the confirmed action's own creation time as
// the instant the validator accepted the shot.
func (c *CooldownClock) ReconcileFromConfirmation(actionCreatedAt time.Time) {
	c.advance(actionCreatedAt)
}

// ReconcileFromRejection back-computes the implied fire time from the
// validator's remaining cooldown.
func (c *CooldownClock) ReconcileFromRejection(now time.Time, cooldownRemaining time.Duration) {
	c.advance(now.Add(-(c.duration - cooldownRemaining)))
}

// advance only ever moves the estimate forward, so late or reordered
// responses cannot undo a newer one.
func (c *CooldownClock) advance(t time.Time) {
	if t.After(c.serverImpliedLastFired) {
		c.serverImpliedLastFired = t
	}
}
