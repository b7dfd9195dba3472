package votes

import "time"

// Countdown is a cooldown display anchored to a fixed wall-clock target. The
// target is computed exactly once from a fetched seconds_remaining value;
// every later read re-derives the remaining time from that same target, so
// repeated status fetches cannot make the displayed countdown drift.
type Countdown struct {
	target time.Time
	max    time.Duration
	now    func() time.Time
}

// NewCountdown anchors a countdown at now + secondsRemaining, capped at max.
func NewCountdown(secondsRemaining int64, max time.Duration) Countdown {
	return NewCountdownAt(secondsRemaining, max, time.Now)
}

// NewCountdownAt is NewCountdown with an injectable clock.
func NewCountdownAt(secondsRemaining int64, max time.Duration, clock func() time.Time) Countdown {
	if clock == nil {
		clock = time.Now
	}
	remaining := time.Duration(secondsRemaining) * time.Second
	if remaining < 0 {
		remaining = 0
	}
	if max > 0 && remaining > max {
		remaining = max
	}
	return Countdown{
		target: clock().Add(remaining),
		max:    max,
		now:    clock,
	}
}

// Remaining is the time left until the fixed target, clamped to [0, max].
func (c Countdown) Remaining() time.Duration {
	if c.now == nil {
		return 0
	}
	remaining := c.target.Sub(c.now())
	if remaining < 0 {
		return 0
	}
	if c.max > 0 && remaining > c.max {
		return c.max
	}
	return remaining
}

// Done reports whether the cooldown has fully elapsed.
func (c Countdown) Done() bool {
	return c.Remaining() <= 0
}

// Target exposes the fixed wall-clock deadline.
func (c Countdown) Target() time.Time {
	return c.target
}
