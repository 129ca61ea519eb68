package main

import "time"

const (
	TimerUp   = "up"
	TimerDown = "down"
)

// MatchTimer is the round clock. A down timer counts from Duration to 0, an
// up timer counts elapsed seconds with no end.
type MatchTimer struct {
	Running   bool
	StartTime time.Time
	Duration  int // seconds
	Direction string

	pausedAt time.Time
	lastSent int
	sent     bool
}

// Start arms the clock at now
func (t *MatchTimer) Start(now time.Time, duration int, direction string) {
	*t = MatchTimer{
		Running:   true,
		StartTime: now,
		Duration:  duration,
		Direction: direction,
	}
}

// Stop halts the clock without clearing its configuration
func (t *MatchTimer) Stop() {
	t.Running = false
	t.pausedAt = time.Time{}
}

// Reset returns the clock to its idle state
func (t *MatchTimer) Reset() {
	*t = MatchTimer{Direction: TimerDown}
}

// Paused reports whether the clock is currently frozen
func (t *MatchTimer) Paused() bool {
	return !t.pausedAt.IsZero()
}

// Pause freezes a running clock at now
func (t *MatchTimer) Pause(now time.Time) {
	if !t.Running || t.Paused() {
		return
	}
	t.pausedAt = now
}

// Resume unfreezes the clock, shifting StartTime forward by the paused span.
// It returns that span.
func (t *MatchTimer) Resume(now time.Time) time.Duration {
	if !t.Paused() {
		return 0
	}
	d := now.Sub(t.pausedAt)
	t.StartTime = t.StartTime.Add(d)
	t.pausedAt = time.Time{}
	return d
}

// Value is the displayed whole-second value at now
func (t *MatchTimer) Value(now time.Time) int {
	if t.StartTime.IsZero() {
		if t.Direction == TimerDown {
			return t.Duration
		}
		return 0
	}
	if t.Paused() {
		now = t.pausedAt
	}
	elapsed := int(now.Sub(t.StartTime) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	if t.Direction == TimerDown {
		v := t.Duration - elapsed
		if v < 0 {
			v = 0
		}
		return v
	}
	return elapsed
}

// Tick returns the timer-tick messages due at now (none when the displayed
// second has not changed) and whether a down timer just ran out.
func (t *MatchTimer) Tick(now time.Time) ([]TimerTickMsg, bool) {
	if !t.Running || t.Paused() {
		return nil, false
	}
	var out []TimerTickMsg
	v := t.Value(now)
	if !t.sent || v != t.lastSent {
		out = append(out, TimerTickMsg{Time: v, Direction: t.Direction, Running: true})
		t.lastSent = v
		t.sent = true
	}
	if t.Direction == TimerDown && v <= 0 {
		t.Running = false
		out = append(out, TimerTickMsg{Time: 0, Direction: t.Direction, Running: false})
		return out, true
	}
	return out, false
}

// UpdateMsg describes a freshly started clock
func (t *MatchTimer) UpdateMsg() TimerUpdateMsg {
	return TimerUpdateMsg{
		Running:   t.Running,
		StartTime: unixMillis(t.StartTime),
		Duration:  t.Duration,
		Direction: t.Direction,
	}
}
