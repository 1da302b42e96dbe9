package clock

import (
	"fmt"
	"sort"
	"time"
)

type simTimer struct {
	intervalNs int64
	nextNs     int64
	cb         Callback
}

type simAlert struct {
	atNs int64
	cb   Callback
}

// SimulationClock is a clock whose time only moves when advanced.
// It is owned by a single run and is not safe for concurrent use.
type SimulationClock struct {
	originNs int64
	nowNs    int64
	timers   map[string]*simTimer
	alerts   map[string]*simAlert
	history  []TimeEvent
	nextID   uint64
}

var _ Clock = (*SimulationClock)(nil)

// NewSimulationClock creates a simulation clock starting at originNs.
func NewSimulationClock(originNs int64) *SimulationClock {
	return &SimulationClock{
		originNs: originNs,
		nowNs:    originNs,
		timers:   make(map[string]*simTimer),
		alerts:   make(map[string]*simAlert),
	}
}

// Mode returns ModeSimulation.
func (c *SimulationClock) Mode() Mode { return ModeSimulation }

// TimestampNs returns current simulated time.
func (c *SimulationClock) TimestampNs() int64 { return c.nowNs }

// TimestampMs returns current simulated time in milliseconds.
func (c *SimulationClock) TimestampMs() int64 { return c.nowNs / int64(time.Millisecond) }

// UTCNow returns current simulated time.
func (c *SimulationClock) UTCNow() time.Time { return nsToTime(c.nowNs) }

// SetTimer registers a recurring timer firing every interval, starting at now + interval.
func (c *SimulationClock) SetTimer(name string, interval time.Duration, cb Callback) error {
	if name == "" {
		return ErrEmptyName
	}
	if interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}
	c.timers[name] = &simTimer{
		intervalNs: int64(interval),
		nextNs:     c.nowNs + int64(interval),
		cb:         cb,
	}
	return nil
}

// SetTimeAlert registers a one-shot alert. An alert in the past fires on the next advance.
func (c *SimulationClock) SetTimeAlert(name string, atNs int64, cb Callback) error {
	if name == "" {
		return ErrEmptyName
	}
	c.alerts[name] = &simAlert{atNs: atNs, cb: cb}
	return nil
}

// CancelTimer removes the timer and the alert registered under name.
func (c *SimulationClock) CancelTimer(name string) {
	delete(c.timers, name)
	delete(c.alerts, name)
}

// TimerNames returns registered names, sorted and deduplicated.
func (c *SimulationClock) TimerNames() []string {
	seen := make(map[string]struct{}, len(c.timers)+len(c.alerts))
	for name := range c.timers {
		seen[name] = struct{}{}
	}
	for name := range c.alerts {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AdvanceTime moves the clock to toNs, firing every timer and alert due at or
// before toNs exactly once, in ascending scheduled time (ties by name, timers
// before alerts). Recurring timers reschedule from their missed fire time.
// During a callback the clock reads the event's fire time.
func (c *SimulationClock) AdvanceTime(toNs int64) ([]TimeEvent, error) {
	if toNs < c.nowNs {
		return nil, fmt.Errorf("%w: now=%d target=%d", ErrTimeMovedBackwards, c.nowNs, toNs)
	}

	var fired []TimeEvent
	for {
		name, atNs, isTimer, ok := c.nextDue(toNs)
		if !ok {
			break
		}
		if atNs > c.nowNs {
			c.nowNs = atNs
		}

		var cb Callback
		if isTimer {
			t := c.timers[name]
			t.nextNs = atNs + t.intervalNs
			cb = t.cb
		} else {
			cb = c.alerts[name].cb
			delete(c.alerts, name)
		}

		c.nextID++
		ev := TimeEvent{
			Name:        name,
			EventID:     c.nextID,
			ScheduledNs: atNs,
			FiredAtNs:   c.nowNs,
		}
		fired = append(fired, ev)
		c.history = append(c.history, ev)
		if cb != nil {
			cb(ev)
		}
	}

	c.nowNs = toNs
	return fired, nil
}

// AdvanceBy moves the clock forward by d.
func (c *SimulationClock) AdvanceBy(d time.Duration) ([]TimeEvent, error) {
	if d < 0 {
		return nil, fmt.Errorf("%w: duration %s", ErrTimeMovedBackwards, d)
	}
	return c.AdvanceTime(c.nowNs + int64(d))
}

// SetTime moves the clock to ns. Equivalent to AdvanceTime.
func (c *SimulationClock) SetTime(ns int64) ([]TimeEvent, error) {
	return c.AdvanceTime(ns)
}

// SetDate moves the clock to t.
func (c *SimulationClock) SetDate(t time.Time) ([]TimeEvent, error) {
	return c.AdvanceTime(t.UnixNano())
}

// History returns a copy of every event fired since the last Reset.
func (c *SimulationClock) History() []TimeEvent {
	out := make([]TimeEvent, len(c.history))
	copy(out, c.history)
	return out
}

// Reset restores the origin time and clears timers, alerts, history and event ids.
func (c *SimulationClock) Reset() {
	c.ResetTo(c.originNs)
}

// ResetTo resets the clock and moves its origin to originNs.
func (c *SimulationClock) ResetTo(originNs int64) {
	c.originNs = originNs
	c.nowNs = originNs
	c.timers = make(map[string]*simTimer)
	c.alerts = make(map[string]*simAlert)
	c.history = nil
	c.nextID = 0
}

// nextDue finds the earliest item scheduled at or before limitNs.
func (c *SimulationClock) nextDue(limitNs int64) (name string, atNs int64, isTimer bool, ok bool) {
	consider := func(n string, at int64, timer bool) {
		if at > limitNs {
			return
		}
		if !ok || at < atNs || (at == atNs && (n < name || (n == name && timer && !isTimer))) {
			name, atNs, isTimer, ok = n, at, timer, true
		}
	}
	for n, t := range c.timers {
		consider(n, t.nextNs, true)
	}
	for n, a := range c.alerts {
		consider(n, a.atNs, false)
	}
	return name, atNs, isTimer, ok
}
