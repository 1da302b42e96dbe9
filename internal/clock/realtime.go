package clock

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// RealtimeClock follows wall time. Callbacks run on their own goroutines.
type RealtimeClock struct {
	mu     sync.Mutex
	timers map[string]chan struct{}
	alerts map[string]*time.Timer
	nextID atomic.Uint64
}

var _ Clock = (*RealtimeClock)(nil)

var (
	realtimeOnce sync.Once
	realtime     *RealtimeClock
)

// Realtime returns the process-wide real-time clock. For live use only;
// simulations own a SimulationClock.
func Realtime() *RealtimeClock {
	realtimeOnce.Do(func() {
		realtime = NewRealtimeClock()
	})
	return realtime
}

// NewRealtimeClock creates an independent real-time clock.
func NewRealtimeClock() *RealtimeClock {
	return &RealtimeClock{
		timers: make(map[string]chan struct{}),
		alerts: make(map[string]*time.Timer),
	}
}

// Mode returns ModeRealtime.
func (c *RealtimeClock) Mode() Mode { return ModeRealtime }

// TimestampNs returns wall time in nanoseconds.
func (c *RealtimeClock) TimestampNs() int64 { return time.Now().UnixNano() }

// TimestampMs returns wall time in milliseconds.
func (c *RealtimeClock) TimestampMs() int64 { return time.Now().UnixMilli() }

// UTCNow returns wall time in UTC.
func (c *RealtimeClock) UTCNow() time.Time { return time.Now().UTC() }

// SetTimer starts a recurring timer.
func (c *RealtimeClock) SetTimer(name string, interval time.Duration, cb Callback) error {
	if name == "" {
		return ErrEmptyName
	}
	if interval <= 0 {
		return ErrInvalidInterval
	}

	stop := make(chan struct{})
	c.mu.Lock()
	if prev, ok := c.timers[name]; ok {
		close(prev)
	}
	c.timers[name] = stop
	c.mu.Unlock()

	scheduled := c.TimestampNs() + int64(interval)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case tick := <-ticker.C:
				ev := TimeEvent{
					Name:        name,
					EventID:     c.nextID.Add(1),
					ScheduledNs: scheduled,
					FiredAtNs:   tick.UnixNano(),
				}
				scheduled += int64(interval)
				if cb != nil {
					cb(ev)
				}
			}
		}
	}()
	return nil
}

// SetTimeAlert schedules a one-shot callback at atNs. Past alerts fire immediately.
func (c *RealtimeClock) SetTimeAlert(name string, atNs int64, cb Callback) error {
	if name == "" {
		return ErrEmptyName
	}

	delay := time.Duration(atNs - c.TimestampNs())
	if delay < 0 {
		delay = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.alerts[name]; ok {
		prev.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if c.alerts[name] == t {
			delete(c.alerts, name)
		}
		c.mu.Unlock()
		if cb != nil {
			cb(TimeEvent{
				Name:        name,
				EventID:     c.nextID.Add(1),
				ScheduledNs: atNs,
				FiredAtNs:   c.TimestampNs(),
			})
		}
	})
	c.alerts[name] = t
	return nil
}

// CancelTimer stops the timer and the alert registered under name.
func (c *RealtimeClock) CancelTimer(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stop, ok := c.timers[name]; ok {
		close(stop)
		delete(c.timers, name)
	}
	if t, ok := c.alerts[name]; ok {
		t.Stop()
		delete(c.alerts, name)
	}
}

// TimerNames returns registered names, sorted.
func (c *RealtimeClock) TimerNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
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

// Reset stops all timers and alerts. Wall time is unaffected.
func (c *RealtimeClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, stop := range c.timers {
		close(stop)
		delete(c.timers, name)
	}
	for name, t := range c.alerts {
		t.Stop()
		delete(c.alerts, name)
	}
	c.nextID.Store(0)
}
