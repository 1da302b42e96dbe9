// Package clock abstracts time as nanosecond integers.
// SimulationClock moves only when advanced; RealtimeClock follows wall time.
package clock

import (
	"errors"
	"time"
)

// Mode identifies the clock implementation. Fixed for the lifetime of an instance.
type Mode string

// Clock modes
const (
	ModeRealtime   Mode = "REALTIME"
	ModeSimulation Mode = "SIMULATION"
)

// Errors
var (
	ErrTimeMovedBackwards = errors.New("clock: time cannot move backwards")
	ErrInvalidInterval    = errors.New("clock: timer interval must be positive")
	ErrEmptyName          = errors.New("clock: timer name is empty")
)

// TimeEvent records one timer or alert firing.
type TimeEvent struct {
	Name        string // timer or alert name
	EventID     uint64 // sequence number, unique per clock since last Reset
	ScheduledNs int64  // time the event was due
	FiredAtNs   int64  // clock time when the callback ran
}

// Callback is invoked when a timer or alert fires.
type Callback func(TimeEvent)

// Clock is shared by the real-time and simulation implementations.
type Clock interface {
	Mode() Mode

	// TimestampNs returns current time in nanoseconds since the Unix epoch.
	TimestampNs() int64

	// TimestampMs returns current time in milliseconds since the Unix epoch.
	TimestampMs() int64

	// UTCNow returns current time as a UTC time.Time.
	UTCNow() time.Time

	// SetTimer registers a recurring callback. First fire is now + interval.
	// Re-registering a name replaces the previous timer.
	SetTimer(name string, interval time.Duration, cb Callback) error

	// SetTimeAlert registers a one-shot callback at atNs.
	// Re-registering a name replaces the previous alert.
	SetTimeAlert(name string, atNs int64, cb Callback) error

	// CancelTimer removes both the timer and the alert registered under name.
	CancelTimer(name string)

	// TimerNames returns registered timer and alert names, sorted.
	TimerNames() []string

	// Reset clears timers, alerts and history.
	Reset()
}

func nsToTime(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
