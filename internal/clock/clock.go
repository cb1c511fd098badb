// Package clock provides the time source injected into every component
// that reads "now" (scorer, threshold, guard, strategy, paper trader).
//
// In live mode it wraps the system clock; in backtest it is an advancing
// counter, so every component reads time through one explicit interface
// instead of calling time.Now directly.
package clock

import "time"

// Clock is the capability every time-reading component depends on.
type Clock interface {
	Now() time.Time
	Today() time.Time // midnight UTC of the current virtual/real day
	Unix() int64       // unix seconds
	UnixMilli() int64
}

// System is the live-mode clock: a thin wrapper over time.Now.
type System struct{}

// NewSystem returns the live-mode Clock.
func NewSystem() System { return System{} }

func (System) Now() time.Time { return time.Now().UTC() }

func (System) Today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (System) Unix() int64 { return time.Now().Unix() }

func (System) UnixMilli() int64 { return time.Now().UnixMilli() }

// Virtual is the backtest clock: wall time is replaced by a counter that
// only advances when Advance is called, guaranteeing the engine can never
// observe a timestamp the drip feeder hasn't released yet.
type Virtual struct {
	current time.Time
}

// NewVirtual creates a virtual clock starting at start.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{current: start.UTC()}
}

// Advance moves the virtual clock forward by step and returns the new time.
func (v *Virtual) Advance(step time.Duration) time.Time {
	v.current = v.current.Add(step)
	return v.current
}

func (v *Virtual) Now() time.Time { return v.current }

func (v *Virtual) Today() time.Time {
	return time.Date(v.current.Year(), v.current.Month(), v.current.Day(), 0, 0, 0, 0, time.UTC)
}

func (v *Virtual) Unix() int64 { return v.current.Unix() }

func (v *Virtual) UnixMilli() int64 { return v.current.UnixMilli() }
