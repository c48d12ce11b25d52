package logic

import "time"

// Switch tracks debounce state for a single binary input.
type Switch struct {
	// Current stable (debounced) level
	Stable bool
	// Pending level during debounce
	Pending bool
	// Whether a pending level is being observed
	HasPending bool
	// Time when pending level was first observed
	PendingSince time.Time
	// Whether we have established a baseline
	Baselined bool
}

// Debouncer debounces the lever and both target buttons. Until a switch has
// held one level for the debounce duration it reports false (lever down,
// button released).
type Debouncer struct {
	debounceDuration time.Duration
	lever            Switch
	increase         Switch
	decrease         Switch
}

// NewDebouncer creates a debouncer. A duration <= 0 passes levels through.
func NewDebouncer(debounceDuration time.Duration) *Debouncer {
	return &Debouncer{debounceDuration: debounceDuration}
}

// Process takes a raw input sample and returns the debounced sample.
func (d *Debouncer) Process(input Input) Input {
	return Input{
		LeverUp:  d.processSwitch(&d.lever, input.LeverUp, input.Time),
		Increase: d.processSwitch(&d.increase, input.Increase, input.Time),
		Decrease: d.processSwitch(&d.decrease, input.Decrease, input.Time),
		Time:     input.Time,
	}
}

func (d *Debouncer) processSwitch(sw *Switch, level bool, now time.Time) bool {
	if sw.Baselined && level == sw.Stable {
		// No change from stable level, clear any pending
		sw.HasPending = false
		return sw.Stable
	}

	if !sw.HasPending || sw.Pending != level {
		// New pending level (restarts the baseline timer too)
		sw.Pending = level
		sw.HasPending = true
		sw.PendingSince = now
	}

	if now.Sub(sw.PendingSince) >= d.debounceDuration {
		sw.Stable = level
		sw.Baselined = true
		sw.HasPending = false
	}
	return sw.Stable
}

// IsBaselined returns whether every switch has established a baseline.
func (d *Debouncer) IsBaselined() bool {
	return d.lever.Baselined && d.increase.Baselined && d.decrease.Baselined
}
