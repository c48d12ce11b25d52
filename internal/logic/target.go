package logic

import (
	"math"
	"time"
)

// Target is the operator-selected group temperature setpoint. It is stored
// as an integer count of half degrees, so it is always a multiple of 0.5°C
// and change detection never compares raw floats.
type Target struct {
	minHalf    int
	maxHalf    int
	stepHalf   int
	half       int
	lastChange time.Time
}

// Quantize returns the number of half degrees nearest to celsius.
func Quantize(celsius float32) int {
	return int(math.Round(float64(celsius) * 2))
}

// NewTarget creates a setpoint clamped to [min, max] starting at initial.
// step is the increment applied by Increase and Decrease; it is quantized to
// at least half a degree. The change timestamp starts at now.
func NewTarget(min, max, step, initial float32, now time.Time) *Target {
	t := &Target{
		minHalf:    Quantize(min),
		maxHalf:    Quantize(max),
		stepHalf:   Quantize(step),
		lastChange: now,
	}
	if t.maxHalf < t.minHalf {
		t.minHalf, t.maxHalf = t.maxHalf, t.minHalf
	}
	if t.stepHalf < 1 {
		t.stepHalf = 1
	}
	t.half = t.clamp(Quantize(initial))
	return t
}

func (t *Target) clamp(half int) int {
	if half < t.minHalf {
		return t.minHalf
	}
	if half > t.maxHalf {
		return t.maxHalf
	}
	return half
}

// SetHalfDegrees sets the target to half/2 °C, clamped to the range. It
// returns true and records now as the change time only if the quantized
// value differs from the current one.
func (t *Target) SetHalfDegrees(half int, now time.Time) bool {
	half = t.clamp(half)
	if half == t.half {
		return false
	}
	t.half = half
	t.lastChange = now
	return true
}

// Set quantizes celsius to 0.5° and applies it like SetHalfDegrees.
func (t *Target) Set(celsius float32, now time.Time) bool {
	return t.SetHalfDegrees(Quantize(celsius), now)
}

// Increase raises the target by one step.
func (t *Target) Increase(now time.Time) bool {
	return t.SetHalfDegrees(t.half+t.stepHalf, now)
}

// Decrease lowers the target by one step.
func (t *Target) Decrease(now time.Time) bool {
	return t.SetHalfDegrees(t.half-t.stepHalf, now)
}

// Celsius returns the target in degrees Celsius.
func (t *Target) Celsius() float32 {
	return float32(t.half) / 2
}

// HalfDegrees returns the quantized target.
func (t *Target) HalfDegrees() int {
	return t.half
}

// RangeHalfDegrees returns the clamping range in half degrees.
func (t *Target) RangeHalfDegrees() (min, max int) {
	return t.minHalf, t.maxHalf
}

// LastChange returns the time of the last quantized change.
func (t *Target) LastChange() time.Time {
	return t.lastChange
}

// Recent reports whether now is within window of the last change. The
// display shows the target instead of the group temperature meanwhile.
func (t *Target) Recent(now time.Time, window time.Duration) bool {
	return !now.After(t.lastChange.Add(window))
}
