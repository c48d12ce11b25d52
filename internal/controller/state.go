package controller

import (
	"time"

	"github.com/sweeney/espresso-shot/internal/logic"
)

// State is a value snapshot of the device state.
type State struct {
	Machine logic.MachineState
	Elapsed time.Duration
	ShotID  string
	Shots   logic.ShotCounts

	// Latest raw resistances, ohms.
	BasketResistance float32
	GroupResistance  float32

	// Temperatures of the smoothed resistances, °C.
	BasketTemperature float32
	GroupTemperature  float32

	Target           float32
	LastTargetChange time.Time
	TargetSource     string

	Cooling bool

	// Debounced switch levels.
	LeverUp   bool
	Increase  bool
	Decrease  bool
	Baselined bool

	LastSensing time.Time
	LastDisplay time.Time
}

// State returns a snapshot of the device state.
func (c *Controller) State() State {
	return State{
		Machine:           c.brew.State(),
		Elapsed:           c.brew.Elapsed(),
		ShotID:            c.brew.ShotID(),
		Shots:             c.brew.Counts(),
		BasketResistance:  c.basket.buffer.Latest(),
		GroupResistance:   c.group.buffer.Latest(),
		BasketTemperature: c.basket.temperature,
		GroupTemperature:  c.group.temperature,
		Target:            c.target.Celsius(),
		LastTargetChange:  c.target.LastChange(),
		TargetSource:      c.deps.Target.Name(),
		Cooling:           c.cooling,
		LeverUp:           c.levels.LeverUp,
		Increase:          c.levels.Increase,
		Decrease:          c.levels.Decrease,
		Baselined:         c.debouncer.IsBaselined(),
		LastSensing:       c.lastSensing,
		LastDisplay:       c.lastDisplay,
	}
}
