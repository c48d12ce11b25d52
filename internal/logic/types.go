// Package logic contains the pure control logic of the espresso controller:
// the brew state machine and stopwatch, the target temperature setpoint, the
// fan decision and switch debouncing.
// This package does no I/O (no GPIO, ADC, serial, MQTT or time.Sleep).
// Time is always injected via time.Time parameters.
package logic

import "time"

// MachineState is the brew lifecycle state. The numeric values are part of
// the telemetry wire format.
type MachineState int32

const (
	StateStart MachineState = iota
	StateRunning
	StateStop
	StateStopped
)

func (s MachineState) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateRunning:
		return "RUNNING"
	case StateStop:
		return "STOP"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Input is a single sample of the operator switches (already in logical
// form: true = lever up / button pressed).
type Input struct {
	LeverUp  bool
	Increase bool
	Decrease bool
	Time     time.Time
}

// ShotEventType identifies a shot lifecycle event.
type ShotEventType string

const (
	EventShotStart ShotEventType = "SHOT_START"
	EventShotEnd   ShotEventType = "SHOT_END"
)

// ShotEvent is emitted when a shot starts (START entered) or ends (STOP
// entered, when the stopwatch takes its final value).
type ShotEvent struct {
	Timestamp time.Time
	Type      ShotEventType
	ShotID    string
	Elapsed   time.Duration

	// Filled by the caller from the current sensor state.
	BasketTemperature float32
	GroupTemperature  float32
	TargetTemperature float32
}

// ShotCounts tracks shot events since startup.
type ShotCounts struct {
	Started  int
	Finished int
}
