package gpio

import "time"

// ScriptedInputs cycles the tilt switch on a fixed schedule: lever up for
// Brew, then down for Idle. The buttons are never pressed. It drives the
// controller in simulation mode.
type ScriptedInputs struct {
	Brew  time.Duration
	Idle  time.Duration
	start time.Time
	now   func() time.Time
}

// NewScriptedInputs starts the cycle at now() with the lever down.
func NewScriptedInputs(brew, idle time.Duration, now func() time.Time) *ScriptedInputs {
	if now == nil {
		now = time.Now
	}
	return &ScriptedInputs{Brew: brew, Idle: idle, start: now(), now: now}
}

// Read returns the scripted levels for the current time.
func (s *ScriptedInputs) Read() (Levels, error) {
	cycle := s.Brew + s.Idle
	if cycle <= 0 {
		return Levels{}, nil
	}
	pos := s.now().Sub(s.start) % cycle
	return Levels{LeverUp: pos >= s.Idle}, nil
}

// Close is a no-op.
func (s *ScriptedInputs) Close() error {
	return nil
}
