package logic

import "time"

// Brew is the lever-driven brew state machine together with the shot
// stopwatch.
//
//	state    lever up   lever down
//	START    RUNNING    STOP
//	RUNNING  RUNNING    STOP
//	STOP     START      STOPPED
//	STOPPED  START      STOPPED
//
// STOP lasts one step so the stopwatch takes its final value before it
// freezes in STOPPED.
type Brew struct {
	state   MachineState
	start   time.Time
	elapsed time.Duration
	shotID  string
	newID   func() string
	counts  ShotCounts
}

// NewBrew returns a state machine in STOPPED with a zero stopwatch.
// newID generates shot identifiers; nil yields empty IDs.
func NewBrew(now time.Time, newID func() string) *Brew {
	if newID == nil {
		newID = func() string { return "" }
	}
	return &Brew{
		state: StateStopped,
		start: now,
		newID: newID,
	}
}

// Step applies one lever sample at time now: it performs the state
// transition and then updates the stopwatch. It returns a shot event when a
// shot starts or ends, nil otherwise.
func (b *Brew) Step(leverUp bool, now time.Time) *ShotEvent {
	b.state = next(b.state, leverUp)

	if b.state == StateStart {
		b.start = now
		b.elapsed = 0
	}
	if b.state != StateStopped {
		b.elapsed = now.Sub(b.start)
	}

	switch b.state {
	case StateStart:
		b.shotID = b.newID()
		b.counts.Started++
		return &ShotEvent{Timestamp: now, Type: EventShotStart, ShotID: b.shotID}
	case StateStop:
		b.counts.Finished++
		return &ShotEvent{Timestamp: now, Type: EventShotEnd, ShotID: b.shotID, Elapsed: b.elapsed}
	}
	return nil
}

func next(s MachineState, leverUp bool) MachineState {
	switch s {
	case StateStart, StateRunning:
		if leverUp {
			return StateRunning
		}
		return StateStop
	case StateStop, StateStopped:
		if leverUp {
			return StateStart
		}
		return StateStopped
	}
	return StateStopped
}

// State returns the current machine state.
func (b *Brew) State() MachineState {
	return b.state
}

// Elapsed returns the stopwatch value. While STOPPED it holds the final
// time of the previous shot.
func (b *Brew) Elapsed() time.Duration {
	return b.elapsed
}

// ShotID returns the identifier of the current or most recent shot.
func (b *Brew) ShotID() string {
	return b.shotID
}

// Counts returns the shot counters.
func (b *Brew) Counts() ShotCounts {
	return b.counts
}
