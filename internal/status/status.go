// Package status provides a thread-safe status tracker for the espresso-shot
// daemon. The control loop publishes device snapshots into it; HTTP handlers
// and MQTT system events read from it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/espresso-shot/internal/controller"
)

// Config contains daemon configuration for display.
type Config struct {
	SensingHz     float64
	DisplayHz     float64
	TaskPeriodMs  int64
	Capacity      int
	DebounceMs    int64
	HeartbeatMs   int64
	TargetSource  string
	Broker        string
	HTTPAddr      string
	TelemetryPort string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Device        controller.State
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	System        *SystemInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update replaces the device state. Called from the control loop once per
// input tick.
func (t *Tracker) Update(state controller.State) {
	t.mu.Lock()
	t.snap.Device = state
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetSystem sets the host statistics.
func (t *Tracker) SetSystem(info *SystemInfo) {
	t.mu.Lock()
	t.snap.System = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
