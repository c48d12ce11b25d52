package status

import (
	"encoding/json"
	"math"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string           `json:"event,omitempty"`
	Reason         string           `json:"reason,omitempty"`
	Machine        string           `json:"machine"`
	ShotID         string           `json:"shot_id,omitempty"`
	ElapsedSeconds float64          `json:"elapsed_seconds"`
	Ready          bool             `json:"ready"`
	Cooling        bool             `json:"cooling"`
	Temperatures   TemperaturesJSON `json:"temperatures"`
	Resistances    ResistancesJSON  `json:"resistances"`
	Switches       SwitchesJSON     `json:"switches"`
	UptimeSeconds  int64            `json:"uptime_seconds"`
	StartTime      string           `json:"start_time"`
	Timestamp      string           `json:"timestamp"`
	MQTT           MQTTStatus       `json:"mqtt"`
	Counts         CountsJSON       `json:"shot_counts"`
	System         *SystemJSON      `json:"system,omitempty"`
	Config         ConfigJSON       `json:"config"`
}

// TemperaturesJSON holds temperatures in °C. A disconnected sensor is null.
type TemperaturesJSON struct {
	Basket *float64 `json:"basket"`
	Group  *float64 `json:"group"`
	Target *float64 `json:"target"`
}

// ResistancesJSON holds the latest raw resistances in ohms. An open circuit
// is null.
type ResistancesJSON struct {
	Basket *float64 `json:"basket"`
	Group  *float64 `json:"group"`
}

// SwitchesJSON reports the debounced switch levels.
type SwitchesJSON struct {
	LeverUp  bool `json:"lever_up"`
	Increase bool `json:"increase"`
	Decrease bool `json:"decrease"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of shot counts.
type CountsJSON struct {
	Started  int `json:"started"`
	Finished int `json:"finished"`
}

// SystemJSON is the JSON representation of host statistics.
type SystemJSON struct {
	Load1             float64 `json:"load1"`
	Load5             float64 `json:"load5"`
	Load15            float64 `json:"load15"`
	HostUptimeSeconds int64   `json:"host_uptime_seconds"`
	MemUsedMB         float64 `json:"mem_used_mb"`
	MemTotalMB        float64 `json:"mem_total_mb"`
	ProcessRSSMB      float64 `json:"process_rss_mb"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SensingHz     float64 `json:"sensing_hz"`
	DisplayHz     float64 `json:"display_hz"`
	TaskPeriodMs  int64   `json:"task_period_ms"`
	Capacity      int     `json:"capacity"`
	DebounceMs    int64   `json:"debounce_ms"`
	HeartbeatMs   int64   `json:"heartbeat_ms"`
	TargetSource  string  `json:"target_source"`
	Broker        string  `json:"broker"`
	HTTPAddr      string  `json:"http_addr"`
	TelemetryPort string  `json:"telemetry_port,omitempty"`
}

// number converts a reading for JSON, which cannot carry NaN or Inf.
// Values are rounded to two decimals.
func number(v float32) *float64 {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	f = math.Round(f*100) / 100
	return &f
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func buildInner(snap Snapshot) StatusInner {
	d := snap.Device
	return StatusInner{
		Machine:        d.Machine.String(),
		ShotID:         d.ShotID,
		ElapsedSeconds: round2(d.Elapsed.Seconds()),
		Ready:          d.Baselined,
		Cooling:        d.Cooling,
		Temperatures: TemperaturesJSON{
			Basket: number(d.BasketTemperature),
			Group:  number(d.GroupTemperature),
			Target: number(d.Target),
		},
		Resistances: ResistancesJSON{
			Basket: number(d.BasketResistance),
			Group:  number(d.GroupResistance),
		},
		Switches: SwitchesJSON{
			LeverUp:  d.LeverUp,
			Increase: d.Increase,
			Decrease: d.Decrease,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts:        CountsJSON{Started: d.Shots.Started, Finished: d.Shots.Finished},
		Config: ConfigJSON{
			SensingHz:     snap.Config.SensingHz,
			DisplayHz:     snap.Config.DisplayHz,
			TaskPeriodMs:  snap.Config.TaskPeriodMs,
			Capacity:      snap.Config.Capacity,
			DebounceMs:    snap.Config.DebounceMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			TargetSource:  snap.Config.TargetSource,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
			TelemetryPort: snap.Config.TelemetryPort,
		},
	}
}

func buildSystem(snap Snapshot, inner *StatusInner) {
	if snap.System != nil {
		inner.System = &SystemJSON{
			Load1:             round2(snap.System.Load1),
			Load5:             round2(snap.System.Load5),
			Load15:            round2(snap.System.Load15),
			HostUptimeSeconds: int64(snap.System.HostUptime.Seconds()),
			MemUsedMB:         round2(snap.System.MemUsedMB),
			MemTotalMB:        round2(snap.System.MemTotalMB),
			ProcessRSSMB:      round2(snap.System.ProcessRSSMB),
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildSystem(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildSystem(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
