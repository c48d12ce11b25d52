// Package mqtt publishes shot and system events to an MQTT broker, with an
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"math"
	"time"

	"github.com/sweeney/espresso-shot/internal/logic"
)

// Topic is the MQTT topic for shot events.
const Topic = "espresso/shot/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "espresso/shot/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a shot event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.ShotEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Shot ShotPayload `json:"shot"`
}

// ShotPayload contains the shot event details.
type ShotPayload struct {
	Timestamp      string       `json:"timestamp"`
	Event          string       `json:"event"`
	ShotID         string       `json:"shot_id"`
	ElapsedSeconds float64      `json:"elapsed_seconds"`
	Temperatures   Temperatures `json:"temperatures"`
}

// Temperatures holds °C readings at the time of the event. A disconnected
// sensor is null.
type Temperatures struct {
	Basket *float64 `json:"basket"`
	Group  *float64 `json:"group"`
	Target *float64 `json:"target"`
}

func celsius(v float32) *float64 {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	f = math.Round(f*100) / 100
	return &f
}

// FormatPayload creates the JSON payload for a shot event.
func FormatPayload(event logic.ShotEvent) ([]byte, error) {
	payload := Payload{
		Shot: ShotPayload{
			Timestamp:      event.Timestamp.UTC().Format(time.RFC3339),
			Event:          string(event.Type),
			ShotID:         event.ShotID,
			ElapsedSeconds: math.Round(event.Elapsed.Seconds()*100) / 100,
			Temperatures: Temperatures{
				Basket: celsius(event.BasketTemperature),
				Group:  celsius(event.GroupTemperature),
				Target: celsius(event.TargetTemperature),
			},
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
