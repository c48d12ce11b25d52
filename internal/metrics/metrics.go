// Package metrics exposes controller state and error counts for Prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors in a private registry.
type Metrics struct {
	registry *prometheus.Registry

	temperature  *prometheus.GaugeVec
	resistance   *prometheus.GaugeVec
	target       prometheus.Gauge
	fan          prometheus.Gauge
	machineState prometheus.Gauge
	elapsed      prometheus.Gauge
	shots        *prometheus.CounterVec
	telemetry    *prometheus.CounterVec
	disconnected *prometheus.CounterVec
	errors       *prometheus.CounterVec
	taskTiming   *prometheus.SummaryVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "espresso_temperature_celsius",
			Help: "Smoothed probe temperature.",
		}, []string{"sensor"}),
		resistance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "espresso_resistance_ohms",
			Help: "Latest raw probe resistance.",
		}, []string{"sensor"}),
		target: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "espresso_target_celsius",
			Help: "Group temperature setpoint.",
		}),
		fan: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "espresso_fan_on",
			Help: "1 while the cooling fan runs.",
		}),
		machineState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "espresso_machine_state",
			Help: "Brew state: 0 START, 1 RUNNING, 2 STOP, 3 STOPPED.",
		}),
		elapsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "espresso_shot_elapsed_seconds",
			Help: "Shot stopwatch.",
		}),
		shots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "espresso_shot_events_total",
			Help: "Shot start and end events.",
		}, []string{"event"}),
		telemetry: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "espresso_telemetry_records_total",
			Help: "Telemetry records by outcome.",
		}, []string{"result"}),
		disconnected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "espresso_sensor_disconnected_samples_total",
			Help: "Samples where the divider read as disconnected.",
		}, []string{"sensor"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "espresso_errors_total",
			Help: "Hardware and transport errors by source.",
		}, []string{"source"}),
		taskTiming: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       "espresso_task_seconds",
			Help:       "Scheduled task run time.",
			Objectives: map[float64]float64{0.5: 0.05, 0.99: 0.001},
		}, []string{"task"}),
	}

	m.registry.MustRegister(
		m.temperature,
		m.resistance,
		m.target,
		m.fan,
		m.machineState,
		m.elapsed,
		m.shots,
		m.telemetry,
		m.disconnected,
		m.errors,
		m.taskTiming,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Temperature sets a smoothed probe temperature.
func (m *Metrics) Temperature(sensor string, celsius float32) {
	if m == nil {
		return
	}
	m.temperature.WithLabelValues(sensor).Set(float64(celsius))
}

// Resistance sets a raw probe resistance.
func (m *Metrics) Resistance(sensor string, ohms float32) {
	if m == nil {
		return
	}
	m.resistance.WithLabelValues(sensor).Set(float64(ohms))
}

// Target sets the setpoint.
func (m *Metrics) Target(celsius float32) {
	if m == nil {
		return
	}
	m.target.Set(float64(celsius))
}

// Fan sets the fan state.
func (m *Metrics) Fan(on bool) {
	if m == nil {
		return
	}
	v := 0.0
	if on {
		v = 1
	}
	m.fan.Set(v)
}

// Machine sets the brew state and stopwatch.
func (m *Metrics) Machine(state int32, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.machineState.Set(float64(state))
	m.elapsed.Set(elapsed.Seconds())
}

// ShotEvent counts a shot event by type.
func (m *Metrics) ShotEvent(event string) {
	if m == nil {
		return
	}
	m.shots.WithLabelValues(event).Inc()
}

// TelemetryWritten counts a record sent in full.
func (m *Metrics) TelemetryWritten() {
	if m == nil {
		return
	}
	m.telemetry.WithLabelValues("written").Inc()
}

// TelemetryFailed counts a dropped record.
func (m *Metrics) TelemetryFailed() {
	if m == nil {
		return
	}
	m.telemetry.WithLabelValues("failed").Inc()
}

// Disconnected counts a disconnected sample for a sensor.
func (m *Metrics) Disconnected(sensor string) {
	if m == nil {
		return
	}
	m.disconnected.WithLabelValues(sensor).Inc()
}

// Error counts an error from source.
func (m *Metrics) Error(source string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(source).Inc()
}

// Timing observes a task run that began at start and ended at end.
func (m *Metrics) Timing(task string, start, end time.Time) {
	if m == nil {
		return
	}
	m.taskTiming.WithLabelValues(task).Observe(end.Sub(start).Seconds())
}
