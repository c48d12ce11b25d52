// Package controller ties the sensing-and-control loop together. A
// Controller owns the device state exclusively and is driven by three
// scheduled actions: Input (switches, stopwatch, fan), Sense (ADC, smoothing,
// telemetry) and Refresh (display).
//
// A Controller is not safe for concurrent use; share State snapshots
// instead.
package controller

import (
	"fmt"
	"time"

	"github.com/chewxy/math32"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/espresso-shot/internal/adc"
	"github.com/sweeney/espresso-shot/internal/display"
	"github.com/sweeney/espresso-shot/internal/gpio"
	"github.com/sweeney/espresso-shot/internal/input"
	"github.com/sweeney/espresso-shot/internal/logic"
	"github.com/sweeney/espresso-shot/internal/metrics"
	"github.com/sweeney/espresso-shot/internal/scheduler"
	"github.com/sweeney/espresso-shot/internal/smooth"
	"github.com/sweeney/espresso-shot/internal/telemetry"
	"github.com/sweeney/espresso-shot/internal/thermistor"
)

// Sensor names used in logs and metrics.
const (
	Basket = "basket"
	Group  = "group"
)

// Sensor describes one thermistor channel.
type Sensor struct {
	Channel      int
	Known        float32 // divider resistor, ohms
	Coefficients thermistor.Coefficients
}

// Config holds the construction-time constants of the loop.
type Config struct {
	ReferenceChannel int
	Basket           Sensor
	Group            Sensor

	// Capacity is the smoothing window in samples.
	Capacity int

	InputPeriod   time.Duration
	SensingPeriod time.Duration
	DisplayPeriod time.Duration

	TargetMin     float32
	TargetMax     float32
	TargetStep    float32
	TargetDefault float32
	// TargetWindow is how long the display shows the target after a change.
	TargetWindow time.Duration

	// Debounce is the software debounce applied to all switches.
	Debounce time.Duration
}

// Deps are the hardware and transport collaborators. ADC, Inputs, Fan and
// Target are required; the rest may be nil.
type Deps struct {
	ADC       adc.Reader
	Inputs    gpio.Inputs
	Fan       gpio.Fan
	Target    input.Source
	Canvas    display.Canvas
	Telemetry *telemetry.Writer
	Metrics   *metrics.Metrics

	// NewID generates shot identifiers. Defaults to random UUIDs.
	NewID func() string
	// OnShot is called for each shot start and end.
	OnShot func(logic.ShotEvent)
}

// probe is the per-sensor part of the device state.
type probe struct {
	name        string
	sensor      Sensor
	buffer      *smooth.Buffer
	temperature float32 // from the buffer average
}

// Controller is the device state aggregate and the operations on it.
type Controller struct {
	cfg  Config
	deps Deps
	log  *log.Entry

	brew      *logic.Brew
	target    *logic.Target
	debouncer *logic.Debouncer
	basket    probe
	group     probe

	levels      logic.Input
	cooling     bool
	fanSet      bool
	lastSensing time.Time
	lastDisplay time.Time
	errorCounts map[string]uint64
}

// New reads each probe once and fills its smoothing window with that
// reading, so the first averages are meaningful. The machine starts STOPPED
// with the target at its default.
func New(cfg Config, deps Deps, now time.Time) (*Controller, error) {
	if deps.ADC == nil || deps.Inputs == nil || deps.Fan == nil || deps.Target == nil {
		return nil, fmt.Errorf("controller: adc, inputs, fan and target source are required")
	}
	if deps.NewID == nil {
		deps.NewID = func() string { return uuid.NewV4().String() }
	}

	c := &Controller{
		cfg:         cfg,
		deps:        deps,
		log:         log.WithField("component", "controller"),
		brew:        logic.NewBrew(now, deps.NewID),
		target:      logic.NewTarget(cfg.TargetMin, cfg.TargetMax, cfg.TargetStep, cfg.TargetDefault, now),
		debouncer:   logic.NewDebouncer(cfg.Debounce),
		basket:      probe{name: Basket, sensor: cfg.Basket},
		group:       probe{name: Group, sensor: cfg.Group},
		lastSensing: now,
		lastDisplay: now,
		errorCounts: make(map[string]uint64),
	}

	for _, p := range []*probe{&c.basket, &c.group} {
		r, err := c.readResistance(p)
		if err != nil {
			return nil, fmt.Errorf("initial %s reading: %w", p.name, err)
		}
		p.buffer = smooth.NewBuffer(cfg.Capacity, r)
		p.temperature = p.sensor.Coefficients.Temperature(r)
	}

	c.log.WithFields(log.Fields{
		"basket":   display.FormatTemperature(c.basket.temperature),
		"group":    display.FormatTemperature(c.group.temperature),
		"target":   c.target.Celsius(),
		"source":   deps.Target.Name(),
		"capacity": c.basket.buffer.Cap(),
	}).Info("controller initialised")
	return c, nil
}

func (c *Controller) readResistance(p *probe) (float32, error) {
	ratio, err := adc.Ratio(c.deps.ADC, c.cfg.ReferenceChannel, p.sensor.Channel)
	if err != nil {
		return 0, err
	}
	return thermistor.RatioResistance(ratio, p.sensor.Known), nil
}

// warn logs the first error from a source and then every thousandth, since
// a persistent fault repeats at the tick rate.
func (c *Controller) warn(source string, err error) {
	c.deps.Metrics.Error(source)
	c.errorCounts[source]++
	if n := c.errorCounts[source]; n == 1 || n%1000 == 0 {
		c.log.WithFields(log.Fields{"source": source, "count": n}).Warnf("%v", err)
	}
}

// Input samples the switches, updates the target and the brew state
// machine, and drives the fan. It returns any shot events produced.
func (c *Controller) Input(now time.Time) []logic.ShotEvent {
	raw, err := c.deps.Inputs.Read()
	if err != nil {
		c.warn("gpio", err)
	} else {
		c.levels = c.debouncer.Process(logic.Input{
			LeverUp:  raw.LeverUp,
			Increase: raw.Increase,
			Decrease: raw.Decrease,
			Time:     now,
		})
	}
	c.levels.Time = now

	changed, err := c.deps.Target.Update(c.target, c.levels)
	if err != nil {
		c.warn("target", err)
	}
	if changed {
		c.log.WithField("target", c.target.Celsius()).Debug("target changed")
	}

	var events []logic.ShotEvent
	if ev := c.brew.Step(c.levels.LeverUp, now); ev != nil {
		ev.BasketTemperature = c.basket.temperature
		ev.GroupTemperature = c.group.temperature
		ev.TargetTemperature = c.target.Celsius()
		c.logShot(*ev)
		c.deps.Metrics.ShotEvent(string(ev.Type))
		if c.deps.OnShot != nil {
			c.deps.OnShot(*ev)
		}
		events = append(events, *ev)
	}

	c.driveFan()

	c.deps.Metrics.Target(c.target.Celsius())
	c.deps.Metrics.Machine(int32(c.brew.State()), c.brew.Elapsed())
	return events
}

func (c *Controller) logShot(ev logic.ShotEvent) {
	fields := log.Fields{"shot": ev.ShotID, "group": ev.GroupTemperature, "basket": ev.BasketTemperature}
	switch ev.Type {
	case logic.EventShotStart:
		c.log.WithFields(fields).Info("shot started")
	case logic.EventShotEnd:
		fields["elapsed"] = display.FormatElapsed(ev.Elapsed)
		c.log.WithFields(fields).Info("shot finished")
	}
}

// driveFan writes the fan line when the decision changes.
func (c *Controller) driveFan() {
	on := logic.CoolingOn(c.group.temperature, c.target.Celsius())
	if c.fanSet && on == c.cooling {
		return
	}
	if err := c.deps.Fan.Set(on); err != nil {
		c.warn("fan", err)
		return
	}
	c.cooling = on
	c.fanSet = true
	c.deps.Metrics.Fan(on)
}

// Sense reads both probes, pushes the readings into their windows,
// recomputes the temperatures from the window averages and sends one
// telemetry record. A failed ADC read skips the whole tick.
func (c *Controller) Sense(now time.Time) {
	var readings [2]float32
	for i, p := range []*probe{&c.basket, &c.group} {
		r, err := c.readResistance(p)
		if err != nil {
			c.warn("adc", err)
			return
		}
		readings[i] = r
	}

	for i, p := range []*probe{&c.basket, &c.group} {
		r := readings[i]
		if math32.IsInf(r, 1) {
			c.deps.Metrics.Disconnected(p.name)
		}
		p.temperature = p.sensor.Coefficients.Temperature(p.buffer.Push(r))
		c.deps.Metrics.Resistance(p.name, r)
		c.deps.Metrics.Temperature(p.name, p.temperature)
	}
	c.lastSensing = now

	if c.deps.Telemetry == nil {
		return
	}
	if c.deps.Telemetry.Send(c.Record()) {
		c.deps.Metrics.TelemetryWritten()
	} else {
		c.deps.Metrics.TelemetryFailed()
	}
}

// Record builds the telemetry record for the current state. Resistances are
// the latest raw samples and the temperatures are derived from them, not
// from the smoothed averages.
func (c *Controller) Record() telemetry.Record {
	br := c.basket.buffer.Latest()
	gr := c.group.buffer.Latest()
	return telemetry.Record{
		ElapsedTime:       float32(c.brew.Elapsed().Seconds()),
		BasketResistance:  br,
		GroupResistance:   gr,
		BasketTemperature: c.basket.sensor.Coefficients.Temperature(br),
		GroupTemperature:  c.group.sensor.Coefficients.Temperature(gr),
		State:             int32(c.brew.State()),
	}
}

// View returns what the display shows at now.
func (c *Controller) View(now time.Time) display.View {
	return display.NewView(
		c.group.temperature,
		c.basket.temperature,
		c.target.Celsius(),
		c.brew.Elapsed(),
		c.target.LastChange(),
		now,
		c.cfg.TargetWindow,
	)
}

// Refresh redraws the display.
func (c *Controller) Refresh(now time.Time) {
	c.lastDisplay = now
	if c.deps.Canvas == nil {
		return
	}
	if err := display.Render(c.deps.Canvas, c.View(now)); err != nil {
		c.warn("display", err)
	}
}

// Tasks returns the scheduled actions in evaluation order: input, sensing,
// display. Each run is timed into metrics.
func (c *Controller) Tasks() []*scheduler.Task {
	timed := func(name string, run func(time.Time)) func(time.Time) {
		return func(now time.Time) {
			start := time.Now()
			run(now)
			c.deps.Metrics.Timing(name, start, time.Now())
		}
	}
	return []*scheduler.Task{
		{Name: "input", Period: c.cfg.InputPeriod, Run: timed("input", func(now time.Time) { c.Input(now) })},
		{Name: "sense", Period: c.cfg.SensingPeriod, Run: timed("sense", c.Sense)},
		{Name: "display", Period: c.cfg.DisplayPeriod, Run: timed("display", c.Refresh)},
	}
}

// Close switches the fan off.
func (c *Controller) Close() error {
	if err := c.deps.Fan.Set(false); err != nil {
		return fmt.Errorf("switch fan off: %w", err)
	}
	c.cooling = false
	return nil
}
