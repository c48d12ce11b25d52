package internal

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sweeney/espresso-shot/internal/adc"
	"github.com/sweeney/espresso-shot/internal/config"
	"github.com/sweeney/espresso-shot/internal/controller"
	"github.com/sweeney/espresso-shot/internal/display"
	"github.com/sweeney/espresso-shot/internal/gpio"
	"github.com/sweeney/espresso-shot/internal/input"
	"github.com/sweeney/espresso-shot/internal/logic"
	"github.com/sweeney/espresso-shot/internal/metrics"
	"github.com/sweeney/espresso-shot/internal/mqtt"
	"github.com/sweeney/espresso-shot/internal/scheduler"
	"github.com/sweeney/espresso-shot/internal/status"
	"github.com/sweeney/espresso-shot/internal/telemetry"
	"github.com/sweeney/espresso-shot/internal/web"
)

var start = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type rig struct {
	adc     *adc.Fake
	inputs  *gpio.FakeInputs
	fan     *gpio.FakeFan
	canvas  *display.Recorder
	stream  *bytes.Buffer
	pub     *mqtt.FakePublisher
	metrics *metrics.Metrics
	tracker *status.Tracker
	ctl     *controller.Controller
	sched   *scheduler.Scheduler
}

// newRig wires a controller to fakes using the default configuration. Both
// probes read a divider ratio of 1.5 unless group is non-zero.
func newRig(t *testing.T, group int32, samples ...gpio.Levels) *rig {
	t.Helper()
	cfg := config.Default()

	r := &rig{
		adc:     adc.NewFake(),
		inputs:  gpio.NewFakeInputs(samples...),
		fan:     &gpio.FakeFan{Inverted: cfg.GPIO.FanInverted},
		canvas:  display.NewRecorder(),
		stream:  &bytes.Buffer{},
		pub:     mqtt.NewFakePublisher(),
		metrics: metrics.New(),
		tracker: status.NewTracker(start, status.Config{SensingHz: cfg.Sensing.Frequency}),
	}
	r.adc.Set(adc.ChannelReference, 18000)
	r.adc.Set(adc.ChannelBasket, 12000)
	r.adc.Set(adc.ChannelGroup, 12000)
	if group != 0 {
		r.adc.Set(adc.ChannelGroup, group)
	}

	sensor := func(th config.ThermistorConfig) controller.Sensor {
		return controller.Sensor{Channel: th.Channel, Known: float32(th.KnownResistance), Coefficients: th.Coefficients()}
	}
	ctlCfg := controller.Config{
		ReferenceChannel: cfg.ReferenceChannel,
		Basket:           sensor(cfg.Thermistors.Basket),
		Group:            sensor(cfg.Thermistors.Group),
		Capacity:         cfg.SensingCapacity(),
		InputPeriod:      cfg.TaskPeriod,
		SensingPeriod:    scheduler.Every(cfg.Sensing.Frequency),
		DisplayPeriod:    scheduler.Every(cfg.Display.Frequency),
		TargetMin:        float32(cfg.Target.Min),
		TargetMax:        float32(cfg.Target.Max),
		TargetStep:       float32(cfg.Target.Step),
		TargetDefault:    float32(cfg.Target.Default),
		TargetWindow:     cfg.Display.TargetWindow,
		Debounce:         cfg.GPIO.Debounce,
	}

	ctl, err := controller.New(ctlCfg, controller.Deps{
		ADC:       r.adc,
		Inputs:    r.inputs,
		Fan:       r.fan,
		Target:    input.NewButtons(),
		Canvas:    r.canvas,
		Telemetry: telemetry.NewWriter(r.stream),
		Metrics:   r.metrics,
		NewID:     func() string { return "shot-1" },
		OnShot: func(ev logic.ShotEvent) {
			if err := r.pub.Publish(ev); err != nil {
				t.Errorf("publish: %v", err)
			}
		},
	}, start)
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}
	r.ctl = ctl
	r.sched = scheduler.New(ctl.Tasks()...)
	return r
}

// run ticks the scheduler n times at 10 ms and mirrors the state into the
// tracker the way the main loop does.
func (r *rig) run(n int) {
	for i := 0; i < n; i++ {
		now := start.Add(time.Duration(i) * 10 * time.Millisecond)
		r.sched.Tick(now)
		r.tracker.Update(r.ctl.State())
	}
}

func levels(leverUp bool, n int) []gpio.Levels {
	out := make([]gpio.Levels, n)
	for i := range out {
		out[i] = gpio.Levels{LeverUp: leverUp}
	}
	return out
}

// TestIntegrationShot pulls a 300 ms shot through the whole pipeline: lever
// debounce, brew state machine, MQTT payloads, telemetry stream, status JSON
// and the web endpoint.
func TestIntegrationShot(t *testing.T) {
	// Lever reads up at 50 ms and down at 350 ms; with the 20 ms debounce the
	// shot runs from 70 ms to 370 ms.
	samples := append(levels(false, 5), levels(true, 30)...)
	samples = append(samples, gpio.Levels{})
	r := newRig(t, 0, samples...)

	r.run(50)

	// MQTT
	if len(r.pub.Events) != 2 {
		t.Fatalf("expected 2 shot events, got %d: %+v", len(r.pub.Events), r.pub.Events)
	}
	startEv, endEv := r.pub.Events[0], r.pub.Events[1]
	if startEv.Type != logic.EventShotStart || endEv.Type != logic.EventShotEnd {
		t.Fatalf("unexpected event order: %s, %s", startEv.Type, endEv.Type)
	}
	if !startEv.Timestamp.Equal(start.Add(70 * time.Millisecond)) {
		t.Errorf("shot started at %v", startEv.Timestamp.Sub(start))
	}
	if endEv.Elapsed != 300*time.Millisecond {
		t.Errorf("shot elapsed = %v, want 300ms", endEv.Elapsed)
	}

	var payload mqtt.Payload
	if err := json.Unmarshal(r.pub.Payloads[1], &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Shot.Event != "SHOT_END" || payload.Shot.ShotID != "shot-1" {
		t.Errorf("unexpected payload: %+v", payload.Shot)
	}
	if payload.Shot.ElapsedSeconds != 0.3 {
		t.Errorf("payload elapsed = %v, want 0.3", payload.Shot.ElapsedSeconds)
	}

	// Telemetry
	tr := telemetry.NewReader(r.stream)
	var records []telemetry.Record
	for {
		rec, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("telemetry: %v", err)
		}
		records = append(records, rec)
	}
	if len(records) != 50 {
		t.Fatalf("expected one record per sensing tick (50), got %d", len(records))
	}
	if tr.Skipped() != 0 {
		t.Errorf("aligned stream skipped %d bytes", tr.Skipped())
	}
	running := 0
	for _, rec := range records {
		if logic.MachineState(rec.State) == logic.StateRunning {
			running++
		}
	}
	if running == 0 {
		t.Error("no telemetry record while RUNNING")
	}
	last := records[len(records)-1]
	if logic.MachineState(last.State) != logic.StateStopped {
		t.Errorf("last record state = %d, want STOPPED", last.State)
	}
	if last.ElapsedTime < 0.299 || last.ElapsedTime > 0.301 {
		t.Errorf("stopwatch not frozen at 0.3 s: %v", last.ElapsedTime)
	}

	// Display ran at 4 Hz: 0, 250 ms.
	if r.canvas.Flushes != 2 {
		t.Errorf("display flushes = %d, want 2", r.canvas.Flushes)
	}

	// Status and web
	snap := r.tracker.Snapshot()
	if snap.Device.Machine != logic.StateStopped || snap.Device.Shots.Finished != 1 {
		t.Errorf("tracker out of date: %+v", snap.Device)
	}

	srv := httptest.NewServer(web.New("", r.tracker, r.metrics.Handler()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()
	var doc status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if doc.Status.Machine != "STOPPED" || doc.Status.ShotID != "shot-1" {
		t.Errorf("status = %s/%s", doc.Status.Machine, doc.Status.ShotID)
	}
	if doc.Status.ElapsedSeconds != 0.3 {
		t.Errorf("status elapsed = %v", doc.Status.ElapsedSeconds)
	}
}

func TestIntegrationFanFollowsGroup(t *testing.T) {
	// Raw 8000 against 18000 reads about 94.5 °C, above the 92 °C default.
	r := newRig(t, 8000, gpio.Levels{})
	r.run(3)

	if !r.fan.On || r.fan.Level() != 0 {
		t.Fatalf("fan should be on (line low when inverted), on=%v level=%d", r.fan.On, r.fan.Level())
	}
	if len(r.fan.History) != 1 {
		t.Errorf("fan should be written once, got %v", r.fan.History)
	}

	// The group cools below target.
	r.adc.Set(adc.ChannelGroup, 12000)
	// One second of samples flushes the smoothing window.
	for i := 3; i < 110; i++ {
		now := start.Add(time.Duration(i) * 10 * time.Millisecond)
		r.sched.Tick(now)
	}
	if r.fan.On {
		t.Error("fan should switch off once the smoothed group is below target")
	}

	if err := r.ctl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if r.fan.On {
		t.Error("fan should be off after Close")
	}
}

func TestIntegrationTelemetryFailureDoesNotStopControl(t *testing.T) {
	samples := append(levels(false, 5), levels(true, 10)...)
	r := newRig(t, 0, samples...)

	ctl, err := controller.New(controller.Config{
		Basket:        controller.Sensor{Channel: adc.ChannelBasket, Known: 9940},
		Group:         controller.Sensor{Channel: adc.ChannelGroup, Known: 9940},
		Capacity:      4,
		InputPeriod:   10 * time.Millisecond,
		SensingPeriod: 10 * time.Millisecond,
		DisplayPeriod: time.Second,
		TargetMin:     88,
		TargetMax:     98,
		TargetStep:    0.5,
		TargetDefault: 92,
	}, controller.Deps{
		ADC:       r.adc,
		Inputs:    r.inputs,
		Fan:       r.fan,
		Target:    input.NewButtons(),
		Telemetry: telemetry.NewWriter(failingWriter{}),
		OnShot:    func(ev logic.ShotEvent) { r.pub.Publish(ev) },
	}, start)
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}
	sched := scheduler.New(ctl.Tasks()...)
	for i := 0; i < 10; i++ {
		sched.Tick(start.Add(time.Duration(i) * 10 * time.Millisecond))
	}

	if ctl.State().Machine != logic.StateRunning {
		t.Errorf("machine = %s, want RUNNING", ctl.State().Machine)
	}
	if len(r.pub.Events) != 1 {
		t.Errorf("expected the shot start to publish, got %d events", len(r.pub.Events))
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("serial unplugged") }
