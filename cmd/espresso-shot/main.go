// Command espresso-shot runs the espresso machine controller: it measures the
// basket and group temperatures, times shots from the lever, drives the
// cooling fan and the display, and streams telemetry over serial.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

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

// systemPeriod is how often host statistics are refreshed for the status page.
const systemPeriod = 10 * time.Second

func main() {
	configPath := flag.String("config", "/etc/espresso-shot.yaml", "Configuration file (defaults are used if missing)")
	simulate := flag.Bool("simulate", false, "Run against simulated sensors and switches on a terminal display")
	printState := flag.Bool("print-state", false, "Print sensor readings and switch levels and exit")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn or error (overrides config)")
	logFile := flag.String("log-file", "", "Write logs to this file instead of stderr")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	httpAddr := flag.String("http", "", "HTTP status address (overrides config)")
	port := flag.String("telemetry-port", "", "Serial port for telemetry (overrides config)")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			cfg.Log.Level = *logLevel
		case "broker":
			cfg.MQTT.Broker = *broker
		case "http":
			cfg.HTTP.Addr = *httpAddr
		case "telemetry-port":
			cfg.Telemetry.Port = *port
		}
	})
	if *simulate && cfg.Display.Kind == "ssd1306" {
		cfg.Display.Kind = "terminal"
	}

	if err := setupLogging(cfg.Log.Level, *logFile); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, *simulate, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func setupLogging(level, file string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		log.SetOutput(f)
	}
	return nil
}

func run(cfg *config.Config, simulate, printState bool) error {
	start := time.Now()

	hw, err := openHardware(cfg, simulate)
	if err != nil {
		return err
	}
	defer hw.Close()

	target, err := input.New(cfg.Target.Source, hw.adc, cfg.Target.Channel, cfg.Target.RawMax)
	if err != nil {
		return fmt.Errorf("target source: %w", err)
	}

	// Print state mode
	if printState {
		ctl, err := controller.New(controllerConfig(cfg), controller.Deps{
			ADC: hw.adc, Inputs: hw.inputs, Fan: hw.fan, Target: target,
		}, start)
		if err != nil {
			return fmt.Errorf("init controller: %w", err)
		}
		levels, err := hw.inputs.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		writeState(os.Stdout, ctl.State(), levels)
		return nil
	}

	m := metrics.New()

	var tw *telemetry.Writer
	if cfg.Telemetry.Port != "" {
		p, err := telemetry.OpenSerial(cfg.Telemetry.Port, cfg.Telemetry.Baud)
		if err != nil {
			return err
		}
		tw = telemetry.NewWriter(p)
		defer tw.Close()
		log.Printf("telemetry on %s at %d baud", cfg.Telemetry.Port, cfg.Telemetry.Baud)
	}

	// Initialize MQTT
	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = noPublisher{}
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, "espresso-shot")
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher = p
	}
	defer publisher.Close()

	ctl, err := controller.New(controllerConfig(cfg), controller.Deps{
		ADC:       hw.adc,
		Inputs:    hw.inputs,
		Fan:       hw.fan,
		Target:    target,
		Canvas:    hw.canvas,
		Telemetry: tw,
		Metrics:   m,
		OnShot: func(ev logic.ShotEvent) {
			if err := publisher.Publish(ev); err != nil {
				log.Printf("publish error: %v", err)
			}
		},
	}, start)
	if err != nil {
		return fmt.Errorf("init controller: %w", err)
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(start, statusConfig(cfg))
	tracker.Update(ctl.State())
	refreshSystem(tracker)

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else if cfg.MQTT.Broker != "" {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, m.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	sched := scheduler.New(ctl.Tasks()...)
	sched.Add(&scheduler.Task{
		Name:   "system",
		Period: systemPeriod,
		Run:    func(time.Time) { go refreshSystem(tracker) },
	})

	log.WithFields(log.Fields{
		"sensing_hz": cfg.Sensing.Frequency,
		"display_hz": cfg.Display.Frequency,
		"task":       cfg.TaskPeriod,
		"display":    cfg.Display.Kind,
		"broker":     cfg.MQTT.Broker,
		"simulate":   simulate,
	}).Info("started")

	ticker := time.NewTicker(cfg.TaskPeriod)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	if term, ok := hw.canvas.(*display.Terminal); ok {
		term.WatchQuit(func() {
			select {
			case sigCh <- syscall.SIGINT:
			default:
			}
		})
	}

	return runLoop(ctl, sched, publisher, publisher, tracker, cfg.MQTT.Heartbeat, time.Now, ticker.C, sigCh)
}

func runLoop(ctl *controller.Controller, sched *scheduler.Scheduler, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := now()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if err := ctl.Close(); err != nil {
				log.Printf("fan off: %v", err)
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				tracker.Update(ctl.State())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			sched.Tick(t)

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(ctl.State())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			if heartbeat <= 0 || t.Sub(lastHeartbeat) < heartbeat {
				continue
			}
			lastHeartbeat = t
			state := ctl.State()
			log.WithFields(log.Fields{
				"state":   state.Machine,
				"group":   display.FormatTemperature(state.GroupTemperature),
				"basket":  display.FormatTemperature(state.BasketTemperature),
				"started": state.Shots.Started,
			}).Info("heartbeat")

			hbEvent := mqtt.SystemEvent{Timestamp: t, Event: "HEARTBEAT"}
			if tracker != nil {
				hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	}
}

func refreshSystem(tracker *status.Tracker) {
	info, err := status.CollectSystem()
	if err != nil {
		log.WithError(err).Debug("host statistics incomplete")
	}
	tracker.SetSystem(info)
}

func controllerConfig(cfg *config.Config) controller.Config {
	sensor := func(t config.ThermistorConfig) controller.Sensor {
		return controller.Sensor{
			Channel:      t.Channel,
			Known:        float32(t.KnownResistance),
			Coefficients: t.Coefficients(),
		}
	}
	return controller.Config{
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
}

func statusConfig(cfg *config.Config) status.Config {
	return status.Config{
		SensingHz:     cfg.Sensing.Frequency,
		DisplayHz:     cfg.Display.Frequency,
		TaskPeriodMs:  cfg.TaskPeriod.Milliseconds(),
		Capacity:      cfg.SensingCapacity(),
		DebounceMs:    cfg.GPIO.Debounce.Milliseconds(),
		HeartbeatMs:   cfg.MQTT.Heartbeat.Milliseconds(),
		TargetSource:  cfg.Target.Source,
		Broker:        cfg.MQTT.Broker,
		HTTPAddr:      cfg.HTTP.Addr,
		TelemetryPort: cfg.Telemetry.Port,
	}
}

// writeState prints one reading of every sensor and switch.
func writeState(w io.Writer, s controller.State, levels gpio.Levels) {
	fmt.Fprintf(w, "Basket: %s (%.0f ohm)\n", display.FormatTemperature(s.BasketTemperature), s.BasketResistance)
	fmt.Fprintf(w, "Group:  %s (%.0f ohm)\n", display.FormatTemperature(s.GroupTemperature), s.GroupResistance)
	fmt.Fprintf(w, "Target: %s (%s)\n", display.FormatTemperature(s.Target), s.TargetSource)
	fmt.Fprintf(w, "Lever: %s, Increase: %s, Decrease: %s\n",
		upDown(levels.LeverUp), pressed(levels.Increase), pressed(levels.Decrease))
}

func upDown(up bool) string {
	if up {
		return "UP"
	}
	return "DOWN"
}

func pressed(on bool) string {
	if on {
		return "PRESSED"
	}
	return "RELEASED"
}

// noPublisher stands in when MQTT is disabled.
type noPublisher struct{}

func (noPublisher) Publish(logic.ShotEvent) error        { return nil }
func (noPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (noPublisher) Close() error                         { return nil }
func (noPublisher) IsConnected() bool                    { return false }
