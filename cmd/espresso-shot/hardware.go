package main

import (
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/periph/conn/i2c"

	"github.com/sweeney/espresso-shot/internal/adc"
	"github.com/sweeney/espresso-shot/internal/config"
	"github.com/sweeney/espresso-shot/internal/display"
	"github.com/sweeney/espresso-shot/internal/gpio"
)

// Simulated machine: a 100k NTC (B 3950) on each probe, a 3.3 V reference
// and a heat source the group settles towards when the fan is off.
const (
	simVref   = 3.3
	simHeatTo = 96
	simR25    = 100000
	simBeta   = 3950
	simBrew   = 30 * time.Second
	simIdle   = 30 * time.Second
)

// hardware holds the opened devices. Close releases them in reverse order.
type hardware struct {
	adc     adc.Reader
	inputs  gpio.Inputs
	fan     gpio.Fan
	canvas  display.Canvas
	closers []io.Closer

	// The ADC bus, shared with the panel when both sit on it.
	bus     i2c.BusCloser
	busName string
}

func (h *hardware) add(c io.Closer) {
	h.closers = append(h.closers, c)
}

func (h *hardware) Close() error {
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i].Close(); err != nil {
			log.WithError(err).Warn("close device")
		}
	}
	h.closers = nil
	return nil
}

func openHardware(cfg *config.Config, simulate bool) (_ *hardware, err error) {
	hw := &hardware{}
	defer func() {
		if err != nil {
			hw.Close()
		}
	}()

	if simulate {
		openSimulated(cfg, hw)
	} else if err := openReal(cfg, hw); err != nil {
		return nil, err
	}

	switch cfg.Display.Kind {
	case "terminal":
		term, err := display.NewTerminal()
		if err != nil {
			return nil, err
		}
		hw.canvas = term
		hw.add(term)
	case "ssd1306":
		bus := hw.bus
		if bus == nil || cfg.Display.I2CBus != hw.busName {
			if bus, err = adc.OpenBus(cfg.Display.I2CBus); err != nil {
				return nil, err
			}
			hw.add(bus)
		}
		oled, err := display.NewOLED(bus)
		if err != nil {
			return nil, err
		}
		hw.canvas = oled
		hw.add(oled)
	case "none":
	default:
		return nil, fmt.Errorf("unknown display kind %q", cfg.Display.Kind)
	}
	return hw, nil
}

func openReal(cfg *config.Config, hw *hardware) error {
	bus, err := adc.OpenBus(cfg.ADC.I2CBus)
	if err != nil {
		return err
	}
	hw.add(bus)
	hw.bus, hw.busName = bus, cfg.ADC.I2CBus

	ads, err := adc.NewADS1115(bus, cfg.ADC.Address)
	if err != nil {
		return err
	}
	hw.adc = ads
	hw.add(ads)

	pins := gpio.Pins{
		Chip:     cfg.GPIO.Chip,
		Tilt:     cfg.GPIO.Tilt,
		Increase: cfg.GPIO.Increase,
		Decrease: cfg.GPIO.Decrease,
		Fan:      cfg.GPIO.Fan,
	}
	inputs, err := gpio.NewRealInputs(pins, cfg.GPIO.Debounce)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	hw.inputs = inputs
	hw.add(inputs)

	fan, err := gpio.NewRealFan(pins.Chip, pins.Fan, cfg.GPIO.FanInverted)
	if err != nil {
		return fmt.Errorf("init fan: %w", err)
	}
	hw.fan = fan
	hw.add(fan)
	return nil
}

func openSimulated(cfg *config.Config, hw *hardware) {
	probe := func(t config.ThermistorConfig, celsius float64) *adc.SimProbe {
		return &adc.SimProbe{
			Channel: t.Channel,
			Known:   t.KnownResistance,
			R25:     simR25,
			Beta:    simBeta,
			Celsius: celsius,
		}
	}
	sim := adc.NewSimulator(simVref, simHeatTo, time.Now,
		probe(cfg.Thermistors.Basket, 85),
		probe(cfg.Thermistors.Group, 90),
	)
	hw.adc = sim
	hw.add(sim)
	hw.inputs = gpio.NewScriptedInputs(simBrew, simIdle, time.Now)
	hw.add(hw.inputs)
	hw.fan = &simFan{sim: sim}
	hw.add(hw.fan)
}

// simFan feeds the fan decision back into the thermal model.
type simFan struct {
	sim *adc.Simulator
	on  bool
}

func (f *simFan) Set(on bool) error {
	f.on = on
	f.sim.SetCooling(on)
	return nil
}

func (f *simFan) Close() error {
	return f.Set(false)
}
