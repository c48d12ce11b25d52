// Package config loads the controller configuration. Values are read once
// at startup and passed to constructors; nothing changes at runtime.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/espresso-shot/internal/thermistor"
)

// Config represents the application configuration.
type Config struct {
	Sensing          SensingConfig     `yaml:"sensing"`
	Display          DisplayConfig     `yaml:"display"`
	TaskPeriod       time.Duration     `yaml:"task_period"`
	ReferenceChannel int               `yaml:"reference_channel"`
	Thermistors      ThermistorsConfig `yaml:"thermistors"`
	Target           TargetConfig      `yaml:"target"`
	GPIO             GPIOConfig        `yaml:"gpio"`
	ADC              ADCConfig         `yaml:"adc"`
	Telemetry        TelemetryConfig   `yaml:"telemetry"`
	MQTT             MQTTConfig        `yaml:"mqtt"`
	HTTP             HTTPConfig        `yaml:"http"`
	Log              LogConfig         `yaml:"log"`
}

// SensingConfig sets the sensing rate and the smoothing window.
type SensingConfig struct {
	Frequency float64 `yaml:"frequency"` // Hz
	Capacity  int     `yaml:"capacity"`  // samples; 0 = one second at Frequency
}

// SensingCapacity returns the smoothing buffer capacity: Capacity if set,
// otherwise one second of samples.
func (c *Config) SensingCapacity() int {
	if c.Sensing.Capacity > 0 {
		return c.Sensing.Capacity
	}
	n := int(c.Sensing.Frequency)
	if n < 1 {
		n = 1
	}
	return n
}

// DisplayConfig selects the display and its refresh rate.
type DisplayConfig struct {
	Kind         string        `yaml:"kind"`      // ssd1306, terminal or none
	Frequency    float64       `yaml:"frequency"` // Hz
	TargetWindow time.Duration `yaml:"target_window"`
	I2CBus       string        `yaml:"i2c_bus"`
}

// ThermistorsConfig holds one entry per probe.
type ThermistorsConfig struct {
	Basket ThermistorConfig `yaml:"basket"`
	Group  ThermistorConfig `yaml:"group"`
}

// ThermistorConfig describes one probe and its divider.
type ThermistorConfig struct {
	A               float64 `yaml:"a"`
	B               float64 `yaml:"b"`
	C               float64 `yaml:"c"`
	KnownResistance float64 `yaml:"known_resistance"` // ohms
	Channel         int     `yaml:"channel"`
}

// Coefficients returns the Steinhart-Hart coefficients.
func (t ThermistorConfig) Coefficients() thermistor.Coefficients {
	return thermistor.Coefficients{A: float32(t.A), B: float32(t.B), C: float32(t.C)}
}

// TargetConfig sets the setpoint range and its input.
type TargetConfig struct {
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Step    float64 `yaml:"step"`
	Default float64 `yaml:"default"`
	Source  string  `yaml:"source"`  // buttons or potentiometer
	Channel int     `yaml:"channel"` // potentiometer ADC channel
	RawMax  int32   `yaml:"raw_max"` // potentiometer reading at full travel
}

// GPIOConfig selects the GPIO lines.
type GPIOConfig struct {
	Chip        string        `yaml:"chip"`
	Tilt        int           `yaml:"tilt"`
	Increase    int           `yaml:"increase"`
	Decrease    int           `yaml:"decrease"`
	Fan         int           `yaml:"fan"`
	FanInverted bool          `yaml:"fan_inverted"`
	Debounce    time.Duration `yaml:"debounce"`
}

// ADCConfig locates the ADS1115.
type ADCConfig struct {
	I2CBus  string `yaml:"i2c_bus"`
	Address uint16 `yaml:"address"`
}

// TelemetryConfig sets the serial link. An empty port disables telemetry.
type TelemetryConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// MQTTConfig sets the event broker. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker    string        `yaml:"broker"`
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// HTTPConfig sets the status server. An empty address disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Sensing: SensingConfig{
			Frequency: 100,
		},
		Display: DisplayConfig{
			Kind:         "ssd1306",
			Frequency:    4,
			TargetWindow: time.Second,
		},
		TaskPeriod:       10 * time.Millisecond,
		ReferenceChannel: 0,
		Thermistors: ThermistorsConfig{
			Basket: ThermistorConfig{
				A:               0.7729151421e-3,
				B:               2.052737727e-4,
				C:               1.427250141e-7,
				KnownResistance: 9940,
				Channel:         1,
			},
			Group: ThermistorConfig{
				A:               0.7729151421e-3,
				B:               2.052737727e-4,
				C:               1.427250141e-7,
				KnownResistance: 9940,
				Channel:         2,
			},
		},
		Target: TargetConfig{
			Min:     88,
			Max:     98,
			Step:    0.5,
			Default: 92,
			Source:  "buttons",
			Channel: 3,
			RawMax:  26400, // 4.95 V at 0.1875 mV/count
		},
		GPIO: GPIOConfig{
			Chip:        "gpiochip0",
			Tilt:        17,
			Increase:    27,
			Decrease:    22,
			Fan:         23,
			FanInverted: true,
			Debounce:    20 * time.Millisecond,
		},
		ADC: ADCConfig{
			Address: 0x48,
		},
		Telemetry: TelemetryConfig{
			Baud: 115200,
		},
		MQTT: MQTTConfig{
			Heartbeat: 15 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ensureDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// ensureDefaults fills zero values that have no meaningful zero.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Sensing.Frequency == 0 {
		c.Sensing.Frequency = def.Sensing.Frequency
	}
	if c.Sensing.Capacity == 0 {
		c.Sensing.Capacity = c.SensingCapacity()
	}
	if c.Display.Kind == "" {
		c.Display.Kind = def.Display.Kind
	}
	if c.Display.Frequency == 0 {
		c.Display.Frequency = def.Display.Frequency
	}
	if c.Display.TargetWindow == 0 {
		c.Display.TargetWindow = def.Display.TargetWindow
	}
	if c.TaskPeriod == 0 {
		c.TaskPeriod = def.TaskPeriod
	}
	if c.Thermistors.Basket.KnownResistance == 0 {
		c.Thermistors.Basket.KnownResistance = def.Thermistors.Basket.KnownResistance
	}
	if c.Thermistors.Group.KnownResistance == 0 {
		c.Thermistors.Group.KnownResistance = def.Thermistors.Group.KnownResistance
	}
	if c.Target.Step == 0 {
		c.Target.Step = def.Target.Step
	}
	if c.Target.Source == "" {
		c.Target.Source = def.Target.Source
	}
	if c.Target.RawMax == 0 {
		c.Target.RawMax = def.Target.RawMax
	}
	if c.GPIO.Chip == "" {
		c.GPIO.Chip = def.GPIO.Chip
	}
	if c.ADC.Address == 0 {
		c.ADC.Address = def.ADC.Address
	}
	if c.Telemetry.Baud == 0 {
		c.Telemetry.Baud = def.Telemetry.Baud
	}
	if c.MQTT.Heartbeat == 0 {
		c.MQTT.Heartbeat = def.MQTT.Heartbeat
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// Validate reports configuration that cannot run.
func (c *Config) Validate() error {
	var errs []error
	if c.Sensing.Frequency <= 0 {
		errs = append(errs, fmt.Errorf("sensing.frequency must be positive, got %v", c.Sensing.Frequency))
	}
	if c.Sensing.Capacity < 1 {
		errs = append(errs, fmt.Errorf("sensing.capacity must be at least 1, got %d", c.Sensing.Capacity))
	}
	if c.Display.Frequency <= 0 {
		errs = append(errs, fmt.Errorf("display.frequency must be positive, got %v", c.Display.Frequency))
	}
	switch c.Display.Kind {
	case "ssd1306", "terminal", "none":
	default:
		errs = append(errs, fmt.Errorf("display.kind must be ssd1306, terminal or none, got %q", c.Display.Kind))
	}
	if c.TaskPeriod <= 0 {
		errs = append(errs, fmt.Errorf("task_period must be positive, got %v", c.TaskPeriod))
	}
	if c.Target.Min > c.Target.Max {
		errs = append(errs, fmt.Errorf("target.min %v is above target.max %v", c.Target.Min, c.Target.Max))
	}
	if c.Target.Step <= 0 {
		errs = append(errs, fmt.Errorf("target.step must be positive, got %v", c.Target.Step))
	}
	switch c.Target.Source {
	case "buttons", "potentiometer":
	default:
		errs = append(errs, fmt.Errorf("target.source must be buttons or potentiometer, got %q", c.Target.Source))
	}
	for name, th := range map[string]ThermistorConfig{"basket": c.Thermistors.Basket, "group": c.Thermistors.Group} {
		if th.KnownResistance <= 0 {
			errs = append(errs, fmt.Errorf("thermistors.%s.known_resistance must be positive", name))
		}
		if th.Channel < 0 || th.Channel > 3 {
			errs = append(errs, fmt.Errorf("thermistors.%s.channel must be 0-3, got %d", name, th.Channel))
		}
	}
	if c.ReferenceChannel < 0 || c.ReferenceChannel > 3 {
		errs = append(errs, fmt.Errorf("reference_channel must be 0-3, got %d", c.ReferenceChannel))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
