// Package adc reads the analog front end: a reference channel and the two
// thermistor dividers, all sharing the same supply.
// The real implementation drives an ADS1115 over I2C.
// The fake and the simulator allow running without hardware.
package adc

import "fmt"

// VoltsPerCount is the ADS1115 LSB size at gain 2/3 (±6.144 V full scale).
const VoltsPerCount = 0.0001875

// Channels on the ADS1115.
const (
	ChannelReference = 0
	ChannelBasket    = 1
	ChannelGroup     = 2
	ChannelAux       = 3
	NumChannels      = 4
)

// Reader reads raw conversion results.
type Reader interface {
	// Raw returns the signed conversion result for a single-ended channel.
	Raw(channel int) (int32, error)

	// Close releases the device.
	Close() error
}

// CountsToVolts converts a raw conversion result to volts.
func CountsToVolts(raw int32) float32 {
	return float32(raw) * VoltsPerCount
}

// Voltage reads a channel and converts it to volts.
func Voltage(r Reader, channel int) (float32, error) {
	raw, err := r.Raw(channel)
	if err != nil {
		return 0, err
	}
	return CountsToVolts(raw), nil
}

// Ratio reads the reference channel and then a measurement channel and
// returns Vref/V. A zero measurement yields +Inf, which the resistance model
// treats like any other out-of-range ratio.
func Ratio(r Reader, reference, channel int) (float32, error) {
	vref, err := Voltage(r, reference)
	if err != nil {
		return 0, fmt.Errorf("read reference channel %d: %w", reference, err)
	}
	v, err := Voltage(r, channel)
	if err != nil {
		return 0, fmt.Errorf("read channel %d: %w", channel, err)
	}
	return vref / v, nil
}

func checkChannel(channel int) error {
	if channel < 0 || channel >= NumChannels {
		return fmt.Errorf("adc: invalid channel %d", channel)
	}
	return nil
}
