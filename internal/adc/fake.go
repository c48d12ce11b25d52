package adc

import "math"

// Fake is a test double returning preset channel values.
type Fake struct {
	// Values holds the raw result for each channel.
	Values [NumChannels]int32

	// ReadError, if set, will be returned by Raw().
	ReadError error

	// Reads counts Raw calls per channel.
	Reads [NumChannels]int

	// Closed tracks if Close was called
	Closed bool
}

// NewFake creates a Fake with every channel at zero.
func NewFake() *Fake {
	return &Fake{}
}

// Set stores a raw value for a channel.
func (f *Fake) Set(channel int, raw int32) {
	f.Values[channel] = raw
}

// SetVolts stores the raw value nearest to volts.
func (f *Fake) SetVolts(channel int, volts float64) {
	f.Values[channel] = int32(math.Round(volts / VoltsPerCount))
}

// Raw returns the preset value for a channel.
func (f *Fake) Raw(channel int) (int32, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	f.Reads[channel]++
	return f.Values[channel], nil
}

// Close marks the fake as closed.
func (f *Fake) Close() error {
	f.Closed = true
	return nil
}
