//go:build !linux

package gpio

import (
	"errors"
	"time"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealInputs is not available on non-Linux platforms.
type RealInputs struct{}

// NewRealInputs returns an error on non-Linux platforms.
func NewRealInputs(pins Pins, debounce time.Duration) (*RealInputs, error) {
	return nil, errUnsupported
}

// Read is not implemented on non-Linux platforms.
func (r *RealInputs) Read() (Levels, error) {
	return Levels{}, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RealInputs) Close() error {
	return nil
}

// RealFan is not available on non-Linux platforms.
type RealFan struct{}

// NewRealFan returns an error on non-Linux platforms.
func NewRealFan(chipName string, pin int, inverted bool) (*RealFan, error) {
	return nil, errUnsupported
}

// Set is not implemented on non-Linux platforms.
func (f *RealFan) Set(on bool) error {
	return errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (f *RealFan) Close() error {
	return nil
}
