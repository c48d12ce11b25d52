//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealInputs reads the switches from actual hardware using Linux GPIO
// character device.
type RealInputs struct {
	chip     *gpiocdev.Chip
	tilt     *gpiocdev.Line
	increase *gpiocdev.Line
	decrease *gpiocdev.Line
}

// NewRealInputs requests the tilt and button lines as inputs with pull-ups.
// A non-zero debounce also enables kernel debouncing on each line.
func NewRealInputs(pins Pins, debounce time.Duration) (*RealInputs, error) {
	chip, err := gpiocdev.NewChip(pins.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullUp}
	if debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(debounce))
	}

	r := &RealInputs{chip: chip}
	if r.tilt, err = chip.RequestLine(pins.Tilt, opts...); err != nil {
		r.Close()
		return nil, fmt.Errorf("request tilt pin %d: %w", pins.Tilt, err)
	}
	if r.increase, err = chip.RequestLine(pins.Increase, opts...); err != nil {
		r.Close()
		return nil, fmt.Errorf("request increase pin %d: %w", pins.Increase, err)
	}
	if r.decrease, err = chip.RequestLine(pins.Decrease, opts...); err != nil {
		r.Close()
		return nil, fmt.Errorf("request decrease pin %d: %w", pins.Decrease, err)
	}
	return r, nil
}

// Read returns the logical switch levels.
// The tilt switch closes to the supply when the lever is up (raw 1 = up).
// The buttons pull to ground when pressed (raw 0 = pressed).
func (r *RealInputs) Read() (Levels, error) {
	tilt, err := r.tilt.Value()
	if err != nil {
		return Levels{}, fmt.Errorf("read tilt pin: %w", err)
	}
	inc, err := r.increase.Value()
	if err != nil {
		return Levels{}, fmt.Errorf("read increase pin: %w", err)
	}
	dec, err := r.decrease.Value()
	if err != nil {
		return Levels{}, fmt.Errorf("read decrease pin: %w", err)
	}

	return Levels{
		LeverUp:  tilt == 1,
		Increase: inc == 0,
		Decrease: dec == 0,
	}, nil
}

// Close releases GPIO resources.
func (r *RealInputs) Close() error {
	var errs []error
	for name, l := range map[string]*gpiocdev.Line{
		"tilt":     r.tilt,
		"increase": r.increase,
		"decrease": r.decrease,
	} {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealFan drives the fan line. The transistor stage on the board inverts,
// so the line is normally driven low to turn the fan on.
type RealFan struct {
	chip     *gpiocdev.Chip
	line     outputLine
	inverted bool
}

// outputLine is the part of *gpiocdev.Line the fan uses.
type outputLine interface {
	SetValue(value int) error
	Close() error
}

// NewRealFan requests the fan line as an output, initially off.
func NewRealFan(chipName string, pin int, inverted bool) (*RealFan, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(LineLevel(false, inverted)))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request fan pin %d: %w", pin, err)
	}
	return &RealFan{chip: chip, line: line, inverted: inverted}, nil
}

// Set drives the line for the logical fan state.
func (f *RealFan) Set(on bool) error {
	if err := f.line.SetValue(LineLevel(on, f.inverted)); err != nil {
		return fmt.Errorf("set fan pin: %w", err)
	}
	return nil
}

// Close turns the fan off and releases the line. The line stays an output
// at the off level; a floating pin would switch the inverting stage on.
func (f *RealFan) Close() error {
	var errs []error
	if f.line != nil {
		if err := f.line.SetValue(LineLevel(false, f.inverted)); err != nil {
			errs = append(errs, fmt.Errorf("switch fan off: %w", err))
		}
		if err := f.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close fan pin: %w", err))
		}
	}
	if f.chip != nil {
		if err := f.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
