// Package input resolves the target temperature from the operator controls.
// Two interchangeable sources exist: a pair of increment/decrement buttons
// and an analog potentiometer. One is selected at configuration time.
package input

import (
	"fmt"

	"github.com/sweeney/espresso-shot/internal/adc"
	"github.com/sweeney/espresso-shot/internal/logic"
)

// Source applies operator input to the target setpoint.
type Source interface {
	// Update applies one debounced input sample to t and reports whether
	// the quantized target changed.
	Update(t *logic.Target, in logic.Input) (bool, error)

	// Name identifies the source in logs and status.
	Name() string
}

// Buttons steps the target on the press edge of either button. Increase
// wins when both are pressed on the same sample.
type Buttons struct {
	prevIncrease bool
	prevDecrease bool
}

// NewButtons creates a button source with both buttons released.
func NewButtons() *Buttons {
	return &Buttons{}
}

// Update implements Source.
func (b *Buttons) Update(t *logic.Target, in logic.Input) (bool, error) {
	incEdge := in.Increase && !b.prevIncrease
	decEdge := in.Decrease && !b.prevDecrease
	b.prevIncrease = in.Increase
	b.prevDecrease = in.Decrease

	switch {
	case incEdge:
		return t.Increase(in.Time), nil
	case decEdge:
		return t.Decrease(in.Time), nil
	}
	return false, nil
}

// Name implements Source.
func (b *Buttons) Name() string { return "buttons" }

// Potentiometer maps an analog control linearly onto the target range.
type Potentiometer struct {
	reader  adc.Reader
	channel int
	rawMax  int32
}

// NewPotentiometer reads the control on channel; rawMax is the reading at
// full travel.
func NewPotentiometer(r adc.Reader, channel int, rawMax int32) *Potentiometer {
	if rawMax <= 0 {
		rawMax = 1
	}
	return &Potentiometer{reader: r, channel: channel, rawMax: rawMax}
}

// Update implements Source. Readings outside [0, rawMax] are clamped.
func (p *Potentiometer) Update(t *logic.Target, in logic.Input) (bool, error) {
	raw, err := p.reader.Raw(p.channel)
	if err != nil {
		return false, fmt.Errorf("read potentiometer: %w", err)
	}
	lo, hi := t.RangeHalfDegrees()
	return t.SetHalfDegrees(MapRange(raw, p.rawMax, lo, hi), in.Time), nil
}

// Name implements Source.
func (p *Potentiometer) Name() string { return "potentiometer" }

// MapRange maps raw in [0, rawMax] linearly onto [lo, hi] with integer
// arithmetic, so a steady reading always yields the same value.
func MapRange(raw, rawMax int32, lo, hi int) int {
	if raw < 0 {
		raw = 0
	}
	if raw > rawMax {
		raw = rawMax
	}
	return lo + int(int64(raw)*int64(hi-lo)/int64(rawMax))
}

// New returns the source named by kind.
func New(kind string, r adc.Reader, channel int, rawMax int32) (Source, error) {
	switch kind {
	case "", "buttons":
		return NewButtons(), nil
	case "potentiometer":
		if r == nil {
			return nil, fmt.Errorf("potentiometer source needs an adc reader")
		}
		return NewPotentiometer(r, channel, rawMax), nil
	}
	return nil, fmt.Errorf("unknown target source %q", kind)
}
