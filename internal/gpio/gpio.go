// Package gpio provides the switch inputs and the fan output with hardware
// abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Levels is one sample of the operator switches in logical form.
type Levels struct {
	LeverUp  bool // tilt switch closed
	Increase bool // target + button pressed
	Decrease bool // target - button pressed
}

// Inputs reads the tilt switch and the target buttons.
type Inputs interface {
	// Read returns the logical switch levels.
	// The buttons are active low: raw 0 = pressed.
	Read() (Levels, error)

	// Close releases GPIO resources.
	Close() error
}

// Fan drives the cooling fan line.
type Fan interface {
	// Set switches the fan. on is the logical decision; any inversion
	// needed by the driver stage is applied by the implementation.
	Set(on bool) error

	// Close turns the fan off and releases the line.
	Close() error
}

// Default pin definitions (BCM numbering)
const (
	PinTilt     = 17
	PinIncrease = 27
	PinDecrease = 22
	PinFan      = 23
)

// Pins selects the lines used by the real implementation.
type Pins struct {
	Chip     string
	Tilt     int
	Increase int
	Decrease int
	Fan      int
}

// DefaultPins returns the standard wiring on gpiochip0.
func DefaultPins() Pins {
	return Pins{
		Chip:     "gpiochip0",
		Tilt:     PinTilt,
		Increase: PinIncrease,
		Decrease: PinDecrease,
		Fan:      PinFan,
	}
}

// LineLevel returns the physical output level for a logical fan state.
func LineLevel(on, inverted bool) int {
	if on != inverted {
		return 1
	}
	return 0
}
