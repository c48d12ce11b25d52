// Package display renders the controller state on a small monochrome
// display: temperatures in the header row and the shot timer in an inverted
// box underneath.
package display

import (
	"fmt"
	"math"
	"time"
)

// Disconnected is shown in place of a temperature that cannot be real.
const Disconnected = "--- C"

// MaxElapsed is the longest time shown; longer shots display as this.
const MaxElapsed = 3599 * time.Second

// FormatTemperature renders celsius as a right-justified three digit integer
// part and one decimal, e.g. " 92.5C". Values at or below -273 °C, NaN and
// infinities render as Disconnected.
func FormatTemperature(celsius float32) string {
	c := float64(celsius)
	if math.IsNaN(c) || math.IsInf(c, 0) || !(c > -273) {
		return Disconnected
	}
	integer := int(c)
	decimal := int(math.Abs(c)*10) % 10
	if c < 0 && integer == 0 {
		return fmt.Sprintf("%3s.%1dC", "-0", decimal)
	}
	return fmt.Sprintf("%3d.%1dC", integer, decimal)
}

// FormatElapsed renders d as MM:SS.D, clamped to [0, MaxElapsed].
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d > MaxElapsed {
		d = MaxElapsed
	}
	tenths := int(d / (100 * time.Millisecond))
	secs := tenths / 10
	return fmt.Sprintf("%02d:%02d.%1d", secs/60, secs%60, tenths%10)
}
