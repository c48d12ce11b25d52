// Package thermistor converts pull-up voltage-divider readings to NTC
// thermistor resistance, and resistance to temperature with the
// Steinhart-Hart model.
//
// All arithmetic is float32 so that values match the telemetry record width.
package thermistor

import "github.com/chewxy/math32"

// KelvinOffset converts between Kelvin and Celsius.
const KelvinOffset = 273.15

// DisconnectRatio is the smallest |vref/v| for which the divider is
// considered well-posed. Closer to 1 the measured voltage is within noise of
// the reference and the sensor is most likely disconnected.
const DisconnectRatio = 1.01

// Coefficients are the calibrated Steinhart-Hart coefficients of one
// thermistor: 1/T = A + B*ln(R) + C*ln(R)^3, T in Kelvin.
type Coefficients struct {
	A float32
	B float32
	C float32
}

// Temperature converts a resistance in ohms to degrees Celsius.
// Infinite, NaN or non-positive resistances return NaN.
func (c Coefficients) Temperature(resistance float32) float32 {
	if math32.IsNaN(resistance) || math32.IsInf(resistance, 0) || resistance <= 0 {
		return math32.NaN()
	}
	l := math32.Log(resistance)
	inverse := c.A + c.B*l + c.C*l*l*l
	return 1/inverse - KelvinOffset
}

// RatioResistance returns the unknown resistance of a pull-up divider given
// ratio = vref/v and the known series resistance. When |ratio| is below
// DisconnectRatio it returns +Inf.
func RatioResistance(ratio, known float32) float32 {
	if math32.Abs(ratio) < DisconnectRatio {
		return math32.Inf(1)
	}
	return known / (ratio - 1)
}

// Resistance infers the thermistor resistance from the reference voltage and
// the voltage measured at the divider midpoint.
func Resistance(vref, v, known float32) float32 {
	return RatioResistance(vref/v, known)
}
