package thermistor

import (
	"errors"
	"fmt"
	"math"
)

// Pair is one calibration point: a reference temperature in Celsius and the
// thermistor resistance observed at that temperature.
type Pair struct {
	Celsius    float64
	Resistance float64
}

// ErrDegenerate is returned when calibration points do not determine a model.
var ErrDegenerate = errors.New("thermistor: degenerate calibration points")

// Fit computes Steinhart-Hart coefficients that pass through three
// calibration points. It works in float64 and rounds the result.
func Fit(pairs [3]Pair) (Coefficients, error) {
	var l, y [3]float64
	for i, p := range pairs {
		if p.Resistance <= 0 || math.IsInf(p.Resistance, 0) || math.IsNaN(p.Resistance) {
			return Coefficients{}, fmt.Errorf("point %d: invalid resistance %v", i+1, p.Resistance)
		}
		l[i] = math.Log(p.Resistance)
		y[i] = 1 / (p.Celsius + KelvinOffset)
	}

	if l[0] == l[1] || l[0] == l[2] || l[1] == l[2] {
		return Coefficients{}, ErrDegenerate
	}

	g2 := (y[1] - y[0]) / (l[1] - l[0])
	g3 := (y[2] - y[0]) / (l[2] - l[0])

	sum := l[0] + l[1] + l[2]
	if sum == 0 {
		return Coefficients{}, ErrDegenerate
	}
	c := ((g3 - g2) / (l[2] - l[1])) / sum
	b := g2 - c*(l[0]*l[0]+l[0]*l[1]+l[1]*l[1])
	a := y[0] - (b+l[0]*l[0]*c)*l[0]

	return Coefficients{A: float32(a), B: float32(b), C: float32(c)}, nil
}
