package thermistor

import (
	"math"
	"testing"

	"github.com/chewxy/math32"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var espresso = Coefficients{A: 0.7729151421e-3, B: 2.052737727e-4, C: 1.427250141e-7}

func TestRatioResistance(t *testing.T) {
	tests := []struct {
		name  string
		ratio float32
		known float32
		want  float32
	}{
		{name: "ratio 1.5", ratio: 1.5, known: 9940, want: 19880},
		{name: "ratio 2", ratio: 2, known: 10000, want: 10000},
		{name: "ratio 11", ratio: 11, known: 10000, want: 1000},
		{name: "exactly at threshold", ratio: 1.01, known: 10000, want: 10000 / 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RatioResistance(tt.ratio, tt.known)
			assert.InEpsilon(t, tt.want, got, 1e-4)
		})
	}
}

func TestRatioResistanceDisconnected(t *testing.T) {
	for _, ratio := range []float32{1.0, 1.005, 0.5, 0, -1.0, -1.009} {
		got := RatioResistance(ratio, 9940)
		assert.True(t, math32.IsInf(got, 1), "ratio %v: expected +Inf, got %v", ratio, got)
	}
}

func TestResistance(t *testing.T) {
	got := Resistance(3.0, 2.0, 9940)
	assert.InEpsilon(t, float32(19880), got, 1e-4)

	// Measured voltage at the reference: the sensor is open.
	assert.True(t, math32.IsInf(Resistance(3.3, 3.3, 9940), 1))
}

func TestTemperature(t *testing.T) {
	// 19880 ohms on the espresso calibration is roughly 66.6C.
	got := espresso.Temperature(19880)
	assert.InDelta(t, 66.6, got, 0.2)

	want := 1/(0.7729151421e-3+2.052737727e-4*math.Log(19880)+1.427250141e-7*math.Pow(math.Log(19880), 3)) - 273.15
	assert.InDelta(t, want, got, 0.01)
}

func TestTemperatureNonNumeric(t *testing.T) {
	for _, r := range []float32{math32.Inf(1), math32.NaN(), 0, -5} {
		got := espresso.Temperature(r)
		assert.True(t, math32.IsNaN(got), "resistance %v: expected NaN, got %v", r, got)
	}
}

func TestPropertyTemperatureDecreasing(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	props := gopter.NewProperties(params)

	props.Property("temperature decreases as resistance grows", prop.ForAll(
		func(r float64, step float64) bool {
			lo := float32(r)
			hi := float32(r * step)
			return espresso.Temperature(hi) < espresso.Temperature(lo)
		},
		gen.Float64Range(100, 1e6),
		gen.Float64Range(1.05, 10),
	))

	props.TestingRun(t)
}

func TestPropertyDisconnectSentinel(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	props := gopter.NewProperties(params)

	props.Property("ill-posed divider never yields a finite resistance", prop.ForAll(
		func(ratio float64, known float64) bool {
			return math32.IsInf(RatioResistance(float32(ratio), float32(known)), 1)
		},
		gen.Float64Range(-1.0099, 1.0099),
		gen.Float64Range(1, 1e6),
	))

	props.TestingRun(t)
}

func TestFitReproducesPoints(t *testing.T) {
	model := func(r float64) float64 {
		l := math.Log(r)
		return 1/(0.7729151421e-3+2.052737727e-4*l+1.427250141e-7*l*l*l) - KelvinOffset
	}

	resistances := []float64{60000, 20000, 6000}
	var pairs [3]Pair
	for i, r := range resistances {
		pairs[i] = Pair{Celsius: model(r), Resistance: r}
	}

	c, err := Fit(pairs)
	require.NoError(t, err)

	for _, r := range append(resistances, 12000) {
		assert.InDelta(t, model(r), float64(c.Temperature(float32(r))), 0.05, "resistance %v", r)
	}
}

func TestFitDegenerate(t *testing.T) {
	_, err := Fit([3]Pair{{20, 10000}, {40, 10000}, {60, 3000}})
	assert.ErrorIs(t, err, ErrDegenerate)

	_, err = Fit([3]Pair{{20, 10000}, {40, math.Inf(1)}, {60, 3000}})
	assert.Error(t, err)
}
