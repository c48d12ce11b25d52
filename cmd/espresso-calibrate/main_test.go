package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/espresso-shot/internal/telemetry"
	"github.com/sweeney/espresso-shot/internal/thermistor"
)

var probe = thermistor.Coefficients{A: 0.7729151421e-3, B: 2.052737727e-4, C: 1.427250141e-7}

// script returns a means function that yields the given resistances in turn.
// The group probe reads 10% higher than the basket.
func script(ohms ...float64) func() (float64, float64, int) {
	i := 0
	return func() (float64, float64, int) {
		r := ohms[i]
		i++
		return r, r * 1.1, 50
	}
}

func parseSnippet(t *testing.T, out string) snippet {
	t.Helper()
	idx := strings.Index(out, "thermistors:")
	require.GreaterOrEqual(t, idx, 0, "no snippet in output:\n%s", out)
	var s snippet
	require.NoError(t, yaml.Unmarshal([]byte(out[idx:]), &s))
	return s
}

func fitted(c coefficientsYAML) thermistor.Coefficients {
	return thermistor.Coefficients{A: float32(c.A), B: float32(c.B), C: float32(c.C)}
}

func TestCalibrateRecoversCoefficients(t *testing.T) {
	ohms := []float64{30000, 15000, 8000}
	var in strings.Builder
	for _, r := range ohms {
		fmt.Fprintf(&in, "%.6f\n", probe.Temperature(float32(r)))
	}

	var out bytes.Buffer
	require.NoError(t, calibrate(strings.NewReader(in.String()), &out, script(ohms...), false))

	s := parseSnippet(t, out.String())
	require.Contains(t, s.Thermistors, "basket")
	require.Contains(t, s.Thermistors, "group")

	basket := fitted(s.Thermistors["basket"])
	group := fitted(s.Thermistors["group"])
	for _, r := range ohms {
		want := probe.Temperature(float32(r))
		assert.InDelta(t, want, basket.Temperature(float32(r)), 0.01, "basket at %v ohm", r)
		// The group saw 10% more resistance at the same temperatures.
		assert.InDelta(t, want, group.Temperature(float32(r*1.1)), 0.01, "group at %v ohm", r*1.1)
	}
}

func TestCalibrateGroupOnly(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("60\n80\n100\n")
	require.NoError(t, calibrate(in, &out, script(40000, 19000, 9500), true))

	s := parseSnippet(t, out.String())
	assert.Contains(t, s.Thermistors, "group")
	assert.NotContains(t, s.Thermistors, "basket")
}

func TestCalibrateRepromptsOnBadInput(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("hot\n60\n\n80\n100\n")
	require.NoError(t, calibrate(in, &out, script(40000, 19000, 9500), true))

	assert.Equal(t, 2, strings.Count(out.String(), "Please enter a number."))
	assert.Equal(t, 2, strings.Count(out.String(), "Temperature 1: "))
	assert.Equal(t, 2, strings.Count(out.String(), "Temperature 2: "))
}

func TestCalibrateWaitsForTelemetry(t *testing.T) {
	calls := 0
	means := func() (float64, float64, int) {
		calls++
		if calls == 1 {
			return 0, 0, 0
		}
		r := []float64{40000, 19000, 9500}[calls-2]
		return r, r, 10
	}

	var out bytes.Buffer
	require.NoError(t, calibrate(strings.NewReader("60\n60\n80\n100\n"), &out, means, true))
	assert.Contains(t, out.String(), "No telemetry received yet.")
}

func TestCalibrateInputEnds(t *testing.T) {
	var out bytes.Buffer
	err := calibrate(strings.NewReader("60\n80\n"), &out, script(40000, 19000), false)
	assert.ErrorContains(t, err, "after 2 of 3")
}

func TestCalibrateDegenerate(t *testing.T) {
	var out bytes.Buffer
	err := calibrate(strings.NewReader("60\n80\n100\n"), &out, script(20000, 20000, 20000), true)
	assert.ErrorIs(t, err, thermistor.ErrDegenerate)
}

func TestCollect(t *testing.T) {
	var stream bytes.Buffer
	for _, r := range []float32{100, 200, 300} {
		b := telemetry.Record{ElapsedTime: 0, BasketResistance: r, GroupResistance: 2 * r, State: 3}.Encode()
		stream.Write(b[:])
	}

	col := newCollector(2)
	_, _, n := col.Means()
	assert.Zero(t, n)

	require.NoError(t, collect(&stream, col))

	basket, group, n := col.Means()
	assert.Equal(t, 3, n)
	assert.InDelta(t, 250, basket, 1e-6)
	assert.InDelta(t, 500, group, 1e-6)
}
