package input

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/espresso-shot/internal/adc"
	"github.com/sweeney/espresso-shot/internal/logic"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func TestButtonsEdgeTriggered(t *testing.T) {
	tg := logic.NewTarget(88, 98, 0.5, 92, t0)
	b := NewButtons()

	// Holding the button only steps once.
	var changes int
	for i := 0; i < 10; i++ {
		changed, err := b.Update(tg, logic.Input{Increase: true, Time: at(i * 10)})
		require.NoError(t, err)
		if changed {
			changes++
		}
	}
	assert.Equal(t, 1, changes)
	assert.Equal(t, float32(92.5), tg.Celsius())
	assert.Equal(t, at(0), tg.LastChange())

	// Release then press again.
	b.Update(tg, logic.Input{Time: at(200)})
	changed, _ := b.Update(tg, logic.Input{Increase: true, Time: at(210)})
	assert.True(t, changed)
	assert.Equal(t, float32(93), tg.Celsius())

	b.Update(tg, logic.Input{Time: at(300)})
	changed, _ = b.Update(tg, logic.Input{Decrease: true, Time: at(310)})
	assert.True(t, changed)
	assert.Equal(t, float32(92.5), tg.Celsius())
}

func TestButtonsIncreaseWins(t *testing.T) {
	tg := logic.NewTarget(88, 98, 0.5, 92, t0)
	b := NewButtons()

	changed, err := b.Update(tg, logic.Input{Increase: true, Decrease: true, Time: at(10)})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, float32(92.5), tg.Celsius())
}

func TestButtonsClampedPressIsNotAChange(t *testing.T) {
	tg := logic.NewTarget(88, 98, 0.5, 98, t0)
	b := NewButtons()

	changed, _ := b.Update(tg, logic.Input{Increase: true, Time: at(10)})
	assert.False(t, changed)
	assert.Equal(t, t0, tg.LastChange())
}

func TestMapRange(t *testing.T) {
	tests := []struct {
		raw  int32
		want int
	}{
		{0, 176},
		{-50, 176},
		{1023, 196},
		{5000, 196},
		{512, 186},
		{1022, 195},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapRange(tt.raw, 1023, 176, 196), "raw %d", tt.raw)
	}
}

func TestPotentiometer(t *testing.T) {
	f := adc.NewFake()
	tg := logic.NewTarget(88, 98, 0.5, 92, t0)
	p := NewPotentiometer(f, adc.ChannelAux, 1023)

	f.Set(adc.ChannelAux, 1023)
	changed, err := p.Update(tg, logic.Input{Time: at(10)})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, float32(98), tg.Celsius())

	// Same reading, no change.
	changed, _ = p.Update(tg, logic.Input{Time: at(20)})
	assert.False(t, changed)
	assert.Equal(t, at(10), tg.LastChange())

	f.Set(adc.ChannelAux, 0)
	p.Update(tg, logic.Input{Time: at(30)})
	assert.Equal(t, float32(88), tg.Celsius())
}

func TestPotentiometerReadError(t *testing.T) {
	f := adc.NewFake()
	f.ReadError = errors.New("bus error")
	tg := logic.NewTarget(88, 98, 0.5, 92, t0)

	_, err := NewPotentiometer(f, adc.ChannelAux, 1023).Update(tg, logic.Input{Time: at(10)})
	assert.ErrorIs(t, err, f.ReadError)
	assert.Equal(t, float32(92), tg.Celsius())
}

func TestNew(t *testing.T) {
	s, err := New("", nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "buttons", s.Name())

	s, err = New("potentiometer", adc.NewFake(), adc.ChannelAux, 26400)
	require.NoError(t, err)
	assert.Equal(t, "potentiometer", s.Name())

	_, err = New("potentiometer", nil, 0, 0)
	assert.Error(t, err)

	_, err = New("dial", nil, 0, 0)
	assert.Error(t, err)
}
