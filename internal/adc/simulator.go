package adc

import (
	"math"
	"sync"
	"time"
)

// SimProbe describes one simulated NTC thermistor on a pull-up divider.
type SimProbe struct {
	Channel int
	// Known is the fixed divider resistor in ohms.
	Known float64
	// R25 and Beta describe the thermistor (resistance at 25 °C, B constant).
	R25  float64
	Beta float64
	// Celsius is the current probe temperature.
	Celsius float64
}

// Simulator produces divider readings that follow a simple thermal model:
// each probe drifts toward a heat source temperature and is pulled down while
// the fan is on. It also serves a fixed reference voltage.
type Simulator struct {
	mu       sync.Mutex
	vref     float64
	probes   []*SimProbe
	heatTo   float64
	heatRate float64
	coolRate float64
	cooling  bool
	last     time.Time
	now      func() time.Time
}

// NewSimulator creates a simulator with a reference voltage, a heat source
// temperature and probes. now is the clock used to integrate the model.
func NewSimulator(vref, heatTo float64, now func() time.Time, probes ...*SimProbe) *Simulator {
	if now == nil {
		now = time.Now
	}
	return &Simulator{
		vref:     vref,
		probes:   probes,
		heatTo:   heatTo,
		heatRate: 0.05,
		coolRate: 0.5,
		last:     now(),
		now:      now,
	}
}

// SetCooling turns the simulated fan on or off. It satisfies the same shape
// as the fan output so the simulator can observe the controller.
func (s *Simulator) SetCooling(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step()
	s.cooling = on
}

// Celsius returns the current temperature of the probe on a channel.
func (s *Simulator) Celsius(channel int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.probes {
		if p.Channel == channel {
			return p.Celsius
		}
	}
	return math.NaN()
}

// step integrates the model up to now. Caller holds mu.
func (s *Simulator) step() {
	t := s.now()
	dt := t.Sub(s.last).Seconds()
	s.last = t
	if dt <= 0 {
		return
	}
	for _, p := range s.probes {
		p.Celsius += (s.heatTo - p.Celsius) * s.heatRate * dt
		if s.cooling {
			p.Celsius -= s.coolRate * dt
		}
	}
}

// Raw returns the reference voltage on channel 0 and the divider voltage
// for simulated probes. Channels without a probe read as the reference,
// which the resistance model reports as disconnected.
func (s *Simulator) Raw(channel int) (int32, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step()

	v := s.vref
	for _, p := range s.probes {
		if p.Channel == channel {
			r := p.resistance()
			v = s.vref * r / (r + p.Known)
			break
		}
	}
	return int32(math.Round(v / VoltsPerCount)), nil
}

// Close is a no-op.
func (s *Simulator) Close() error {
	return nil
}

// resistance follows the beta model R = R25·exp(B·(1/T − 1/298.15)).
func (p *SimProbe) resistance() float64 {
	k := p.Celsius + 273.15
	return p.R25 * math.Exp(p.Beta*(1/k-1/298.15))
}
