package gpio

import "errors"

// FakeInputs is a test double that returns scripted switch levels.
type FakeInputs struct {
	// Samples contains scripted levels to return.
	// Each call to Read() consumes the next sample.
	Samples []Levels

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeInputs creates a FakeInputs with the given samples.
func NewFakeInputs(samples ...Levels) *FakeInputs {
	return &FakeInputs{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeInputs) Read() (Levels, error) {
	if f.ReadError != nil {
		return Levels{}, f.ReadError
	}

	if len(f.Samples) == 0 {
		return Levels{}, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Push appends samples to the script.
func (f *FakeInputs) Push(samples ...Levels) {
	f.Samples = append(f.Samples, samples...)
}

// Close marks the reader as closed.
func (f *FakeInputs) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeInputs) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeFan records fan commands.
type FakeFan struct {
	// Inverted mirrors the real line's polarity for Level.
	Inverted bool

	// On is the last logical state set.
	On bool

	// History holds every logical state set, in order.
	History []bool

	// SetError, if set, will be returned by Set()
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// Set records the logical fan state.
func (f *FakeFan) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.On = on
	f.History = append(f.History, on)
	return nil
}

// Level returns the physical line level the real driver would output.
func (f *FakeFan) Level() int {
	return LineLevel(f.On, f.Inverted)
}

// Close turns the fan off.
func (f *FakeFan) Close() error {
	f.On = false
	f.Closed = true
	return nil
}
