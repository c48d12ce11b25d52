// Package smooth provides the fixed-capacity moving-average buffer used to
// suppress sampling noise on raw sensor readings.
package smooth

// Buffer is a circular window of the most recent samples. Its capacity is
// fixed at construction.
//
// The average is recomputed over the whole window on every push instead of
// being maintained as a running sum: a disconnected sensor produces +Inf or
// NaN samples, and a running sum would stay contaminated after the bad
// sample left the window. Recomputing confines the damage to the ticks
// during which the bad sample is inside the window.
//
// Not safe for concurrent use.
type Buffer struct {
	samples []float32
	latest  int
}

// NewBuffer returns a buffer of the given capacity with every slot set to
// fill. Capacities below 1 are raised to 1.
func NewBuffer(capacity int, fill float32) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	b := &Buffer{
		samples: make([]float32, capacity),
		latest:  capacity - 1,
	}
	for i := range b.samples {
		b.samples[i] = fill
	}
	return b
}

// Push overwrites the oldest slot with sample and returns the new average.
func (b *Buffer) Push(sample float32) float32 {
	b.latest = (b.latest + 1) % len(b.samples)
	b.samples[b.latest] = sample
	return b.Average()
}

// Average returns the arithmetic mean of every slot. Samples are summed in
// float64, so a window holding a single repeated value averages back to
// exactly that value.
func (b *Buffer) Average() float32 {
	var sum float64
	for _, s := range b.samples {
		sum += float64(s)
	}
	return float32(sum / float64(len(b.samples)))
}

// Latest returns the most recently pushed sample.
func (b *Buffer) Latest() float32 {
	return b.samples[b.latest]
}

// LatestIndex returns the slot written by the last push.
func (b *Buffer) LatestIndex() int {
	return b.latest
}

// Cap returns the fixed number of slots.
func (b *Buffer) Cap() int {
	return len(b.samples)
}
