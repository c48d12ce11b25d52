package smooth

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNewBufferFilled(t *testing.T) {
	b := NewBuffer(100, 10000)
	if b.Cap() != 100 {
		t.Fatalf("Cap: got %d, want 100", b.Cap())
	}
	if got := b.Average(); got != 10000 {
		t.Errorf("Average: got %v, want 10000", got)
	}
	if b.LatestIndex() != 99 {
		t.Errorf("LatestIndex: got %d, want 99", b.LatestIndex())
	}
}

func TestNewBufferMinimumCapacity(t *testing.T) {
	b := NewBuffer(0, 1)
	if b.Cap() != 1 {
		t.Fatalf("Cap: got %d, want 1", b.Cap())
	}
	if got := b.Push(5); got != 5 {
		t.Errorf("Push: got %v, want 5", got)
	}
}

func TestPushWrapsAround(t *testing.T) {
	b := NewBuffer(4, 0)

	wantIndex := []int{0, 1, 2, 3, 0, 1}
	for i, want := range wantIndex {
		b.Push(float32(i + 1))
		if b.LatestIndex() != want {
			t.Errorf("push %d: index got %d, want %d", i, b.LatestIndex(), want)
		}
		if b.Latest() != float32(i+1) {
			t.Errorf("push %d: latest got %v, want %v", i, b.Latest(), i+1)
		}
	}

	// Window now holds 5, 6, 3, 4.
	if got := b.Average(); got != 4.5 {
		t.Errorf("Average: got %v, want 4.5", got)
	}
}

func TestPushAverage(t *testing.T) {
	b := NewBuffer(4, 0)
	tests := []struct {
		sample float32
		want   float32
	}{
		{4, 1},
		{4, 2},
		{4, 3},
		{4, 4},
		{8, 5},
	}
	for i, tt := range tests {
		if got := b.Push(tt.sample); got != tt.want {
			t.Errorf("push %d: got %v, want %v", i, got, tt.want)
		}
	}
}

func TestContaminatedSampleClears(t *testing.T) {
	const capacity = 10
	b := NewBuffer(capacity, 10000)

	got := b.Push(math32.Inf(1))
	if !math32.IsInf(got, 1) {
		t.Fatalf("expected +Inf average with contaminated sample, got %v", got)
	}

	// The average stays non-numeric while the bad sample is in the window.
	for i := 1; i < capacity; i++ {
		got = b.Push(10000)
		if !math32.IsInf(got, 1) {
			t.Fatalf("push %d: expected +Inf while contaminated, got %v", i, got)
		}
	}

	// The bad slot is overwritten on the next push.
	if got = b.Push(10000); got != 10000 {
		t.Errorf("expected recovered average 10000, got %v", got)
	}
}

func TestNaNSampleClears(t *testing.T) {
	b := NewBuffer(3, 2)
	if got := b.Push(math32.NaN()); !math32.IsNaN(got) {
		t.Fatalf("expected NaN, got %v", got)
	}
	b.Push(2)
	b.Push(2)
	if got := b.Push(2); got != 2 {
		t.Errorf("expected 2 after NaN left the window, got %v", got)
	}
}

func TestPropertyConstantFillAverage(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	props := gopter.NewProperties(params)

	props.Property("window filled with x averages to exactly x", prop.ForAll(
		func(x float32, capacity int) bool {
			b := NewBuffer(capacity, 0)
			var avg float32
			for i := 0; i < capacity; i++ {
				avg = b.Push(x)
			}
			return avg == x
		},
		gen.Float32Range(-1e6, 1e7),
		gen.IntRange(1, 200),
	))

	props.Property("one transient hiccup never outlives the window", prop.ForAll(
		func(x float32, capacity int) bool {
			b := NewBuffer(capacity, x)
			b.Push(math32.Inf(1))
			var avg float32
			for i := 0; i < capacity; i++ {
				avg = b.Push(x)
			}
			return avg == x
		},
		gen.Float32Range(1, 1e6),
		gen.IntRange(1, 200),
	))

	props.TestingRun(t)
}
