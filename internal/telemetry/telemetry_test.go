package telemetry

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLayout(t *testing.T) {
	r := Record{
		ElapsedTime:       1.5,
		BasketResistance:  19880,
		GroupResistance:   20000,
		BasketTemperature: 66.6,
		GroupTemperature:  92.25,
		State:             3,
	}
	b := r.Encode()

	require.Len(t, b, RecordSize)
	// 1.5f = 0x3fc00000
	assert.Equal(t, []byte{0x00, 0x00, 0xc0, 0x3f}, b[0:4])
	// 19880f = 0x469b5000
	assert.Equal(t, []byte{0x00, 0x50, 0x9b, 0x46}, b[4:8])
	assert.Equal(t, []byte{0x03, 0x00, 0x00, 0x00}, b[20:24])
}

func TestDecodeRoundTrip(t *testing.T) {
	r := Record{
		ElapsedTime:       12.3,
		BasketResistance:  float32(math.Inf(1)),
		GroupResistance:   18000,
		BasketTemperature: float32(math.NaN()),
		GroupTemperature:  93.5,
		State:             1,
	}
	b := r.Encode()

	got, err := Decode(b[:])
	require.NoError(t, err)
	assert.Equal(t, r.ElapsedTime, got.ElapsedTime)
	assert.True(t, math.IsInf(float64(got.BasketResistance), 1))
	assert.True(t, math.IsNaN(float64(got.BasketTemperature)))
	assert.Equal(t, r.GroupTemperature, got.GroupTemperature)
	assert.Equal(t, r.State, got.State)
}

func TestDecodeShort(t *testing.T) {
	_, err := Decode(make([]byte, RecordSize-1))
	assert.ErrorIs(t, err, ErrShortRecord)
}

func TestReadRecordStream(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for i := 0; i < 3; i++ {
		require.True(t, w.Send(Record{ElapsedTime: float32(i), State: int32(i)}))
	}
	assert.Equal(t, uint64(3), w.Written())
	assert.Equal(t, 3*RecordSize, buf.Len())

	for i := 0; i < 3; i++ {
		r, err := ReadRecord(&buf)
		require.NoError(t, err)
		assert.Equal(t, float32(i), r.ElapsedTime)
		assert.Equal(t, int32(i), r.State)
	}
	_, err := ReadRecord(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

type failingWriter struct {
	n   int
	err error
}

func (f *failingWriter) Write(p []byte) (int, error) {
	return f.n, f.err
}

func TestWriterDropsFailures(t *testing.T) {
	fw := &failingWriter{err: errors.New("link down")}
	w := NewWriter(fw)

	var seen []error
	w.OnFailure = func(err error) { seen = append(seen, err) }

	assert.False(t, w.Send(Record{}))
	assert.False(t, w.Send(Record{}))
	assert.Equal(t, uint64(2), w.Failed())
	assert.Equal(t, uint64(0), w.Written())
	assert.Len(t, seen, 2)
}

func TestWriterShortWrite(t *testing.T) {
	w := NewWriter(&failingWriter{n: 10})
	var got error
	w.OnFailure = func(err error) { got = err }

	assert.False(t, w.Send(Record{}))
	assert.ErrorIs(t, got, io.ErrShortWrite)
}

func TestWriterNil(t *testing.T) {
	w := NewWriter(nil)
	assert.False(t, w.Send(Record{}))
	assert.Equal(t, uint64(0), w.Failed())
	assert.NoError(t, w.Close())
}

func sample(state int32) Record {
	return Record{
		ElapsedTime:       1.5,
		BasketResistance:  19880,
		GroupResistance:   20000,
		BasketTemperature: 66.6,
		GroupTemperature:  92.25,
		State:             state,
	}
}

func TestPlausible(t *testing.T) {
	inf := float32(math.Inf(1))
	nan := float32(math.NaN())
	tests := []struct {
		name   string
		mutate func(*Record)
		want   bool
	}{
		{"ok", func(r *Record) {}, true},
		{"disconnected probe", func(r *Record) { r.GroupResistance = inf; r.GroupTemperature = nan }, true},
		{"unknown state", func(r *Record) { r.State = 4 }, false},
		{"negative state", func(r *Record) { r.State = -1 }, false},
		{"NaN elapsed", func(r *Record) { r.ElapsedTime = nan }, false},
		{"negative elapsed", func(r *Record) { r.ElapsedTime = -1 }, false},
		{"shorted probe", func(r *Record) { r.BasketResistance = 0; r.BasketTemperature = nan }, true},
		{"dead reference", func(r *Record) { r.BasketResistance = nan; r.GroupResistance = nan }, true},
		{"negative resistance", func(r *Record) { r.BasketResistance = -1 }, false},
		{"negative infinite resistance", func(r *Record) { r.GroupResistance = -inf }, false},
		{"below absolute zero", func(r *Record) { r.BasketTemperature = -300 }, false},
		{"infinite temperature", func(r *Record) { r.GroupTemperature = inf }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sample(3)
			tt.mutate(&r)
			assert.Equal(t, tt.want, r.Plausible())
		})
	}
}

func TestReaderAcceptsShortedSensor(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < 5; i++ {
		r := sample(1)
		// RatioResistance(+Inf, 9940) for a channel reading 0 counts.
		r.GroupResistance = 0
		r.GroupTemperature = float32(math.NaN())
		b := r.Encode()
		buf.Write(b[:])
	}

	tr := NewReader(&buf)
	for i := 0; i < 5; i++ {
		rec, err := tr.Next()
		require.NoError(t, err, "record %d", i)
		assert.Zero(t, rec.GroupResistance)
		assert.True(t, math.IsNaN(float64(rec.GroupTemperature)))
	}
	_, err := tr.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Zero(t, tr.Skipped())
}

func TestReaderAligned(t *testing.T) {
	var buf bytes.Buffer
	for s := int32(0); s < 3; s++ {
		b := sample(s).Encode()
		buf.Write(b[:])
	}

	r := NewReader(&buf)
	for s := int32(0); s < 3; s++ {
		rec, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, s, rec.State)
	}
	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Zero(t, r.Skipped())
}

func TestReaderResyncsAfterPartialRecord(t *testing.T) {
	var buf bytes.Buffer
	// Tail of a record the host missed the start of.
	buf.Write([]byte{0xde, 0xad, 0xbe})
	for i := 0; i < 2; i++ {
		b := sample(3).Encode()
		buf.Write(b[:])
	}

	r := NewReader(&buf)
	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, sample(3), rec)
	assert.Equal(t, uint64(3), r.Skipped())

	rec, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, sample(3), rec)
}

func TestReaderTruncated(t *testing.T) {
	b := sample(1).Encode()
	stream := append(b[:], b[:10]...)

	r := NewReader(bytes.NewReader(stream))
	_, err := r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReaderGivesUpOnNoise(t *testing.T) {
	r := NewReader(bytes.NewReader(bytes.Repeat([]byte{0xff}, 2000)))
	_, err := r.Next()
	assert.ErrorIs(t, err, ErrNoSync)
}
