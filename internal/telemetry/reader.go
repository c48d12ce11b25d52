package telemetry

import (
	"bufio"
	"errors"
	"io"
	"math"
)

// maxResyncBytes bounds how far Reader scans for a plausible record before
// giving up on the stream.
const maxResyncBytes = 64 * RecordSize

// ErrNoSync is returned when no plausible record is found within
// maxResyncBytes.
var ErrNoSync = errors.New("telemetry: no plausible record in stream")

// Plausible reports whether r could have been produced by the controller:
// a known machine state, a finite non-negative stopwatch, resistances that
// are NaN or non-negative (possibly infinite) and temperatures that are NaN
// or above absolute zero. It is used to find record boundaries in an unframed stream.
func (r Record) Plausible() bool {
	if r.State < 0 || r.State > 3 {
		return false
	}
	e := float64(r.ElapsedTime)
	if math.IsNaN(e) || math.IsInf(e, 0) || e < 0 || e > 1e6 {
		return false
	}
	// A shorted probe reads 0 ohms and a dead reference NaN; both are real
	// controller output.
	for _, ohms := range []float32{r.BasketResistance, r.GroupResistance} {
		v := float64(ohms)
		if v < 0 || math.IsInf(v, -1) {
			return false
		}
	}
	for _, c := range []float32{r.BasketTemperature, r.GroupTemperature} {
		v := float64(c)
		if math.IsNaN(v) {
			continue
		}
		if math.IsInf(v, 0) || v < -273.15 || v > 1000 {
			return false
		}
	}
	return true
}

// Reader decodes records from an unframed stream. When a record fails the
// plausibility check it slides forward one byte at a time until the stream
// realigns, so a host that opens the port mid-record still recovers.
type Reader struct {
	br      *bufio.Reader
	skipped uint64
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 4*RecordSize)}
}

// Next returns the next plausible record.
func (t *Reader) Next() (Record, error) {
	for scanned := 0; scanned <= maxResyncBytes; scanned++ {
		b, err := t.br.Peek(RecordSize)
		if err != nil {
			if err == io.EOF && len(b) > 0 {
				err = io.ErrUnexpectedEOF
			}
			return Record{}, err
		}
		rec, _ := Decode(b)
		if rec.Plausible() {
			t.br.Discard(RecordSize)
			return rec, nil
		}
		t.br.Discard(1)
		t.skipped++
	}
	return Record{}, ErrNoSync
}

// Skipped returns the number of bytes discarded while resynchronising.
func (t *Reader) Skipped() uint64 {
	return t.skipped
}
