// Package telemetry encodes the per-sensing-tick record sent to the analysis
// host over the serial link.
//
// Wire layout, little endian, no framing:
//
//	offset  size  field
//	0       4     elapsed_time        float32, seconds
//	4       4     basket_resistance   float32, ohms
//	8       4     group_resistance    float32, ohms
//	12      4     basket_temperature  float32, °C
//	16      4     group_temperature   float32, °C
//	20      4     machine_state       int32
package telemetry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// RecordSize is the encoded size of a Record in bytes.
const RecordSize = 24

// ErrShortRecord is returned when fewer than RecordSize bytes are decoded.
var ErrShortRecord = errors.New("telemetry: short record")

// Record is one sensing tick's worth of telemetry. It is built, encoded and
// discarded; nothing retains it.
type Record struct {
	ElapsedTime       float32
	BasketResistance  float32
	GroupResistance   float32
	BasketTemperature float32
	GroupTemperature  float32
	State             int32
}

// Encode returns the wire form of r.
func (r Record) Encode() [RecordSize]byte {
	var b [RecordSize]byte
	r.Put(b[:])
	return b
}

// Put writes the wire form of r into b, which must hold RecordSize bytes.
func (r Record) Put(b []byte) {
	_ = b[RecordSize-1]
	le := binary.LittleEndian
	le.PutUint32(b[0:], math.Float32bits(r.ElapsedTime))
	le.PutUint32(b[4:], math.Float32bits(r.BasketResistance))
	le.PutUint32(b[8:], math.Float32bits(r.GroupResistance))
	le.PutUint32(b[12:], math.Float32bits(r.BasketTemperature))
	le.PutUint32(b[16:], math.Float32bits(r.GroupTemperature))
	le.PutUint32(b[20:], uint32(r.State))
}

// Decode parses one record from b.
func Decode(b []byte) (Record, error) {
	if len(b) < RecordSize {
		return Record{}, fmt.Errorf("%w: %d bytes", ErrShortRecord, len(b))
	}
	le := binary.LittleEndian
	return Record{
		ElapsedTime:       math.Float32frombits(le.Uint32(b[0:])),
		BasketResistance:  math.Float32frombits(le.Uint32(b[4:])),
		GroupResistance:   math.Float32frombits(le.Uint32(b[8:])),
		BasketTemperature: math.Float32frombits(le.Uint32(b[12:])),
		GroupTemperature:  math.Float32frombits(le.Uint32(b[16:])),
		State:             int32(le.Uint32(b[20:])),
	}, nil
}

// ReadRecord reads exactly one record from r. The stream has no framing, so a
// reader that starts mid-record stays misaligned.
func ReadRecord(r io.Reader) (Record, error) {
	var b [RecordSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return Record{}, err
	}
	return Decode(b[:])
}
