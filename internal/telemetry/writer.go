package telemetry

import (
	"fmt"
	"io"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// Writer sends records to a byte stream. Delivery is best effort: a failed
// or short write drops that record and is never retried.
type Writer struct {
	w       io.Writer
	buf     [RecordSize]byte
	written atomic.Uint64
	failed  atomic.Uint64
	// OnFailure, if set, is called for each dropped record.
	OnFailure func(error)
}

// NewWriter wraps w. A nil w drops every record silently.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Send encodes and writes one record. It reports whether the record was
// written in full.
func (t *Writer) Send(r Record) bool {
	if t.w == nil {
		return false
	}
	r.Put(t.buf[:])
	n, err := t.w.Write(t.buf[:])
	if err == nil && n != RecordSize {
		err = io.ErrShortWrite
	}
	if err != nil {
		n := t.failed.Add(1)
		// Log the first failure and then every thousandth, the link runs at
		// the sensing rate.
		if n == 1 || n%1000 == 0 {
			log.WithField("component", "telemetry").Warnf("dropped record (%d so far): %v", n, err)
		}
		if t.OnFailure != nil {
			t.OnFailure(err)
		}
		return false
	}
	t.written.Add(1)
	return true
}

// Written returns the number of records written in full.
func (t *Writer) Written() uint64 { return t.written.Load() }

// Failed returns the number of dropped records.
func (t *Writer) Failed() uint64 { return t.failed.Load() }

// Close closes the underlying stream if it is closable.
func (t *Writer) Close() error {
	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// OpenSerial opens a serial port in 8N1 mode at the given baud rate.
func OpenSerial(name string, baud int) (serial.Port, error) {
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	return port, nil
}

// Ports lists the serial ports present on the host.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
