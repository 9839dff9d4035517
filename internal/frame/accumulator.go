// Package frame buffers bytes arriving from non-blocking serial reads
// and extracts complete records from them: binary snolog packets
// (Accumulator) or newline-terminated ASCII telemetry (LineAccumulator).
package frame

import (
	"bytes"
	"time"

	"github.com/rs/zerolog"

	"github.com/sensorlogic/snodar/internal/snolog"
)

// DefaultBufferCap bounds accumulator growth when the stream never
// yields a decodable record. Oldest bytes are dropped beyond the cap.
const DefaultBufferCap = 4096

// Accumulator collects raw bytes across reads until complete snolog
// packets can be extracted. It is owned by a single capture loop and is
// not safe for concurrent use.
type Accumulator struct {
	log zerolog.Logger
	buf []byte
	cap int
	now func() time.Time
}

// NewAccumulator returns an empty accumulator with the default buffer
// cap.
func NewAccumulator(log zerolog.Logger) *Accumulator {
	return &Accumulator{
		log: log,
		cap: DefaultBufferCap,
		now: time.Now,
	}
}

// SetBufferCap overrides the growth bound. Values below one packet are
// clamped so a complete packet always fits.
func (a *Accumulator) SetBufferCap(n int) {
	if n < snolog.Size {
		n = snolog.Size
	}
	a.cap = n
}

// Feed appends bytes read from the transport. If the buffer would
// exceed the cap, the oldest bytes are discarded and a diagnostic is
// logged; no other path loses bytes.
func (a *Accumulator) Feed(p []byte) {
	a.buf = append(a.buf, p...)
	if over := len(a.buf) - a.cap; over > 0 {
		a.buf = a.buf[over:]
		a.log.Warn().Int("dropped_bytes", over).Int("cap", a.cap).
			Msg("accumulator over capacity, dropping oldest bytes")
	}
}

// Pending reports how many buffered bytes have not yet been consumed
// into a record.
func (a *Accumulator) Pending() int {
	return len(a.buf)
}

// Drain extracts every complete, valid packet currently buffered, in
// arrival order, stamping each with the current clock reading. On a
// validation failure it resynchronizes by scanning forward to the next
// start marker; skipped bytes are counted in a diagnostic. The
// unconsumed tail (at most one partial packet, once synchronized) is
// retained for the next call.
func (a *Accumulator) Drain() []snolog.Record {
	var records []snolog.Record
	for len(a.buf) >= snolog.Size {
		err := snolog.Validate(a.buf)
		if err == nil {
			rec, derr := snolog.Unmarshal(a.buf)
			if derr != nil {
				// Validate passed, so this cannot happen; resync anyway.
				err = derr
			} else {
				rec.Timestamp = a.now()
				records = append(records, rec)
				a.buf = a.buf[snolog.Size:]
				continue
			}
		}
		skipped := a.resync()
		a.log.Warn().Err(err).Int("skipped_bytes", skipped).
			Msg("invalid frame, resynchronizing")
	}
	return records
}

// resync discards bytes up to the next start marker after the current
// position, or the whole buffer if none is present. Returns the number
// of bytes skipped.
func (a *Accumulator) resync() int {
	idx := bytes.IndexByte(a.buf[1:], snolog.Marker)
	if idx < 0 {
		n := len(a.buf)
		a.buf = a.buf[:0]
		return n
	}
	n := idx + 1
	a.buf = a.buf[n:]
	return n
}
