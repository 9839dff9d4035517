package frame

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// AsciiFieldNames lists the telemetry columns the sensor emits per line
// in snow-depth mode, in wire order. Column 0 is the device's unix
// timestamp and column 12 the lidar distance.
var AsciiFieldNames = []string{
	"Time",
	"Current (mA)",
	"Voltage (V)",
	"NRF Temperature",
	"PCB Temperature",
	"IMU Temperature",
	"IMU Roll",
	"IMU Pitch",
	"IMU Yaw",
	"IMU Flag",
	"Lidar SoC Temperature",
	"Lidar PCB Temperature",
	"Lidar Distance",
	"Heater Enabled",
	"Outside Temperature",
	"Seasonal Snow Depth",
	"Seasonal Snow Fall",
	"New Snow Fall",
	"DoY SWE",
	"Temp SWE",
}

const asciiTimeIndex, asciiDistanceIndex = 0, 12

// AsciiRecord is one decoded telemetry line: the capture-side timestamp
// plus the line's numeric fields in wire order.
type AsciiRecord struct {
	Timestamp time.Time
	Values    []float64
}

// DeviceTime returns the device-reported unix timestamp, when present.
func (r AsciiRecord) DeviceTime() (float64, bool) {
	if len(r.Values) <= asciiTimeIndex {
		return 0, false
	}
	return r.Values[asciiTimeIndex], true
}

// Distance returns the lidar distance column, when present.
func (r AsciiRecord) Distance() (float64, bool) {
	if len(r.Values) <= asciiDistanceIndex {
		return 0, false
	}
	return r.Values[asciiDistanceIndex], true
}

// Row renders the values as CSV fields, padded or truncated to the
// named column set so every persisted row matches the header width.
func (r AsciiRecord) Row() []string {
	out := make([]string, len(AsciiFieldNames))
	for i := range out {
		if i < len(r.Values) {
			out[i] = strconv.FormatFloat(r.Values[i], 'g', -1, 64)
		}
	}
	return out
}

// LineAccumulator collects bytes until newline-terminated telemetry
// lines can be parsed. An unterminated trailing line is retained for
// the next Drain. Like Accumulator, it is owned by one loop.
type LineAccumulator struct {
	log zerolog.Logger
	buf []byte
	cap int
	now func() time.Time
}

// NewLineAccumulator returns an empty line accumulator with the default
// buffer cap.
func NewLineAccumulator(log zerolog.Logger) *LineAccumulator {
	return &LineAccumulator{
		log: log,
		cap: DefaultBufferCap,
		now: time.Now,
	}
}

// SetBufferCap overrides the growth bound. Values below one plausible
// telemetry line are clamped.
func (a *LineAccumulator) SetBufferCap(n int) {
	if n < 64 {
		n = 64
	}
	a.cap = n
}

// Feed appends bytes, dropping the oldest beyond the cap with a
// diagnostic.
func (a *LineAccumulator) Feed(p []byte) {
	a.buf = append(a.buf, p...)
	if over := len(a.buf) - a.cap; over > 0 {
		a.buf = a.buf[over:]
		a.log.Warn().Int("dropped_bytes", over).Int("cap", a.cap).
			Msg("line accumulator over capacity, dropping oldest bytes")
	}
}

// Pending reports the size of the retained tail.
func (a *LineAccumulator) Pending() int {
	return len(a.buf)
}

// Drain parses every complete line currently buffered into records, in
// arrival order. A line with an unparsable field is dropped with a
// diagnostic; the stream continues. Field counts other than the named
// schema are accepted with a diagnostic, firmware variants permitting.
func (a *LineAccumulator) Drain() []AsciiRecord {
	var records []AsciiRecord
	for {
		idx := bytes.IndexByte(a.buf, '\n')
		if idx < 0 {
			return records
		}
		line := strings.TrimRight(string(a.buf[:idx]), "\r")
		a.buf = a.buf[idx+1:]
		if line == "" {
			continue
		}
		values, err := parseLine(line)
		if err != nil {
			a.log.Warn().Err(err).Str("line", line).Msg("dropping unparsable telemetry line")
			continue
		}
		if len(values) != len(AsciiFieldNames) {
			a.log.Warn().Int("fields", len(values)).Int("expected", len(AsciiFieldNames)).
				Msg("telemetry line field count differs from schema")
		}
		records = append(records, AsciiRecord{Timestamp: a.now(), Values: values})
	}
}

func parseLine(line string) ([]float64, error) {
	fields := strings.Split(line, ",")
	values := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}
