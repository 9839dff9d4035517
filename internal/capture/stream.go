package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sensorlogic/snodar/internal/frame"
	"github.com/sensorlogic/snodar/internal/ports"
)

// Streamer logs the sensor's continuous ASCII telemetry feed. It never
// sends commands; the device is expected to be configured for periodic
// measurements with ASCII output enabled.
type Streamer struct {
	transport ports.Transport
	sink      ports.RecordSink
	display   ports.Display
	log       zerolog.Logger
	acc       *frame.LineAccumulator

	pollInterval time.Duration
	verbose      bool
}

// NewStreamer wires a streaming-mode logger. display may be nil.
func NewStreamer(t ports.Transport, sink ports.RecordSink, display ports.Display, log zerolog.Logger, pollInterval time.Duration, bufferCap int, verbose bool) *Streamer {
	acc := frame.NewLineAccumulator(log)
	acc.SetBufferCap(bufferCap)
	return &Streamer{
		transport:    t,
		sink:         sink,
		display:      display,
		log:          log,
		acc:          acc,
		pollInterval: pollInterval,
		verbose:      verbose,
	}
}

// Run polls the transport until ctx is cancelled. A transport read
// error is fatal and returned; unparsable lines are dropped by the
// accumulator and the loop continues.
func (s *Streamer) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		chunk, err := s.transport.ReadAvailable()
		if err != nil {
			return fmt.Errorf("read serial: %w", err)
		}
		if len(chunk) > 0 {
			s.acc.Feed(chunk)
		}
		for _, rec := range s.acc.Drain() {
			if err := s.handle(rec); err != nil {
				return err
			}
		}
		sleepCtx(ctx, s.pollInterval)
	}
	return nil
}

func (s *Streamer) handle(rec frame.AsciiRecord) error {
	if err := s.sink.Append(rec.Row()); err != nil {
		return fmt.Errorf("append log row: %w", err)
	}
	if s.display != nil {
		if dist, ok := rec.Distance(); ok {
			t := rec.Timestamp
			if dev, ok := rec.DeviceTime(); ok {
				t = time.Unix(int64(dev), 0)
			}
			s.display.Update(t, dist)
		}
	}
	if s.verbose {
		s.log.Info().Floats64("values", rec.Values).Msg("telemetry line")
	}
	return nil
}
