// Package capture contains the two long-running acquisition loops: the
// trigger loop for sensors in manual mode and the streaming loop for
// the continuous ASCII telemetry feed.
package capture

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/sensorlogic/snodar/internal/frame"
	"github.com/sensorlogic/snodar/internal/ports"
	"github.com/sensorlogic/snodar/internal/snolog"
)

// TriggerMeasurement is the command that requests one on-demand lidar
// measurement. The device expects commands to end with a carriage
// return.
var TriggerMeasurement = []byte("!USA\r")

// Settings are the capture parameters that may change while the loop is
// running (see ConfigWatcher). Everything else is fixed at startup.
type Settings struct {
	MeasurementInterval time.Duration
	ReadDelay           time.Duration
	Verbose             bool
}

// Runner drives a sensor in manual mode: trigger, read back one snolog,
// persist, repeat at a fixed cadence.
type Runner struct {
	transport ports.Transport
	sink      ports.RecordSink
	display   ports.Display
	log       zerolog.Logger
	acc       *frame.Accumulator

	responseWindow time.Duration
	pollInterval   time.Duration

	settings atomic.Pointer[Settings]
}

// NewRunner wires a trigger-mode runner. display may be nil.
func NewRunner(t ports.Transport, sink ports.RecordSink, display ports.Display, log zerolog.Logger, s Settings, responseWindow, pollInterval time.Duration, bufferCap int) *Runner {
	acc := frame.NewAccumulator(log)
	acc.SetBufferCap(bufferCap)
	r := &Runner{
		transport:      t,
		sink:           sink,
		display:        display,
		log:            log,
		acc:            acc,
		responseWindow: responseWindow,
		pollInterval:   pollInterval,
	}
	r.settings.Store(&s)
	return r
}

// Settings returns the current capture settings.
func (r *Runner) Settings() Settings {
	return *r.settings.Load()
}

// UpdateSettings replaces the mutable capture settings. The new
// measurement interval takes effect after the tick in progress.
func (r *Runner) UpdateSettings(s Settings) {
	r.settings.Store(&s)
}

// Run triggers measurements until ctx is cancelled. The cadence is
// fixed from loop start (ticker based), so slow reads do not accumulate
// interval drift. A transport write or read error is fatal and is
// returned; cancellation returns nil.
func (r *Runner) Run(ctx context.Context) error {
	interval := r.Settings().MeasurementInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := r.measure(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if cur := r.Settings().MeasurementInterval; cur != interval {
			interval = cur
			ticker.Reset(interval)
			r.log.Info().Dur("interval", interval).Msg("measurement interval updated")
		}
	}
}

// measure performs one trigger cycle: send the command, wait the
// configured read delay, then poll for the response until a record
// arrives or the response window closes. A partial packet stays in the
// accumulator and completes on a later cycle.
func (r *Runner) measure(ctx context.Context) error {
	s := r.Settings()

	n, err := r.transport.Write(TriggerMeasurement)
	if err != nil {
		return fmt.Errorf("trigger measurement: %w", err)
	}
	if n != len(TriggerMeasurement) {
		return fmt.Errorf("trigger measurement: short write (%d of %d bytes)", n, len(TriggerMeasurement))
	}

	if s.ReadDelay > 0 {
		sleepCtx(ctx, s.ReadDelay)
	}

	deadline := time.Now().Add(r.responseWindow)
	for ctx.Err() == nil {
		chunk, err := r.transport.ReadAvailable()
		if err != nil {
			return fmt.Errorf("read serial: %w", err)
		}
		if len(chunk) > 0 {
			r.acc.Feed(chunk)
		}
		if records := r.acc.Drain(); len(records) > 0 {
			for _, rec := range records {
				if err := r.handle(rec, s.Verbose); err != nil {
					return err
				}
			}
			return nil
		}
		if time.Now().After(deadline) {
			r.log.Warn().Dur("window", r.responseWindow).Msg("no snolog received within response window")
			return nil
		}
		sleepCtx(ctx, r.pollInterval)
	}
	return nil
}

// handle persists one record, then updates the display and logs health
// warnings. Persist comes first so a display problem can never cost a
// row.
func (r *Runner) handle(rec snolog.Record, verbose bool) error {
	if err := r.sink.Append(rec.Row()); err != nil {
		return fmt.Errorf("append log row: %w", err)
	}
	if r.display != nil {
		r.display.Update(time.Unix(int64(rec.UnixTime), 0), float64(rec.LidarTCDistance))
	}
	for _, name := range rec.HealthFlags().Failures() {
		r.log.Warn().Str("flag", name).Msg("sensor health flag not ok")
	}
	if verbose {
		r.log.Info().
			Uint32("unix_time", rec.UnixTime).
			Float32("tc_distance_m", rec.LidarTCDistance).
			Float32("raw_distance_m", rec.LidarRawDistance).
			Float32("pcb_temperature", rec.PCBTemperature).
			Uint8("lidar_status", rec.LidarStatus).
			Msg("snolog decoded")
	}
	return nil
}

// sleepCtx sleeps for d or until ctx is cancelled, whichever is first.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
