// Package console implements ports.Display by logging the latest
// measurement. It stands in for the graphical plot of the desktop
// tooling: purely observational, and a rendering problem can never
// stall or fail the capture loop.
package console

import (
	"time"

	"github.com/rs/zerolog"
)

// Display logs each measurement at info level.
type Display struct {
	log zerolog.Logger
}

// New returns a Display writing through log.
func New(log zerolog.Logger) *Display {
	return &Display{log: log}
}

// Update renders one measurement.
func (d *Display) Update(t time.Time, distance float64) {
	d.log.Info().Time("measured_at", t).Float64("distance_m", distance).Msg("measurement")
}
