// Package ports defines the interfaces (ports) that connect the capture
// loops to infrastructure adapters.
//
// The capture core depends only on these interfaces; concrete
// implementations (serial port, CSV file, console display) live in
// internal/adapters. Tests substitute in-memory fakes.
//
//   - [Transport]: the serial link to the sensor
//   - [RecordSink]: the persistent tabular log
//   - [Display]: best-effort live rendering of measurements
package ports
