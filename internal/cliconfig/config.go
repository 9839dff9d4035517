// Package cliconfig holds the capture tool's configuration and the
// merge logic for its three sources: command-line flags, SNODAR_*
// environment variables, and an optional TOML config file. Precedence
// is flags over environment over file over defaults.
package cliconfig

import (
	"fmt"
	"strconv"
	"time"
)

// DefaultBaud is the SNOdar's RS-232 line rate.
const DefaultBaud = 19200

// Config holds CLI configuration for the capture tools.
type Config struct {
	Baud int

	// MeasurementInterval is the fixed cadence between trigger
	// commands in capture mode.
	MeasurementInterval time.Duration

	// ReadDelay is an optional pause between sending the trigger and
	// starting to read the response.
	ReadDelay time.Duration

	// ResponseWindow bounds how long capture mode polls for a response
	// after one trigger.
	ResponseWindow time.Duration

	// PollInterval is the pause between non-blocking reads.
	PollInterval time.Duration

	// BufferCap bounds accumulator growth, in bytes.
	BufferCap int

	// Verbose dumps every decoded record to the log.
	Verbose bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Baud:                DefaultBaud,
		MeasurementInterval: 30 * time.Second,
		ReadDelay:           0,
		ResponseWindow:      10 * time.Second,
		PollInterval:        100 * time.Millisecond,
		BufferCap:           4096,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Baud <= 0 {
		return fmt.Errorf("baud rate must be positive")
	}
	if c.MeasurementInterval <= 0 {
		return fmt.Errorf("measurement interval must be positive")
	}
	if c.ReadDelay < 0 {
		return fmt.Errorf("read delay must not be negative")
	}
	if c.ReadDelay >= c.MeasurementInterval {
		return fmt.Errorf("read delay must be shorter than the measurement interval")
	}
	if c.ResponseWindow <= 0 {
		return fmt.Errorf("response window must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.BufferCap < 128 {
		return fmt.Errorf("buffer cap must hold at least one packet (128 bytes)")
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag
// precedence. It only applies values if the corresponding flag hasn't
// been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag
// not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not
// changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if
// valid. Used for environment variables.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
