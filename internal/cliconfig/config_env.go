package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables
// (SNODAR_*). It respects flags that have been explicitly set (changed
// map). Returns an error if any variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	if err := s.setIntFromString("baud", os.Getenv("SNODAR_BAUD"), &cfg.Baud); err != nil {
		return err
	}
	if err := s.setIntFromString("buffer-cap", os.Getenv("SNODAR_BUFFER_CAP"), &cfg.BufferCap); err != nil {
		return err
	}

	if err := s.setDuration("measurement-interval", os.Getenv("SNODAR_MEASUREMENT_INTERVAL"), &cfg.MeasurementInterval); err != nil {
		return err
	}
	if err := s.setDuration("read-delay", os.Getenv("SNODAR_READ_DELAY"), &cfg.ReadDelay); err != nil {
		return err
	}
	if err := s.setDuration("response-window", os.Getenv("SNODAR_RESPONSE_WINDOW"), &cfg.ResponseWindow); err != nil {
		return err
	}
	if err := s.setDuration("poll", os.Getenv("SNODAR_POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}

	s.setBoolFromString("verbose", os.Getenv("SNODAR_VERBOSE"), &cfg.Verbose)

	return nil
}
