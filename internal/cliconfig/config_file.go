package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML
// friendly.
type FileConfig struct {
	Baud                int    `toml:"baud"`
	MeasurementInterval string `toml:"measurement_interval"`
	ReadDelay           string `toml:"read_delay"`
	ResponseWindow      string `toml:"response_window"`
	PollInterval        string `toml:"poll_interval"`
	BufferCap           int    `toml:"buffer_cap"`
	Verbose             *bool  `toml:"verbose"`
}

// LoadFileConfig reads and parses a TOML config file from the given
// path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.snodar/config.toml if the user home
// directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".snodar", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config
// struct. It respects flags that have been explicitly set (changed
// map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setInt("baud", fc.Baud, &cfg.Baud)
	s.setInt("buffer-cap", fc.BufferCap, &cfg.BufferCap)

	if err := s.setDuration("measurement-interval", fc.MeasurementInterval, &cfg.MeasurementInterval); err != nil {
		return err
	}
	if err := s.setDuration("read-delay", fc.ReadDelay, &cfg.ReadDelay); err != nil {
		return err
	}
	if err := s.setDuration("response-window", fc.ResponseWindow, &cfg.ResponseWindow); err != nil {
		return err
	}
	if err := s.setDuration("poll", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}

	s.setBool("verbose", fc.Verbose, &cfg.Verbose)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
